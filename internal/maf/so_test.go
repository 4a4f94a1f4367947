package maf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSOAccessions(t *testing.T) {
	tests := []struct {
		consequence string
		want        []int
	}{
		{"", nil},
		{"missense_variant", []int{1583}},
		{"missense_variant,splice_region_variant", []int{1583, 1630}},
		{"frameshift_variant&NMD_transcript_variant", []int{1589, 1621}},
		{"stop_gained,stop_gained", []int{1587}},
		{"not_a_term", nil},
		{" intron_variant ", []int{1627}},
	}

	for _, tt := range tests {
		t.Run(tt.consequence, func(t *testing.T) {
			assert.Equal(t, tt.want, SOAccessions(tt.consequence))
		})
	}
}
