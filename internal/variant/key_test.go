package variant

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildKey(t *testing.T) {
	tests := []struct {
		name  string
		chrom string
		start int64
		ref   string
		alt   string
		want  string
	}{
		{"SNV", "1", 1000, "A", "C", "1_1000_A_C"},
		{"insertion", "X", 55, "", "TT", "X_55__TT"},
		{"deletion", "22", 16050075, "AG", "", "22_16050075_AG_"},
		{"dash treated as empty", "2", 10, "-", "A", "2_10__A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildKey(tt.chrom, tt.start, tt.ref, tt.alt))
		})
	}
}

func TestBuildKey_LongAllelesAreDigested(t *testing.T) {
	long := strings.Repeat("ACGT", 20)
	key := BuildKey("1", 100, long, "A")

	assert.True(t, strings.HasPrefix(key, "1_100_"))
	parts := strings.Split(key, "_")
	assert.Len(t, parts, 4)
	assert.Len(t, parts[2], 40)
	assert.Equal(t, "A", parts[3])

	assert.Equal(t, key, BuildKey("1", 100, long, "A"))
	assert.NotEqual(t, key, BuildKey("1", 100, long+"A", "A"))

	// just below the threshold the allele is kept verbatim
	short := strings.Repeat("A", MaxKeyAlleleLength-1)
	assert.Equal(t, "1_100_"+short+"_C", BuildKey("1", 100, short, "C"))
}

func TestBuildKey_Injective(t *testing.T) {
	chroms := []string{"1", "2", "10", "X", "MT"}
	alleles := []string{"", "A", "C", "AC", "CA", "ACG", "(A)5", "NOVARIATION"}

	seen := make(map[string]string)
	for _, c := range chroms {
		for start := int64(1); start <= 12; start++ {
			for _, ref := range alleles {
				for _, alt := range alleles {
					tuple := fmt.Sprintf("%s|%d|%s|%s", c, start, ref, alt)
					key := BuildKey(c, start, ref, alt)
					if prev, ok := seen[key]; ok {
						t.Fatalf("key %q produced by %s and %s", key, prev, tuple)
					}
					seen[key] = tuple
				}
			}
		}
	}
}

func TestVariant_Key(t *testing.T) {
	a := New("1", 100, "A", "C")
	b := New("1", 100, "A", "C")
	b.IDs = []string{"rs1"}
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), New("1", 101, "A", "C").Key())
}
