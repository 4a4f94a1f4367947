package merge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-variants/internal/document"
	"github.com/inodb/vibe-variants/internal/variant"
)

func sampleVariant() *variant.Variant {
	v := variant.New("1", 1000, "A", "C")
	v.IDs = []string{"rs123"}
	v.AddSourceEntry(&variant.SourceEntry{
		FileID:              "file1",
		StudyID:             "study1",
		SecondaryAlternates: []string{"G"},
		Attributes:          map[string]string{"AC": "3", "CSQ.gene": "KRAS"},
		Format:              "GT:DP",
		SamplesData: []map[string]string{
			{"GT": "0|1", "DP": "12"},
			{"GT": "1|1", "DP": "30"},
		},
		CohortStats: map[string]*variant.Statistics{
			"EUR": {MAF: 0.1, MAFAllele: "C", RefAlleleCount: 9, AltAlleleCount: 1},
			"ALL": {MAF: 0.2, MAFAllele: "C", GenotypeCounts: map[string]int{"0|1": 1, "1|1": 1}},
		},
	})
	return v
}

func TestProject_WithSamplesAndStats(t *testing.T) {
	ev, err := Project(sampleVariant(), true, true)
	require.NoError(t, err)

	require.Len(t, ev.Files, 1)
	f := ev.Files[0]
	assert.Equal(t, "file1", f.FileID)
	assert.Equal(t, "study1", f.StudyID)
	assert.Equal(t, []string{"G"}, f.Alternates)
	assert.Equal(t, "GT:DP", f.Format)
	assert.Equal(t, "KRAS", f.Attributes["CSQ£gene"])
	require.Len(t, f.Samples, 2)
	assert.Equal(t, "1|1", f.Samples[1]["GT"])

	require.Len(t, ev.Stats, 2)
	assert.Equal(t, "ALL", ev.Stats[0].CohortID)
	assert.Equal(t, "EUR", ev.Stats[1].CohortID)
	assert.Equal(t, "study1", ev.Stats[1].StudyID)
	assert.Equal(t, "file1", ev.Stats[1].FileID)
	assert.Equal(t, 9, ev.Stats[1].RefAlleleCount)
	assert.Equal(t, document.Counts{"0|1": 1, "1|1": 1}, ev.Stats[0].GenotypeCounts)
}

func TestProject_WithoutSamples(t *testing.T) {
	ev, err := Project(sampleVariant(), false, true)
	require.NoError(t, err)

	require.Len(t, ev.Files, 1)
	f := ev.Files[0]
	assert.Nil(t, f.Samples)
	assert.Equal(t, "GT:DP", f.Format)
	assert.Equal(t, []string{"G"}, f.Alternates)
	assert.Equal(t, "3", f.Attributes["AC"])
}

func TestProject_WithoutStats(t *testing.T) {
	ev, err := Project(sampleVariant(), true, false)
	require.NoError(t, err)
	assert.Len(t, ev.Files, 1)
	assert.Empty(t, ev.Stats)
}

func TestProject_StatsWithoutSourceEntry(t *testing.T) {
	v := variant.New("1", 1000, "A", "C")

	ev, err := Project(v, true, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, variant.ErrMissingSourceEntry))
	assert.Empty(t, ev.Files)
	assert.Empty(t, ev.Stats)

	ev, err = Project(v, true, false)
	require.NoError(t, err)
	assert.Empty(t, ev.Files)
}

func TestProject_MultipleSources(t *testing.T) {
	v := variant.New("1", 1000, "A", "C")
	v.AddSourceEntry(&variant.SourceEntry{FileID: "f1", StudyID: "s1"})
	v.AddSourceEntry(&variant.SourceEntry{FileID: "f2", StudyID: "s1"})

	ev, err := Project(v, false, false)
	require.NoError(t, err)
	require.Len(t, ev.Files, 2)
	assert.Equal(t, "f2", ev.Files[1].FileID)
}

func TestCanonical(t *testing.T) {
	v := sampleVariant()
	v.Type = variant.SNV
	v.Annotation = &variant.Annotation{
		XRefs:        []variant.XRef{{ID: "KRAS", Source: "HGNC"}},
		SOAccessions: []int{1583},
	}

	c := Canonical(v)
	assert.Equal(t, "1", c.Chromosome)
	assert.Equal(t, int64(1000), c.Start)
	assert.Equal(t, int64(1000), c.End)
	assert.Equal(t, int64(1), c.Length)
	assert.Equal(t, "SNV", c.Type)
	assert.Equal(t, []string{"rs123"}, c.IDs)
	require.NotNil(t, c.Annotation)
	assert.Equal(t, "HGNC", c.Annotation.XRefs[0].Source)
	assert.Equal(t, []int{1583}, c.Annotation.SOAccessions)

	v.Annotation = &variant.Annotation{}
	assert.Nil(t, Canonical(v).Annotation)
}
