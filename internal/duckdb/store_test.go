package duckdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-variants/internal/document"
	"github.com/inodb/vibe-variants/internal/merge"
	"github.com/inodb/vibe-variants/internal/variant"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func op(id, chr string, start int64, ref, alt string, files ...document.Source) merge.Operation {
	return merge.Operation{
		ID:         id,
		Chromosome: chr,
		Start:      start,
		SetOnInsert: document.Canonical{
			Chromosome: chr, Start: start, End: start, Length: 1,
			Reference: ref, Alternate: alt, Type: "SNV",
		},
		AddFiles: files,
	}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "variants.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
}

func TestEnsureIndexes(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureIndexes(ctx, document.Indexes()))
	require.NoError(t, s.EnsureIndexes(ctx, document.Indexes()))

	var n int
	require.NoError(t, s.DB().QueryRow(
		"SELECT count(*) FROM duckdb_indexes() WHERE table_name = 'variants' AND index_name LIKE 'variants_%'").Scan(&n))
	assert.Equal(t, 2, n) // chr_start_end and ids; nested indexes are skipped
}

func TestIndexColumns(t *testing.T) {
	cols, ok := indexColumns(document.Index{Name: "x", Fields: []string{"chr", "start", "end"}})
	require.True(t, ok)
	assert.Equal(t, []string{"chr", "start", "end_pos"}, cols)

	_, ok = indexColumns(document.Index{Name: "y", Fields: []string{"files.sid"}})
	assert.False(t, ok)

	_, ok = indexColumns(document.Index{Name: "z", Fields: []string{"unknown"}})
	assert.False(t, ok)
}

func TestBulkUpsert_InsertAndLookup(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	o := op("12_25245350_C_A", "12", 25245350, "C", "A", document.Source{
		FileID: "f1", StudyID: "s1", Format: "GT",
		Attributes: document.Attrs{"QUAL": "99"},
		Samples:    []document.Attrs{{"GT": "0/1"}},
	})
	o.SetOnInsert.IDs = []string{"rs121913529"}
	o.SetOnInsert.Annotation = &document.Annotation{
		XRefs:        []document.XRef{{ID: "KRAS", Source: "HGNC"}},
		SOAccessions: []int{1583},
	}
	o.AddStats = []document.Stats{{StudyID: "s1", FileID: "f1", CohortID: "ALL", MAF: 0.25}}

	require.NoError(t, s.BulkUpsert(ctx, []merge.Operation{o}))

	doc, err := s.Lookup(ctx, "12_25245350_C_A")
	require.NoError(t, err)
	assert.Equal(t, "12", doc.Chromosome)
	assert.Equal(t, int64(25245350), doc.Start)
	assert.Equal(t, "SNV", doc.Type)
	assert.Equal(t, []string{"rs121913529"}, doc.IDs)
	assert.Nil(t, doc.HGVS)
	require.NotNil(t, doc.Annotation)
	assert.Equal(t, []int{1583}, doc.Annotation.SOAccessions)
	require.Len(t, doc.Files, 1)
	assert.Equal(t, "99", doc.Files[0].Attributes["QUAL"])
	assert.Equal(t, "0/1", doc.Files[0].Samples[0]["GT"])
	require.Len(t, doc.Stats, 1)
	assert.Equal(t, 0.25, doc.Stats[0].MAF)
}

func TestLookup_UnescapesKeys(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	o := op("4_9_G_A", "4", 9, "G", "A", document.Source{
		FileID: "f1", StudyID: "s1",
		Attributes: document.Attrs{document.EscapeKey("CSQ.gene"): "FGFR3"},
	})
	require.NoError(t, s.BulkUpsert(ctx, []merge.Operation{o}))

	doc, err := s.Lookup(ctx, "4_9_G_A")
	require.NoError(t, err)
	require.Len(t, doc.Files, 1)
	assert.Equal(t, document.Attrs{"CSQ.gene": "FGFR3"}, doc.Files[0].Attributes)
}

func TestLookup_UnknownStoredType(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	o := op("5_7_T_C", "5", 7, "T", "C")
	o.SetOnInsert.Type = "SNP"
	require.NoError(t, s.BulkUpsert(ctx, []merge.Operation{o}))

	_, err := s.Lookup(ctx, "5_7_T_C")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown variant type "SNP"`)
}

func TestLookup_NotFound(t *testing.T) {
	s := openInMemory(t)
	_, err := s.Lookup(context.Background(), "1_1_A_C")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBulkUpsert_SetOnInsert(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	first := op("1_100_A_C", "1", 100, "A", "C", document.Source{FileID: "f1", StudyID: "s1"})
	first.SetOnInsert.IDs = []string{"rs1"}
	second := op("1_100_A_C", "1", 100, "A", "C", document.Source{FileID: "f2", StudyID: "s1"})
	second.SetOnInsert.IDs = []string{"rs2"}

	require.NoError(t, s.BulkUpsert(ctx, []merge.Operation{first}))
	require.NoError(t, s.BulkUpsert(ctx, []merge.Operation{second}))

	doc, err := s.Lookup(ctx, "1_100_A_C")
	require.NoError(t, err)
	assert.Equal(t, []string{"rs1"}, doc.IDs)
	require.Len(t, doc.Files, 2)
	assert.Equal(t, "f1", doc.Files[0].FileID)
	assert.Equal(t, "f2", doc.Files[1].FileID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBulkUpsert_EvidenceAcrossBatches(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureIndexes(ctx, document.Indexes()))

	for i, fid := range []string{"f1", "f2", "f3"} {
		o := op("2_10_C_T", "2", 10, "C", "T", document.Source{FileID: fid, StudyID: "s1"})
		o.AddStats = []document.Stats{{StudyID: "s1", FileID: fid, CohortID: "ALL", AltAlleleCount: i}}
		require.NoError(t, s.BulkUpsert(ctx, []merge.Operation{o}), "batch %d", i+1)
	}

	doc, err := s.Lookup(ctx, "2_10_C_T")
	require.NoError(t, err)
	require.Len(t, doc.Files, 3)
	assert.Equal(t, "f1", doc.Files[0].FileID)
	assert.Equal(t, "f2", doc.Files[1].FileID)
	assert.Equal(t, "f3", doc.Files[2].FileID)
	require.Len(t, doc.Stats, 3)
	assert.Equal(t, "f3", doc.Stats[2].FileID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBulkUpsert_SameKeyTwiceInBatch(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	ops := []merge.Operation{
		op("2_10_C_T", "2", 10, "C", "T", document.Source{FileID: "f1", StudyID: "s1"}),
		op("2_10_C_T", "2", 10, "C", "T", document.Source{FileID: "f2", StudyID: "s1"}),
		op("2_20_G_A", "2", 20, "G", "A", document.Source{FileID: "f1", StudyID: "s1"}),
	}
	require.NoError(t, s.BulkUpsert(ctx, ops))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	doc, err := s.Lookup(ctx, "2_10_C_T")
	require.NoError(t, err)
	assert.Len(t, doc.Files, 2)
}

func TestBulkUpsert_IdenticalEvidenceIsNotDuplicated(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	src := document.Source{FileID: "f1", StudyID: "s1", Attributes: document.Attrs{"B": "2", "A": "1"}}
	for range 3 {
		require.NoError(t, s.BulkUpsert(ctx, []merge.Operation{op("3_5_T_G", "3", 5, "T", "G", src)}))
	}

	doc, err := s.Lookup(ctx, "3_5_T_G")
	require.NoError(t, err)
	assert.Len(t, doc.Files, 1)
}

func TestBulkUpsert_EmptyBatch(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.BulkUpsert(context.Background(), nil))
}

func TestBulkUpsert_CancelledContext(t *testing.T) {
	s := openInMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.BulkUpsert(ctx, []merge.Operation{op("1_1_A_C", "1", 1, "A", "C")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, merge.ErrWriteExecution))

	var we *merge.WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, "duckdb", we.Backend)
}

func TestCoordinatorAgainstDuckDB(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	h, err := merge.Init(ctx, s, nil)
	require.NoError(t, err)

	c := merge.NewCoordinator(merge.Options{IncludeSamples: true})
	for _, fid := range []string{"f1", "f2", "f3"} {
		v := variant.New("17", 7674220, "C", "T")
		v.AddSourceEntry(&variant.SourceEntry{FileID: fid, StudyID: "tcga"})
		report, err := c.Write(ctx, h, []*variant.Variant{v})
		require.NoError(t, err)
		assert.Equal(t, merge.StateAcknowledged, report.State)
	}

	doc, err := s.Lookup(ctx, "17_7674220_C_T")
	require.NoError(t, err)
	assert.Equal(t, "SNV", doc.Type)
	assert.Len(t, doc.Files, 3)
}
