package elastic

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-variants/internal/document"
	"github.com/inodb/vibe-variants/internal/merge"
)

func TestIndexName(t *testing.T) {
	assert.Equal(t, "variants-x", IndexName("variants", "X"))
	assert.Equal(t, "variants-17", IndexName("variants", "17"))
	assert.Equal(t, "study-mt", IndexName("study", "MT"))
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	c, err := NewClient(Config{Addresses: []string{"http://localhost:9200"}})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestRetryDelay(t *testing.T) {
	assert.Zero(t, retryDelay(0))

	// 500ms initial interval, randomized by half either way.
	d := retryDelay(1)
	assert.GreaterOrEqual(t, d, 250*time.Millisecond)
	assert.LessOrEqual(t, d, 750*time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for attempt := 1; attempt <= 5; attempt++ {
				assert.Positive(t, retryDelay(attempt))
			}
		}()
	}
	wg.Wait()
}

func TestNew_DefaultPrefix(t *testing.T) {
	s := New(nil, "")
	assert.Equal(t, DefaultPrefix, s.prefix)
	s.SetWorkers(0)
	assert.Equal(t, 2, s.workers)
	s.SetWorkers(8)
	assert.Equal(t, 8, s.workers)
}

func TestMapping(t *testing.T) {
	raw, err := Mapping(document.Indexes())
	require.NoError(t, err)

	m, err := gabs.ParseJSON(raw)
	require.NoError(t, err)

	props := "mappings.properties."
	tests := []struct {
		path string
		want string
	}{
		{props + "chr.type", "keyword"},
		{props + "start.type", "long"},
		{props + "end.type", "long"},
		{props + "ids.type", "keyword"},
		{props + "files.properties.sid.type", "keyword"},
		{props + "files.properties.fid.type", "keyword"},
		{props + "annot.properties.xrefs.properties.id.type", "keyword"},
		{props + "annot.properties.so.type", "integer"},
		{props + "files.properties.attrs.type", "object"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := m.Path(tt.path).Data().(string)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	enabled, ok := m.Path(props + "files.properties.samp.enabled").Data().(bool)
	require.True(t, ok)
	assert.False(t, enabled)

	chr, ok := m.Path(props + "chr").Data().(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"type": "keyword"}, chr)
	assert.False(t, m.ExistsP(props+"start.properties"))
}

func TestUpdateItem(t *testing.T) {
	s := New(nil, "study")
	body := []byte(`{"script":{}}`)
	item := s.updateItem(merge.Operation{ID: "17_7674220_C_T", Chromosome: "17"}, body)

	assert.Equal(t, "update", item.Action)
	assert.Equal(t, "study-17", item.Index)
	assert.Equal(t, "17_7674220_C_T", item.DocumentID)
	require.NotNil(t, item.RetryOnConflict)
	assert.Equal(t, RetryOnConflict, *item.RetryOnConflict)

	raw, err := io.ReadAll(item.Body)
	require.NoError(t, err)
	assert.Equal(t, body, raw)
}

func TestAlreadyExists(t *testing.T) {
	assert.True(t, alreadyExists([]byte(`{"error":{"root_cause":[],"type":"resource_already_exists_exception","reason":"index [variants-1/abc] already exists"},"status":400}`)))
	assert.False(t, alreadyExists([]byte(`{"error":{"type":"illegal_argument_exception"},"status":400}`)))
	assert.False(t, alreadyExists([]byte(`not json`)))
}

func TestUpdateBody(t *testing.T) {
	op := merge.Operation{
		ID:         "1_100_A_C",
		Chromosome: "1",
		Start:      100,
		SetOnInsert: document.Canonical{
			Chromosome: "1", Start: 100, End: 100, Length: 1,
			Reference: "A", Alternate: "C", Type: "SNV",
		},
		AddFiles: []document.Source{{FileID: "f1", StudyID: "s1", Attributes: document.Attrs{"QUAL": "20"}}},
	}

	raw, err := UpdateBody(op)
	require.NoError(t, err)
	body, err := gabs.ParseJSON(raw)
	require.NoError(t, err)

	assert.Equal(t, "painless", body.Path("script.lang").Data())
	assert.Contains(t, body.Path("script.source").Data(), "ctx._source.files.contains(f)")

	files, err := body.Path("script.params.files").Children()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "f1", files[0].Path("fid").Data())

	st, err := body.Path("script.params.st").Children()
	require.NoError(t, err)
	assert.Empty(t, st)

	assert.Equal(t, "SNV", body.Path("upsert.type").Data())
	assert.Equal(t, "1", body.Path("upsert.chr").Data())
	assert.Equal(t, float64(100), body.Path("upsert.start").Data())
	assert.False(t, body.ExistsP("upsert._id"))
	assert.False(t, body.ExistsP("upsert.ids"))

	upFiles, err := body.Path("upsert.files").Children()
	require.NoError(t, err)
	require.Len(t, upFiles, 1)
	assert.Equal(t, "20", upFiles[0].Path("attrs.QUAL").Data())
}
