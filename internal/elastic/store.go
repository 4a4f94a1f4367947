package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Jeffail/gabs"
	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/elastic/go-elasticsearch/v7/esutil"
	"go.uber.org/zap"

	"github.com/inodb/vibe-variants/internal/document"
	"github.com/inodb/vibe-variants/internal/merge"
)

const backend = "elasticsearch"

// DefaultPrefix is the index name prefix; indexes are named <prefix>-<chr>.
const DefaultPrefix = "variants"

// RetryOnConflict is the number of times an update is retried after a
// version conflict with a concurrent writer.
const RetryOnConflict = 5

// appendScript adds every evidence element that the stored document does
// not already contain. An update that adds nothing is reported as a no-op.
const appendScript = `boolean changed = false;
if (ctx._source.files == null) { ctx._source.files = new ArrayList(); }
if (ctx._source.st == null) { ctx._source.st = new ArrayList(); }
for (def f : params.files) {
  if (!ctx._source.files.contains(f)) { ctx._source.files.add(f); changed = true; }
}
for (def s : params.st) {
  if (!ctx._source.st.contains(s)) { ctx._source.st.add(s); changed = true; }
}
if (!changed) { ctx.op = 'none'; }`

// Store writes variant documents to per-chromosome indexes.
type Store struct {
	client  *elasticsearch.Client
	prefix  string
	workers int
	logger  *zap.Logger

	mu      sync.Mutex
	mapping []byte
	created map[string]bool
}

// New creates a store writing to indexes named <prefix>-<chr>.
func New(client *elasticsearch.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		client:  client,
		prefix:  prefix,
		workers: 2,
		logger:  zap.NewNop(),
		created: make(map[string]bool),
	}
}

// SetLogger sets the logger for index and batch messages.
func (s *Store) SetLogger(l *zap.Logger) {
	s.logger = l
}

// SetWorkers sets the number of bulk indexer workers per batch.
func (s *Store) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// IndexName returns the index holding variants of chromosome chr.
func IndexName(prefix, chr string) string {
	return fmt.Sprintf("%s-%s", prefix, strings.ToLower(chr))
}

// EnsureIndexes records the mapping derived from indexes. Chromosome
// indexes are created with it the first time a batch touches them.
func (s *Store) EnsureIndexes(ctx context.Context, indexes []document.Index) error {
	mapping, err := Mapping(indexes)
	if err != nil {
		return fmt.Errorf("build mapping: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapping = mapping
	s.created = make(map[string]bool)
	return nil
}

// Mapping builds the index body for the given secondary indexes. Every
// indexed field is mapped explicitly; free-form attribute and sample maps
// are stored but not indexed.
func Mapping(indexes []document.Index) ([]byte, error) {
	body := gabs.New()
	set := func(v interface{}, path string) error {
		_, err := body.SetP(v, path)
		return err
	}

	for _, idx := range indexes {
		for _, f := range idx.Fields {
			if err := set(fieldType(f), propertyPath(f)+".type"); err != nil {
				return nil, err
			}
		}
	}

	disabled := map[string]interface{}{"type": "object", "enabled": false}
	for _, f := range []string{
		document.Path(document.FieldFiles, document.FieldAttributes),
		document.Path(document.FieldFiles, document.FieldSamples),
	} {
		if err := set(disabled, propertyPath(f)); err != nil {
			return nil, err
		}
	}
	return body.Bytes(), nil
}

// propertyPath returns the mapping path of a dotted document field.
func propertyPath(field string) string {
	return "mappings.properties." + strings.Join(strings.Split(field, "."), ".properties.")
}

func fieldType(field string) string {
	leaf := field[strings.LastIndexByte(field, '.')+1:]
	switch leaf {
	case document.FieldStart, document.FieldEnd, document.FieldLength:
		return "long"
	case document.FieldSOAccession:
		return "integer"
	}
	return "keyword"
}

// ensureIndex creates index unless this store already did. An index that
// exists on the cluster is accepted as is.
func (s *Store) ensureIndex(ctx context.Context, index string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created[index] {
		return nil
	}

	opts := []func(*esapi.IndicesCreateRequest){s.client.Indices.Create.WithContext(ctx)}
	if s.mapping != nil {
		opts = append(opts, s.client.Indices.Create.WithBody(bytes.NewReader(s.mapping)))
	}
	res, err := s.client.Indices.Create(index, opts...)
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		if !alreadyExists(body) {
			return fmt.Errorf("create index %s: %s", index, res.Status())
		}
	}

	s.created[index] = true
	s.logger.Debug("index ready", zap.String("index", index))
	return nil
}

// alreadyExists reports whether an error response body says the index
// exists.
func alreadyExists(body []byte) bool {
	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return false
	}
	typ, _ := parsed.Path("error.type").Data().(string)
	return typ == "resource_already_exists_exception"
}

// BulkUpsert submits the batch through a bulk indexer and waits for every
// item to be acknowledged.
func (s *Store) BulkUpsert(ctx context.Context, ops []merge.Operation) error {
	if len(ops) == 0 {
		return nil
	}
	fail := func(failed int, err error) error {
		return &merge.WriteError{Backend: backend, Ops: len(ops), Failed: failed, Err: err}
	}

	for _, op := range ops {
		if err := s.ensureIndex(ctx, IndexName(s.prefix, op.Chromosome)); err != nil {
			return fail(0, err)
		}
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     s.client,
		NumWorkers: s.workers,
	})
	if err != nil {
		return fail(0, fmt.Errorf("create bulk indexer: %w", err))
	}

	var (
		failed   int64
		errMu    sync.Mutex
		firstErr error
	)
	for _, op := range ops {
		body, err := UpdateBody(op)
		if err != nil {
			bi.Close(ctx) //nolint:errcheck
			return fail(0, fmt.Errorf("encode %s: %w", op.ID, err))
		}

		item := s.updateItem(op, body)
		item.OnFailure = func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			atomic.AddInt64(&failed, 1)
			if err == nil {
				err = fmt.Errorf("%s: %s: %s", item.DocumentID, res.Error.Type, res.Error.Reason)
			}
			errMu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			errMu.Unlock()
		}
		err = bi.Add(ctx, item)
		if err != nil {
			bi.Close(ctx) //nolint:errcheck
			return fail(0, fmt.Errorf("add %s: %w", op.ID, err))
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fail(int(atomic.LoadInt64(&failed)), err)
	}

	stats := bi.Stats()
	if n := atomic.LoadInt64(&failed); n > 0 || stats.NumFailed > 0 {
		errMu.Lock()
		err := firstErr
		errMu.Unlock()
		if err == nil {
			err = fmt.Errorf("bulk indexer reported %d failed items", stats.NumFailed)
		}
		return fail(int(max(n, int64(stats.NumFailed))), err)
	}

	s.logger.Debug("bulk update acknowledged",
		zap.Int("operations", len(ops)),
		zap.Uint64("updated", stats.NumUpdated))
	return nil
}

// updateItem builds the bulk update action of op. Concurrent updates of the
// same document are retried on version conflicts; the append script leaves
// evidence that is already present untouched.
func (s *Store) updateItem(op merge.Operation, body []byte) esutil.BulkIndexerItem {
	retries := RetryOnConflict
	return esutil.BulkIndexerItem{
		Action:          "update",
		Index:           IndexName(s.prefix, op.Chromosome),
		DocumentID:      op.ID,
		Body:            bytes.NewReader(body),
		RetryOnConflict: &retries,
	}
}

type updateScript struct {
	Source string                 `json:"source"`
	Lang   string                 `json:"lang"`
	Params map[string]interface{} `json:"params"`
}

// upsertDoc is the document created when the key is new.
type upsertDoc struct {
	document.Canonical
	Files []document.Source `json:"files"`
	Stats []document.Stats  `json:"st"`
}

type updateRequest struct {
	Script updateScript `json:"script"`
	Upsert upsertDoc    `json:"upsert"`
}

// UpdateBody encodes the bulk update body of op.
func UpdateBody(op merge.Operation) ([]byte, error) {
	files := op.AddFiles
	if files == nil {
		files = []document.Source{}
	}
	stats := op.AddStats
	if stats == nil {
		stats = []document.Stats{}
	}

	return json.Marshal(updateRequest{
		Script: updateScript{
			Source: appendScript,
			Lang:   "painless",
			Params: map[string]interface{}{
				document.FieldFiles: files,
				document.FieldStats: stats,
			},
		},
		Upsert: upsertDoc{Canonical: op.SetOnInsert, Files: files, Stats: stats},
	})
}
