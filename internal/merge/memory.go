package merge

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/inodb/vibe-variants/internal/document"
)

// MemoryExecutor is an in-process document store with the same merge
// semantics as the persistent backends: canonical fields are set on insert
// and evidence is appended unless an identical sub-document is present.
type MemoryExecutor struct {
	mu        sync.Mutex
	docs      map[string]*document.Variant
	calls     int
	indexRuns int
}

// NewMemoryExecutor creates an empty in-memory store.
func NewMemoryExecutor() *MemoryExecutor {
	return &MemoryExecutor{docs: make(map[string]*document.Variant)}
}

// EnsureIndexes records the call; the in-memory store needs no indexes.
func (m *MemoryExecutor) EnsureIndexes(ctx context.Context, indexes []document.Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexRuns++
	return nil
}

// BulkUpsert applies every operation under a single lock.
func (m *MemoryExecutor) BulkUpsert(ctx context.Context, ops []Operation) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Backend: "memory", Ops: len(ops), Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	for _, op := range ops {
		doc, ok := m.docs[op.ID]
		if !ok {
			doc = &document.Variant{ID: op.ID, Canonical: op.SetOnInsert}
			m.docs[op.ID] = doc
		}
		for _, f := range op.AddFiles {
			if !containsEqual(doc.Files, f) {
				doc.Files = append(doc.Files, f)
			}
		}
		for _, s := range op.AddStats {
			if !containsEqual(doc.Stats, s) {
				doc.Stats = append(doc.Stats, s)
			}
		}
	}
	return nil
}

// Get returns a copy of the document stored under id, with attribute keys
// unescaped.
func (m *MemoryExecutor) Get(id string) (*document.Variant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[id]
	if !ok {
		return nil, false
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, false
	}
	var out document.Variant
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	out.UnescapeKeys()
	return &out, true
}

// IDs returns the keys of all stored documents in sorted order.
func (m *MemoryExecutor) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of stored documents.
func (m *MemoryExecutor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// Calls returns the number of BulkUpsert invocations.
func (m *MemoryExecutor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// containsEqual reports whether set holds an element encoding identically to v.
func containsEqual[T any](set []T, v T) bool {
	want, err := json.Marshal(v)
	if err != nil {
		return false
	}
	for _, e := range set {
		got, err := json.Marshal(e)
		if err == nil && bytes.Equal(got, want) {
			return true
		}
	}
	return false
}
