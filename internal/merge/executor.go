// Package merge turns batches of variant records into merge-upsert
// operations against a document store: the canonical fields of a variant are
// written only when its document is created, while every source appends its
// evidence to the same document.
package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/inodb/vibe-variants/internal/document"
)

// ErrWriteExecution indicates the store failed to apply a batch.
var ErrWriteExecution = errors.New("write execution failed")

// Operation is a single upsert keyed by the canonical variant key.
type Operation struct {
	ID string

	// Routing hint, repeated in the filter of every operation.
	Chromosome string
	Start      int64

	// Written only if the document does not exist yet.
	SetOnInsert document.Canonical

	// Appended to the document's evidence sets. Duplicates are suppressed
	// only when the store finds an identical sub-document already present.
	AddFiles []document.Source
	AddStats []document.Stats
}

// Executor applies unordered batches of operations to a document store.
//
// Implementations must apply each operation atomically per document: two
// concurrent operations for the same ID must not both create the document.
type Executor interface {
	// EnsureIndexes provisions secondary indexes. It must be safe to call
	// again on an already provisioned store.
	EnsureIndexes(ctx context.Context, indexes []document.Index) error

	// BulkUpsert applies every operation of the batch, in any order. It
	// either succeeds for the whole batch or returns an error.
	BulkUpsert(ctx context.Context, ops []Operation) error
}

// WriteError is returned by executors when a batch could not be applied.
type WriteError struct {
	Backend string
	Ops     int // size of the failed batch
	Failed  int // operations reported as failed, 0 if unknown
	Err     error
}

func (e *WriteError) Error() string {
	if e.Failed > 0 {
		return fmt.Sprintf("%s: %d of %d operations failed: %v", e.Backend, e.Failed, e.Ops, e.Err)
	}
	return fmt.Sprintf("%s: batch of %d operations failed: %v", e.Backend, e.Ops, e.Err)
}

func (e *WriteError) Unwrap() []error { return []error{ErrWriteExecution, e.Err} }
