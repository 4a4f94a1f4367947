package merge

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-variants/internal/document"
	"github.com/inodb/vibe-variants/internal/variant"
)

// BatchState is the lifecycle state of a batch handed to Write.
type BatchState int

const (
	StateIdle BatchState = iota
	StateBuilding
	StateSubmitted
	StateAcknowledged
	StateFailed
)

func (s BatchState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateSubmitted:
		return "submitted"
	case StateAcknowledged:
		return "acknowledged"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("BatchState(%d)", int(s))
}

// Handle is an initialized store. It is immutable and safe to share between
// goroutines; every Write takes it explicitly.
type Handle struct {
	exec    Executor
	indexes []document.Index
}

// Init provisions the secondary indexes of the store behind exec and returns
// a handle for writing to it. Running Init again against the same store is
// harmless.
func Init(ctx context.Context, exec Executor, logger *zap.Logger) (*Handle, error) {
	if exec == nil {
		return nil, errors.New("merge: nil executor")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	indexes := document.Indexes()
	if err := exec.EnsureIndexes(ctx, indexes); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Debug("store initialized", zap.Int("indexes", len(indexes)))

	return &Handle{exec: exec, indexes: indexes}, nil
}

// Executor returns the executor batches are submitted to.
func (h *Handle) Executor() Executor {
	return h.exec
}

// Options control what evidence a coordinator writes.
type Options struct {
	IncludeSamples bool // store per-sample genotype data
	IncludeStats   bool // store per-cohort statistics
}

// Report describes the outcome of one Write.
type Report struct {
	State        BatchState
	Records      int
	Operations   int
	Rejected     []*variant.RecordError
	StatsSkipped int // records whose statistics could not be projected
}

// Coordinator builds merge-upsert operations for batches of records and
// submits them. It keeps no state between batches.
type Coordinator struct {
	opts   Options
	logger *zap.Logger
}

// NewCoordinator creates a coordinator with the given options.
func NewCoordinator(opts Options) *Coordinator {
	return &Coordinator{
		opts:   opts,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warnings about skipped statistics.
func (c *Coordinator) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Options returns the coordinator options.
func (c *Coordinator) Options() Options {
	return c.opts
}

// Build classifies every record, computes its key and builds its operation.
// A nil record fails the whole batch with variant.ErrInvalidRecord. Records
// that cannot be classified are left out and listed in the report.
// Build sets the Type of every accepted record.
func (c *Coordinator) Build(records []*variant.Variant) ([]Operation, *Report, error) {
	report := &Report{State: StateBuilding, Records: len(records)}

	ops := make([]Operation, 0, len(records))
	for i, v := range records {
		if v == nil {
			return nil, report, &variant.RecordError{Index: i, Err: variant.ErrInvalidRecord}
		}

		if err := v.Classify(); err != nil {
			report.Rejected = append(report.Rejected, &variant.RecordError{Index: i, Record: v.String(), Err: err})
			continue
		}

		ev, err := Project(v, c.opts.IncludeSamples, c.opts.IncludeStats)
		if err != nil {
			if !errors.Is(err, variant.ErrMissingSourceEntry) {
				report.Rejected = append(report.Rejected, &variant.RecordError{Index: i, Record: v.String(), Err: err})
				continue
			}
			c.logger.Warn("skipping statistics", zap.String("variant", v.String()), zap.Error(err))
			report.StatsSkipped++
		}

		ops = append(ops, Operation{
			ID:          v.Key(),
			Chromosome:  v.Chromosome,
			Start:       v.Start,
			SetOnInsert: Canonical(v),
			AddFiles:    ev.Files,
			AddStats:    ev.Stats,
		})
	}

	report.Operations = len(ops)
	return ops, report, nil
}

// Write builds the operations for records and submits them to the store as
// one unordered batch, blocking until the store acknowledges or fails it.
// A batch without operations is never submitted. Store errors are returned
// unchanged; rejected records are listed in the report and do not fail the
// batch.
func (c *Coordinator) Write(ctx context.Context, h *Handle, records []*variant.Variant) (*Report, error) {
	if h == nil {
		return &Report{State: StateFailed, Records: len(records)}, errors.New("merge: nil store handle")
	}

	ops, report, err := c.Build(records)
	if err != nil {
		report.State = StateFailed
		return report, err
	}

	if len(ops) == 0 {
		report.State = StateIdle
		return report, nil
	}

	report.State = StateSubmitted
	c.logger.Debug("submitting batch", zap.Int("operations", len(ops)), zap.Int("rejected", len(report.Rejected)))

	if err := h.exec.BulkUpsert(ctx, ops); err != nil {
		report.State = StateFailed
		return report, err
	}

	report.State = StateAcknowledged
	return report, nil
}
