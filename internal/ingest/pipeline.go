// Package ingest streams variant files through conversion and into the
// merge-upsert coordinator in fixed-size batches.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-variants/internal/merge"
	"github.com/inodb/vibe-variants/internal/variant"
	"github.com/inodb/vibe-variants/internal/vcf"
)

// DefaultBatchSize is the number of records submitted per batch.
const DefaultBatchSize = 1000

// Summary describes one ingested source.
type Summary struct {
	RunID         string
	Source        string
	Samples       int // sample columns of a VCF header
	Lines         int // parsed data lines
	Records       int // converted records
	ConvertErrors int
	Rejected      int // records the coordinator could not classify
	StatsSkipped  int
	Batches       int // acknowledged batches
}

// Pipeline reads a source, converts its lines on a worker pool and writes
// the records in input order, one batch at a time.
type Pipeline struct {
	coord     *merge.Coordinator
	handle    *merge.Handle
	batchSize int
	workers   int
	logger    *zap.Logger
}

// NewPipeline creates a pipeline writing through coord to the store behind h.
func NewPipeline(coord *merge.Coordinator, h *merge.Handle) *Pipeline {
	return &Pipeline{
		coord:     coord,
		handle:    h,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
}

// SetLogger sets the logger for progress and conversion warnings.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
}

// SetBatchSize sets the number of records per batch. Values below 1 are ignored.
func (p *Pipeline) SetBatchSize(n int) {
	if n > 0 {
		p.batchSize = n
	}
}

// SetWorkers sets the number of conversion workers. 0 means runtime.NumCPU().
func (p *Pipeline) SetWorkers(n int) {
	p.workers = n
}

// sampleHeader is implemented by parsers that read sample names from their
// header.
type sampleHeader interface {
	SampleNames() []string
}

// Run ingests every line of src. Lines that fail conversion are counted and
// skipped; parse and store errors stop the run and are returned together
// with the summary of what was written so far.
func (p *Pipeline) Run(ctx context.Context, name string, src vcf.VariantParser, convert ConvertFunc) (*Summary, error) {
	sum := &Summary{RunID: uuid.NewString(), Source: name}
	log := p.logger.With(zap.String("run", sum.RunID), zap.String("source", name))
	if h, ok := src.(sampleHeader); ok {
		sum.Samples = len(h.SampleNames())
	}

	g, gctx := errgroup.WithContext(ctx)
	readCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	items := make(chan WorkItem, 2*max(p.workers, 1))
	g.Go(func() error {
		defer close(items)
		for seq := 0; ; seq++ {
			v, err := src.Next()
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			if v == nil {
				return nil
			}
			select {
			case items <- WorkItem{Seq: seq, Line: src.LineNumber(), Variant: v}:
			case <-readCtx.Done():
				return nil
			}
		}
	})

	results := ParallelConvert(items, convert, p.workers)

	g.Go(func() error {
		batch := make([]*variant.Variant, 0, p.batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			report, err := p.coord.Write(gctx, p.handle, batch)
			if report != nil {
				sum.Rejected += len(report.Rejected)
				sum.StatsSkipped += report.StatsSkipped
				for _, r := range report.Rejected {
					log.Warn("record rejected", zap.String("variant", r.Record), zap.Error(r.Err))
				}
			}
			if err != nil {
				return fmt.Errorf("write batch %d: %w", sum.Batches+1, err)
			}
			if report.State == merge.StateAcknowledged {
				sum.Batches++
			}
			log.Debug("batch written", zap.Int("batch", sum.Batches), zap.Int("records", len(batch)))
			batch = batch[:0]
			return nil
		}

		err := OrderedCollect(results, func(r WorkResult) error {
			sum.Lines++
			if r.Err != nil {
				sum.ConvertErrors++
				log.Warn("conversion failed", zap.Int("line", r.Line), zap.Error(r.Err))
				return nil
			}
			for _, rec := range r.Records {
				sum.Records++
				batch = append(batch, rec)
				if len(batch) >= p.batchSize {
					if err := flush(); err != nil {
						cancel()
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		return flush()
	})

	err := g.Wait()
	log.Info("source ingested",
		zap.Int("samples", sum.Samples),
		zap.Int("lines", sum.Lines),
		zap.Int("records", sum.Records),
		zap.Int("batches", sum.Batches),
		zap.Int("convert_errors", sum.ConvertErrors),
		zap.Int("rejected", sum.Rejected),
		zap.Bool("complete", err == nil))
	return sum, err
}

// Source is one input to ingest with RunAll.
type Source struct {
	Name    string
	Open    func() (vcf.VariantParser, error)
	Convert ConvertFunc
}

// RunAll ingests sources concurrently, at most parallel at a time (all at
// once if parallel is below 1). Summaries are returned in source order;
// the first failure cancels the sources still running.
func (p *Pipeline) RunAll(ctx context.Context, sources []Source, parallel int) ([]*Summary, error) {
	sums := make([]*Summary, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	for i, s := range sources {
		g.Go(func() error {
			src, err := s.Open()
			if err != nil {
				return fmt.Errorf("open %s: %w", s.Name, err)
			}
			defer src.Close()

			sums[i], err = p.Run(gctx, s.Name, src, s.Convert)
			return err
		})
	}

	err := g.Wait()
	return sums, err
}
