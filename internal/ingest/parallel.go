package ingest

import (
	"runtime"
	"sync"

	"github.com/inodb/vibe-variants/internal/variant"
	"github.com/inodb/vibe-variants/internal/vcf"
)

// ConvertFunc turns one parsed input line into variant records.
type ConvertFunc func(*vcf.Variant) ([]*variant.Variant, error)

// WorkItem holds a parsed line ready for conversion.
type WorkItem struct {
	Seq     int
	Line    int // input line number, for error reporting
	Variant *vcf.Variant
}

// WorkResult holds the records converted from a single line.
type WorkResult struct {
	Seq     int
	Line    int
	Variant *vcf.Variant
	Records []*variant.Variant
	Err     error
}

// ParallelConvert converts work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func ParallelConvert(items <-chan WorkItem, convert ConvertFunc, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				recs, err := convert(item.Variant)
				results <- WorkResult{
					Seq:     item.Seq,
					Line:    item.Line,
					Variant: item.Variant,
					Records: recs,
					Err:     err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
