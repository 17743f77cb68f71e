package processor

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ProcessBatch processes ids with at most concurrency runs at a time and
// returns results in input order. Duplicate ids in one batch hit the
// in-flight guard like any concurrent caller.
func (p *Processor) ProcessBatch(ctx context.Context, ids []string, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]Result, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = p.ProcessDocument(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	p.logger.Info("processor.batch.done", "total", len(ids), "succeeded", succeeded, "concurrency", concurrency)
	return results
}
