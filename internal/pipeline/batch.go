package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchItem pairs one input with its result or failure. A failed star keeps
// its slot in the batch so callers can report it explicitly.
type BatchItem struct {
	Input  Input
	Result *Result
	Err    error
}

// RunBatch processes every input on a bounded worker pool and returns one
// item per input, in input order. A failed run never aborts its siblings;
// the only batch-wide stop is context cancellation, which marks the
// remaining inputs with the context error.
func RunBatch(ctx context.Context, inputs []Input, opts Options, workers int) []BatchItem {
	if workers < 1 {
		workers = 1
	}

	items := make([]BatchItem, len(inputs))
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for i := range inputs {
		items[i].Input = inputs[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			res, err := Run(inputs[i], opts)
			items[i].Result = res
			items[i].Err = err
			return nil
		})
	}

	// Worker funcs never return errors; failures live on the items.
	_ = g.Wait()
	return items
}
