package reconcile

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// forEach runs fn for every item with at most limit calls in flight. A
// failing item does not cancel its siblings; every error is joined.
func forEach[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T) error) error {
	if len(items) == 0 {
		return nil
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(max(limit, 1))

	collect := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			collect(err)
			break
		}
		g.Go(func() error {
			if err := fn(ctx, item); err != nil {
				collect(err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
