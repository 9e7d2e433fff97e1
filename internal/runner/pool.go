package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEach calls fn(i) for i in [0, n) on a fixed pool of workers fed by an
// index queue. A single worker runs inline on the calling goroutine, in
// index order. Results are written by fn into caller-owned slots, so no
// ordering is lost to completion order.
//
// When failFast is set, the first failure stops dispatch of indexes not yet
// handed out; in-flight calls still finish. The returned error is the failure
// with the lowest index among the calls that ran.
func forEach(n, workers int, failFast bool, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	if workers == 1 {
		var first error
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				if failFast {
					return err
				}
				if first == nil {
					first = err
				}
			}
		}
		return first
	}

	errs := make([]error, n)
	g, ctx := errgroup.WithContext(context.Background())
	queue := make(chan int)

	g.Go(func() error {
		defer close(queue)
		for i := 0; i < n; i++ {
			select {
			case queue <- i:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range queue {
				if err := fn(i); err != nil {
					errs[i] = err
					if failFast {
						return err
					}
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
