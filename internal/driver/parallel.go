package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// CompileAll compiles every path with at most jobs documents in flight.
// Results are index-aligned with paths. Each document decodes into its own
// program, so workers share nothing but the cache and the tracer.
func CompileAll(ctx context.Context, paths []string, opts Options, jobs int) ([]*Result, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Each goroutine writes only its own index.
	results := make([]*Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			r, err := CompileFile(gctx, path, opts)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
