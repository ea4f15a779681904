package ingest

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers resolves a worker count: non-positive means one per CPU
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// ParallelMap applies fn to every element with at most workers goroutines,
// preserving input order in the result. The input is split into contiguous
// shards so ordering needs no coordination.
func ParallelMap[T, R any](ctx context.Context, in []T, workers int, fn func(T) R) ([]R, error) {
	out := make([]R, len(in))
	if len(in) == 0 {
		return out, ctx.Err()
	}
	workers = Workers(workers)
	if workers > len(in) {
		workers = len(in)
	}
	shard := (len(in) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(in); start += shard {
		lo, hi := start, min(start+shard, len(in))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				out[i] = fn(in[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
