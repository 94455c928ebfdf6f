// Package batch runs work in fixed-size concurrent chunks separated by a
// pause, keeping request bursts against rate-limited upstreams bounded.
package batch

import (
	"context"
	"time"

	"nadfolio/internal/pkg/clock"

	"golang.org/x/sync/errgroup"
)

// Outcome is the per-item result of Process.
type Outcome[I, O any] struct {
	Item  I
	Value O
	Err   error
}

// OK reports whether the item succeeded.
func (o Outcome[I, O]) OK() bool {
	return o.Err == nil
}

// Process splits items into consecutive chunks of at most size, runs every
// item of a chunk concurrently, waits for the chunk to settle and then
// pauses for delay before the next one. There is no pause after the last
// chunk. Outcomes are returned in input order; a failing item never aborts
// its siblings. A size of zero or less processes everything in one chunk.
func Process[I, O any](ctx context.Context, items []I, size int, delay time.Duration, clk clock.Clock, worker func(ctx context.Context, item I) (O, error)) []Outcome[I, O] {
	out := make([]Outcome[I, O], len(items))
	if len(items) == 0 {
		return out
	}
	if size <= 0 {
		size = len(items)
	}

	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))

		if start > 0 {
			if err := clk.Sleep(ctx, delay); err != nil {
				failRemaining(out, items, start, err)
				return out
			}
		}
		if err := ctx.Err(); err != nil {
			failRemaining(out, items, start, err)
			return out
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				v, err := worker(ctx, items[i])
				out[i] = Outcome[I, O]{Item: items[i], Value: v, Err: err}
				return nil
			})
		}
		_ = g.Wait()
	}
	return out
}

func failRemaining[I, O any](out []Outcome[I, O], items []I, from int, err error) {
	for i := from; i < len(items); i++ {
		out[i] = Outcome[I, O]{Item: items[i], Err: err}
	}
}
