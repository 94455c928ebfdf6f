// Package retry implements bounded exponential backoff on top of
// cenkalti/backoff, with waits driven by a clock.Clock.
package retry

import (
	"context"
	"math"
	"time"

	"nadfolio/internal/pkg/clock"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how many times an operation is retried and how long to
// wait between attempts.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// Default mirrors the upstream call budget of the dashboard: two retries,
// 500ms base, x1.5, capped at 2s.
func Default() Policy {
	return Policy{MaxRetries: 2, BaseDelay: 500 * time.Millisecond, Multiplier: 1.5, MaxDelay: 2 * time.Second}
}

// Do runs fn until it succeeds, shouldRetry reports false, or the retry
// budget is spent. A nil shouldRetry retries every error. The last error of
// fn is returned, also when ctx ends during a pause.
func (p Policy) Do(ctx context.Context, clk clock.Clock, shouldRetry func(error) bool, fn func(ctx context.Context) error) error {
	return p.DoNotify(ctx, clk, shouldRetry, nil, fn)
}

// DoNotify is Do with a callback invoked before every pause.
func (p Policy) DoNotify(ctx context.Context, clk clock.Clock, shouldRetry func(error) bool, notify backoff.Notify, fn func(ctx context.Context) error) error {
	var last error
	operation := func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = err
		if ctx.Err() != nil || (shouldRetry != nil && !shouldRetry(err)) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.RetryNotifyWithTimer(operation, p.backOff(ctx, clk), notify, &clockTimer{ctx: ctx, clock: clk})
	if err != nil && last != nil {
		return last
	}
	return err
}

func (p Policy) backOff(ctx context.Context, clk clock.Clock) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = max(p.Multiplier, 1)
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.MaxElapsedTime = 0
	if clk != nil {
		b.Clock = clk
	}
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(p.MaxRetries, 0))), ctx)
}

// clockTimer implements backoff.Timer by sleeping on a clock.Clock. Start
// blocks for the pause; C is ready afterwards unless ctx ended first.
type clockTimer struct {
	ctx   context.Context
	clock clock.Clock
	c     chan time.Time
}

func (t *clockTimer) Start(d time.Duration) {
	t.c = make(chan time.Time, 1)
	clk := t.clock
	if clk == nil {
		clk = clock.Real()
	}
	if err := clk.Sleep(t.ctx, d); err == nil {
		t.c <- clk.Now()
	}
}

func (t *clockTimer) Stop() {}

func (t *clockTimer) C() <-chan time.Time {
	return t.c
}
