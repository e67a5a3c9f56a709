// Package retrier retries calls to flaky upstreams with capped exponential backoff.
package retrier

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Retrier holds a backoff policy. The zero value is not usable, construct with New.
type Retrier struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	retries    int
	jitter     float64
	retryIf    func(error) bool
	onRetry    func(attempt int, wait time.Duration, err error)
}

type Option func(*Retrier)

func WithInitialInterval(d time.Duration) Option { return func(r *Retrier) { r.initial = d } }

func WithMaxInterval(d time.Duration) Option { return func(r *Retrier) { r.max = d } }

func WithMultiplier(m float64) Option { return func(r *Retrier) { r.multiplier = m } }

// WithMaxRetries sets how many attempts follow the first one.
func WithMaxRetries(n int) Option { return func(r *Retrier) { r.retries = n } }

// WithJitter spreads each wait by ±j of its length. j is clamped to [0, 1].
func WithJitter(j float64) Option {
	return func(r *Retrier) { r.jitter = math.Max(0, math.Min(1, j)) }
}

// WithRetryIf limits retries to errors accepted by fn; anything else is returned as is.
func WithRetryIf(fn func(error) bool) Option { return func(r *Retrier) { r.retryIf = fn } }

// WithOnRetry registers a hook called before every wait.
func WithOnRetry(fn func(attempt int, wait time.Duration, err error)) Option {
	return func(r *Retrier) { r.onRetry = fn }
}

func New(opts ...Option) *Retrier {
	r := &Retrier{
		initial:    time.Second,
		max:        30 * time.Second,
		multiplier: 2,
		retries:    5,
		jitter:     0.1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backoff returns the un-jittered wait before the given retry (1-based).
func (r *Retrier) Backoff(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	wait := float64(r.initial) * math.Pow(r.multiplier, float64(retry-1))
	if wait > float64(r.max) {
		return r.max
	}
	return time.Duration(wait)
}

func (r *Retrier) jittered(d time.Duration) time.Duration {
	if r.jitter == 0 {
		return d
	}
	spread := (rand.Float64()*2 - 1) * r.jitter * float64(d)
	return max(0, d+time.Duration(spread))
}

// Do calls fn until it succeeds, returns a non-retryable error, runs out of retries
// or ctx is done. The last error from fn is returned.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	for retry := 0; ; retry++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if retry >= r.retries || (r.retryIf != nil && !r.retryIf(err)) {
			return err
		}

		wait := r.jittered(r.Backoff(retry + 1))
		if r.onRetry != nil {
			r.onRetry(retry+1, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DoWithData is Do for functions that produce a value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
