package transport

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds the retries of transient failures (network errors and
// 5xx responses) before a stream starts. Auth failures are not retried here.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxElapsed      time.Duration
}

// DefaultRetry is used when no policy is given.
var DefaultRetry = RetryPolicy{MaxTries: 3, InitialInterval: 500 * time.Millisecond, MaxElapsed: 30 * time.Second}

func retry[T any](ctx context.Context, p RetryPolicy, op func() (T, error), notify func(error, time.Duration)) (T, error) {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	tries := p.MaxTries
	if tries == 0 {
		tries = 1
	}
	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(tries),
	}
	if p.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(p.MaxElapsed))
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(notify))
	}
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && (ctx.Err() != nil || !isTransient(err)) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, opts...)
}
