package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
)

// eventSource is the iterator shape shared by the provider SDK streams.
type eventSource interface {
	Next() bool
	Err() error
	Close() error
}

// opened is a stream whose first event, if any, has already been read.
type opened struct {
	src    eventSource
	raw    func() string
	primed bool
}

// sdkCall drives the open, refresh and retry sequence shared by the SDK
// adapters. start issues the request with the given bearer token; status
// extracts the HTTP status from an SDK error, or 0 for non-HTTP failures.
type sdkCall struct {
	auth   *Auth
	retry  RetryPolicy
	logger *slog.Logger
	start  func(ctx context.Context, token string) (eventSource, func() string)
	status func(error) int
}

func (c sdkCall) send(ctx context.Context, state domain.ConversationState) (<-chan domain.StreamEvent, error) {
	refreshed := false
	op, err := retry(ctx, c.retry, func() (opened, error) {
		return c.open(ctx, &refreshed)
	}, func(err error, wait time.Duration) {
		c.logger.Warn("transport retry", "error", err, "wait", wait)
	})
	if err != nil {
		return nil, err
	}

	em := newEmitter(ctx, state)
	go pump(op, em, c.logger)
	return em.out, nil
}

func (c sdkCall) open(ctx context.Context, refreshed *bool) (opened, error) {
	for {
		token := ""
		if c.auth != nil {
			var err error
			if token, err = c.auth.Token(ctx); err != nil {
				return opened{}, err
			}
		}

		src, raw := c.start(ctx, token)
		if src.Next() {
			return opened{src: src, raw: raw, primed: true}, nil
		}
		err := src.Err()
		_ = src.Close()
		if err == nil {
			return opened{src: src, raw: raw}, nil
		}
		if ctx.Err() != nil {
			return opened{}, ctx.Err()
		}

		status := c.status(err)
		if status == 0 {
			return opened{}, fmt.Errorf("%w: %v", domain.ErrTransport, err)
		}
		terr := &TransportError{Status: status, Body: err.Error()}
		if !IsAuthStatus(status) || *refreshed || c.auth == nil {
			return opened{}, terr
		}
		*refreshed = true
		c.logger.Info("refreshing credentials", "status", status)
		if _, err := c.auth.Refresh(ctx, token); err != nil {
			return opened{}, fmt.Errorf("%w (after %v)", err, terr)
		}
	}
}

func pump(op opened, em *emitter, logger *slog.Logger) {
	defer op.src.Close()
	if !op.primed {
		em.complete()
		return
	}
	for {
		if !em.apply(extractChunk(op.raw())) {
			return
		}
		if !op.src.Next() {
			break
		}
	}
	if err := op.src.Err(); err != nil {
		if em.ctx.Err() != nil {
			em.fail(em.ctx.Err())
			return
		}
		logger.Error("stream read failed", "error", err)
		em.fail(fmt.Errorf("%w: %v", domain.ErrTransport, err))
		return
	}
	em.complete()
}
