package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

// refreshTimeout bounds a shared refresh, which outlives the caller that
// started it.
const refreshTimeout = 30 * time.Second

// RefreshFunc obtains a fresh credential.
type RefreshFunc func(ctx context.Context) (string, error)

// Auth holds the current bearer token.
//
// Refresh is a critical section: one refresh runs at a time, and a caller
// reporting a token that has already been replaced gets the replacement
// without triggering another refresh.
type Auth struct {
	mu      sync.Mutex
	token   string
	refresh RefreshFunc
	group   singleflight.Group
	logger  *slog.Logger
}

// NewAuth creates an Auth seeded with token. A nil refresh makes the token static.
func NewAuth(token string, refresh RefreshFunc, logger *slog.Logger) *Auth {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Auth{token: token, refresh: refresh, logger: logger}
}

// Token returns the current token, fetching one first if none is held.
func (a *Auth) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	tok := a.token
	a.mu.Unlock()
	if tok != "" || a.refresh == nil {
		return tok, nil
	}
	return a.Refresh(ctx, "")
}

// Refresh replaces stale with a new token and returns it.
func (a *Auth) Refresh(ctx context.Context, stale string) (string, error) {
	a.mu.Lock()
	if a.token != stale {
		tok := a.token
		a.mu.Unlock()
		return tok, nil
	}
	a.mu.Unlock()

	if a.refresh == nil {
		return "", fmt.Errorf("%w: no refresher configured", errRefreshFailed)
	}

	ch := a.group.DoChan("refresh", func() (any, error) {
		a.mu.Lock()
		current := a.token
		a.mu.Unlock()
		if current != stale {
			return current, nil
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		tok, err := a.refresh(rctx)
		if err != nil {
			return "", err
		}
		a.mu.Lock()
		a.token = tok
		a.mu.Unlock()
		return tok, nil
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if res.Err != nil {
		a.logger.Warn("token refresh failed", "error", res.Err)
		return "", fmt.Errorf("%w: %v", errRefreshFailed, res.Err)
	}
	a.logger.Debug("token refreshed", "shared", res.Shared)
	return res.Val.(string), nil
}

// tokenPaths are tried in order on a refresh response body.
var tokenPaths = []string{"access_token", "accessToken", "token", "data.token"}

// HTTPRefresher fetches a token by POSTing to url and reading the first
// token field of the JSON response.
func HTTPRefresher(client *http.Client, url string) RefreshFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return "", err
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return "", err
		}
		if resp.StatusCode/100 != 2 {
			return "", &TransportError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}
		for _, p := range tokenPaths {
			if r := gjson.GetBytes(body, p); r.Type == gjson.String && r.String() != "" {
				return r.String(), nil
			}
		}
		return "", errors.New("no token in refresh response")
	}
}
