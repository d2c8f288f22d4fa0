package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond}

func sseHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, l := range lines {
			fmt.Fprintf(w, "data: %s\n\n", l)
		}
	}
}

func collect(t *testing.T, tr ports.Transport, req ports.Request) ([]domain.StreamEvent, Result, error) {
	t.Helper()
	ch, err := tr.Send(context.Background(), req)
	require.NoError(t, err)
	var events []domain.StreamEvent
	res, err := Collect(context.Background(), ch, func(ev domain.StreamEvent) { events = append(events, ev) })
	return events, res, err
}

func TestSSE_PhasesCitationsAndState(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		`{"choices":[{"delta":{"reasoning_content":"let me think"}}]}`,
		`{"choices":[{"delta":{"content":"Hello"}}]}`,
		`{"choices":[{"delta":{"content":" world"}}],"citations":["https://a.example",{"url":"https://b.example","title":"B"}]}`,
		`{"conversation_id":"conv-9","message_id":"m-3","citations":["https://a.example"]}`,
		`[DONE]`,
	))
	defer srv.Close()

	events, res, err := collect(t, NewSSE(srv.URL), ports.Request{Messages: []domain.Message{domain.NewMessage(domain.RoleUser, "hi")}})
	require.NoError(t, err)

	var kinds []string
	for _, ev := range events {
		kinds = append(kinds, string(ev.Type)+":"+string(ev.Phase))
	}
	assert.Equal(t, []string{
		"delta:thinking", "delta:answer", "delta:answer", "citation:", "citation:", "completed:",
	}, kinds)

	assert.Equal(t, "Hello world", res.Text)
	assert.Equal(t, "let me think", res.Thinking)
	assert.Equal(t, []domain.Citation{{URL: "https://a.example"}, {URL: "https://b.example", Title: "B"}}, res.Citations)
	assert.Equal(t, domain.ConversationState{ConversationID: "conv-9", LastParentID: "m-3"}, res.State)
}

func TestSSE_CumulativeParts(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		`{"message":{"id":"m1","content":{"parts":["He"]}},"conversation_id":"c1"}`,
		`{"message":{"id":"m1","content":{"parts":["Hello"]}},"conversation_id":"c1"}`,
		`{"message":{"id":"m1","content":{"parts":["Hello!"]}},"conversation_id":"c1"}`,
	))
	defer srv.Close()

	events, res, err := collect(t, NewSSE(srv.URL), ports.Request{})
	require.NoError(t, err)
	var deltas []string
	for _, ev := range events {
		if ev.Type == domain.StreamDelta {
			deltas = append(deltas, ev.Delta)
		}
	}
	assert.Equal(t, []string{"He", "llo", "!"}, deltas)
	assert.Equal(t, "Hello!", res.Text)
	assert.Equal(t, "c1", res.State.ConversationID)
}

func TestSSE_SendsThreadAndSystem(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		sseHandler(`[DONE]`)(w, r)
	}))
	defer srv.Close()

	_, _, err := collect(t, NewSSE(srv.URL), ports.Request{
		System:   "be brief",
		Model:    "m",
		State:    domain.ConversationState{ConversationID: "c", LastParentID: "p"},
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"model":"m","stream":true,"conversation_id":"c","parent_message_id":"p",
		"messages":[{"role":"system","content":"be brief"},{"role":"user","content":"hi"}]
	}`, body)
}

func TestSSE_ErrorPayload(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		`{"choices":[{"delta":{"content":"partial"}}]}`,
		`{"error":{"message":"overloaded"}}`,
	))
	defer srv.Close()

	_, res, err := collect(t, NewSSE(srv.URL), ports.Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, err.Error(), "overloaded")
	assert.Equal(t, "partial", res.Text)
}

func TestSSE_RefreshesOnAuthStatus(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			var refreshes atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer fresh" {
					w.WriteHeader(status)
					return
				}
				sseHandler(`{"content":"ok"}`, `[DONE]`)(w, r)
			}))
			defer srv.Close()

			auth := NewAuth("stale", func(context.Context) (string, error) {
				refreshes.Add(1)
				return "fresh", nil
			}, nil)

			_, res, err := collect(t, NewSSE(srv.URL, WithAuth(auth), WithRetry(fastRetry)), ports.Request{})
			require.NoError(t, err)
			assert.Equal(t, "ok", res.Text)
			assert.Equal(t, int32(1), refreshes.Load())
		})
	}
}

func TestSSE_RefreshOnlyOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("denied"))
	}))
	defer srv.Close()

	n := 0
	auth := NewAuth("a", func(context.Context) (string, error) {
		n++
		return fmt.Sprintf("t%d", n), nil
	}, nil)

	_, err := NewSSE(srv.URL, WithAuth(auth), WithRetry(fastRetry)).Send(context.Background(), ports.Request{})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusUnauthorized, te.Status)
	assert.Equal(t, "denied", te.Body)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 1, n)
}

func TestSSE_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		sseHandler(`{"content":"second time"}`)(w, r)
	}))
	defer srv.Close()

	_, res, err := collect(t, NewSSE(srv.URL, WithRetry(fastRetry)), ports.Request{})
	require.NoError(t, err)
	assert.Equal(t, "second time", res.Text)
	assert.Equal(t, int32(2), hits.Load())
}

func TestSSE_ClientErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewSSE(srv.URL, WithRetry(fastRetry)).Send(context.Background(), ports.Request{})
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSSE_Cancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\":\"first\"}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := NewSSE(srv.URL).Send(ctx, ports.Request{})
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, "first", first.Delta)
	cancel()

	var last domain.StreamEvent
	for ev := range ch {
		last = ev
	}
	assert.Equal(t, domain.StreamError, last.Type)
	assert.True(t, errors.Is(last.Err, context.Canceled), "got %v", last.Err)
}

func TestAuth_ConcurrentRefreshIsShared(t *testing.T) {
	var calls atomic.Int32
	gate := make(chan struct{})
	auth := NewAuth("old", func(context.Context) (string, error) {
		calls.Add(1)
		<-gate
		return "new", nil
	}, nil)

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	for i := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := auth.Refresh(context.Background(), "old")
			assert.NoError(t, err)
			tokens[i] = tok
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, tok := range tokens {
		assert.Equal(t, "new", tok)
	}

	// A caller still holding the old token gets the fresh one without a refresh.
	tok, err := auth.Refresh(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, "new", tok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAuth_RefreshSurvivesCancelledLeader(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	auth := NewAuth("old", func(ctx context.Context) (string, error) {
		close(started)
		<-gate
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "new", nil
	}, nil)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := auth.Refresh(leaderCtx, "old")
		leaderErr <- err
	}()
	<-started

	followerTok := make(chan string, 1)
	go func() {
		tok, err := auth.Refresh(context.Background(), "old")
		assert.NoError(t, err)
		followerTok <- tok
	}()

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	close(gate)
	assert.Equal(t, "new", <-followerTok)

	tok, err := auth.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", tok)
}

func TestHTTPRefresher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"accessToken":"abc","expires":3600}`))
	}))
	defer srv.Close()

	tok, err := HTTPRefresher(srv.Client(), srv.URL)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(Config{Type: "carrier-pigeon"}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = New(Config{Type: TypeSSE}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	tr, err := New(Config{Type: TypeOpenAI, APIKey: "k"}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, tr)
}

func TestConfig_KeyFromEnv(t *testing.T) {
	t.Setenv("TENDRIL_TEST_KEY", "from-env")
	assert.Equal(t, "from-env", Config{APIKeyEnv: "TENDRIL_TEST_KEY"}.Key())
	assert.Equal(t, "direct", Config{APIKey: "direct", APIKeyEnv: "TENDRIL_TEST_KEY"}.Key())
}
