package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAIChunk(delta string) string {
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":%s,"finish_reason":null}]}`, delta)
}

func TestOpenAI_StreamAndRefresh(t *testing.T) {
	var refreshes, hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
			return
		}
		sseHandler(
			openAIChunk(`{"role":"assistant","reasoning_content":"plan"}`),
			openAIChunk(`{"content":"{\"tool_calls\":"}`),
			openAIChunk(`{"content":"[]}"}`),
			`[DONE]`,
		)(w, r)
	}))
	defer srv.Close()

	auth := NewAuth("stale", func(context.Context) (string, error) {
		refreshes.Add(1)
		return "fresh", nil
	}, nil)
	client := NewOpenAI(srv.URL, "m", auth, srv.Client(), nil)
	client.SetRetry(fastRetry)

	events, res, err := collect(t, client, ports.Request{System: "sys", Messages: []domain.Message{{Role: domain.RoleUser, Content: "go"}}})
	require.NoError(t, err)
	assert.Equal(t, `{"tool_calls":[]}`, res.Text)
	assert.Equal(t, "plan", res.Thinking)
	assert.Equal(t, domain.PhaseThinking, events[0].Phase)
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(2), hits.Load())
}

func TestOpenAI_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"no such model"}}`))
	}))
	defer srv.Close()

	client := NewOpenAI(srv.URL, "m", NewAuth("k", nil, nil), srv.Client(), nil)
	client.SetRetry(fastRetry)
	_, err := client.Send(context.Background(), ports.Request{})

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadRequest, te.Status)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestAnthropic_ThinkingAndText(t *testing.T) {
	events := []struct{ name, data string }{
		{"message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude","stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":1,"output_tokens":1}}}`},
		{"content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"thinking","thinking":"","signature":""}}`},
		{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"hmm"}}`},
		{"content_block_stop", `{"type":"content_block_stop","index":0}`},
		{"content_block_start", `{"type":"content_block_start","index":1,"content_block":{"type":"text","text":""}}`},
		{"content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":"Hi"}}`},
		{"content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":" there"}}`},
		{"content_block_stop", `{"type":"content_block_stop","index":1}`},
		{"message_stop", `{"type":"message_stop"}`},
	}
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, ev.data)
		}
	}))
	defer srv.Close()

	client := NewAnthropic(srv.URL, "claude", NewAuth("key-1", nil, nil), srv.Client(), nil)
	client.SetRetry(fastRetry)

	_, res, err := collect(t, client, ports.Request{Messages: []domain.Message{{Role: domain.RoleUser, Content: "hello"}}})
	require.NoError(t, err)
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, "Hi there", res.Text)
	assert.Equal(t, "hmm", res.Thinking)
	assert.Equal(t, "msg_1", res.State.LastParentID)
}
