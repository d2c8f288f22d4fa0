package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// SSEClient posts a chat request and reads a server-sent event stream.
// It speaks the OpenAI-compatible chat/completions dialect and also
// understands backends that thread conversations by ID.
type SSEClient struct {
	url     string
	client  *http.Client
	auth    *Auth
	headers map[string]string
	retry   RetryPolicy
	logger  *slog.Logger
}

// SSEOption configures an SSEClient.
type SSEOption func(*SSEClient)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) SSEOption {
	return func(s *SSEClient) { s.client = c }
}

// WithAuth sets the credential holder. Without it no Authorization header is sent.
func WithAuth(a *Auth) SSEOption {
	return func(s *SSEClient) { s.auth = a }
}

// WithHeader adds a request header.
func WithHeader(key, value string) SSEOption {
	return func(s *SSEClient) { s.headers[key] = value }
}

// WithRetry sets the transient failure policy.
func WithRetry(p RetryPolicy) SSEOption {
	return func(s *SSEClient) { s.retry = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SSEOption {
	return func(s *SSEClient) { s.logger = l }
}

// NewSSE creates a client for the endpoint at url.
func NewSSE(url string, opts ...SSEOption) *SSEClient {
	s := &SSEClient{
		url:     url,
		client:  http.DefaultClient,
		headers: map[string]string{},
		retry:   DefaultRetry,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.Transport = (*SSEClient)(nil)

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model           string        `json:"model,omitempty"`
	Messages        []wireMessage `json:"messages"`
	Stream          bool          `json:"stream"`
	ConversationID  string        `json:"conversation_id,omitempty"`
	ParentMessageID string        `json:"parent_message_id,omitempty"`
	Temperature     *float64      `json:"temperature,omitempty"`
	MaxTokens       int           `json:"max_tokens,omitempty"`
	WebSearch       bool          `json:"web_search,omitempty"`
	Reasoning       *wireThinking `json:"reasoning,omitempty"`
}

type wireThinking struct {
	Enabled bool `json:"enabled"`
}

func buildWireRequest(req ports.Request) wireRequest {
	w := wireRequest{
		Model:           req.Model,
		Stream:          true,
		ConversationID:  req.State.ConversationID,
		ParentMessageID: req.State.LastParentID,
		Temperature:     req.Options.Temperature,
		MaxTokens:       req.Options.MaxTokens,
		WebSearch:       req.Options.WebSearch,
	}
	if req.Options.Thinking {
		w.Reasoning = &wireThinking{Enabled: true}
	}
	if req.System != "" {
		w.Messages = append(w.Messages, wireMessage{Role: string(domain.RoleSystem), Content: req.System})
	}
	for _, m := range req.Messages {
		w.Messages = append(w.Messages, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	return w
}

// Send implements ports.Transport.
func (s *SSEClient) Send(ctx context.Context, req ports.Request) (<-chan domain.StreamEvent, error) {
	body, err := json.Marshal(buildWireRequest(req))
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrTransport, err)
	}

	refreshed := false
	resp, err := retry(ctx, s.retry, func() (*http.Response, error) {
		return s.open(ctx, body, &refreshed)
	}, func(err error, wait time.Duration) {
		s.logger.Warn("transport retry", "error", err, "wait", wait)
	})
	if err != nil {
		return nil, err
	}

	em := newEmitter(ctx, req.State)
	go s.read(resp.Body, em)
	return em.out, nil
}

// open performs one request, refreshing the credential and repeating once on
// an auth status. refreshed is shared across retries so at most one refresh
// happens per Send.
func (s *SSEClient) open(ctx context.Context, body []byte, refreshed *bool) (*http.Response, error) {
	for {
		token, err := s.token(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := s.post(ctx, body, token)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
		}
		if resp.StatusCode/100 == 2 {
			return resp, nil
		}

		terr := readError(resp)
		if !IsAuthStatus(terr.Status) || *refreshed || s.auth == nil {
			return nil, terr
		}
		*refreshed = true
		s.logger.Info("refreshing credentials", "status", terr.Status)
		if _, err := s.auth.Refresh(ctx, token); err != nil {
			return nil, fmt.Errorf("%w (after %v)", err, terr)
		}
	}
}

func (s *SSEClient) token(ctx context.Context) (string, error) {
	if s.auth == nil {
		return "", nil
	}
	return s.auth.Token(ctx)
}

func (s *SSEClient) post(ctx context.Context, body []byte, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	return s.client.Do(req)
}

func readError(resp *http.Response) *TransportError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &TransportError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func (s *SSEClient) read(body io.ReadCloser, em *emitter) {
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		payload, ok := dataPayload(strings.TrimSpace(scanner.Text()))
		if !ok || payload == "" {
			continue
		}
		if payload == "[DONE]" {
			em.complete()
			return
		}
		if !em.apply(extractChunk(payload)) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if em.ctx.Err() != nil {
			em.fail(em.ctx.Err())
			return
		}
		s.logger.Error("stream read failed", "error", err)
		em.fail(fmt.Errorf("%w: %v", domain.ErrTransport, err))
		return
	}
	em.complete()
}
