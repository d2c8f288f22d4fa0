package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultOpenAIModel is used when neither the client nor the request names a model.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient streams chat completions through the official OpenAI SDK.
// Any OpenAI-compatible endpoint works via its base URL.
type OpenAIClient struct {
	client openai.Client
	model  string
	auth   *Auth
	retry  RetryPolicy
	logger *slog.Logger
}

var _ ports.Transport = (*OpenAIClient)(nil)

// NewOpenAI creates an OpenAI transport. An empty baseURL keeps the SDK default.
func NewOpenAI(baseURL, model string, auth *Auth, httpClient *http.Client, logger *slog.Logger) *OpenAIClient {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
		auth:   auth,
		retry:  DefaultRetry,
		logger: logger,
	}
}

// SetRetry replaces the transient failure policy.
func (c *OpenAIClient) SetRetry(p RetryPolicy) { c.retry = p }

// Send implements ports.Transport.
func (c *OpenAIClient) Send(ctx context.Context, req ports.Request) (<-chan domain.StreamEvent, error) {
	params := c.params(req)
	call := sdkCall{
		auth:   c.auth,
		retry:  c.retry,
		logger: c.logger,
		start: func(ctx context.Context, token string) (eventSource, func() string) {
			var opts []option.RequestOption
			if token != "" {
				opts = append(opts, option.WithAPIKey(token))
			}
			stream := c.client.Chat.Completions.NewStreaming(ctx, params, opts...)
			return stream, func() string { return stream.Current().RawJSON() }
		},
		status: func(err error) int {
			var apiErr *openai.Error
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode
			}
			return 0
		},
	}
	return call.send(ctx, req.State)
}

func (c *OpenAIClient) params(req ports.Request) openai.ChatCompletionNewParams {
	var msgs []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case domain.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			// Tool results travel as user text; the wire has no native tool calls.
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	params := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    openai.ChatModel(model),
	}
	if req.Options.Temperature != nil {
		params.Temperature = openai.Float(*req.Options.Temperature)
	}
	if req.Options.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.Options.MaxTokens))
	}
	return params
}
