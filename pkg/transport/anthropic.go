package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// DefaultAnthropicMaxTokens is sent when the request sets no limit; the API requires one.
const DefaultAnthropicMaxTokens = 4096

// AnthropicClient streams messages through the official Anthropic SDK.
type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
	auth   *Auth
	retry  RetryPolicy
	logger *slog.Logger
}

var _ ports.Transport = (*AnthropicClient)(nil)

// NewAnthropic creates an Anthropic transport. An empty baseURL keeps the SDK default.
func NewAnthropic(baseURL, model string, auth *Auth, httpClient *http.Client, logger *slog.Logger) *AnthropicClient {
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
	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaudeSonnet4_5_20250929
	}
	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		model:  m,
		auth:   auth,
		retry:  DefaultRetry,
		logger: logger,
	}
}

// SetRetry replaces the transient failure policy.
func (c *AnthropicClient) SetRetry(p RetryPolicy) { c.retry = p }

// Send implements ports.Transport.
func (c *AnthropicClient) Send(ctx context.Context, req ports.Request) (<-chan domain.StreamEvent, error) {
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
			stream := c.client.Messages.NewStreaming(ctx, params, opts...)
			return stream, func() string { return stream.Current().RawJSON() }
		},
		status: func(err error) int {
			var apiErr *anthropic.Error
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode
			}
			return 0
		},
	}
	return call.send(ctx, req.State)
}

func (c *AnthropicClient) params(req ports.Request) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	if req.System != "" {
		system = append(system, anthropic.TextBlockParam{Text: req.System})
	}
	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case domain.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	model := c.model
	if req.Model != "" {
		model = anthropic.Model(req.Model)
	}
	maxTokens := int64(DefaultAnthropicMaxTokens)
	if req.Options.MaxTokens > 0 {
		maxTokens = int64(req.Options.MaxTokens)
	}
	params := anthropic.MessageNewParams{
		Model:     model,
		Messages:  msgs,
		MaxTokens: maxTokens,
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.Options.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Options.Temperature)
	}
	return params
}
