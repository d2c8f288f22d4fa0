package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// Transport types.
const (
	TypeSSE       = "sse"
	TypeOpenAI    = "openai"
	TypeAnthropic = "anthropic"
)

// Config selects and configures a transport.
type Config struct {
	Type      string `yaml:"type" toml:"type"`
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	APIKey    string `yaml:"api_key" toml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
	AuthURL   string `yaml:"auth_url" toml:"auth_url"`
	Model     string `yaml:"model" toml:"model"`
}

// Key returns the configured API key, falling back to the named environment variable.
func (c Config) Key() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.APIKeyEnv != "" {
		return os.Getenv(c.APIKeyEnv)
	}
	return ""
}

// New builds the transport named by cfg.Type.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) (ports.Transport, error) {
	var refresh RefreshFunc
	if cfg.AuthURL != "" {
		refresh = HTTPRefresher(httpClient, cfg.AuthURL)
	}
	auth := NewAuth(cfg.Key(), refresh, logger)

	switch cfg.Type {
	case TypeSSE, "":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: sse transport needs base_url", domain.ErrValidation)
		}
		opts := []SSEOption{WithAuth(auth)}
		if httpClient != nil {
			opts = append(opts, WithHTTPClient(httpClient))
		}
		if logger != nil {
			opts = append(opts, WithLogger(logger))
		}
		return NewSSE(cfg.BaseURL, opts...), nil
	case TypeOpenAI:
		return NewOpenAI(cfg.BaseURL, cfg.Model, auth, httpClient, logger), nil
	case TypeAnthropic:
		return NewAnthropic(cfg.BaseURL, cfg.Model, auth, httpClient, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown transport type %q", domain.ErrValidation, cfg.Type)
	}
}
