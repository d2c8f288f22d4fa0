// Package config loads tendril settings from a yaml or toml file, then
// TENDRIL_* environment variables. Command-line flags are applied last by
// the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/transport"
	"gopkg.in/yaml.v3"
)

// Store types.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// FileNames are searched, in order, when no config path is given.
var FileNames = []string{"tendril.yaml", "tendril.yml", "tendril.toml"}

// Config is the full application configuration.
type Config struct {
	Root          string           `yaml:"root" toml:"root"`
	Mode          string           `yaml:"mode" toml:"mode"`
	MaxIterations int              `yaml:"max_iterations" toml:"max_iterations"`
	Model         string           `yaml:"model" toml:"model"`
	ParallelTools bool             `yaml:"parallel_tools" toml:"parallel_tools"`
	LogLevel      string           `yaml:"log_level" toml:"log_level"`
	Transport     transport.Config `yaml:"transport" toml:"transport"`
	Limits        runner.Limits    `yaml:"limits" toml:"limits"`
	Store         StoreConfig      `yaml:"store" toml:"store"`
	Server        ServerConfig     `yaml:"server" toml:"server"`
}

// StoreConfig selects where sessions are kept.
type StoreConfig struct {
	Type          string        `yaml:"type" toml:"type"`
	Dir           string        `yaml:"dir" toml:"dir"`
	RedisAddr     string        `yaml:"redis_addr" toml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" toml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" toml:"redis_db"`
	TTL           time.Duration `yaml:"ttl" toml:"ttl"`
	SQLitePath    string        `yaml:"sqlite_path" toml:"sqlite_path"`
	// EncryptionKeyEnv names the variable holding a hex AES-256 key.
	EncryptionKeyEnv string   `yaml:"encryption_key_env" toml:"encryption_key_env"`
	MaskPII          bool     `yaml:"mask_pii" toml:"mask_pii"`
	PIIPatterns      []string `yaml:"pii_patterns" toml:"pii_patterns"`
}

// ServerConfig configures `tendril serve` and the SSE mode of `tendril mcp`.
type ServerConfig struct {
	Addr        string `yaml:"addr" toml:"addr"`
	AllowWrites bool   `yaml:"allow_writes" toml:"allow_writes"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Root:          ".",
		Mode:          string(runner.ModeAgent),
		MaxIterations: runner.DefaultMaxIterations,
		LogLevel:      "info",
		Transport:     transport.Config{Type: transport.TypeOpenAI},
		Limits:        runner.DefaultLimits,
		Store:         StoreConfig{Type: StoreMemory, Dir: filepath.Join(".tendril", "sessions")},
		Server:        ServerConfig{Addr: ":8080"},
	}
}

// Load builds the configuration from defaults, the file at path and the
// environment. An empty path searches FileNames in the working directory;
// finding none is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = Find(".")
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.Environ()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find returns the first of FileNames present in dir, or "".
func Find(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadFile merges the file at path over c. The format follows the extension.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

// Validate rejects values the runtime cannot use.
func (c *Config) Validate() error {
	var errs []error
	if _, err := runner.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations))
	}
	l := c.Limits
	if l.ListEntries <= 0 || l.ReadChars <= 0 || l.SearchMatches <= 0 || l.ResultTokens <= 0 {
		errs = append(errs, fmt.Errorf("limits must be positive, got %+v", l))
	}
	switch c.Transport.Type {
	case transport.TypeSSE:
		if c.Transport.BaseURL == "" {
			errs = append(errs, errors.New("transport.base_url is required for the sse transport"))
		}
	case transport.TypeOpenAI, transport.TypeAnthropic:
	default:
		errs = append(errs, fmt.Errorf("unknown transport type %q", c.Transport.Type))
	}
	switch c.Store.Type {
	case StoreMemory, StoreFile, StoreSQLite:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store type %q", c.Store.Type))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TransportConfig returns the transport settings with the top-level model
// filled in.
func (c *Config) TransportConfig() transport.Config {
	t := c.Transport
	if t.Model == "" {
		t.Model = c.Model
	}
	return t
}
