package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/tendril/internal/config"
	"github.com/aretw0/tendril/pkg/adapters/file"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/adapters/sqlite"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/aretw0/tendril/pkg/ports"
)

// Persistence is an opened session store plus what came with it.
type Persistence struct {
	Store ports.SessionStore
	// Locker is set only for backends shared between processes.
	Locker ports.DistributedLocker
	closer io.Closer
}

// Close releases the backend connection, if any.
func (p *Persistence) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// OpenStore builds the session store described by cfg, wrapped with PII
// masking and encryption when configured. Masking runs before sealing.
func OpenStore(cfg config.StoreConfig, logger *slog.Logger) (*Persistence, error) {
	p := &Persistence{}
	switch cfg.Type {
	case config.StoreMemory, "":
		p.Store = memory.NewStore()
	case config.StoreFile:
		p.Store = file.New(cfg.Dir)
	case config.StoreSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = filepath.Join(".tendril", "sessions.db")
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}
		s, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		p.Store, p.closer = s, s
	case config.StoreRedis:
		var opts []redis.Option
		if cfg.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.TTL))
		}
		s := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		p.Store, p.closer = s, s
		p.Locker = redis.NewLocker(s.Client(), redis.DefaultPrefix)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}

	mws, err := storeMiddleware(cfg)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.Store = middleware.Chain(p.Store, mws...)
	logger.Debug("session store ready", "type", cfg.Type, "middleware", len(mws))
	return p, nil
}

func storeMiddleware(cfg config.StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if cfg.MaskPII || len(cfg.PIIPatterns) > 0 {
		patterns := cfg.PIIPatterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultPIIPatterns
		}
		pii, err := middleware.NewPIIMiddleware(patterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKeyEnv != "" {
		key, err := encryptionKey(cfg.EncryptionKeyEnv)
		if err != nil {
			return nil, err
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return mws, nil
}

func encryptionKey(env string) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return nil, fmt.Errorf("encryption key variable %s is empty", env)
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s is not a hex key: %w", env, err)
	}
	return key, nil
}
