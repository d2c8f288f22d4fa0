package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// EnvPrefix starts every recognized variable.
const EnvPrefix = "TENDRIL_"

// envKeys maps variable suffixes to dotted config keys.
var envKeys = map[string]string{
	"ROOT":           "root",
	"MODE":           "mode",
	"MAX_ITERATIONS": "max_iterations",
	"MODEL":          "model",
	"PARALLEL_TOOLS": "parallel_tools",
	"LOG_LEVEL":      "log_level",
	"TRANSPORT":      "transport.type",
	"BASE_URL":       "transport.base_url",
	"API_KEY":        "transport.api_key",
	"API_KEY_ENV":    "transport.api_key_env",
	"AUTH_URL":       "transport.auth_url",
	"STORE":          "store.type",
	"STORE_DIR":      "store.dir",
	"REDIS_ADDR":     "store.redis_addr",
	"REDIS_PASSWORD": "store.redis_password",
	"REDIS_DB":       "store.redis_db",
	"SESSION_TTL":    "store.ttl",
	"SQLITE_PATH":    "store.sqlite_path",
	"ADDR":           "server.addr",
	"ALLOW_WRITES":   "server.allow_writes",
}

// ApplyEnv merges TENDRIL_* entries of environ ("KEY=value" pairs) over c.
// Unknown variables are ignored.
func (c *Config) ApplyEnv(environ []string) error {
	tree := map[string]any{}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		key, known := envKeys[strings.TrimPrefix(name, EnvPrefix)]
		if !known {
			continue
		}
		set(tree, strings.Split(key, "."), value)
	}
	if len(tree) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           c,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(tree); err != nil {
		return fmt.Errorf("invalid %s environment: %w", EnvPrefix, err)
	}
	return nil
}

func set(tree map[string]any, path []string, value string) {
	for _, p := range path[:len(path)-1] {
		next, ok := tree[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			tree[p] = next
		}
		tree = next
	}
	tree[path[len(path)-1]] = value
}
