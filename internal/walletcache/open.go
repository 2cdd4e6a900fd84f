package walletcache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

type Config struct {
	Backend string
	// Path is the SQLite file, used by the sqlite backend.
	Path  string
	Redis *redis.Client
	Options
}

// Open builds the configured backend. Any failure degrades to Disabled with a
// warning, so callers always get a usable Store.
func Open(ctx context.Context, cfg Config) Store {
	cfg.Options = cfg.Options.withDefaults()
	store, err := open(ctx, cfg)
	if err != nil {
		cfg.Logger.WithError(err).WithField("backend", cfg.Backend).Warn("wallet cache disabled")
		return Disabled{}
	}
	return store
}

func open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendSQLite:
		return NewSQLiteStore(cfg.Path, cfg.Options)
	case BackendRedis:
		if cfg.Redis == nil {
			return nil, fmt.Errorf("%w: redis client not configured", ErrUnavailable)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := cfg.Redis.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("%w: redis ping: %w", ErrUnavailable, err)
		}
		return NewRedisStore(cfg.Redis, cfg.Options)
	case BackendMemory:
		return NewMemoryStore(cfg.Options), nil
	case BackendNone:
		return nil, fmt.Errorf("%w: disabled by configuration", ErrUnavailable)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrUnavailable, cfg.Backend)
	}
}
