package actioncheck

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend type identifiers, matching the teacher's storage-type string
// constants in shape (plain strings selected in config, dispatched in a
// factory type switch).
const (
	BackendMemory   = "memory"
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config configures Factory.Create. Exactly the fields relevant to the
// selected Type need be set.
type Config struct {
	Type string

	// Path is used by the json backend.
	Path string
	// DSN is used by the sqlite and postgres backends.
	DSN string
	// RedisAddr, RedisPassword, RedisDB, RedisKeyPrefix configure the
	// redis backend.
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisKeyPrefix  string
	// CleanupInterval and MaxAge configure the memory backend's
	// background pruning of stale timestamps.
	CleanupInterval time.Duration
	MaxAge          time.Duration
	// FlushInterval configures the json backend's periodic disk flush.
	FlushInterval time.Duration
}

// Factory constructs a Checker for a configured backend type, mirroring
// the teacher's storage.Factory dispatch pattern.
type Factory struct{}

// NewFactory returns a Factory.
func NewFactory() *Factory { return &Factory{} }

// Create instantiates the Checker named by cfg.Type.
func (f *Factory) Create(ctx context.Context, cfg Config) (Checker, error) {
	switch cfg.Type {
	case BackendMemory:
		interval := cfg.CleanupInterval
		if interval == 0 {
			interval = 10 * time.Minute
		}
		maxAge := cfg.MaxAge
		if maxAge == 0 {
			maxAge = 24 * time.Hour
		}
		return NewMemoryChecker(interval, maxAge), nil
	case BackendJSON:
		if cfg.Path == "" {
			return nil, fmt.Errorf("path is required for json action checker")
		}
		flush := cfg.FlushInterval
		if flush == 0 {
			flush = 30 * time.Second
		}
		return NewJSONChecker(cfg.Path, flush)
	case BackendSQLite:
		return NewSQLiteChecker(cfg.DSN)
	case BackendPostgres:
		return NewPostgresChecker(ctx, cfg.DSN)
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisChecker(client, cfg.RedisKeyPrefix), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Type)
	}
}

// SupportedBackends lists all backend type identifiers this factory accepts.
func (f *Factory) SupportedBackends() []string {
	return []string{BackendMemory, BackendJSON, BackendSQLite, BackendPostgres, BackendRedis}
}
