// Package repository opens the storage backends named in configuration.
package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Rrens/ddoksori/internal/config"
	"github.com/Rrens/ddoksori/internal/repository/memory"
	"github.com/Rrens/ddoksori/internal/repository/mongo"
	"github.com/Rrens/ddoksori/internal/repository/postgres"
	"github.com/Rrens/ddoksori/internal/repository/redis"
	"github.com/Rrens/ddoksori/internal/repository/sqlkv"
	"github.com/Rrens/ddoksori/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	durablePrefix   = "d/"
	ephemeralPrefix = "e/"
)

// Backends holds the opened backend of each scope and the connections
// behind them
type Backends struct {
	Durable   storage.Backend
	Ephemeral storage.Backend
	// Redis is set when any scope uses redis; the rate limiter shares it
	Redis *redis.Client

	shared  map[string]storage.Backend
	pingers map[string]func(context.Context) error
	closers []func()
}

// Open connects every backend cfg.Storage refers to. A driver used by both
// scopes is connected once and split by key prefix.
func Open(ctx context.Context, cfg *config.Config) (*Backends, error) {
	b := &Backends{
		shared:  make(map[string]storage.Backend),
		pingers: make(map[string]func(context.Context) error),
	}

	var err error
	if b.Durable, err = b.open(ctx, cfg, cfg.Storage.Durable, storage.Durable); err != nil {
		b.Close()
		return nil, fmt.Errorf("durable storage: %w", err)
	}
	if b.Ephemeral, err = b.open(ctx, cfg, cfg.Storage.Ephemeral, storage.Ephemeral); err != nil {
		b.Close()
		return nil, fmt.Errorf("ephemeral storage: %w", err)
	}

	log.Info().
		Str("durable", b.Durable.Name()).
		Str("ephemeral", b.Ephemeral.Name()).
		Msg("storage backends ready")

	return b, nil
}

func (b *Backends) open(ctx context.Context, cfg *config.Config, driver string, scope storage.Scope) (storage.Backend, error) {
	prefix := durablePrefix
	if scope == storage.Ephemeral {
		prefix = ephemeralPrefix
	}

	if driver == config.DriverMemory {
		return memory.NewStore(), nil
	}

	if driver == config.DriverRedis {
		client, err := b.redis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		ttl := cfg.Storage.EphemeralTTL
		if scope == storage.Durable {
			ttl = 0
		}
		return redis.NewKV(client, cfg.Redis.Prefix+prefix, ttl), nil
	}

	kv, ok := b.shared[driver]
	if !ok {
		var err error
		if kv, err = b.connect(ctx, cfg, driver); err != nil {
			return nil, err
		}
		b.shared[driver] = kv
	}
	return storage.WithPrefix(kv, prefix), nil
}

func (b *Backends) connect(ctx context.Context, cfg *config.Config, driver string) (storage.Backend, error) {
	switch driver {
	case config.DriverPostgres:
		if err := postgres.RunMigrations(cfg.Database.DSN()); err != nil {
			return nil, err
		}
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		b.track(driver, db.Ping, db.Close)
		return postgres.NewKV(db), nil

	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		kv, err := sqlkv.Open(ctx, sqlkv.SQLite, sqlkv.SQLiteDSN(cfg.SQLite.Path))
		if err != nil {
			return nil, err
		}
		b.track(driver, kv.Ping, func() { kv.Close() })
		return kv, nil

	case config.DriverMySQL:
		kv, err := sqlkv.Open(ctx, sqlkv.MySQL, cfg.MySQL.DSN())
		if err != nil {
			return nil, err
		}
		b.track(driver, kv.Ping, func() { kv.Close() })
		return kv, nil

	case config.DriverMongo:
		kv, err := mongo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		b.track(driver, kv.Ping, func() { kv.Close(context.Background()) })
		return kv, nil
	}

	return nil, fmt.Errorf("unknown storage driver: %q", driver)
}

func (b *Backends) redis(cfg config.RedisConfig) (*redis.Client, error) {
	if b.Redis != nil {
		return b.Redis, nil
	}
	client, err := redis.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	b.Redis = client
	b.track(config.DriverRedis, client.Ping, func() { client.Close() })
	return client, nil
}

func (b *Backends) track(driver string, ping func(context.Context) error, closeFn func()) {
	b.pingers[driver] = ping
	b.closers = append(b.closers, closeFn)
}

// Ping checks every connection and joins the failures
func (b *Backends) Ping(ctx context.Context) error {
	drivers := make([]string, 0, len(b.pingers))
	for d := range b.pingers {
		drivers = append(drivers, d)
	}
	sort.Strings(drivers)

	var errs []error
	for _, d := range drivers {
		if err := b.pingers[d](ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases every connection in reverse order of opening
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
