package config

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/localcart"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	pkgcfg "github.com/Skotchmaster/storefront/pkg/config"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
)

type Config struct {
	*pkgcfg.Config
}

// Load reads the service configuration and checks the values the
// storefront cannot start without.
func Load(files ...string) (*Config, error) {
	base, err := pkgcfg.Load(files...)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	for _, req := range []struct{ value, name string }{
		{base.DatabaseURL, "DATABASE_URL"},
		{base.JWTAccessSecret, "JWT_SECRET"},
		{base.AuthHTTPURL, "AUTH_URL"},
	} {
		if err := pkgcfg.NonEmpty(req.value, req.name); err != nil {
			return nil, err
		}
	}
	if base.MaxQuantityPerRequest <= 0 {
		return nil, errors.Errorf("MAX_QUANTITY_PER_REQUEST must be positive, got %d", base.MaxQuantityPerRequest)
	}
	return &Config{Config: base}, nil
}

func InitDB(ctx context.Context, cfg *Config) (*gorm.DB, error) {
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := pkgdb.Migrate(db, models.All()...); err != nil {
		return nil, err
	}
	return db, nil
}

// InitLocalCarts returns the guest cart backend. The redis client is nil
// when guest carts live in process memory.
func InitLocalCarts(ctx context.Context, cfg *Config) (localcart.Store, *redis.Client, error) {
	if cfg.RedisAddr == "" {
		return localcart.NewMemory(), nil, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, "ping redis")
	}
	return localcart.NewRedis(client, cfg.GuestCartTTL), client, nil
}

// InitPublisher returns a no-op publisher and a nil closer when no brokers
// are configured.
func InitPublisher(cfg *Config) (mykafka.Publisher, func() error, error) {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return mykafka.Noop{}, func() error { return nil }, nil
	}

	p, err := mykafka.NewProducer(brokers)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}
