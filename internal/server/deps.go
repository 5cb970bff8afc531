package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/role-auth/internal/config"
	"github.com/iliyamo/role-auth/internal/database"
	"github.com/iliyamo/role-auth/internal/metrics"
	"github.com/iliyamo/role-auth/internal/queue"
	"github.com/iliyamo/role-auth/internal/repository"
	"github.com/iliyamo/role-auth/internal/service"
	"github.com/iliyamo/role-auth/internal/utils"
)

// Components is everything the HTTP server and the CLI commands build
// from configuration.
type Components struct {
	Stores   repository.Stores
	Deps     service.Deps
	Resolver *service.IdentityResolver
	Gate     *service.RoleGate
	Metrics  *metrics.Metrics

	redis *redis.Client
}

// Close releases the store and cache connections.
func (c *Components) Close(ctx context.Context) error {
	if c.redis != nil {
		_ = c.redis.Close()
	}
	return c.Stores.Close(ctx)
}

// Build opens the store and constructs the services.  A bad JWT or bcrypt
// setting fails here so misconfiguration surfaces at startup rather than
// on the first request.  An unreachable Redis only disables the token
// cache.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*Components, error) {
	hasher, err := utils.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}
	issuer, err := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	stores, err := database.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c := &Components{Metrics: metrics.New()}

	if cfg.TokenCache.Enabled {
		rdb, err := config.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Warn("token cache disabled", "err", err)
		} else {
			c.redis = rdb
			stores = stores.WithTokens(repository.NewCachedTokenRepo(
				stores.Tokens, rdb, cfg.TokenCache.TTL, cfg.TokenCache.Prefix, log))
			log.Info("token cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.TokenCache.TTL)
		}
	}
	c.Stores = stores

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled() {
		events = queue.NewPublisher(cfg.RabbitMQURL, cfg.EventsQueue)
		log.Info("user events enabled", "queue", cfg.EventsQueue)
	}

	c.Deps = service.Deps{
		Directory: service.NewDirectory(stores.Users, hasher),
		Tokens:    stores.Tokens,
		Roles:     stores.Roles,
		Hasher:    hasher,
		Issuer:    issuer,
		Events:    events,
		Metrics:   c.Metrics,
		Log:       log,
	}
	c.Resolver = service.NewIdentityResolver(issuer, stores.Tokens, stores.Users, c.Metrics, log)
	c.Gate = service.NewRoleGate(c.Metrics)
	return c, nil
}
