package database

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/iliyamo/role-auth/internal/config"
	"github.com/iliyamo/role-auth/internal/repository"
)

// Backend names the store family selected by a DATABASE_URI scheme.
type Backend string

const (
	BackendMongo  Backend = "mongo"
	BackendMySQL  Backend = "mysql"
	BackendMemory Backend = "memory"
)

// BackendFor maps a URI scheme to a backend.
func BackendFor(uri string) (Backend, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse DATABASE_URI: %w", err)
	}
	switch u.Scheme {
	case "mongodb", "mongodb+srv":
		return BackendMongo, nil
	case "mysql":
		return BackendMySQL, nil
	case "memory":
		return BackendMemory, nil
	default:
		return "", fmt.Errorf("unsupported DATABASE_URI scheme %q", u.Scheme)
	}
}

// Open connects to the backend named by cfg.DatabaseURI and returns its
// stores.  Mongo indexes are ensured on every start; MySQL schema is
// managed by the migrate command.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.Stores, error) {
	backend, err := BackendFor(cfg.DatabaseURI)
	if err != nil {
		return repository.Stores{}, err
	}
	switch backend {
	case BackendMongo:
		client, db, err := OpenMongo(ctx, cfg.DatabaseURI, cfg.DatabaseName)
		if err != nil {
			return repository.Stores{}, err
		}
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return repository.Stores{}, err
		}
		log.Info("database connected", "backend", backend, "database", db.Name())
		return repository.NewMongoStores(client, db), nil
	case BackendMySQL:
		db, err := OpenMySQL(ctx, cfg.DatabaseURI)
		if err != nil {
			return repository.Stores{}, err
		}
		log.Info("database connected", "backend", backend)
		return repository.NewMySQLStores(db), nil
	default:
		log.Warn("using in-memory store; data is lost on exit")
		return repository.NewMemoryStore().Stores(), nil
	}
}
