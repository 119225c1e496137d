// Package storage selects and opens the user repository backend named by config.
package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/authorization-service/config"
	"github.com/oksasatya/authorization-service/internal/domain/repository"
	mongoinfra "github.com/oksasatya/authorization-service/internal/infrastructure/mongo"
	pginfra "github.com/oksasatya/authorization-service/internal/infrastructure/postgres"
)

// Open connects the configured backend, prepares its schema and returns the
// repository with a func releasing the connection.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{
			DSN:         cfg.PostgresDSN(),
			MaxConns:    cfg.DBMaxConns,
			MinConns:    cfg.DBMinConns,
			MaxConnLife: cfg.DBMaxConnLife,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.RunMigrations {
			if err := pginfra.RunMigrations(cfg.PostgresDSN(), logger); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return pginfra.NewUserRepository(pool), pool.Close, nil

	case config.StorageMongo:
		client, err := mongoinfra.NewClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		repo := mongoinfra.NewUserRepository(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return repo, closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
