package commands

import (
	"context"
	"fmt"

	zlog "github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/logger"
	postgresstore "github.com/wolfeidau/backoffice/internal/store/postgres"
)

type MigrateCmd struct {
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	zlog.Logger = log

	if err := c.PostgresStore.Validate(); err != nil {
		return err
	}

	cfg := c.PostgresStore.poolConfig()
	cfg.AutoMigrate = false

	pool, err := postgresstore.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	if err := postgresstore.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Msg("Database migrations completed")

	return nil
}
