package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/store"
	memorystore "github.com/wolfeidau/backoffice/internal/store/memory"
	postgresstore "github.com/wolfeidau/backoffice/internal/store/postgres"
	sqlitestore "github.com/wolfeidau/backoffice/internal/store/sqlite"
)

// PostgresStoreFlags configures the PostgreSQL store.
type PostgresStoreFlags struct {
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`
	ConnectTimeout  time.Duration `help:"time to wait for the database to accept connections" default:"30s"`

	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"BACKOFFICE_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (s *PostgresStoreFlags) poolConfig() *postgresstore.PoolConfig {
	return &postgresstore.PoolConfig{
		ConnString:      s.ConnString,
		MaxConns:        s.MaxConns,
		MinConns:        s.MinConns,
		MaxConnLifetime: s.MaxConnLifetime,
		MaxConnIdleTime: s.MaxConnIdleTime,
		ConnectTimeout:  s.ConnectTimeout,
		AutoMigrate:     s.AutoMigrate,
	}
}

// openStores creates the stores for storeType. The returned close function
// releases the underlying database.
func openStores(ctx context.Context, storeType string, pg PostgresStoreFlags, sqlitePath string) (*store.Stores, func(), error) {
	switch storeType {
	case "postgres":
		if err := pg.Validate(); err != nil {
			return nil, nil, err
		}

		pool, err := postgresstore.NewPool(ctx, pg.poolConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
		}

		log.Info().Msg("Using PostgreSQL stores with shared connection pool")
		return postgresstore.NewStores(pool), pool.Close, nil

	case "sqlite":
		db, err := sqlitestore.Open(sqlitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}

		closeFn := func() {
			sqlDB, err := db.DB()
			if err != nil {
				return
			}
			if err := sqlDB.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close sqlite database")
			}
		}

		log.Info().Str("path", sqlitePath).Msg("Using SQLite stores")
		return sqlitestore.NewStores(db), closeFn, nil

	default:
		log.Info().Msg("Using in-memory stores")
		return memorystore.NewStores(), func() {}, nil
	}
}
