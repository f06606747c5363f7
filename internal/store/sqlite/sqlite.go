// Package sqlite implements the stores on an embedded SQLite database through gorm.
// It suits single-node deployments; every write is serialised on one connection.
package sqlite

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/store"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is recorded in PRAGMA user_version once schema.sql is applied.
const schemaVersion = 1

// Open opens (creating if needed) the SQLite database at path and applies the schema.
func Open(path string) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	zl := log.Logger.With().Str("component", "sqlite").Logger()

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		Logger: gormlogger.New(
			&zl,
			gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return db, nil
}

// NewStores creates a group of SQLite-backed stores sharing the database handle.
func NewStores(db *gorm.DB) *store.Stores {
	return &store.Stores{
		Users:         &UserStore{db: db},
		Tenants:       &TenantStore{db: db},
		Memberships:   &MembershipStore{db: db},
		Invitations:   &InvitationStore{db: db},
		Subscriptions: &SubscriptionStore{db: db},
		Plans:         &PlanStore{db: db},
	}
}

func migrate(db *gorm.DB) error {
	var version int
	if err := db.Raw(`PRAGMA user_version`).Scan(&version).Error; err != nil {
		return err
	}

	if version >= schemaVersion {
		log.Debug().Int("version", version).Msg("SQLite schema up to date")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range strings.Split(schemaSQL, ";\n") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("exec schema statement: %w", err)
			}
		}

		log.Info().Int("version", schemaVersion).Msg("Applied SQLite schema")
		return tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)).Error
	})
}
