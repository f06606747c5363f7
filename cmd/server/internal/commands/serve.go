package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"filippo.io/csrf"
	zlog "github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/logger"
	"github.com/wolfeidau/backoffice/internal/plans"
	"github.com/wolfeidau/backoffice/internal/server"
	"github.com/wolfeidau/backoffice/internal/telemetry"
)

type ServeCmd struct {
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"BACKOFFICE_LISTEN"`

	// CORS configuration
	CORSOrigins       []string `help:"allowed CORS origins for API requests" default:"http://localhost:3000" env:"BACKOFFICE_CORS_ORIGINS"`
	TrustProxyHeaders bool     `help:"take the client ip from X-Forwarded-For and X-Real-IP" default:"false" env:"BACKOFFICE_TRUST_PROXY_HEADERS"`

	PlansFile string `help:"YAML plan catalog, the built in catalog is used when empty" default:"" env:"BACKOFFICE_PLANS_FILE" type:"path"`

	// Telemetry
	Tracing     bool    `help:"enable tracing and metrics export" default:"false" env:"BACKOFFICE_TRACING"`
	SampleRatio float64 `help:"fraction of new traces sampled" default:"0.1" env:"BACKOFFICE_TRACE_SAMPLE_RATIO"`

	// Store configuration
	StoreType     string             `help:"store type (memory, sqlite or postgres)" default:"memory" env:"BACKOFFICE_STORE_TYPE" enum:"memory,sqlite,postgres"`
	SQLitePath    string             `help:"SQLite database file" default:"./data/backoffice.db" env:"BACKOFFICE_SQLITE_PATH" type:"path"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *ServeCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	zlog.Logger = log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "backoffice",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	stores, closeStores, err := openStores(ctx, c.StoreType, c.PostgresStore, c.SQLitePath)
	if err != nil {
		return err
	}
	defer closeStores()

	catalog, err := plans.Load(c.PlansFile)
	if err != nil {
		return fmt.Errorf("failed to load plan catalog: %w", err)
	}
	if err := plans.Seed(ctx, stores.Plans, catalog); err != nil {
		return err
	}

	srv := server.NewServer(stores, server.Config{
		CORSOrigins:       c.CORSOrigins,
		TrustProxyHeaders: c.TrustProxyHeaders,
	})

	// Cross-origin writes are only accepted from the configured shell origins.
	protection := csrf.New()
	for _, origin := range c.CORSOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return fmt.Errorf("invalid CORS origin %q: %w", origin, err)
		}
	}

	httpServer := configureHTTPServer(c.Listen, protection.Handler(srv.Handler(log)))

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Str("store", c.StoreType).Msg("Starting HTTP server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}
