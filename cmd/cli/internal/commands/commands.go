package commands

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/client"
)

// ClientFlags select the API server and the caller identity.
type ClientFlags struct {
	Server      string        `help:"Server URL" default:"http://localhost:8080" env:"BACKOFFICE_SERVER"`
	UserID      string        `help:"caller user id" env:"BACKOFFICE_USER_ID"`
	TenantID    string        `help:"selected tenant id" env:"BACKOFFICE_TENANT_ID"`
	SystemAdmin bool          `help:"assert the system admin flag" env:"BACKOFFICE_SYSTEM_ADMIN"`
	Token       string        `help:"bearer token forwarded as the caller identity" env:"BACKOFFICE_TOKEN"`
	Timeout     time.Duration `help:"per request timeout" default:"30s"`
	Retries     uint          `help:"attempts for transient failures" default:"5"`
}

type Globals struct {
	Debug   bool
	Version string
	Client  ClientFlags
	Out     io.Writer
}

func (g *Globals) client() *client.Client {
	level := zerolog.InfoLevel
	if g.Debug {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Level(level)

	return client.New(client.Config{
		ServerURL:   g.Client.Server,
		Timeout:     g.Client.Timeout,
		Debug:       g.Debug,
		UserID:      g.Client.UserID,
		SystemAdmin: g.Client.SystemAdmin,
		TenantID:    g.Client.TenantID,
		Token:       g.Client.Token,
		MaxRetries:  g.Client.Retries,
	})
}
