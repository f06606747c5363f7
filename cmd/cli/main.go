package main

import (
	"context"
	"os"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/backoffice/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Client commands.ClientFlags `embed:""`

		Sync             commands.SyncCmd             `cmd:"" help:"Sync a login and reconcile invitations"`
		Tenants          commands.TenantsCmd          `cmd:"" help:"List accessible tenants"`
		OnboardingStatus commands.OnboardingStatusCmd `cmd:"" name:"onboarding-status" help:"Show onboarding progress"`
		Invite           commands.InviteCmd           `cmd:"" help:"Invite a user to the selected tenant"`
		Debug            bool                         `help:"Enable debug mode."`
		Version          kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:   cli.Debug,
		Version: version,
		Client:  cli.Client,
		Out:     os.Stdout,
	})
	cmd.FatalIfErrorf(err)
}
