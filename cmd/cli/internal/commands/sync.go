package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/backoffice/internal/client"
)

type SyncCmd struct {
	Email          string `arg:"" help:"email address of the user"`
	ExternalAuthID string `help:"id asserted by the identity provider"`
	FirstName      string `help:"first name"`
	LastName       string `help:"last name"`
}

func (s *SyncCmd) Run(ctx context.Context, globals *Globals) error {
	resp, err := globals.client().Sync(ctx, client.SyncRequest{
		Email:          s.Email,
		ExternalAuthID: s.ExternalAuthID,
		FirstName:      s.FirstName,
		LastName:       s.LastName,
	})
	if err != nil {
		return fmt.Errorf("failed to sync login: %w", err)
	}

	action := "Updated"
	if resp.Created {
		action = "Created"
	}

	fmt.Fprintf(globals.Out, "%s user %s (%s)\n", action, resp.User.UserID, resp.User.Email)
	if resp.InvitationsAccepted > 0 || resp.InvitationsFailed > 0 {
		fmt.Fprintf(globals.Out, "Invitations accepted: %d, failed: %d\n", resp.InvitationsAccepted, resp.InvitationsFailed)
	}

	printTenants(globals.Out, resp.Tenants)
	printOnboarding(globals.Out, resp.Onboarding)

	return nil
}
