package commands

import (
	"context"
	"errors"
	"fmt"
)

type InviteCmd struct {
	Email string `arg:"" help:"email address to invite"`
}

func (i *InviteCmd) Run(ctx context.Context, globals *Globals) error {
	if globals.Client.TenantID == "" {
		return errors.New("a tenant is required (--tenant-id or BACKOFFICE_TENANT_ID)")
	}

	inv, err := globals.client().Invite(ctx, i.Email)
	if err != nil {
		return fmt.Errorf("failed to invite %s: %w", i.Email, err)
	}

	fmt.Fprintf(globals.Out, "Invitation %s sent to %s, expires %s\n",
		inv.InvitationID, inv.Email, inv.ExpiresAt.Format("2006-01-02 15:04 MST"))

	return nil
}
