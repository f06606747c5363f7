package invitation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
	"github.com/wolfeidau/backoffice/internal/telemetry"
)

// ReconcileResult summarizes one reconciliation run.
type ReconcileResult struct {
	// Accepted lists the tenants joined through an accepted invitation.
	Accepted []uuid.UUID
	Failed   int
}

// ErrTenantInactive is reported for invitations into a deactivated tenant.
var ErrTenantInactive = errors.New("tenant is not active")

// Reconciler converts pending invitations into memberships when a user logs in.
type Reconciler struct {
	tenants     store.TenantStore
	memberships store.MembershipStore
	invitations store.InvitationStore
	now         func() time.Time
}

// NewReconciler creates a Reconciler over the stores.
func NewReconciler(stores *store.Stores) *Reconciler {
	return &Reconciler{
		tenants:     stores.Tenants,
		memberships: stores.Memberships,
		invitations: stores.Invitations,
		now:         time.Now,
	}
}

// Reconcile accepts every unexpired pending invitation addressed to the user's email.
//
// Each invitation is handled on its own: a failure is logged and counted, then the
// next invitation is processed. Errors never reach the caller. Running Reconcile
// again converges on the same memberships and invitation states.
func (r *Reconciler) Reconcile(ctx context.Context, user *models.User) ReconcileResult {
	var result ReconcileResult
	metrics := telemetry.GetMetrics()

	now := r.now().UTC()

	pending, err := r.invitations.ListPendingForEmail(ctx, user.Email, now)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.UserID.String()).Msg("failed to list pending invitations")
		metrics.InvitationReconcileErrorTotal.Add(ctx, 1)
		result.Failed++
		return result
	}

	for _, inv := range pending {
		if err := r.accept(ctx, user, inv, now); err != nil {
			log.Warn().Err(err).
				Str("user_id", user.UserID.String()).
				Str("invitation_id", inv.InvitationID.String()).
				Str("tenant_id", inv.TenantID.String()).
				Msg("failed to reconcile invitation")
			metrics.InvitationReconcileErrorTotal.Add(ctx, 1)
			result.Failed++
			continue
		}

		metrics.InvitationsReconciledTotal.Add(ctx, 1)
		result.Accepted = append(result.Accepted, inv.TenantID)
	}

	if len(pending) > 0 {
		log.Info().
			Str("user_id", user.UserID.String()).
			Int("accepted", len(result.Accepted)).
			Int("failed", result.Failed).
			Msg("invitations reconciled")
	}

	return result
}

// accept leaves invitations into missing or deactivated tenants pending.
func (r *Reconciler) accept(ctx context.Context, user *models.User, inv *models.Invitation, now time.Time) error {
	tenant, err := r.tenants.Get(ctx, inv.TenantID)
	if err != nil {
		return fmt.Errorf("failed to get tenant: %w", err)
	}
	if !tenant.IsActive {
		return ErrTenantInactive
	}

	invitedBy := inv.InvitedByUserID
	membership := &models.Membership{
		MembershipID: uuid.Must(uuid.NewV7()),
		UserID:       user.UserID,
		TenantID:     inv.TenantID,
		Role:         models.RoleMember,
		GrantedBy:    &invitedBy,
		GrantedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// An already active membership is left as is, the invitation is still accepted.
	activated, err := r.memberships.Upsert(ctx, membership)
	if err != nil {
		return err
	}

	if err := r.invitations.Accept(ctx, inv.InvitationID, user.UserID, now); err != nil {
		return err
	}

	log.Debug().
		Str("invitation_id", inv.InvitationID.String()).
		Bool("membership_created", activated).
		Msg("invitation accepted")

	return nil
}
