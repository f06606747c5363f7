// Package invitation manages tenant invitations and reconciles them into
// memberships at login.
package invitation

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/auth"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
	"github.com/wolfeidau/backoffice/internal/telemetry"
)

// Listed is an invitation as reported by List. Expired is derived at read time,
// the stored status of an expired invitation stays pending.
type Listed struct {
	*models.Invitation
	Expired bool
}

// Service manages the invitations of the caller's selected tenant.
type Service struct {
	users       store.UserStore
	tenants     store.TenantStore
	memberships store.MembershipStore
	invitations store.InvitationStore
	authz       *auth.Authorizer
	now         func() time.Time
}

// NewService creates an invitation Service.
func NewService(stores *store.Stores, authz *auth.Authorizer) *Service {
	return &Service{
		users:       stores.Users,
		tenants:     stores.Tenants,
		memberships: stores.Memberships,
		invitations: stores.Invitations,
		authz:       authz,
		now:         time.Now,
	}
}

// ParseEmail validates and normalizes an email address.
func ParseEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return "", fmt.Errorf("invalid email address %q", email)
	}
	return models.NormalizeEmail(addr.Address), nil
}

// Invite invites an email address into the caller's selected tenant.
func (s *Service) Invite(ctx context.Context, caller auth.CallerContext, email string) (*models.Invitation, error) {
	tenantID, ok := caller.Scope.TenantID()
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("a tenant must be selected"))
	}

	if err := s.authz.RequireManage(ctx, caller); err != nil {
		return nil, err
	}

	email, err := ParseEmail(email)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("tenant not found"))
		}
		log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("Failed to get tenant")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to get tenant"))
	}
	if !tenant.IsActive {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("tenant not found"))
	}

	inviter, err := s.users.Get(ctx, caller.UserID)
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		log.Error().Err(err).Msg("Failed to get inviting user")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to get inviting user"))
	}
	if inviter != nil && models.NormalizeEmail(inviter.Email) == email {
		return nil, connect.NewError(connect.CodeAlreadyExists, errors.New("cannot invite yourself"))
	}

	if err := s.checkNotMember(ctx, tenantID, email); err != nil {
		return nil, err
	}

	inv, err := s.createPending(ctx, tenantID, caller.UserID, email)
	if err != nil {
		if errors.Is(err, store.ErrInvitationAlreadyExists) {
			return nil, connect.NewError(connect.CodeAlreadyExists, errors.New("a pending invitation already exists for this email"))
		}
		if errors.Is(err, store.ErrTenantNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("tenant not found"))
		}
		log.Error().Err(err).Msg("Failed to create invitation")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to create invitation"))
	}

	return inv, nil
}

// CreatePending stores a pending invitation from invitedBy without any
// authorization check. Callers have already established the right to invite.
func (s *Service) CreatePending(ctx context.Context, tenantID, invitedBy uuid.UUID, email string) (*models.Invitation, error) {
	return s.createPending(ctx, tenantID, invitedBy, email)
}

func (s *Service) createPending(ctx context.Context, tenantID, invitedBy uuid.UUID, email string) (*models.Invitation, error) {
	invitationID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation ID: %w", err)
	}

	now := s.now().UTC()
	inv := &models.Invitation{
		InvitationID:    invitationID,
		Email:           email,
		TenantID:        tenantID,
		InvitedByUserID: invitedBy,
		Status:          models.InvitationPending,
		ExpiresAt:       now.Add(models.InvitationTTL),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.invitations.CreatePending(ctx, inv, now); err != nil {
		return nil, err
	}

	telemetry.GetMetrics().InvitationsCreatedTotal.Add(ctx, 1)

	log.Info().
		Str("invitation_id", inv.InvitationID.String()).
		Str("tenant_id", tenantID.String()).
		Str("invited_by", invitedBy.String()).
		Msg("invitation created")

	return inv, nil
}

// checkNotMember rejects invitations for users that already belong to the tenant.
func (s *Service) checkNotMember(ctx context.Context, tenantID uuid.UUID, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up invited user")
		return connect.NewError(connect.CodeInternal, errors.New("failed to look up invited user"))
	}

	_, err = s.memberships.GetActive(ctx, user.UserID, tenantID)
	if err == nil {
		return connect.NewError(connect.CodeAlreadyExists, errors.New("user is already a member of this tenant"))
	}
	if !errors.Is(err, store.ErrMembershipNotFound) {
		log.Error().Err(err).Msg("Failed to look up membership")
		return connect.NewError(connect.CodeInternal, errors.New("failed to look up membership"))
	}

	return nil
}

// List returns the invitations of the caller's selected tenant, newest first.
// A system admin without a selected tenant sees every invitation, other callers
// without a selected tenant get an empty list.
func (s *Service) List(ctx context.Context, caller auth.CallerContext, status models.InvitationStatus) ([]Listed, error) {
	if err := auth.RequireAuthenticated(caller); err != nil {
		return nil, err
	}

	opts := store.ListInvitationsOptions{Status: status}

	var (
		invitations []*models.Invitation
		err         error
	)

	tenantID, ok := caller.Scope.TenantID()
	switch {
	case ok:
		if err := s.authz.RequireManage(ctx, caller); err != nil {
			return nil, err
		}
		invitations, err = s.invitations.ListByTenant(ctx, tenantID, opts)
	case caller.IsSystemAdmin:
		invitations, err = s.invitations.ListAll(ctx, opts)
	default:
		return []Listed{}, nil
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to list invitations")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to list invitations"))
	}

	now := s.now()
	result := make([]Listed, 0, len(invitations))
	for _, inv := range invitations {
		result = append(result, Listed{
			Invitation: inv,
			Expired:    inv.Status == models.InvitationPending && inv.IsExpired(now),
		})
	}

	return result, nil
}

// Revoke revokes a pending invitation. The caller must be able to manage the
// invitation's tenant.
func (s *Service) Revoke(ctx context.Context, caller auth.CallerContext, invitationID uuid.UUID) error {
	if err := auth.RequireAuthenticated(caller); err != nil {
		return err
	}

	inv, err := s.invitations.Get(ctx, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrInvitationNotFound) {
			return connect.NewError(connect.CodeNotFound, errors.New("invitation not found"))
		}
		log.Error().Err(err).Msg("Failed to get invitation")
		return connect.NewError(connect.CodeInternal, errors.New("failed to get invitation"))
	}

	if err := s.authz.RequireManage(ctx, caller.WithTenant(inv.TenantID)); err != nil {
		return err
	}

	if err := s.invitations.Revoke(ctx, invitationID, s.now().UTC()); err != nil {
		if errors.Is(err, store.ErrInvitationNotPending) {
			return connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("invitation is %s", inv.Status))
		}
		if errors.Is(err, store.ErrInvitationNotFound) {
			return connect.NewError(connect.CodeNotFound, errors.New("invitation not found"))
		}
		log.Error().Err(err).Msg("Failed to revoke invitation")
		return connect.NewError(connect.CodeInternal, errors.New("failed to revoke invitation"))
	}

	log.Info().
		Str("invitation_id", invitationID.String()).
		Str("revoked_by", caller.UserID.String()).
		Msg("invitation revoked")

	return nil
}
