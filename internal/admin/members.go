package admin

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/auth"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
)

// Member is an active membership together with its user.
type Member struct {
	Membership *models.Membership
	User       *models.User
}

// ListMembers lists the active members of a tenant visible to the caller.
func (s *Service) ListMembers(ctx context.Context, caller auth.CallerContext, tenantID uuid.UUID) ([]Member, error) {
	if _, err := s.visibleTenant(ctx, caller, tenantID); err != nil {
		return nil, err
	}

	memberships, err := s.memberships.ListByTenant(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("Failed to list memberships")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to list members"))
	}

	members := make([]Member, 0, len(memberships))
	for _, m := range memberships {
		user, err := s.users.Get(ctx, m.UserID)
		if errors.Is(err, store.ErrUserNotFound) {
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("user_id", m.UserID.String()).Msg("Failed to get member")
			return nil, connect.NewError(connect.CodeInternal, errors.New("failed to list members"))
		}
		members = append(members, Member{Membership: m, User: user})
	}

	return members, nil
}

// AddMember grants an existing user a role in the tenant. Re-adding a removed
// member reactivates their membership.
func (s *Service) AddMember(ctx context.Context, caller auth.CallerContext, tenantID uuid.UUID, email string, role string) (*models.Membership, error) {
	if err := s.authz.RequireManage(ctx, caller.WithTenant(tenantID)); err != nil {
		return nil, err
	}

	parsed, err := models.ParseRole(role)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid role %q", role))
	}

	tenant, err := s.getTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("tenant is not active"))
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("user not found"))
		}
		log.Error().Err(err).Msg("Failed to get user by email")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to get user"))
	}

	now := s.now().UTC()
	grantedBy := caller.UserID
	membership := &models.Membership{
		MembershipID: uuid.Must(uuid.NewV7()),
		UserID:       user.UserID,
		TenantID:     tenantID,
		Role:         parsed,
		IsActive:     true,
		GrantedBy:    &grantedBy,
		GrantedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	activated, err := s.memberships.Upsert(ctx, membership)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upsert membership")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to add member"))
	}
	if !activated {
		return nil, connect.NewError(connect.CodeAlreadyExists, errors.New("user is already a member of this tenant"))
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("user_id", user.UserID.String()).
		Str("role", parsed.String()).
		Str("granted_by", caller.UserID.String()).
		Msg("member added")

	return membership, nil
}

// RemoveMember revokes a user's membership. The tenant owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, caller auth.CallerContext, tenantID, userID uuid.UUID) error {
	if err := s.authz.RequireManage(ctx, caller.WithTenant(tenantID)); err != nil {
		return err
	}

	tenant, err := s.getTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	if tenant.OwnerUserID == userID {
		return connect.NewError(connect.CodeFailedPrecondition, errors.New("the tenant owner cannot be removed"))
	}

	if err := s.memberships.Revoke(ctx, userID, tenantID, caller.UserID, s.now().UTC()); err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return connect.NewError(connect.CodeNotFound, errors.New("membership not found"))
		}
		log.Error().Err(err).Msg("Failed to revoke membership")
		return connect.NewError(connect.CodeInternal, errors.New("failed to remove member"))
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("user_id", userID.String()).
		Str("revoked_by", caller.UserID.String()).
		Msg("member removed")

	return nil
}
