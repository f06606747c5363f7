package admin

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/auth"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
)

// ProfileInput holds the user fields to change, nil fields are left as is.
type ProfileInput struct {
	FirstName   *string
	LastName    *string
	DisplayName *string
	// IsActive may only be changed by a system admin.
	IsActive *bool
}

// ListUsers lists the members of the caller's selected tenant. A system admin
// without a selected tenant sees every user; other callers without a selected
// tenant get an empty list.
func (s *Service) ListUsers(ctx context.Context, caller auth.CallerContext) ([]*models.User, error) {
	if !caller.Authenticated() {
		return []*models.User{}, nil
	}

	var opts store.ListUsersOptions

	tenantID, ok := caller.Scope.TenantID()
	switch {
	case ok:
		if _, err := s.visibleTenant(ctx, caller, tenantID); err != nil {
			return nil, err
		}
		opts.TenantID = &tenantID
	case caller.IsSystemAdmin:
	default:
		return []*models.User{}, nil
	}

	users, err := s.users.List(ctx, opts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to list users"))
	}

	return users, nil
}

// GetUser returns a user. Callers may read themselves, members of their selected
// tenant and, as system admin, anyone.
func (s *Service) GetUser(ctx context.Context, caller auth.CallerContext, userID uuid.UUID) (*models.User, error) {
	if err := auth.RequireAuthenticated(caller); err != nil {
		return nil, err
	}

	if caller.UserID != userID && !caller.IsSystemAdmin {
		tenantID, ok := caller.Scope.TenantID()
		if !ok {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("user not found"))
		}
		if _, err := s.visibleTenant(ctx, caller, tenantID); err != nil {
			return nil, err
		}
		if _, err := s.memberships.GetActive(ctx, userID, tenantID); err != nil {
			if errors.Is(err, store.ErrMembershipNotFound) {
				return nil, connect.NewError(connect.CodeNotFound, errors.New("user not found"))
			}
			log.Error().Err(err).Msg("Failed to get membership")
			return nil, connect.NewError(connect.CodeInternal, errors.New("failed to get user"))
		}
	}

	return s.getUser(ctx, userID)
}

// UpdateProfile edits a user's profile. Users may edit themselves, system admins
// may edit anyone and are the only callers allowed to change IsActive.
func (s *Service) UpdateProfile(ctx context.Context, caller auth.CallerContext, userID uuid.UUID, in ProfileInput) (*models.User, error) {
	if err := auth.RequireAuthenticated(caller); err != nil {
		return nil, err
	}

	if caller.UserID != userID && !caller.IsSystemAdmin {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("permission denied: cannot edit another user"))
	}
	if in.IsActive != nil && !caller.IsSystemAdmin {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("permission denied: system admin required"))
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("user not found"))
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to update user")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to update user"))
	}

	return user, nil
}

// DeleteUser permanently deletes a user and their memberships.
// Only system admins may delete users, and not themselves.
func (s *Service) DeleteUser(ctx context.Context, caller auth.CallerContext, userID uuid.UUID) error {
	if err := auth.RequireSystemAdmin(caller); err != nil {
		return err
	}

	if caller.UserID == userID {
		return connect.NewError(connect.CodeFailedPrecondition, errors.New("cannot delete yourself"))
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return connect.NewError(connect.CodeNotFound, errors.New("user not found"))
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to delete user")
		return connect.NewError(connect.CodeInternal, errors.New("failed to delete user"))
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("deleted_by", caller.UserID.String()).
		Msg("user deleted")

	return nil
}
