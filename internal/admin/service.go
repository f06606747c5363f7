// Package admin implements tenant, membership and user administration.
package admin

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/auth"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
)

// Service administers tenants, their members and users.
type Service struct {
	users       store.UserStore
	tenants     store.TenantStore
	memberships store.MembershipStore
	authz       *auth.Authorizer
	now         func() time.Time
}

// NewService creates an admin Service.
func NewService(stores *store.Stores, authz *auth.Authorizer) *Service {
	return &Service{
		users:       stores.Users,
		tenants:     stores.Tenants,
		memberships: stores.Memberships,
		authz:       authz,
		now:         time.Now,
	}
}

// visibleTenant loads a tenant the caller can see: system admins see every tenant,
// other callers only tenants where they hold an active membership. Tenants the
// caller cannot see are reported as not found.
func (s *Service) visibleTenant(ctx context.Context, caller auth.CallerContext, tenantID uuid.UUID) (*models.Tenant, error) {
	if err := auth.RequireAuthenticated(caller); err != nil {
		return nil, err
	}

	tenant, err := s.getTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if caller.IsSystemAdmin {
		return tenant, nil
	}

	if !tenant.IsActive {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("tenant not found"))
	}

	if _, err := s.memberships.GetActive(ctx, caller.UserID, tenantID); err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("tenant not found"))
		}
		log.Error().Err(err).Msg("Failed to get membership")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to get membership"))
	}

	return tenant, nil
}

func (s *Service) getTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("tenant not found"))
		}
		log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("Failed to get tenant")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to get tenant"))
	}
	return tenant, nil
}

func (s *Service) getUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("user not found"))
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to get user")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to get user"))
	}
	return user, nil
}
