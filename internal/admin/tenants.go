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
	"github.com/wolfeidau/backoffice/internal/slug"
	"github.com/wolfeidau/backoffice/internal/store"
	"github.com/wolfeidau/backoffice/internal/telemetry"
)

// CreateTenantInput describes a tenant created by a system admin.
type CreateTenantInput struct {
	Name        string
	Description string
	// Slug is optional, it is derived from Name when empty.
	Slug string
	// OwnerUserID optionally names the owner, who is given an owner membership.
	OwnerUserID *uuid.UUID
}

// UpdateTenantInput holds the tenant fields to change, nil fields are left as is.
type UpdateTenantInput struct {
	Name        *string
	Description *string
	Slug        *string
	IsActive    *bool
}

// CreateTenant creates a tenant directly, bypassing onboarding.
// Only system admins may create tenants this way.
func (s *Service) CreateTenant(ctx context.Context, caller auth.CallerContext, in CreateTenantInput) (*models.Tenant, error) {
	if err := auth.RequireSystemAdmin(caller); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("name is required"))
	}

	ownerID := caller.UserID
	if in.OwnerUserID != nil {
		if _, err := s.getUser(ctx, *in.OwnerUserID); err != nil {
			return nil, err
		}
		ownerID = *in.OwnerUserID
	}

	now := s.now().UTC()
	tenant := &models.Tenant{
		TenantID:    uuid.Must(uuid.NewV7()),
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		IsActive:    true,
		OwnerUserID: ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tenant.AdvanceOnboarding(models.OnboardingComplete)

	var owner *models.Membership
	if in.OwnerUserID != nil {
		grantedBy := caller.UserID
		owner = &models.Membership{
			MembershipID: uuid.Must(uuid.NewV7()),
			UserID:       ownerID,
			TenantID:     tenant.TenantID,
			Role:         models.RoleOwner,
			IsActive:     true,
			GrantedBy:    &grantedBy,
			GrantedAt:    now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	insert := func(ctx context.Context, candidate string) error {
		tenant.Slug = candidate
		var err error
		if owner != nil {
			err = s.tenants.CreateWithOwner(ctx, tenant, owner, nil)
		} else {
			err = s.tenants.Create(ctx, tenant)
		}
		if errors.Is(err, store.ErrSlugTaken) {
			telemetry.GetMetrics().SlugConflictsTotal.Add(ctx, 1)
			return slug.ErrTaken
		}
		return err
	}

	var err error
	if explicit := strings.TrimSpace(in.Slug); explicit != "" {
		err = insert(ctx, slug.Of(explicit))
		if errors.Is(err, slug.ErrTaken) {
			return nil, connect.NewError(connect.CodeAlreadyExists, errors.New("slug already taken"))
		}
	} else {
		_, err = slug.Assign(ctx, slug.Of(in.Name), slug.DefaultMaxAttempts,
			func(ctx context.Context, candidate string) (bool, error) {
				return s.tenants.SlugExists(ctx, candidate, uuid.Nil)
			}, insert)
		if errors.Is(err, slug.ErrExhausted) {
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		}
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to create tenant")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to create tenant"))
	}

	telemetry.GetMetrics().TenantsCreatedTotal.Add(ctx, 1)

	log.Info().
		Str("tenant_id", tenant.TenantID.String()).
		Str("slug", tenant.Slug).
		Str("created_by", caller.UserID.String()).
		Msg("tenant created")

	return tenant, nil
}

// GetTenant returns a tenant visible to the caller.
func (s *Service) GetTenant(ctx context.Context, caller auth.CallerContext, tenantID uuid.UUID) (*models.Tenant, error) {
	return s.visibleTenant(ctx, caller, tenantID)
}

// UpdateTenant updates a tenant. The caller must be able to manage it.
// An explicit slug is normalized and must be unique. Renaming keeps the slug.
func (s *Service) UpdateTenant(ctx context.Context, caller auth.CallerContext, tenantID uuid.UUID, in UpdateTenantInput) (*models.Tenant, error) {
	if err := s.authz.RequireManage(ctx, caller.WithTenant(tenantID)); err != nil {
		return nil, err
	}

	tenant, err := s.getTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("name cannot be empty"))
		}
		tenant.Name = name
	}
	if in.Description != nil {
		tenant.Description = strings.TrimSpace(*in.Description)
	}
	if in.Slug != nil {
		if strings.TrimSpace(*in.Slug) == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("slug cannot be empty"))
		}
		tenant.Slug = slug.Of(*in.Slug)
	}
	if in.IsActive != nil {
		tenant.IsActive = *in.IsActive
	}
	tenant.UpdatedAt = s.now().UTC()

	if err := s.tenants.Update(ctx, tenant); err != nil {
		if errors.Is(err, store.ErrSlugTaken) {
			return nil, connect.NewError(connect.CodeAlreadyExists, errors.New("slug already taken"))
		}
		if errors.Is(err, store.ErrTenantNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("tenant not found"))
		}
		log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("Failed to update tenant")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to update tenant"))
	}

	log.Info().Str("tenant_id", tenantID.String()).Str("updated_by", caller.UserID.String()).Msg("tenant updated")

	return tenant, nil
}

// DeactivateTenant soft deletes a tenant. Only system admins and the tenant's
// owners may deactivate it.
func (s *Service) DeactivateTenant(ctx context.Context, caller auth.CallerContext, tenantID uuid.UUID) error {
	active := false
	_, err := s.UpdateTenant(ctx, caller, tenantID, UpdateTenantInput{IsActive: &active})
	return err
}

// ListTenants lists the tenants visible to the caller. A system admin without a
// selected tenant sees every tenant, including inactive ones. Everyone else sees
// the active tenants they are a member of.
func (s *Service) ListTenants(ctx context.Context, caller auth.CallerContext) ([]*models.Tenant, error) {
	if !caller.Authenticated() {
		return []*models.Tenant{}, nil
	}

	if caller.IsSystemAdmin && caller.Scope.IsAll() {
		tenants, err := s.tenants.List(ctx, store.ListTenantsOptions{IncludeInactive: true})
		if err != nil {
			log.Error().Err(err).Msg("Failed to list tenants")
			return nil, connect.NewError(connect.CodeInternal, errors.New("failed to list tenants"))
		}
		return tenants, nil
	}

	accessible, err := s.memberships.ListTenantsForUser(ctx, caller.UserID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list tenants for user")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to list tenants"))
	}

	tenants := make([]*models.Tenant, 0, len(accessible))
	for _, a := range accessible {
		tenant, err := s.tenants.Get(ctx, a.TenantID)
		if errors.Is(err, store.ErrTenantNotFound) {
			continue
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to get tenant")
			return nil, connect.NewError(connect.CodeInternal, errors.New("failed to list tenants"))
		}
		tenants = append(tenants, tenant)
	}

	return tenants, nil
}
