package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
)

const tenantColumns = `
	tenant_id, name, description, slug, is_personal, is_active, owner_user_id,
	onboarding_completed, onboarding_step, created_at, updated_at
`

// TenantStore implements store.TenantStore using PostgreSQL.
type TenantStore struct {
	pool *pgxpool.Pool
}

// NewTenantStore creates a new PostgreSQL-backed tenant store.
func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{
		pool: pool,
	}
}

// Create creates a new tenant in the database.
func (s *TenantStore) Create(ctx context.Context, tenant *models.Tenant) error {
	if err := insertTenant(ctx, s.pool, tenant); err != nil {
		return err
	}

	log.Debug().
		Str("tenant_id", tenant.TenantID.String()).
		Str("slug", tenant.Slug).
		Msg("Created tenant")

	return nil
}

// CreateWithOwner creates a tenant, its owner membership and optional subscription in one transaction.
func (s *TenantStore) CreateWithOwner(ctx context.Context, tenant *models.Tenant, owner *models.Membership, sub *models.Subscription) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := insertTenant(ctx, tx, tenant); err != nil {
			return err
		}

		owner.TenantID = tenant.TenantID
		if err := insertMembership(ctx, tx, owner); err != nil {
			return err
		}

		if sub != nil {
			sub.TenantID = tenant.TenantID
			return upsertSubscription(ctx, tx, sub)
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Debug().
		Str("tenant_id", tenant.TenantID.String()).
		Str("owner_user_id", owner.UserID.String()).
		Msg("Created tenant with owner")

	return nil
}

func insertTenant(ctx context.Context, q querier, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (
			tenant_id, name, description, slug, is_personal, is_active, owner_user_id,
			onboarding_completed, onboarding_step, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := q.Exec(ctx, query,
		tenant.TenantID,
		tenant.Name,
		tenant.Description,
		tenant.Slug,
		tenant.IsPersonal,
		tenant.IsActive,
		tenant.OwnerUserID,
		tenant.OnboardingCompleted,
		tenant.OnboardingStep,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	if err != nil {
		if mapped := mapPostgresError(err); isSentinel(mapped) {
			return mapped
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	return nil
}

// Get retrieves a tenant by ID.
func (s *TenantStore) Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	return s.getBy(ctx, `tenant_id = $1`, tenantID)
}

// GetBySlug retrieves a tenant by slug.
func (s *TenantStore) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return s.getBy(ctx, `slug = $1`, slug)
}

func (s *TenantStore) getBy(ctx context.Context, where string, arg any) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE ` + where

	tenant, err := scanTenant(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return tenant, nil
}

// SlugExists reports whether a tenant other than excludeID uses the slug.
func (s *TenantStore) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM tenants WHERE slug = $1 AND tenant_id <> $2
		)
	`, slug, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}

	return exists, nil
}

// Update updates an existing tenant.
func (s *TenantStore) Update(ctx context.Context, tenant *models.Tenant) error {
	tenant.UpdatedAt = time.Now()
	return updateTenant(ctx, s.pool, tenant)
}

// UpdateWithSubscription updates a tenant and upserts its subscription in one transaction.
func (s *TenantStore) UpdateWithSubscription(ctx context.Context, tenant *models.Tenant, sub *models.Subscription) error {
	now := time.Now()
	tenant.UpdatedAt = now
	sub.TenantID = tenant.TenantID

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := updateTenant(ctx, tx, tenant); err != nil {
			return err
		}
		return upsertSubscription(ctx, tx, sub)
	})
}

func updateTenant(ctx context.Context, q querier, tenant *models.Tenant) error {
	query := `
		UPDATE tenants SET
			name = $2,
			description = $3,
			slug = $4,
			is_personal = $5,
			is_active = $6,
			owner_user_id = $7,
			onboarding_completed = $8,
			onboarding_step = $9,
			updated_at = $10
		WHERE tenant_id = $1
	`

	result, err := q.Exec(ctx, query,
		tenant.TenantID,
		tenant.Name,
		tenant.Description,
		tenant.Slug,
		tenant.IsPersonal,
		tenant.IsActive,
		tenant.OwnerUserID,
		tenant.OnboardingCompleted,
		tenant.OnboardingStep,
		tenant.UpdatedAt,
	)
	if err != nil {
		if mapped := mapPostgresError(err); isSentinel(mapped) {
			return mapped
		}
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrTenantNotFound
	}

	return nil
}

// Delete deletes a tenant by ID.
// Memberships, invitations and the subscription are cascade-deleted via FK constraints.
func (s *TenantStore) Delete(ctx context.Context, tenantID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM tenants WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrTenantNotFound
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Msg("Deleted tenant (and cascade-deleted memberships, invitations and subscription)")

	return nil
}

// FindInProgressOnboarding returns the newest active, incomplete tenant owned by the user.
func (s *TenantStore) FindInProgressOnboarding(ctx context.Context, ownerUserID uuid.UUID) (*models.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE owner_user_id = $1 AND is_active = TRUE AND onboarding_completed = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`

	tenant, err := scanTenant(s.pool.QueryRow(ctx, query, ownerUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to find onboarding tenant: %w", err)
	}

	return tenant, nil
}

// List returns tenants ordered by name.
func (s *TenantStore) List(ctx context.Context, opts store.ListTenantsOptions) ([]*models.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE is_active = TRUE OR $1
		ORDER BY name
	`

	rows, err := s.pool.Query(ctx, query, opts.IncludeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenants: %w", err)
	}

	return tenants, nil
}

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var tenant models.Tenant
	err := row.Scan(
		&tenant.TenantID,
		&tenant.Name,
		&tenant.Description,
		&tenant.Slug,
		&tenant.IsPersonal,
		&tenant.IsActive,
		&tenant.OwnerUserID,
		&tenant.OnboardingCompleted,
		&tenant.OnboardingStep,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}
