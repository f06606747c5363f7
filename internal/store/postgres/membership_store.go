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

const membershipColumns = `
	membership_id, user_id, tenant_id, role, is_active,
	granted_by, granted_at, revoked_by, revoked_at, created_at, updated_at
`

// MembershipStore implements store.MembershipStore using PostgreSQL.
type MembershipStore struct {
	pool *pgxpool.Pool
}

// NewMembershipStore creates a new PostgreSQL-backed membership store.
func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{
		pool: pool,
	}
}

// Upsert inserts or reactivates the (user, tenant) membership.
// An already active row is left untouched and loaded into membership.
func (s *MembershipStore) Upsert(ctx context.Context, membership *models.Membership) (bool, error) {
	query := `
		INSERT INTO memberships (
			membership_id, user_id, tenant_id, role, is_active,
			granted_by, granted_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, TRUE, $5, $6, $7, $8
		)
		ON CONFLICT (user_id, tenant_id) DO UPDATE SET
			role = EXCLUDED.role,
			is_active = TRUE,
			granted_by = EXCLUDED.granted_by,
			granted_at = EXCLUDED.granted_at,
			revoked_by = NULL,
			revoked_at = NULL,
			updated_at = NOW()
		WHERE memberships.is_active = FALSE
		RETURNING ` + membershipColumns

	row := s.pool.QueryRow(ctx, query,
		membership.MembershipID,
		membership.UserID,
		membership.TenantID,
		membership.Role.String(),
		membership.GrantedBy,
		membership.GrantedAt,
		membership.CreatedAt,
		membership.UpdatedAt,
	)

	stored, err := scanMembership(row)
	switch {
	case err == nil:
		*membership = *stored
		log.Debug().
			Str("user_id", membership.UserID.String()).
			Str("tenant_id", membership.TenantID.String()).
			Str("role", membership.Role.String()).
			Msg("Activated membership")
		return true, nil

	case errors.Is(err, pgx.ErrNoRows):
		// Conflict with an active row, nothing was written.
		existing, err := s.GetActive(ctx, membership.UserID, membership.TenantID)
		if err != nil {
			return false, err
		}
		*membership = *existing
		return false, nil

	default:
		if mapped := mapPostgresError(err); isSentinel(mapped) {
			return false, mapped
		}
		return false, fmt.Errorf("failed to upsert membership: %w", err)
	}
}

func insertMembership(ctx context.Context, q querier, membership *models.Membership) error {
	query := `
		INSERT INTO memberships (
			membership_id, user_id, tenant_id, role, is_active,
			granted_by, granted_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, TRUE, $5, $6, $7, $8
		)
	`

	_, err := q.Exec(ctx, query,
		membership.MembershipID,
		membership.UserID,
		membership.TenantID,
		membership.Role.String(),
		membership.GrantedBy,
		membership.GrantedAt,
		membership.CreatedAt,
		membership.UpdatedAt,
	)
	if err != nil {
		if mapped := mapPostgresError(err); isSentinel(mapped) {
			return mapped
		}
		return fmt.Errorf("failed to create membership: %w", err)
	}

	membership.IsActive = true
	return nil
}

// GetActive retrieves the active membership of a user in a tenant.
func (s *MembershipStore) GetActive(ctx context.Context, userID, tenantID uuid.UUID) (*models.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE user_id = $1 AND tenant_id = $2 AND is_active = TRUE
	`

	membership, err := scanMembership(s.pool.QueryRow(ctx, query, userID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return membership, nil
}

// Revoke deactivates an active membership.
func (s *MembershipStore) Revoke(ctx context.Context, userID, tenantID, revokedBy uuid.UUID, at time.Time) error {
	query := `
		UPDATE memberships SET
			is_active = FALSE,
			revoked_by = $3,
			revoked_at = $4,
			updated_at = NOW()
		WHERE user_id = $1 AND tenant_id = $2 AND is_active = TRUE
	`

	result, err := s.pool.Exec(ctx, query, userID, tenantID, revokedBy, at)
	if err != nil {
		return fmt.Errorf("failed to revoke membership: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrMembershipNotFound
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("tenant_id", tenantID.String()).
		Str("revoked_by", revokedBy.String()).
		Msg("Revoked membership")

	return nil
}

// ListByTenant returns the active memberships of a tenant, oldest grant first.
func (s *MembershipStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE tenant_id = $1 AND is_active = TRUE
		ORDER BY granted_at
	`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		membership, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, membership)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}

	return memberships, nil
}

// ListTenantsForUser returns the active tenants the user is an active member of, ordered by name.
func (s *MembershipStore) ListTenantsForUser(ctx context.Context, userID uuid.UUID) ([]models.TenantAccess, error) {
	query := `
		SELECT t.tenant_id, t.name, t.slug, m.role, t.is_personal
		FROM memberships m
		JOIN tenants t ON t.tenant_id = m.tenant_id
		WHERE m.user_id = $1 AND m.is_active = TRUE AND t.is_active = TRUE
		ORDER BY t.name
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants for user: %w", err)
	}
	defer rows.Close()

	var access []models.TenantAccess
	for rows.Next() {
		var (
			entry models.TenantAccess
			role  string
		)
		if err := rows.Scan(&entry.TenantID, &entry.Name, &entry.Slug, &role, &entry.IsPersonal); err != nil {
			return nil, fmt.Errorf("failed to scan tenant access: %w", err)
		}
		entry.Role = models.Role(role)
		access = append(access, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenant access: %w", err)
	}

	return access, nil
}

func scanMembership(row pgx.Row) (*models.Membership, error) {
	var (
		membership models.Membership
		role       string
	)
	err := row.Scan(
		&membership.MembershipID,
		&membership.UserID,
		&membership.TenantID,
		&role,
		&membership.IsActive,
		&membership.GrantedBy,
		&membership.GrantedAt,
		&membership.RevokedBy,
		&membership.RevokedAt,
		&membership.CreatedAt,
		&membership.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	membership.Role = models.Role(role)
	return &membership, nil
}
