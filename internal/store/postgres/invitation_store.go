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

const invitationColumns = `
	invitation_id, email, tenant_id, invited_by_user_id, status, expires_at,
	accepted_at, accepted_by_user_id, created_at, updated_at
`

// InvitationStore implements store.InvitationStore using PostgreSQL.
type InvitationStore struct {
	pool *pgxpool.Pool
}

// NewInvitationStore creates a new PostgreSQL-backed invitation store.
func NewInvitationStore(pool *pgxpool.Pool) *InvitationStore {
	return &InvitationStore{
		pool: pool,
	}
}

// CreatePending creates a pending invitation unless an unexpired one exists for the same tenant and email.
// A transaction-scoped advisory lock on (tenant, email) serialises concurrent invites.
func (s *InvitationStore) CreatePending(ctx context.Context, inv *models.Invitation, now time.Time) error {
	inv.Email = models.NormalizeEmail(inv.Email)
	inv.Status = models.InvitationPending

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, inv.TenantID.String()+"/"+inv.Email); err != nil {
			return fmt.Errorf("failed to lock invitation: %w", err)
		}

		var exists bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM invitations
				WHERE tenant_id = $1 AND email = $2 AND status = 'pending' AND expires_at > $3
			)
		`, inv.TenantID, inv.Email, now).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check pending invitations: %w", err)
		}
		if exists {
			return store.ErrInvitationAlreadyExists
		}

		query := `
			INSERT INTO invitations (
				invitation_id, email, tenant_id, invited_by_user_id, status, expires_at,
				created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8
			)
		`

		_, err = tx.Exec(ctx, query,
			inv.InvitationID,
			inv.Email,
			inv.TenantID,
			inv.InvitedByUserID,
			string(inv.Status),
			inv.ExpiresAt,
			inv.CreatedAt,
			inv.UpdatedAt,
		)
		if err != nil {
			if mapped := mapPostgresError(err); isSentinel(mapped) {
				return mapped
			}
			return fmt.Errorf("failed to create invitation: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Debug().
		Str("invitation_id", inv.InvitationID.String()).
		Str("tenant_id", inv.TenantID.String()).
		Msg("Created invitation")

	return nil
}

// Get retrieves an invitation by ID.
func (s *InvitationStore) Get(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE invitation_id = $1`

	inv, err := scanInvitation(s.pool.QueryRow(ctx, query, invitationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	return inv, nil
}

// ListByTenant returns the invitations of a tenant, newest first.
func (s *InvitationStore) ListByTenant(ctx context.Context, tenantID uuid.UUID, opts store.ListInvitationsOptions) ([]*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE tenant_id = $1 AND ($2::text = '' OR status = $2::text)
		ORDER BY created_at DESC
	`
	return s.list(ctx, query, tenantID, string(opts.Status))
}

// ListAll returns every invitation, newest first.
func (s *InvitationStore) ListAll(ctx context.Context, opts store.ListInvitationsOptions) ([]*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY created_at DESC
	`
	return s.list(ctx, query, string(opts.Status))
}

// ListPendingForEmail returns the unexpired pending invitations addressed to an email, oldest first.
func (s *InvitationStore) ListPendingForEmail(ctx context.Context, email string, now time.Time) ([]*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE email = $1 AND status = 'pending' AND expires_at > $2
		ORDER BY created_at
	`
	return s.list(ctx, query, models.NormalizeEmail(email), now)
}

func (s *InvitationStore) list(ctx context.Context, query string, args ...any) ([]*models.Invitation, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}

	return invitations, nil
}

// Accept marks a pending invitation accepted. Accepting twice is a no-op.
func (s *InvitationStore) Accept(ctx context.Context, invitationID, userID uuid.UUID, at time.Time) error {
	query := `
		UPDATE invitations SET
			status = 'accepted',
			accepted_at = $2,
			accepted_by_user_id = $3,
			updated_at = NOW()
		WHERE invitation_id = $1 AND status = 'pending'
	`

	result, err := s.pool.Exec(ctx, query, invitationID, at, userID)
	if err != nil {
		return fmt.Errorf("failed to accept invitation: %w", err)
	}

	if result.RowsAffected() == 1 {
		return nil
	}

	return s.checkTransition(ctx, invitationID, models.InvitationAccepted)
}

// Revoke marks a pending invitation revoked.
func (s *InvitationStore) Revoke(ctx context.Context, invitationID uuid.UUID, at time.Time) error {
	query := `
		UPDATE invitations SET
			status = 'revoked',
			updated_at = $2
		WHERE invitation_id = $1 AND status = 'pending'
	`

	result, err := s.pool.Exec(ctx, query, invitationID, at)
	if err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}

	if result.RowsAffected() == 1 {
		return nil
	}

	return s.checkTransition(ctx, invitationID, "")
}

// checkTransition explains why an update matched no pending row.
// A row already in the idempotent status reports success.
func (s *InvitationStore) checkTransition(ctx context.Context, invitationID uuid.UUID, idempotent models.InvitationStatus) error {
	inv, err := s.Get(ctx, invitationID)
	if err != nil {
		return err
	}

	if idempotent != "" && inv.Status == idempotent {
		return nil
	}

	return store.ErrInvitationNotPending
}

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	var (
		inv    models.Invitation
		status string
	)
	err := row.Scan(
		&inv.InvitationID,
		&inv.Email,
		&inv.TenantID,
		&inv.InvitedByUserID,
		&status,
		&inv.ExpiresAt,
		&inv.AcceptedAt,
		&inv.AcceptedByUserID,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Status = models.InvitationStatus(status)
	return &inv, nil
}
