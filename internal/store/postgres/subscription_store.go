package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
)

// SubscriptionStore implements store.SubscriptionStore using PostgreSQL.
type SubscriptionStore struct {
	pool *pgxpool.Pool
}

// NewSubscriptionStore creates a new PostgreSQL-backed subscription store.
func NewSubscriptionStore(pool *pgxpool.Pool) *SubscriptionStore {
	return &SubscriptionStore{
		pool: pool,
	}
}

// GetByTenant retrieves the subscription of a tenant.
func (s *SubscriptionStore) GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	query := `
		SELECT tenant_id, plan_id, status, payment_method_ref, billing_email,
			current_period_start, current_period_end, created_at, updated_at
		FROM subscriptions
		WHERE tenant_id = $1
	`

	var (
		sub    models.Subscription
		status string
	)
	err := s.pool.QueryRow(ctx, query, tenantID).Scan(
		&sub.TenantID,
		&sub.PlanID,
		&status,
		&sub.PaymentMethodRef,
		&sub.BillingEmail,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	sub.Status = models.SubscriptionStatus(status)
	return &sub, nil
}

// Upsert creates or replaces the subscription of a tenant.
func (s *SubscriptionStore) Upsert(ctx context.Context, sub *models.Subscription) error {
	return upsertSubscription(ctx, s.pool, sub)
}

func upsertSubscription(ctx context.Context, q querier, sub *models.Subscription) error {
	sub.UpdatedAt = time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = sub.UpdatedAt
	}

	query := `
		INSERT INTO subscriptions (
			tenant_id, plan_id, status, payment_method_ref, billing_email,
			current_period_start, current_period_end, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (tenant_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			payment_method_ref = EXCLUDED.payment_method_ref,
			billing_email = EXCLUDED.billing_email,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		sub.TenantID,
		sub.PlanID,
		string(sub.Status),
		sub.PaymentMethodRef,
		sub.BillingEmail,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CreatedAt,
		sub.UpdatedAt,
	).Scan(&sub.CreatedAt)
	if err != nil {
		if mapped := mapPostgresError(err); isSentinel(mapped) {
			return mapped
		}
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

// PlanStore implements store.PlanStore using PostgreSQL.
type PlanStore struct {
	pool *pgxpool.Pool
}

// NewPlanStore creates a new PostgreSQL-backed plan store.
func NewPlanStore(pool *pgxpool.Pool) *PlanStore {
	return &PlanStore{
		pool: pool,
	}
}

const planColumns = `plan_id, name, is_active, max_users, max_products, created_at, updated_at`

// Get retrieves a plan by ID.
func (s *PlanStore) Get(ctx context.Context, planID string) (*models.Plan, error) {
	plan, err := scanPlan(s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE plan_id = $1`, planID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return plan, nil
}

// List returns all plans ordered by ID.
func (s *PlanStore) List(ctx context.Context) ([]*models.Plan, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+planColumns+` FROM plans ORDER BY plan_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}

	return plans, nil
}

// Upsert creates or replaces a plan.
func (s *PlanStore) Upsert(ctx context.Context, plan *models.Plan) error {
	now := time.Now()
	plan.UpdatedAt = now
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}

	query := `
		INSERT INTO plans (plan_id, name, is_active, max_users, max_products, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (plan_id) DO UPDATE SET
			name = EXCLUDED.name,
			is_active = EXCLUDED.is_active,
			max_users = EXCLUDED.max_users,
			max_products = EXCLUDED.max_products,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`

	err := s.pool.QueryRow(ctx, query,
		plan.PlanID,
		plan.Name,
		plan.IsActive,
		plan.MaxUsers,
		plan.MaxProducts,
		plan.CreatedAt,
		plan.UpdatedAt,
	).Scan(&plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert plan: %w", err)
	}

	return nil
}

func scanPlan(row pgx.Row) (*models.Plan, error) {
	var plan models.Plan
	err := row.Scan(
		&plan.PlanID,
		&plan.Name,
		&plan.IsActive,
		&plan.MaxUsers,
		&plan.MaxProducts,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
