package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionStore implements store.SubscriptionStore using SQLite.
type SubscriptionStore struct {
	db *gorm.DB
}

// GetByTenant retrieves the subscription of a tenant.
func (s *SubscriptionStore) GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	var row subscriptionRow
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, store.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return row.model(), nil
}

// Upsert creates or replaces the subscription of a tenant.
func (s *SubscriptionStore) Upsert(ctx context.Context, sub *models.Subscription) error {
	return upsertSubscription(s.db.WithContext(ctx), sub)
}

func upsertSubscription(tx *gorm.DB, sub *models.Subscription) error {
	sub.UpdatedAt = time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = sub.UpdatedAt
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id", "status", "payment_method_ref", "billing_email",
			"current_period_start", "current_period_end", "updated_at",
		}),
	}).Create(newSubscriptionRow(sub)).Error
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrTenantNotFound
		}
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

// PlanStore implements store.PlanStore using SQLite.
type PlanStore struct {
	db *gorm.DB
}

// Get retrieves a plan by ID.
func (s *PlanStore) Get(ctx context.Context, planID string) (*models.Plan, error) {
	var row planRow
	if err := s.db.WithContext(ctx).Where("plan_id = ?", planID).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, store.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return row.model(), nil
}

// List returns all plans ordered by ID.
func (s *PlanStore) List(ctx context.Context) ([]*models.Plan, error) {
	var rows []planRow
	if err := s.db.WithContext(ctx).Order("plan_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	plans := make([]*models.Plan, 0, len(rows))
	for i := range rows {
		plans = append(plans, rows[i].model())
	}

	return plans, nil
}

// Upsert creates or replaces a plan.
func (s *PlanStore) Upsert(ctx context.Context, plan *models.Plan) error {
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	row := &planRow{
		PlanID:      plan.PlanID,
		Name:        plan.Name,
		IsActive:    plan.IsActive,
		MaxUsers:    plan.MaxUsers,
		MaxProducts: plan.MaxProducts,
		CreatedAt:   plan.CreatedAt.UTC(),
		UpdatedAt:   plan.UpdatedAt,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plan_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "is_active", "max_users", "max_products", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert plan: %w", err)
	}

	return nil
}
