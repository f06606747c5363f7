package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/models"
)

// Sentinel errors for subscription and plan store operations
var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPlanNotFound         = errors.New("plan not found")
)

// SubscriptionStore defines the interface for subscription storage operations.
type SubscriptionStore interface {
	// GetByTenant retrieves the subscription of a tenant.
	// Returns ErrSubscriptionNotFound if the tenant has none.
	GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error)

	// Upsert creates or replaces the subscription of a tenant.
	Upsert(ctx context.Context, sub *models.Subscription) error
}

// PlanStore is the plan catalog lookup.
type PlanStore interface {
	// Get retrieves a plan by ID.
	// Returns ErrPlanNotFound if the plan doesn't exist.
	Get(ctx context.Context, planID string) (*models.Plan, error)

	// List returns all plans ordered by ID.
	List(ctx context.Context) ([]*models.Plan, error)

	// Upsert creates or replaces a plan.
	Upsert(ctx context.Context, plan *models.Plan) error
}
