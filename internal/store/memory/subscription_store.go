package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
)

// SubscriptionStore implements store.SubscriptionStore using in-memory storage.
type SubscriptionStore struct {
	db *database
}

// GetByTenant retrieves the subscription of a tenant.
func (s *SubscriptionStore) GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	sub, exists := s.db.subscriptions[tenantID]
	if !exists {
		return nil, store.ErrSubscriptionNotFound
	}

	clone := *sub
	return &clone, nil
}

// Upsert creates or replaces the subscription of a tenant.
func (s *SubscriptionStore) Upsert(ctx context.Context, sub *models.Subscription) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.tenants[sub.TenantID]; !exists {
		return store.ErrTenantNotFound
	}

	sub.UpdatedAt = time.Now()
	if existing, ok := s.db.subscriptions[sub.TenantID]; ok {
		sub.CreatedAt = existing.CreatedAt
	} else if sub.CreatedAt.IsZero() {
		sub.CreatedAt = sub.UpdatedAt
	}

	clone := *sub
	s.db.subscriptions[sub.TenantID] = &clone

	return nil
}

// PlanStore implements store.PlanStore using in-memory storage.
type PlanStore struct {
	db *database
}

// Get retrieves a plan by ID.
func (s *PlanStore) Get(ctx context.Context, planID string) (*models.Plan, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	plan, exists := s.db.plans[planID]
	if !exists {
		return nil, store.ErrPlanNotFound
	}

	clone := *plan
	return &clone, nil
}

// List returns all plans ordered by ID.
func (s *PlanStore) List(ctx context.Context) ([]*models.Plan, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	result := make([]*models.Plan, 0, len(s.db.plans))
	for _, plan := range s.db.plans {
		clone := *plan
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PlanID < result[j].PlanID
	})

	return result, nil
}

// Upsert creates or replaces a plan.
func (s *PlanStore) Upsert(ctx context.Context, plan *models.Plan) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := time.Now()
	plan.UpdatedAt = now
	if existing, ok := s.db.plans[plan.PlanID]; ok {
		plan.CreatedAt = existing.CreatedAt
	} else if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}

	clone := *plan
	s.db.plans[plan.PlanID] = &clone

	return nil
}
