package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the billing state of a tenant's subscription.
type SubscriptionStatus string

const (
	SubscriptionPending SubscriptionStatus = "pending"
	SubscriptionActive  SubscriptionStatus = "active"
)

// Subscription binds a tenant to a plan. There is at most one per tenant.
type Subscription struct {
	TenantID uuid.UUID
	PlanID   string
	Status   SubscriptionStatus

	PaymentMethodRef string
	BillingEmail     string

	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPaymentMethod returns true once a payment method reference has been recorded.
func (s *Subscription) HasPaymentMethod() bool {
	return s.PaymentMethodRef != ""
}
