package models

import (
	"time"

	"github.com/google/uuid"
)

// Onboarding steps. A tenant only ever moves forward through these.
const (
	OnboardingNotStarted      = 0
	OnboardingTenantCreated   = 1
	OnboardingInvitesSent     = 2
	OnboardingPaymentAttached = 3
	OnboardingComplete        = 4
)

// Tenant represents an organization in the system.
// Each tenant owns its memberships and its subscription.
type Tenant struct {
	TenantID    uuid.UUID // UUIDv7
	Name        string
	Description string
	Slug        string // globally unique
	IsPersonal  bool
	IsActive    bool // soft-delete flag
	OwnerUserID uuid.UUID

	OnboardingCompleted bool
	OnboardingStep      int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AdvanceOnboarding moves the onboarding step forward to step. It never moves it back.
func (t *Tenant) AdvanceOnboarding(step int) {
	if step > t.OnboardingStep {
		t.OnboardingStep = step
	}
	if t.OnboardingStep >= OnboardingComplete {
		t.OnboardingStep = OnboardingComplete
		t.OnboardingCompleted = true
	}
}

// InOnboarding returns true while the tenant has not finished the onboarding workflow.
func (t *Tenant) InOnboarding() bool {
	return !t.OnboardingCompleted
}
