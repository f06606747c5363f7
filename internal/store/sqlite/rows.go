package sqlite

import (
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/models"
)

// Row types mirror schema.sql. Timestamps are stored in UTC so text ordering matches time ordering.

type userRow struct {
	UserID         uuid.UUID `gorm:"primaryKey"`
	Email          string
	ExternalAuthID *string
	FirstName      string
	LastName       string
	DisplayName    string
	IsActive       bool
	IsSystemAdmin  bool
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (userRow) TableName() string { return "users" }

func newUserRow(u *models.User) *userRow {
	return &userRow{
		UserID:         u.UserID,
		Email:          u.Email,
		ExternalAuthID: u.ExternalAuthID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		DisplayName:    u.DisplayName,
		IsActive:       u.IsActive,
		IsSystemAdmin:  u.IsSystemAdmin,
		LastLoginAt:    utcPtr(u.LastLoginAt),
		CreatedAt:      u.CreatedAt.UTC(),
		UpdatedAt:      u.UpdatedAt.UTC(),
	}
}

func (r *userRow) model() *models.User {
	return &models.User{
		UserID:         r.UserID,
		Email:          r.Email,
		ExternalAuthID: r.ExternalAuthID,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		DisplayName:    r.DisplayName,
		IsActive:       r.IsActive,
		IsSystemAdmin:  r.IsSystemAdmin,
		LastLoginAt:    r.LastLoginAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type tenantRow struct {
	TenantID            uuid.UUID `gorm:"primaryKey"`
	Name                string
	Description         string
	Slug                string
	IsPersonal          bool
	IsActive            bool
	OwnerUserID         uuid.UUID
	OnboardingCompleted bool
	OnboardingStep      int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (tenantRow) TableName() string { return "tenants" }

func newTenantRow(t *models.Tenant) *tenantRow {
	return &tenantRow{
		TenantID:            t.TenantID,
		Name:                t.Name,
		Description:         t.Description,
		Slug:                t.Slug,
		IsPersonal:          t.IsPersonal,
		IsActive:            t.IsActive,
		OwnerUserID:         t.OwnerUserID,
		OnboardingCompleted: t.OnboardingCompleted,
		OnboardingStep:      t.OnboardingStep,
		CreatedAt:           t.CreatedAt.UTC(),
		UpdatedAt:           t.UpdatedAt.UTC(),
	}
}

func (r *tenantRow) model() *models.Tenant {
	return &models.Tenant{
		TenantID:            r.TenantID,
		Name:                r.Name,
		Description:         r.Description,
		Slug:                r.Slug,
		IsPersonal:          r.IsPersonal,
		IsActive:            r.IsActive,
		OwnerUserID:         r.OwnerUserID,
		OnboardingCompleted: r.OnboardingCompleted,
		OnboardingStep:      r.OnboardingStep,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

type membershipRow struct {
	MembershipID uuid.UUID `gorm:"primaryKey"`
	UserID       uuid.UUID
	TenantID     uuid.UUID
	Role         string
	IsActive     bool
	GrantedBy    *uuid.UUID
	GrantedAt    time.Time
	RevokedBy    *uuid.UUID
	RevokedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (membershipRow) TableName() string { return "memberships" }

func newMembershipRow(m *models.Membership) *membershipRow {
	return &membershipRow{
		MembershipID: m.MembershipID,
		UserID:       m.UserID,
		TenantID:     m.TenantID,
		Role:         m.Role.String(),
		IsActive:     m.IsActive,
		GrantedBy:    m.GrantedBy,
		GrantedAt:    m.GrantedAt.UTC(),
		RevokedBy:    m.RevokedBy,
		RevokedAt:    utcPtr(m.RevokedAt),
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

func (r *membershipRow) model() *models.Membership {
	return &models.Membership{
		MembershipID: r.MembershipID,
		UserID:       r.UserID,
		TenantID:     r.TenantID,
		Role:         models.Role(r.Role),
		IsActive:     r.IsActive,
		GrantedBy:    r.GrantedBy,
		GrantedAt:    r.GrantedAt,
		RevokedBy:    r.RevokedBy,
		RevokedAt:    r.RevokedAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type invitationRow struct {
	InvitationID     uuid.UUID `gorm:"primaryKey"`
	Email            string
	TenantID         uuid.UUID
	InvitedByUserID  uuid.UUID
	Status           string
	ExpiresAt        time.Time
	AcceptedAt       *time.Time
	AcceptedByUserID *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (invitationRow) TableName() string { return "invitations" }

func newInvitationRow(i *models.Invitation) *invitationRow {
	return &invitationRow{
		InvitationID:     i.InvitationID,
		Email:            i.Email,
		TenantID:         i.TenantID,
		InvitedByUserID:  i.InvitedByUserID,
		Status:           string(i.Status),
		ExpiresAt:        i.ExpiresAt.UTC(),
		AcceptedAt:       utcPtr(i.AcceptedAt),
		AcceptedByUserID: i.AcceptedByUserID,
		CreatedAt:        i.CreatedAt.UTC(),
		UpdatedAt:        i.UpdatedAt.UTC(),
	}
}

func (r *invitationRow) model() *models.Invitation {
	return &models.Invitation{
		InvitationID:     r.InvitationID,
		Email:            r.Email,
		TenantID:         r.TenantID,
		InvitedByUserID:  r.InvitedByUserID,
		Status:           models.InvitationStatus(r.Status),
		ExpiresAt:        r.ExpiresAt,
		AcceptedAt:       r.AcceptedAt,
		AcceptedByUserID: r.AcceptedByUserID,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type subscriptionRow struct {
	TenantID           uuid.UUID `gorm:"primaryKey"`
	PlanID             string
	Status             string
	PaymentMethodRef   string
	BillingEmail       string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (subscriptionRow) TableName() string { return "subscriptions" }

func newSubscriptionRow(s *models.Subscription) *subscriptionRow {
	return &subscriptionRow{
		TenantID:           s.TenantID,
		PlanID:             s.PlanID,
		Status:             string(s.Status),
		PaymentMethodRef:   s.PaymentMethodRef,
		BillingEmail:       s.BillingEmail,
		CurrentPeriodStart: utcPtr(s.CurrentPeriodStart),
		CurrentPeriodEnd:   utcPtr(s.CurrentPeriodEnd),
		CreatedAt:          s.CreatedAt.UTC(),
		UpdatedAt:          s.UpdatedAt.UTC(),
	}
}

func (r *subscriptionRow) model() *models.Subscription {
	return &models.Subscription{
		TenantID:           r.TenantID,
		PlanID:             r.PlanID,
		Status:             models.SubscriptionStatus(r.Status),
		PaymentMethodRef:   r.PaymentMethodRef,
		BillingEmail:       r.BillingEmail,
		CurrentPeriodStart: r.CurrentPeriodStart,
		CurrentPeriodEnd:   r.CurrentPeriodEnd,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

type planRow struct {
	PlanID      string `gorm:"primaryKey"`
	Name        string
	IsActive    bool
	MaxUsers    int
	MaxProducts int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (planRow) TableName() string { return "plans" }

func (r *planRow) model() *models.Plan {
	return &models.Plan{
		PlanID:      r.PlanID,
		Name:        r.Name,
		IsActive:    r.IsActive,
		MaxUsers:    r.MaxUsers,
		MaxProducts: r.MaxProducts,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
