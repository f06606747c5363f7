// Package onboarding drives a new customer through the four onboarding steps:
// create the tenant, invite teammates, attach billing and complete.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/auth"
	"github.com/wolfeidau/backoffice/internal/invitation"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/slug"
	"github.com/wolfeidau/backoffice/internal/store"
	"github.com/wolfeidau/backoffice/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MaxInvitations is the largest number of addresses accepted by CreateInvitations.
const MaxInvitations = 10

// TenantInput is the organization details captured by the first step.
type TenantInput struct {
	Name        string
	Description string
	PlanID      string
}

// PaymentInput records the payment method attached by the billing step.
// The values are opaque references owned by the payment processor.
type PaymentInput struct {
	PaymentMethodRef string
	BillingEmail     string
}

// TenantResult is returned by CreateOrUpdateTenant.
type TenantResult struct {
	Tenant       *models.Tenant
	Subscription *models.Subscription
	Created      bool
}

// InvitationFailure reports an address that was not invited.
type InvitationFailure struct {
	Email  string
	Reason string
}

// InvitationsResult is returned by CreateInvitations.
type InvitationsResult struct {
	Created []*models.Invitation
	Failed  []InvitationFailure
	Step    int
}

// Status is the onboarding progress of a caller.
type Status struct {
	// Tenant is the caller's in-progress onboarding tenant, nil when there is none.
	Tenant       *models.Tenant
	Subscription *models.Subscription
	Step         int
}

// Workflow implements the onboarding state machine. Every step re-validates that
// the caller owns the tenant.
type Workflow struct {
	users         store.UserStore
	tenants       store.TenantStore
	subscriptions store.SubscriptionStore
	plans         store.PlanStore
	invitations   *invitation.Service
	now           func() time.Time
}

// NewWorkflow creates a Workflow over the stores.
func NewWorkflow(stores *store.Stores, invitations *invitation.Service) *Workflow {
	return &Workflow{
		users:         stores.Users,
		tenants:       stores.Tenants,
		subscriptions: stores.Subscriptions,
		plans:         stores.Plans,
		invitations:   invitations,
		now:           time.Now,
	}
}

// CreateOrUpdateTenant creates the caller's onboarding tenant, or updates the one
// already in progress. An update regenerates the slug from the new name and moves
// the subscription to the new plan. The step never moves backwards.
func (w *Workflow) CreateOrUpdateTenant(ctx context.Context, caller auth.CallerContext, in TenantInput) (*TenantResult, error) {
	if err := auth.RequireAuthenticated(caller); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("name is required"))
	}
	if in.PlanID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("plan_id is required"))
	}

	if err := w.checkPlan(ctx, in.PlanID); err != nil {
		return nil, err
	}

	existing, err := w.tenants.FindInProgressOnboarding(ctx, caller.UserID)
	switch {
	case err == nil:
		return w.updateTenant(ctx, existing, in)
	case errors.Is(err, store.ErrTenantNotFound):
		return w.createTenant(ctx, caller, in)
	default:
		log.Error().Err(err).Msg("Failed to find in-progress onboarding tenant")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to find onboarding tenant"))
	}
}

func (w *Workflow) checkPlan(ctx context.Context, planID string) error {
	plan, err := w.plans.Get(ctx, planID)
	if err != nil {
		if errors.Is(err, store.ErrPlanNotFound) {
			return connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("plan %q does not exist", planID))
		}
		log.Error().Err(err).Str("plan_id", planID).Msg("Failed to get plan")
		return connect.NewError(connect.CodeInternal, errors.New("failed to get plan"))
	}

	if !plan.IsActive {
		return connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("plan %q is not active", planID))
	}

	return nil
}

func (w *Workflow) createTenant(ctx context.Context, caller auth.CallerContext, in TenantInput) (*TenantResult, error) {
	now := w.now().UTC()

	tenant := &models.Tenant{
		TenantID:    uuid.Must(uuid.NewV7()),
		Name:        in.Name,
		Description: in.Description,
		IsActive:    true,
		OwnerUserID: caller.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tenant.AdvanceOnboarding(models.OnboardingTenantCreated)

	owner := &models.Membership{
		MembershipID: uuid.Must(uuid.NewV7()),
		UserID:       caller.UserID,
		TenantID:     tenant.TenantID,
		Role:         models.RoleOwner,
		IsActive:     true,
		GrantedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	sub := &models.Subscription{
		TenantID:  tenant.TenantID,
		PlanID:    in.PlanID,
		Status:    models.SubscriptionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := slug.Assign(ctx, slug.Of(in.Name), slug.DefaultMaxAttempts,
		w.slugExists(tenant.TenantID),
		func(ctx context.Context, candidate string) error {
			tenant.Slug = candidate
			return slugClaim(ctx, w.tenants.CreateWithOwner(ctx, tenant, owner, sub))
		})
	if err != nil {
		return nil, slugError(err, "failed to create tenant")
	}

	telemetry.GetMetrics().TenantsCreatedTotal.Add(ctx, 1)
	recordTransition(ctx, tenant.TenantID, models.OnboardingNotStarted, tenant.OnboardingStep)

	return &TenantResult{Tenant: tenant, Subscription: sub, Created: true}, nil
}

func (w *Workflow) updateTenant(ctx context.Context, tenant *models.Tenant, in TenantInput) (*TenantResult, error) {
	now := w.now().UTC()
	from := tenant.OnboardingStep

	sub, err := w.subscriptions.GetByTenant(ctx, tenant.TenantID)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrSubscriptionNotFound):
		sub = &models.Subscription{
			TenantID:  tenant.TenantID,
			Status:    models.SubscriptionPending,
			CreatedAt: now,
		}
	default:
		log.Error().Err(err).Str("tenant_id", tenant.TenantID.String()).Msg("Failed to get subscription")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to get subscription"))
	}
	sub.PlanID = in.PlanID
	sub.UpdatedAt = now

	tenant.Name = in.Name
	tenant.Description = in.Description
	tenant.UpdatedAt = now
	tenant.AdvanceOnboarding(models.OnboardingTenantCreated)

	_, err = slug.Assign(ctx, slug.Of(in.Name), slug.DefaultMaxAttempts,
		w.slugExists(tenant.TenantID),
		func(ctx context.Context, candidate string) error {
			tenant.Slug = candidate
			return slugClaim(ctx, w.tenants.UpdateWithSubscription(ctx, tenant, sub))
		})
	if err != nil {
		return nil, slugError(err, "failed to update tenant")
	}

	recordTransition(ctx, tenant.TenantID, from, tenant.OnboardingStep)

	log.Info().
		Str("tenant_id", tenant.TenantID.String()).
		Str("slug", tenant.Slug).
		Int("step", tenant.OnboardingStep).
		Msg("onboarding tenant updated")

	return &TenantResult{Tenant: tenant, Subscription: sub}, nil
}

// CreateInvitations invites up to MaxInvitations addresses into the tenant.
// Self invitations, duplicates and addresses with a pending invitation are
// reported as failures. The step advances even when nothing was sent.
func (w *Workflow) CreateInvitations(ctx context.Context, caller auth.CallerContext, tenantID uuid.UUID, emails []string) (*InvitationsResult, error) {
	if len(emails) > MaxInvitations {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("at most %d invitations may be sent at once", MaxInvitations))
	}

	tenant, err := w.ownedTenant(ctx, caller, tenantID)
	if err != nil {
		return nil, err
	}

	var callerEmail string
	if user, err := w.users.Get(ctx, caller.UserID); err == nil {
		callerEmail = models.NormalizeEmail(user.Email)
	} else if !errors.Is(err, store.ErrUserNotFound) {
		log.Error().Err(err).Msg("Failed to get user")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to get user"))
	}

	result := &InvitationsResult{}
	seen := map[string]bool{}

	for _, raw := range emails {
		email, err := invitation.ParseEmail(raw)
		switch {
		case err != nil:
			result.Failed = append(result.Failed, InvitationFailure{Email: raw, Reason: "invalid email address"})
			continue
		case email == callerEmail:
			result.Failed = append(result.Failed, InvitationFailure{Email: email, Reason: "cannot invite yourself"})
			continue
		case seen[email]:
			result.Failed = append(result.Failed, InvitationFailure{Email: email, Reason: "duplicate address"})
			continue
		}
		seen[email] = true

		inv, err := w.invitations.CreatePending(ctx, tenant.TenantID, caller.UserID, email)
		if err != nil {
			if errors.Is(err, store.ErrInvitationAlreadyExists) {
				result.Failed = append(result.Failed, InvitationFailure{Email: email, Reason: "pending invitation already exists"})
				continue
			}
			log.Error().Err(err).Str("tenant_id", tenant.TenantID.String()).Msg("Failed to create invitation")
			return nil, connect.NewError(connect.CodeInternal, errors.New("failed to create invitation"))
		}
		result.Created = append(result.Created, inv)
	}

	if err := w.advance(ctx, tenant, models.OnboardingInvitesSent, nil); err != nil {
		return nil, err
	}
	result.Step = tenant.OnboardingStep

	return result, nil
}

// AttachPayment records the payment method on the tenant's subscription and
// activates it.
func (w *Workflow) AttachPayment(ctx context.Context, caller auth.CallerContext, tenantID uuid.UUID, in PaymentInput) (*models.Subscription, error) {
	if strings.TrimSpace(in.PaymentMethodRef) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("payment_method_ref is required"))
	}

	tenant, err := w.ownedTenant(ctx, caller, tenantID)
	if err != nil {
		return nil, err
	}

	sub, err := w.subscription(ctx, tenant.TenantID)
	if err != nil {
		return nil, err
	}

	sub.PaymentMethodRef = in.PaymentMethodRef
	sub.BillingEmail = in.BillingEmail
	sub.Status = models.SubscriptionActive
	sub.UpdatedAt = w.now().UTC()

	if err := w.advance(ctx, tenant, models.OnboardingPaymentAttached, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// Complete finishes onboarding. The subscription must carry a payment method.
// Completion starts a one month billing period.
func (w *Workflow) Complete(ctx context.Context, caller auth.CallerContext, tenantID uuid.UUID) (*models.Tenant, error) {
	tenant, err := w.ownedTenant(ctx, caller, tenantID)
	if err != nil {
		return nil, err
	}

	sub, err := w.subscription(ctx, tenant.TenantID)
	if err != nil {
		return nil, err
	}

	if !sub.HasPaymentMethod() {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("a payment method must be attached before completing onboarding"))
	}

	if tenant.OnboardingCompleted {
		return tenant, nil
	}

	now := w.now().UTC()
	periodEnd := now.AddDate(0, 1, 0)
	sub.CurrentPeriodStart = &now
	sub.CurrentPeriodEnd = &periodEnd
	sub.UpdatedAt = now

	if err := w.advance(ctx, tenant, models.OnboardingComplete, sub); err != nil {
		return nil, err
	}

	log.Info().
		Str("tenant_id", tenant.TenantID.String()).
		Str("owner_user_id", caller.UserID.String()).
		Msg("onboarding completed")

	return tenant, nil
}

// Status returns the caller's in-progress onboarding tenant, if any.
func (w *Workflow) Status(ctx context.Context, caller auth.CallerContext) (*Status, error) {
	if err := auth.RequireAuthenticated(caller); err != nil {
		return nil, err
	}

	tenant, err := w.tenants.FindInProgressOnboarding(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			return &Status{Step: models.OnboardingNotStarted}, nil
		}
		log.Error().Err(err).Msg("Failed to find in-progress onboarding tenant")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to find onboarding tenant"))
	}

	status := &Status{Tenant: tenant, Step: tenant.OnboardingStep}

	sub, err := w.subscriptions.GetByTenant(ctx, tenant.TenantID)
	switch {
	case err == nil:
		status.Subscription = sub
	case errors.Is(err, store.ErrSubscriptionNotFound):
	default:
		log.Error().Err(err).Msg("Failed to get subscription")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to get subscription"))
	}

	return status, nil
}

// ownedTenant loads an active tenant and checks the caller owns it.
func (w *Workflow) ownedTenant(ctx context.Context, caller auth.CallerContext, tenantID uuid.UUID) (*models.Tenant, error) {
	if err := auth.RequireAuthenticated(caller); err != nil {
		return nil, err
	}

	tenant, err := w.tenants.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("tenant not found"))
		}
		log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("Failed to get tenant")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to get tenant"))
	}

	if !tenant.IsActive {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("tenant not found"))
	}

	if tenant.OwnerUserID != caller.UserID {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("only the tenant owner may perform onboarding"))
	}

	return tenant, nil
}

func (w *Workflow) subscription(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	sub, err := w.subscriptions.GetByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("tenant has no subscription"))
		}
		log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("Failed to get subscription")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to get subscription"))
	}
	return sub, nil
}

// advance moves the tenant to step and persists it, together with sub when non-nil.
func (w *Workflow) advance(ctx context.Context, tenant *models.Tenant, step int, sub *models.Subscription) error {
	from := tenant.OnboardingStep
	tenant.AdvanceOnboarding(step)
	tenant.UpdatedAt = w.now().UTC()

	var err error
	if sub != nil {
		err = w.tenants.UpdateWithSubscription(ctx, tenant, sub)
	} else {
		err = w.tenants.Update(ctx, tenant)
	}
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenant.TenantID.String()).Msg("Failed to update onboarding tenant")
		return connect.NewError(connect.CodeInternal, errors.New("failed to update tenant"))
	}

	recordTransition(ctx, tenant.TenantID, from, tenant.OnboardingStep)
	return nil
}

func (w *Workflow) slugExists(tenantID uuid.UUID) slug.ExistsFunc {
	return func(ctx context.Context, candidate string) (bool, error) {
		return w.tenants.SlugExists(ctx, candidate, tenantID)
	}
}

// slugClaim translates a lost slug race into slug.ErrTaken.
func slugClaim(ctx context.Context, err error) error {
	if errors.Is(err, store.ErrSlugTaken) {
		telemetry.GetMetrics().SlugConflictsTotal.Add(ctx, 1)
		return slug.ErrTaken
	}
	return err
}

func slugError(err error, msg string) error {
	if errors.Is(err, slug.ErrExhausted) {
		return connect.NewError(connect.CodeAlreadyExists, err)
	}
	log.Error().Err(err).Msg(msg)
	return connect.NewError(connect.CodeInternal, errors.New(msg))
}

func recordTransition(ctx context.Context, tenantID uuid.UUID, from, to int) {
	if to == from {
		return
	}

	telemetry.GetMetrics().OnboardingTransitionsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("step", strconv.Itoa(to))))

	log.Info().
		Str("tenant_id", tenantID.String()).
		Int("from", from).
		Int("to", to).
		Msg("onboarding step advanced")
}
