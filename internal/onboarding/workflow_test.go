package onboarding

import (
	"context"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/backoffice/internal/auth"
	"github.com/wolfeidau/backoffice/internal/invitation"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
	"github.com/wolfeidau/backoffice/internal/store/memory"
	"github.com/wolfeidau/backoffice/internal/store/storetest"
)

type fixture struct {
	stores   *store.Stores
	workflow *Workflow
	user     *models.User
	caller   auth.CallerContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	stores := memory.NewStores()

	require.NoError(t, stores.Plans.Upsert(ctx, &models.Plan{PlanID: "starter", Name: "Starter", IsActive: true, MaxUsers: 5, MaxProducts: 50}))
	require.NoError(t, stores.Plans.Upsert(ctx, &models.Plan{PlanID: "growth", Name: "Growth", IsActive: true, MaxUsers: 25, MaxProducts: 500}))
	require.NoError(t, stores.Plans.Upsert(ctx, &models.Plan{PlanID: "legacy", Name: "Legacy", IsActive: false}))

	user := storetest.NewUser("owner@example.com")
	require.NoError(t, stores.Users.Create(ctx, user))

	invitations := invitation.NewService(stores, auth.NewAuthorizer(stores.Memberships))

	return &fixture{
		stores:   stores,
		workflow: NewWorkflow(stores, invitations),
		user:     user,
		caller:   auth.CallerContext{UserID: user.UserID},
	}
}

func (f *fixture) createTenant(t *testing.T, name string) *models.Tenant {
	t.Helper()
	res, err := f.workflow.CreateOrUpdateTenant(context.Background(), f.caller, TenantInput{Name: name, PlanID: "starter"})
	require.NoError(t, err)
	return res.Tenant
}

func TestCreateOrUpdateTenant_creates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.workflow.CreateOrUpdateTenant(ctx, f.caller, TenantInput{Name: "  Acme, Inc! ", Description: "Widgets", PlanID: "starter"})
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, "Acme, Inc!", res.Tenant.Name)
	require.Equal(t, "acme-inc", res.Tenant.Slug)
	require.Equal(t, models.OnboardingTenantCreated, res.Tenant.OnboardingStep)
	require.False(t, res.Tenant.OnboardingCompleted)
	require.Equal(t, f.user.UserID, res.Tenant.OwnerUserID)

	membership, err := f.stores.Memberships.GetActive(ctx, f.user.UserID, res.Tenant.TenantID)
	require.NoError(t, err)
	require.Equal(t, models.RoleOwner, membership.Role)

	sub, err := f.stores.Subscriptions.GetByTenant(ctx, res.Tenant.TenantID)
	require.NoError(t, err)
	require.Equal(t, "starter", sub.PlanID)
	require.Equal(t, models.SubscriptionPending, sub.Status)
}

func TestCreateOrUpdateTenant_updatesInProgressTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.createTenant(t, "Acme")

	res, err := f.workflow.CreateOrUpdateTenant(ctx, f.caller, TenantInput{Name: "Acme Labs", PlanID: "growth"})
	require.NoError(t, err)
	require.False(t, res.Created)
	require.Equal(t, first.TenantID, res.Tenant.TenantID)
	require.Equal(t, "acme-labs", res.Tenant.Slug)

	sub, err := f.stores.Subscriptions.GetByTenant(ctx, first.TenantID)
	require.NoError(t, err)
	require.Equal(t, "growth", sub.PlanID)

	tenants, err := f.stores.Tenants.List(ctx, store.ListTenantsOptions{})
	require.NoError(t, err)
	require.Len(t, tenants, 1, "one onboarding tenant per owner")
}

func TestCreateOrUpdateTenant_keepsOwnSlug(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.createTenant(t, "Acme")

	res, err := f.workflow.CreateOrUpdateTenant(ctx, f.caller, TenantInput{Name: "ACME", PlanID: "starter"})
	require.NoError(t, err)
	require.Equal(t, first.TenantID, res.Tenant.TenantID)
	require.Equal(t, "acme", res.Tenant.Slug)
}

func TestCreateOrUpdateTenant_slugCollision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	other := storetest.NewUser("other@example.com")
	require.NoError(t, f.stores.Users.Create(ctx, other))
	require.NoError(t, f.stores.Tenants.Create(ctx, storetest.NewTenant("Acme", "acme", other.UserID)))
	require.NoError(t, f.stores.Tenants.Create(ctx, storetest.NewTenant("Acme 1", "acme-1", other.UserID)))

	tenant := f.createTenant(t, "Acme")
	require.Equal(t, "acme-2", tenant.Slug)
}

// racingTenants lets the slug pre-check miss a tenant created concurrently.
type racingTenants struct {
	store.TenantStore
	once sync.Once
	race func()
}

func (r *racingTenants) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	exists, err := r.TenantStore.SlugExists(ctx, slug, excludeID)
	r.once.Do(r.race)
	return exists, err
}

func TestCreateOrUpdateTenant_retriesLostSlugRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	other := storetest.NewUser("other@example.com")
	require.NoError(t, f.stores.Users.Create(ctx, other))

	f.workflow.tenants = &racingTenants{
		TenantStore: f.stores.Tenants,
		race: func() {
			require.NoError(t, f.stores.Tenants.Create(ctx, storetest.NewTenant("Acme", "acme", other.UserID)))
		},
	}

	tenant := f.createTenant(t, "Acme")
	require.Equal(t, "acme-1", tenant.Slug)
}

func TestCreateOrUpdateTenant_validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name     string
		caller   auth.CallerContext
		input    TenantInput
		expected connect.Code
	}{
		{name: "anonymous", caller: auth.CallerContext{}, input: TenantInput{Name: "Acme", PlanID: "starter"}, expected: connect.CodeUnauthenticated},
		{name: "missing name", caller: f.caller, input: TenantInput{Name: "  ", PlanID: "starter"}, expected: connect.CodeInvalidArgument},
		{name: "missing plan", caller: f.caller, input: TenantInput{Name: "Acme"}, expected: connect.CodeInvalidArgument},
		{name: "unknown plan", caller: f.caller, input: TenantInput{Name: "Acme", PlanID: "enterprise"}, expected: connect.CodeFailedPrecondition},
		{name: "inactive plan", caller: f.caller, input: TenantInput{Name: "Acme", PlanID: "legacy"}, expected: connect.CodeFailedPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.workflow.CreateOrUpdateTenant(ctx, tt.caller, tt.input)
			require.Equal(t, tt.expected, connect.CodeOf(err))
		})
	}

	tenants, err := f.stores.Tenants.List(ctx, store.ListTenantsOptions{IncludeInactive: true})
	require.NoError(t, err)
	require.Empty(t, tenants, "rejected requests write nothing")
}

func TestCreateInvitations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenant := f.createTenant(t, "Acme")

	existing, err := f.workflow.invitations.CreatePending(ctx, tenant.TenantID, f.user.UserID, "taken@example.com")
	require.NoError(t, err)
	require.NotNil(t, existing)

	res, err := f.workflow.CreateInvitations(ctx, f.caller, tenant.TenantID, []string{
		"a@example.com",
		"Owner@Example.com",
		"taken@example.com",
		"A@example.com",
		"broken",
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	require.Equal(t, "a@example.com", res.Created[0].Email)
	require.Len(t, res.Failed, 4)
	require.Equal(t, models.OnboardingInvitesSent, res.Step)

	pending, err := f.stores.Invitations.ListByTenant(ctx, tenant.TenantID, store.ListInvitationsOptions{Status: models.InvitationPending})
	require.NoError(t, err)
	require.Len(t, pending, 2)
}

func TestCreateInvitations_selfInvite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenant := f.createTenant(t, "Acme")

	res, err := f.workflow.CreateInvitations(ctx, f.caller, tenant.TenantID, []string{f.user.Email})
	require.NoError(t, err)
	require.Empty(t, res.Created)
	require.Len(t, res.Failed, 1)

	invitations, err := f.stores.Invitations.ListByTenant(ctx, tenant.TenantID, store.ListInvitationsOptions{})
	require.NoError(t, err)
	require.Empty(t, invitations)
}

func TestCreateInvitations_emptyListSkipsStep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenant := f.createTenant(t, "Acme")

	res, err := f.workflow.CreateInvitations(ctx, f.caller, tenant.TenantID, nil)
	require.NoError(t, err)
	require.Equal(t, models.OnboardingInvitesSent, res.Step)

	got, err := f.stores.Tenants.Get(ctx, tenant.TenantID)
	require.NoError(t, err)
	require.Equal(t, models.OnboardingInvitesSent, got.OnboardingStep)
}

func TestCreateInvitations_limits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenant := f.createTenant(t, "Acme")

	emails := make([]string, MaxInvitations+1)
	for i := range emails {
		emails[i] = uuid.NewString() + "@example.com"
	}

	_, err := f.workflow.CreateInvitations(ctx, f.caller, tenant.TenantID, emails)
	require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestOwnershipIsRequired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenant := f.createTenant(t, "Acme")

	intruder := storetest.NewUser("intruder@example.com")
	require.NoError(t, f.stores.Users.Create(ctx, intruder))
	caller := auth.CallerContext{UserID: intruder.UserID, IsSystemAdmin: true}

	_, err := f.workflow.CreateInvitations(ctx, caller, tenant.TenantID, []string{"x@example.com"})
	require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = f.workflow.AttachPayment(ctx, caller, tenant.TenantID, PaymentInput{PaymentMethodRef: "pm_123"})
	require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = f.workflow.Complete(ctx, caller, tenant.TenantID)
	require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = f.workflow.Complete(ctx, f.caller, uuid.Must(uuid.NewV7()))
	require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestAttachPaymentAndComplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenant := f.createTenant(t, "Acme")

	_, err := f.workflow.AttachPayment(ctx, f.caller, tenant.TenantID, PaymentInput{})
	require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	sub, err := f.workflow.AttachPayment(ctx, f.caller, tenant.TenantID, PaymentInput{PaymentMethodRef: "pm_123", BillingEmail: "billing@example.com"})
	require.NoError(t, err)
	require.Equal(t, models.SubscriptionActive, sub.Status)

	got, err := f.stores.Tenants.Get(ctx, tenant.TenantID)
	require.NoError(t, err)
	require.Equal(t, models.OnboardingPaymentAttached, got.OnboardingStep)

	done, err := f.workflow.Complete(ctx, f.caller, tenant.TenantID)
	require.NoError(t, err)
	require.True(t, done.OnboardingCompleted)
	require.Equal(t, models.OnboardingComplete, done.OnboardingStep)

	sub, err = f.stores.Subscriptions.GetByTenant(ctx, tenant.TenantID)
	require.NoError(t, err)
	require.Equal(t, "pm_123", sub.PaymentMethodRef)
	require.Equal(t, "billing@example.com", sub.BillingEmail)
	require.NotNil(t, sub.CurrentPeriodStart)
	require.NotNil(t, sub.CurrentPeriodEnd)
	require.True(t, sub.CurrentPeriodStart.AddDate(0, 1, 0).Equal(*sub.CurrentPeriodEnd))

	status, err := f.workflow.Status(ctx, f.caller)
	require.NoError(t, err)
	require.Nil(t, status.Tenant, "completed tenants are no longer in progress")
	require.Equal(t, models.OnboardingNotStarted, status.Step)

	again, err := f.workflow.Complete(ctx, f.caller, tenant.TenantID)
	require.NoError(t, err)
	require.True(t, again.OnboardingCompleted)
}

func TestComplete_requiresPaymentMethod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenant := f.createTenant(t, "Acme")

	_, err := f.workflow.CreateInvitations(ctx, f.caller, tenant.TenantID, nil)
	require.NoError(t, err)

	_, err = f.workflow.Complete(ctx, f.caller, tenant.TenantID)
	require.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	got, err := f.stores.Tenants.Get(ctx, tenant.TenantID)
	require.NoError(t, err)
	require.False(t, got.OnboardingCompleted)
	require.Equal(t, models.OnboardingInvitesSent, got.OnboardingStep)
}

func TestStepNeverRegresses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tenant := f.createTenant(t, "Acme")

	_, err := f.workflow.CreateInvitations(ctx, f.caller, tenant.TenantID, nil)
	require.NoError(t, err)

	res, err := f.workflow.CreateOrUpdateTenant(ctx, f.caller, TenantInput{Name: "Acme Renamed", PlanID: "starter"})
	require.NoError(t, err)
	require.Equal(t, tenant.TenantID, res.Tenant.TenantID)
	require.Equal(t, models.OnboardingInvitesSent, res.Tenant.OnboardingStep)

	_, err = f.workflow.AttachPayment(ctx, f.caller, tenant.TenantID, PaymentInput{PaymentMethodRef: "pm_1"})
	require.NoError(t, err)

	res2, err := f.workflow.CreateInvitations(ctx, f.caller, tenant.TenantID, nil)
	require.NoError(t, err)
	require.Equal(t, models.OnboardingPaymentAttached, res2.Step)

	status, err := f.workflow.Status(ctx, f.caller)
	require.NoError(t, err)
	require.NotNil(t, status.Tenant)
	require.Equal(t, models.OnboardingPaymentAttached, status.Step)
	require.NotNil(t, status.Subscription)
	require.True(t, status.Subscription.HasPaymentMethod())
}

func TestStatus_noTenant(t *testing.T) {
	f := newFixture(t)

	status, err := f.workflow.Status(context.Background(), f.caller)
	require.NoError(t, err)
	require.Nil(t, status.Tenant)
	require.Equal(t, models.OnboardingNotStarted, status.Step)

	_, err = f.workflow.Status(context.Background(), auth.CallerContext{})
	require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

