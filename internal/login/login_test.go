package login

import (
	"context"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/backoffice/internal/access"
	"github.com/wolfeidau/backoffice/internal/auth"
	"github.com/wolfeidau/backoffice/internal/invitation"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
	"github.com/wolfeidau/backoffice/internal/store/memory"
	"github.com/wolfeidau/backoffice/internal/store/storetest"
)

func newSyncer(stores *store.Stores) *Syncer {
	return NewSyncer(stores, invitation.NewReconciler(stores), access.NewAggregator(stores))
}

func seedTenant(t *testing.T, stores *store.Stores, ownerEmail, name, slug string) (*models.User, *models.Tenant) {
	t.Helper()
	ctx := context.Background()

	owner := storetest.NewUser(ownerEmail)
	require.NoError(t, stores.Users.Create(ctx, owner))

	tenant := storetest.NewTenant(name, slug, owner.UserID)
	tenant.AdvanceOnboarding(models.OnboardingComplete)
	require.NoError(t, stores.Tenants.CreateWithOwner(ctx, tenant,
		storetest.NewMembership(owner.UserID, tenant.TenantID, models.RoleOwner), nil))

	return owner, tenant
}

func TestSync_firstLoginCreatesUser(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()

	res, err := newSyncer(stores).Sync(ctx, auth.CallerContext{}, Profile{
		Email:          "  New.User@Example.com ",
		ExternalAuthID: "idp|123",
		FirstName:      "New",
		LastName:       "User",
	})
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, "new.user@example.com", res.User.Email)
	require.NotNil(t, res.User.LastLoginAt)
	require.True(t, res.User.IsActive)
	require.Empty(t, res.Tenants)
	require.True(t, res.Onboarding.RequiresOnboarding)

	got, err := stores.Users.GetByExternalID(ctx, "idp|123")
	require.NoError(t, err)
	require.Equal(t, res.User.UserID, got.UserID)
}

func TestSync_usesCallerUserIDForNewUser(t *testing.T) {
	stores := memory.NewStores()
	userID := uuid.Must(uuid.NewV7())

	res, err := newSyncer(stores).Sync(context.Background(), auth.CallerContext{UserID: userID}, Profile{Email: "a@x.com"})
	require.NoError(t, err)
	require.Equal(t, userID, res.User.UserID)
}

func TestSync_existingUserBackfillsNames(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()

	user := storetest.NewUser("a@x.com")
	user.FirstName = ""
	user.LastName = "Kept"
	require.NoError(t, stores.Users.Create(ctx, user))

	res, err := newSyncer(stores).Sync(ctx, auth.CallerContext{}, Profile{
		Email:          "A@X.com",
		ExternalAuthID: "idp|a",
		FirstName:      "Ada",
		LastName:       "Ignored",
	})
	require.NoError(t, err)
	require.False(t, res.Created)
	require.Equal(t, user.UserID, res.User.UserID)

	got, err := stores.Users.Get(ctx, user.UserID)
	require.NoError(t, err)
	require.Equal(t, "Ada", got.FirstName)
	require.Equal(t, "Kept", got.LastName)
	require.NotNil(t, got.ExternalAuthID)
	require.Equal(t, "idp|a", *got.ExternalAuthID)
	require.NotNil(t, got.LastLoginAt)
}

func TestSync_reconcilesPendingInvitation(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	owner, tenant := seedTenant(t, stores, "owner@x.com", "T1", "t1")

	inv := storetest.NewInvitation("a@x.com", tenant.TenantID, owner.UserID, time.Now())
	require.NoError(t, stores.Invitations.CreatePending(ctx, inv, time.Now()))

	res, err := newSyncer(stores).Sync(ctx, auth.CallerContext{}, Profile{Email: "a@x.com"})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{tenant.TenantID}, res.Reconciled.Accepted)

	require.Len(t, res.Tenants, 1)
	require.Equal(t, tenant.TenantID, res.Tenants[0].TenantID)
	require.Equal(t, models.RoleMember, res.Tenants[0].Role)
	require.False(t, res.Onboarding.RequiresOnboarding)

	got, err := stores.Invitations.Get(ctx, inv.InvitationID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationAccepted, got.Status)
	require.Equal(t, res.User.UserID, *got.AcceptedByUserID)

	again, err := newSyncer(stores).Sync(ctx, auth.CallerContext{UserID: res.User.UserID}, Profile{Email: "a@x.com"})
	require.NoError(t, err)
	require.Empty(t, again.Reconciled.Accepted)
	require.Len(t, again.Tenants, 1)
}

func TestSync_systemAdminSeesAllTenants(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	seedTenant(t, stores, "owner@x.com", "T1", "t1")

	admin := storetest.NewUser("admin@x.com")
	require.NoError(t, stores.Users.Create(ctx, admin))

	res, err := newSyncer(stores).Sync(ctx, auth.CallerContext{UserID: admin.UserID, IsSystemAdmin: true}, Profile{Email: "admin@x.com"})
	require.NoError(t, err)
	require.Len(t, res.Tenants, 1)
	require.Equal(t, access.AllTenantsEntry(), res.Tenants[0])
	require.False(t, res.Onboarding.RequiresOnboarding)
}

func TestSync_rejections(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()

	inactive := storetest.NewUser("inactive@x.com")
	inactive.IsActive = false
	require.NoError(t, stores.Users.Create(ctx, inactive))

	linked := storetest.NewUser("linked@x.com")
	externalID := "idp|linked"
	linked.ExternalAuthID = &externalID
	require.NoError(t, stores.Users.Create(ctx, linked))

	tests := []struct {
		name     string
		caller   auth.CallerContext
		profile  Profile
		expected connect.Code
	}{
		{
			name:     "invalid email",
			profile:  Profile{Email: "nope"},
			expected: connect.CodeInvalidArgument,
		},
		{
			name:     "deactivated user",
			profile:  Profile{Email: "inactive@x.com"},
			expected: connect.CodePermissionDenied,
		},
		{
			name:     "caller mismatch",
			caller:   auth.CallerContext{UserID: uuid.Must(uuid.NewV7())},
			profile:  Profile{Email: "linked@x.com"},
			expected: connect.CodePermissionDenied,
		},
		{
			name:     "email linked to different identity",
			profile:  Profile{Email: "linked@x.com", ExternalAuthID: "idp|other"},
			expected: connect.CodePermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newSyncer(stores).Sync(ctx, tt.caller, tt.profile)
			require.Equal(t, tt.expected, connect.CodeOf(err))
		})
	}

	got, err := stores.Users.Get(ctx, inactive.UserID)
	require.NoError(t, err)
	require.Nil(t, got.LastLoginAt, "rejected logins are not recorded")
}
