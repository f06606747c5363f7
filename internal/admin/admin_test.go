package admin

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/backoffice/internal/auth"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
	"github.com/wolfeidau/backoffice/internal/store/memory"
	"github.com/wolfeidau/backoffice/internal/store/storetest"
)

type fixture struct {
	stores  *store.Stores
	svc     *Service
	admin   *models.User
	owner   *models.User
	member  *models.User
	outside *models.User
	tenant  *models.Tenant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	stores := memory.NewStores()

	f := &fixture{stores: stores, svc: NewService(stores, auth.NewAuthorizer(stores.Memberships))}
	f.admin = f.createUser(t, "admin@example.com")
	f.owner = f.createUser(t, "owner@example.com")
	f.member = f.createUser(t, "member@example.com")
	f.outside = f.createUser(t, "outside@example.com")

	f.tenant = storetest.NewTenant("Acme", "acme", f.owner.UserID)
	f.tenant.AdvanceOnboarding(models.OnboardingComplete)
	require.NoError(t, stores.Tenants.CreateWithOwner(ctx, f.tenant,
		storetest.NewMembership(f.owner.UserID, f.tenant.TenantID, models.RoleOwner), nil))

	_, err := stores.Memberships.Upsert(ctx, storetest.NewMembership(f.member.UserID, f.tenant.TenantID, models.RoleMember))
	require.NoError(t, err)

	return f
}

func (f *fixture) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := storetest.NewUser(email)
	require.NoError(t, f.stores.Users.Create(context.Background(), user))
	return user
}

func (f *fixture) adminCaller() auth.CallerContext {
	return auth.CallerContext{UserID: f.admin.UserID, IsSystemAdmin: true}
}

func (f *fixture) as(user *models.User) auth.CallerContext {
	return auth.CallerContext{UserID: user.UserID, Scope: auth.OneTenant(f.tenant.TenantID)}
}

func TestCreateTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("requires system admin", func(t *testing.T) {
		_, err := f.svc.CreateTenant(ctx, f.as(f.owner), CreateTenantInput{Name: "Other"})
		require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})

	t.Run("derives unique slug", func(t *testing.T) {
		tenant, err := f.svc.CreateTenant(ctx, f.adminCaller(), CreateTenantInput{Name: "ACME"})
		require.NoError(t, err)
		require.Equal(t, "acme-1", tenant.Slug)
		require.True(t, tenant.OnboardingCompleted)
		require.Equal(t, models.OnboardingComplete, tenant.OnboardingStep)

		_, err = f.stores.Memberships.GetActive(ctx, f.admin.UserID, tenant.TenantID)
		require.ErrorIs(t, err, store.ErrMembershipNotFound, "no owner membership without a named owner")
	})

	t.Run("with owner", func(t *testing.T) {
		ownerID := f.outside.UserID
		tenant, err := f.svc.CreateTenant(ctx, f.adminCaller(), CreateTenantInput{Name: "Outside Co", OwnerUserID: &ownerID})
		require.NoError(t, err)
		require.Equal(t, "outside-co", tenant.Slug)
		require.Equal(t, ownerID, tenant.OwnerUserID)

		m, err := f.stores.Memberships.GetActive(ctx, ownerID, tenant.TenantID)
		require.NoError(t, err)
		require.Equal(t, models.RoleOwner, m.Role)
		require.Equal(t, f.admin.UserID, *m.GrantedBy)
	})

	t.Run("unknown owner", func(t *testing.T) {
		ownerID := uuid.Must(uuid.NewV7())
		_, err := f.svc.CreateTenant(ctx, f.adminCaller(), CreateTenantInput{Name: "Ghost", OwnerUserID: &ownerID})
		require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})

	t.Run("explicit slug conflict", func(t *testing.T) {
		_, err := f.svc.CreateTenant(ctx, f.adminCaller(), CreateTenantInput{Name: "Another", Slug: "Acme"})
		require.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := f.svc.CreateTenant(ctx, f.adminCaller(), CreateTenantInput{})
		require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})
}

func TestUpdateTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	other := storetest.NewTenant("Other", "other", f.outside.UserID)
	require.NoError(t, f.stores.Tenants.Create(ctx, other))

	t.Run("rename keeps slug", func(t *testing.T) {
		name := "Acme Corporation"
		tenant, err := f.svc.UpdateTenant(ctx, f.as(f.owner), f.tenant.TenantID, UpdateTenantInput{Name: &name})
		require.NoError(t, err)
		require.Equal(t, "Acme Corporation", tenant.Name)
		require.Equal(t, "acme", tenant.Slug)
	})

	t.Run("explicit slug is normalized", func(t *testing.T) {
		s := "Acme Corp!"
		tenant, err := f.svc.UpdateTenant(ctx, f.as(f.owner), f.tenant.TenantID, UpdateTenantInput{Slug: &s})
		require.NoError(t, err)
		require.Equal(t, "acme-corp", tenant.Slug)
	})

	t.Run("slug conflict", func(t *testing.T) {
		s := "other"
		_, err := f.svc.UpdateTenant(ctx, f.as(f.owner), f.tenant.TenantID, UpdateTenantInput{Slug: &s})
		require.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))
	})

	t.Run("member cannot update", func(t *testing.T) {
		name := "Hijacked"
		_, err := f.svc.UpdateTenant(ctx, f.as(f.member), f.tenant.TenantID, UpdateTenantInput{Name: &name})
		require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})

	t.Run("path tenant is authoritative", func(t *testing.T) {
		name := "Hijacked"
		_, err := f.svc.UpdateTenant(ctx, f.as(f.owner), other.TenantID, UpdateTenantInput{Name: &name})
		require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})
}

func TestDeactivateAndListTenants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.svc.DeactivateTenant(ctx, f.as(f.member), f.tenant.TenantID)
	require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	tenants, err := f.svc.ListTenants(ctx, f.as(f.member))
	require.NoError(t, err)
	require.Len(t, tenants, 1)

	require.NoError(t, f.svc.DeactivateTenant(ctx, f.as(f.owner), f.tenant.TenantID))

	tenants, err = f.svc.ListTenants(ctx, f.as(f.member))
	require.NoError(t, err)
	require.Empty(t, tenants)

	tenants, err = f.svc.ListTenants(ctx, f.adminCaller())
	require.NoError(t, err)
	require.Len(t, tenants, 1, "system admin sees inactive tenants")
	require.False(t, tenants[0].IsActive)

	tenants, err = f.svc.ListTenants(ctx, auth.CallerContext{})
	require.NoError(t, err)
	require.Empty(t, tenants)

	_, err = f.svc.GetTenant(ctx, f.as(f.member), f.tenant.TenantID)
	require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("list", func(t *testing.T) {
		members, err := f.svc.ListMembers(ctx, f.as(f.member), f.tenant.TenantID)
		require.NoError(t, err)
		require.Len(t, members, 2)

		_, err = f.svc.ListMembers(ctx, f.as(f.outside), f.tenant.TenantID)
		require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})

	t.Run("add", func(t *testing.T) {
		m, err := f.svc.AddMember(ctx, f.as(f.owner), f.tenant.TenantID, "Outside@Example.com", "member")
		require.NoError(t, err)
		require.Equal(t, f.outside.UserID, m.UserID)
		require.Equal(t, models.RoleMember, m.Role)
	})

	t.Run("add twice conflicts", func(t *testing.T) {
		_, err := f.svc.AddMember(ctx, f.as(f.owner), f.tenant.TenantID, "outside@example.com", "member")
		require.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := f.svc.AddMember(ctx, f.as(f.owner), f.tenant.TenantID, "outside@example.com", "system_admin")
		require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("member cannot add", func(t *testing.T) {
		_, err := f.svc.AddMember(ctx, f.as(f.member), f.tenant.TenantID, "admin@example.com", "member")
		require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})

	t.Run("owner cannot be removed", func(t *testing.T) {
		err := f.svc.RemoveMember(ctx, f.adminCaller(), f.tenant.TenantID, f.owner.UserID)
		require.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	})

	t.Run("remove and re-add reactivates", func(t *testing.T) {
		require.NoError(t, f.svc.RemoveMember(ctx, f.as(f.owner), f.tenant.TenantID, f.outside.UserID))

		err := f.svc.RemoveMember(ctx, f.as(f.owner), f.tenant.TenantID, f.outside.UserID)
		require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

		m, err := f.svc.AddMember(ctx, f.as(f.owner), f.tenant.TenantID, "outside@example.com", "owner")
		require.NoError(t, err)
		require.Equal(t, models.RoleOwner, m.Role)
	})
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("list scoped to tenant", func(t *testing.T) {
		users, err := f.svc.ListUsers(ctx, f.as(f.member))
		require.NoError(t, err)
		require.Len(t, users, 2)
	})

	t.Run("list without tenant", func(t *testing.T) {
		users, err := f.svc.ListUsers(ctx, auth.CallerContext{UserID: f.member.UserID})
		require.NoError(t, err)
		require.Empty(t, users)

		users, err = f.svc.ListUsers(ctx, f.adminCaller())
		require.NoError(t, err)
		require.Len(t, users, 4)
	})

	t.Run("get", func(t *testing.T) {
		_, err := f.svc.GetUser(ctx, f.as(f.member), f.owner.UserID)
		require.NoError(t, err)

		_, err = f.svc.GetUser(ctx, f.as(f.member), f.outside.UserID)
		require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

		got, err := f.svc.GetUser(ctx, auth.CallerContext{UserID: f.outside.UserID}, f.outside.UserID)
		require.NoError(t, err)
		require.Equal(t, f.outside.Email, got.Email)
	})

	t.Run("update profile", func(t *testing.T) {
		name := "Mem"
		user, err := f.svc.UpdateProfile(ctx, f.as(f.member), f.member.UserID, ProfileInput{DisplayName: &name})
		require.NoError(t, err)
		require.Equal(t, "Mem", user.FullName())

		_, err = f.svc.UpdateProfile(ctx, f.as(f.member), f.owner.UserID, ProfileInput{DisplayName: &name})
		require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

		inactive := false
		_, err = f.svc.UpdateProfile(ctx, f.as(f.member), f.member.UserID, ProfileInput{IsActive: &inactive})
		require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

		user, err = f.svc.UpdateProfile(ctx, f.adminCaller(), f.member.UserID, ProfileInput{IsActive: &inactive})
		require.NoError(t, err)
		require.False(t, user.IsActive)
	})

	t.Run("delete", func(t *testing.T) {
		err := f.svc.DeleteUser(ctx, f.as(f.owner), f.member.UserID)
		require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

		err = f.svc.DeleteUser(ctx, f.adminCaller(), f.admin.UserID)
		require.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

		require.NoError(t, f.svc.DeleteUser(ctx, f.adminCaller(), f.member.UserID))

		_, err = f.stores.Memberships.GetActive(ctx, f.member.UserID, f.tenant.TenantID)
		require.ErrorIs(t, err, store.ErrMembershipNotFound)

		err = f.svc.DeleteUser(ctx, f.adminCaller(), f.member.UserID)
		require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})
}
