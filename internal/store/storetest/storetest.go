// Package storetest provides acceptance tests shared by every store.Stores
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
)

// Run executes the acceptance suite. newStores must return an empty group of stores.
func Run(t *testing.T, newStores func(t *testing.T) *store.Stores) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStores(t)) })
	t.Run("Tenants", func(t *testing.T) { testTenants(t, newStores(t)) })
	t.Run("Memberships", func(t *testing.T) { testMemberships(t, newStores(t)) })
	t.Run("Invitations", func(t *testing.T) { testInvitations(t, newStores(t)) })
	t.Run("Subscriptions", func(t *testing.T) { testSubscriptions(t, newStores(t)) })
	t.Run("Plans", func(t *testing.T) { testPlans(t, newStores(t)) })
}

func newID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

func strPtr(s string) *string {
	return &s
}

// NewUser builds an active user with the given email.
func NewUser(email string) *models.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.User{
		UserID:    newID(),
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTenant builds an active tenant owned by ownerID.
func NewTenant(name, slug string, ownerID uuid.UUID) *models.Tenant {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Tenant{
		TenantID:    newID(),
		Name:        name,
		Slug:        slug,
		IsActive:    true,
		OwnerUserID: ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewMembership builds a membership granting role to userID in tenantID.
func NewMembership(userID, tenantID uuid.UUID, role models.Role) *models.Membership {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Membership{
		MembershipID: newID(),
		UserID:       userID,
		TenantID:     tenantID,
		Role:         role,
		IsActive:     true,
		GrantedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewInvitation builds a pending invitation created at now.
func NewInvitation(email string, tenantID, invitedBy uuid.UUID, now time.Time) *models.Invitation {
	now = now.UTC().Truncate(time.Microsecond)
	return &models.Invitation{
		InvitationID:    newID(),
		Email:           email,
		TenantID:        tenantID,
		InvitedByUserID: invitedBy,
		Status:          models.InvitationPending,
		ExpiresAt:       now.Add(models.InvitationTTL),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func seedTenant(t *testing.T, stores *store.Stores, slug string) (*models.User, *models.Tenant) {
	t.Helper()
	ctx := context.Background()

	owner := NewUser(slug + "-owner@example.com")
	require.NoError(t, stores.Users.Create(ctx, owner))

	tenant := NewTenant("Tenant "+slug, slug, owner.UserID)
	require.NoError(t, stores.Tenants.CreateWithOwner(ctx, tenant, NewMembership(owner.UserID, tenant.TenantID, models.RoleOwner), nil))

	return owner, tenant
}

func testUsers(t *testing.T, stores *store.Stores) {
	ctx := context.Background()
	users := stores.Users

	alice := NewUser("Alice@Example.com")
	alice.ExternalAuthID = strPtr("ext-alice")
	require.NoError(t, users.Create(ctx, alice))

	t.Run("get by id", func(t *testing.T) {
		got, err := users.Get(ctx, alice.UserID)
		require.NoError(t, err)
		require.Equal(t, alice.Email, got.Email)
		require.Equal(t, "ext-alice", *got.ExternalAuthID)
		require.True(t, got.IsActive)
	})

	t.Run("get by email ignores case", func(t *testing.T) {
		got, err := users.GetByEmail(ctx, "alice@example.COM")
		require.NoError(t, err)
		require.Equal(t, alice.UserID, got.UserID)
	})

	t.Run("get by external id", func(t *testing.T) {
		got, err := users.GetByExternalID(ctx, "ext-alice")
		require.NoError(t, err)
		require.Equal(t, alice.UserID, got.UserID)

		_, err = users.GetByExternalID(ctx, "ext-nobody")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := users.Get(ctx, newID())
		require.ErrorIs(t, err, store.ErrUserNotFound)

		_, err = users.GetByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := users.Create(ctx, NewUser("alice@example.com"))
		require.ErrorIs(t, err, store.ErrUserAlreadyExists)
	})

	t.Run("duplicate external id", func(t *testing.T) {
		dup := NewUser("other@example.com")
		dup.ExternalAuthID = strPtr("ext-alice")
		require.ErrorIs(t, users.Create(ctx, dup), store.ErrUserAlreadyExists)
	})

	t.Run("update", func(t *testing.T) {
		got, err := users.Get(ctx, alice.UserID)
		require.NoError(t, err)

		now := time.Now().UTC()
		got.DisplayName = "Ali"
		got.LastLoginAt = &now
		require.NoError(t, users.Update(ctx, got))

		updated, err := users.Get(ctx, alice.UserID)
		require.NoError(t, err)
		require.Equal(t, "Ali", updated.DisplayName)
		require.NotNil(t, updated.LastLoginAt)
		require.WithinDuration(t, now, *updated.LastLoginAt, time.Millisecond)
	})

	t.Run("update missing user", func(t *testing.T) {
		require.ErrorIs(t, users.Update(ctx, NewUser("ghost@example.com")), store.ErrUserNotFound)
	})

	t.Run("list filtered by tenant", func(t *testing.T) {
		owner, tenant := seedTenant(t, stores, "user-list")

		all, err := users.List(ctx, store.ListUsersOptions{})
		require.NoError(t, err)
		require.Len(t, all, 2)

		members, err := users.List(ctx, store.ListUsersOptions{TenantID: &tenant.TenantID})
		require.NoError(t, err)
		require.Len(t, members, 1)
		require.Equal(t, owner.UserID, members[0].UserID)
	})

	t.Run("delete removes memberships", func(t *testing.T) {
		owner, tenant := seedTenant(t, stores, "user-delete")
		member := NewUser("member-delete@example.com")
		require.NoError(t, users.Create(ctx, member))
		_, err := stores.Memberships.Upsert(ctx, NewMembership(member.UserID, tenant.TenantID, models.RoleMember))
		require.NoError(t, err)

		require.NoError(t, users.Delete(ctx, member.UserID))

		_, err = users.Get(ctx, member.UserID)
		require.ErrorIs(t, err, store.ErrUserNotFound)

		_, err = stores.Memberships.GetActive(ctx, member.UserID, tenant.TenantID)
		require.ErrorIs(t, err, store.ErrMembershipNotFound)

		_, err = stores.Memberships.GetActive(ctx, owner.UserID, tenant.TenantID)
		require.NoError(t, err)

		require.ErrorIs(t, users.Delete(ctx, member.UserID), store.ErrUserNotFound)
	})
}

func testTenants(t *testing.T, stores *store.Stores) {
	ctx := context.Background()
	tenants := stores.Tenants

	owner := NewUser("owner@example.com")
	require.NoError(t, stores.Users.Create(ctx, owner))

	acme := NewTenant("Acme", "acme", owner.UserID)
	require.NoError(t, tenants.CreateWithOwner(ctx, acme, NewMembership(owner.UserID, acme.TenantID, models.RoleOwner), nil))

	t.Run("create with owner writes membership", func(t *testing.T) {
		got, err := tenants.Get(ctx, acme.TenantID)
		require.NoError(t, err)
		require.Equal(t, "Acme", got.Name)
		require.Equal(t, owner.UserID, got.OwnerUserID)

		m, err := stores.Memberships.GetActive(ctx, owner.UserID, acme.TenantID)
		require.NoError(t, err)
		require.Equal(t, models.RoleOwner, m.Role)
	})

	t.Run("get by slug", func(t *testing.T) {
		got, err := tenants.GetBySlug(ctx, "acme")
		require.NoError(t, err)
		require.Equal(t, acme.TenantID, got.TenantID)

		_, err = tenants.GetBySlug(ctx, "nope")
		require.ErrorIs(t, err, store.ErrTenantNotFound)
	})

	t.Run("slug exists", func(t *testing.T) {
		exists, err := tenants.SlugExists(ctx, "acme", uuid.Nil)
		require.NoError(t, err)
		require.True(t, exists)

		exists, err = tenants.SlugExists(ctx, "acme", acme.TenantID)
		require.NoError(t, err)
		require.False(t, exists)

		exists, err = tenants.SlugExists(ctx, "acme-1", uuid.Nil)
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("duplicate slug rejected", func(t *testing.T) {
		dup := NewTenant("Acme Two", "acme", owner.UserID)
		require.ErrorIs(t, tenants.Create(ctx, dup), store.ErrSlugTaken)

		dup2 := NewTenant("Acme Three", "acme", owner.UserID)
		err := tenants.CreateWithOwner(ctx, dup2, NewMembership(owner.UserID, dup2.TenantID, models.RoleOwner), nil)
		require.ErrorIs(t, err, store.ErrSlugTaken)

		_, err = tenants.Get(ctx, dup2.TenantID)
		require.ErrorIs(t, err, store.ErrTenantNotFound)
	})

	t.Run("update slug collision", func(t *testing.T) {
		other := NewTenant("Other", "other", owner.UserID)
		require.NoError(t, tenants.Create(ctx, other))

		other.Slug = "acme"
		require.ErrorIs(t, tenants.Update(ctx, other), store.ErrSlugTaken)
	})

	t.Run("update missing tenant", func(t *testing.T) {
		require.ErrorIs(t, tenants.Update(ctx, NewTenant("Ghost", "ghost", owner.UserID)), store.ErrTenantNotFound)
	})

	t.Run("update with subscription", func(t *testing.T) {
		got, err := tenants.Get(ctx, acme.TenantID)
		require.NoError(t, err)

		got.AdvanceOnboarding(models.OnboardingPaymentAttached)
		sub := &models.Subscription{
			TenantID:         acme.TenantID,
			PlanID:           "starter",
			Status:           models.SubscriptionPending,
			PaymentMethodRef: "pm_123",
			BillingEmail:     "billing@acme.test",
			CreatedAt:        time.Now().UTC(),
		}
		require.NoError(t, tenants.UpdateWithSubscription(ctx, got, sub))

		updated, err := tenants.Get(ctx, acme.TenantID)
		require.NoError(t, err)
		require.Equal(t, models.OnboardingPaymentAttached, updated.OnboardingStep)

		storedSub, err := stores.Subscriptions.GetByTenant(ctx, acme.TenantID)
		require.NoError(t, err)
		require.Equal(t, "pm_123", storedSub.PaymentMethodRef)
	})

	t.Run("find in progress onboarding", func(t *testing.T) {
		got, err := tenants.FindInProgressOnboarding(ctx, owner.UserID)
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, got.TenantID)
		require.False(t, got.OnboardingCompleted)

		_, err = tenants.FindInProgressOnboarding(ctx, newID())
		require.ErrorIs(t, err, store.ErrTenantNotFound)
	})

	t.Run("completed tenants are not in progress", func(t *testing.T) {
		solo := NewUser("solo@example.com")
		require.NoError(t, stores.Users.Create(ctx, solo))

		done := NewTenant("Done", "done", solo.UserID)
		done.AdvanceOnboarding(models.OnboardingComplete)
		require.NoError(t, tenants.CreateWithOwner(ctx, done, NewMembership(solo.UserID, done.TenantID, models.RoleOwner), nil))

		_, err := tenants.FindInProgressOnboarding(ctx, solo.UserID)
		require.ErrorIs(t, err, store.ErrTenantNotFound)
	})

	t.Run("list excludes inactive by default", func(t *testing.T) {
		inactive := NewTenant("Zeta", "zeta", owner.UserID)
		inactive.IsActive = false
		require.NoError(t, tenants.Create(ctx, inactive))

		active, err := tenants.List(ctx, store.ListTenantsOptions{})
		require.NoError(t, err)
		for i, tenant := range active {
			require.True(t, tenant.IsActive)
			if i > 0 {
				require.LessOrEqual(t, active[i-1].Name, tenant.Name)
			}
		}

		all, err := tenants.List(ctx, store.ListTenantsOptions{IncludeInactive: true})
		require.NoError(t, err)
		require.Len(t, all, len(active)+1)
	})

	t.Run("delete cascades", func(t *testing.T) {
		_, tenant := seedTenant(t, stores, "doomed")
		inv := NewInvitation("guest@example.com", tenant.TenantID, tenant.OwnerUserID, time.Now())
		require.NoError(t, stores.Invitations.CreatePending(ctx, inv, time.Now()))

		require.NoError(t, tenants.Delete(ctx, tenant.TenantID))

		_, err := tenants.Get(ctx, tenant.TenantID)
		require.ErrorIs(t, err, store.ErrTenantNotFound)

		_, err = stores.Memberships.GetActive(ctx, tenant.OwnerUserID, tenant.TenantID)
		require.ErrorIs(t, err, store.ErrMembershipNotFound)

		_, err = stores.Invitations.Get(ctx, inv.InvitationID)
		require.ErrorIs(t, err, store.ErrInvitationNotFound)

		require.ErrorIs(t, tenants.Delete(ctx, tenant.TenantID), store.ErrTenantNotFound)
	})
}

func testMemberships(t *testing.T, stores *store.Stores) {
	ctx := context.Background()
	memberships := stores.Memberships

	owner, tenant := seedTenant(t, stores, "members")
	bob := NewUser("bob@example.com")
	require.NoError(t, stores.Users.Create(ctx, bob))

	t.Run("upsert inserts", func(t *testing.T) {
		m := NewMembership(bob.UserID, tenant.TenantID, models.RoleMember)
		m.GrantedBy = &owner.UserID

		activated, err := memberships.Upsert(ctx, m)
		require.NoError(t, err)
		require.True(t, activated)

		got, err := memberships.GetActive(ctx, bob.UserID, tenant.TenantID)
		require.NoError(t, err)
		require.Equal(t, models.RoleMember, got.Role)
		require.Equal(t, owner.UserID, *got.GrantedBy)
	})

	t.Run("upsert of active membership is a no-op", func(t *testing.T) {
		before, err := memberships.GetActive(ctx, bob.UserID, tenant.TenantID)
		require.NoError(t, err)

		m := NewMembership(bob.UserID, tenant.TenantID, models.RoleOwner)
		activated, err := memberships.Upsert(ctx, m)
		require.NoError(t, err)
		require.False(t, activated)
		require.Equal(t, before.MembershipID, m.MembershipID)
		require.Equal(t, models.RoleMember, m.Role)
	})

	t.Run("list by tenant", func(t *testing.T) {
		list, err := memberships.ListByTenant(ctx, tenant.TenantID)
		require.NoError(t, err)
		require.Len(t, list, 2)
	})

	t.Run("revoke and reactivate", func(t *testing.T) {
		original, err := memberships.GetActive(ctx, bob.UserID, tenant.TenantID)
		require.NoError(t, err)

		require.NoError(t, memberships.Revoke(ctx, bob.UserID, tenant.TenantID, owner.UserID, time.Now()))

		_, err = memberships.GetActive(ctx, bob.UserID, tenant.TenantID)
		require.ErrorIs(t, err, store.ErrMembershipNotFound)

		require.ErrorIs(t, memberships.Revoke(ctx, bob.UserID, tenant.TenantID, owner.UserID, time.Now()), store.ErrMembershipNotFound)

		activated, err := memberships.Upsert(ctx, NewMembership(bob.UserID, tenant.TenantID, models.RoleMember))
		require.NoError(t, err)
		require.True(t, activated)

		got, err := memberships.GetActive(ctx, bob.UserID, tenant.TenantID)
		require.NoError(t, err)
		require.Equal(t, original.MembershipID, got.MembershipID)
		require.Nil(t, got.RevokedAt)
	})

	t.Run("upsert requires user and tenant", func(t *testing.T) {
		_, err := memberships.Upsert(ctx, NewMembership(bob.UserID, newID(), models.RoleMember))
		require.ErrorIs(t, err, store.ErrTenantNotFound)

		_, err = memberships.Upsert(ctx, NewMembership(newID(), tenant.TenantID, models.RoleMember))
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("tenants for user", func(t *testing.T) {
		alpha := NewTenant("Alpha", "alpha", owner.UserID)
		require.NoError(t, stores.Tenants.Create(ctx, alpha))
		_, err := memberships.Upsert(ctx, NewMembership(bob.UserID, alpha.TenantID, models.RoleOwner))
		require.NoError(t, err)

		hidden := NewTenant("Hidden", "hidden", owner.UserID)
		hidden.IsActive = false
		require.NoError(t, stores.Tenants.Create(ctx, hidden))
		_, err = memberships.Upsert(ctx, NewMembership(bob.UserID, hidden.TenantID, models.RoleMember))
		require.NoError(t, err)

		access, err := memberships.ListTenantsForUser(ctx, bob.UserID)
		require.NoError(t, err)
		require.Len(t, access, 2)
		require.Equal(t, "Alpha", access[0].Name)
		require.Equal(t, models.RoleOwner, access[0].Role)
		require.Equal(t, tenant.TenantID, access[1].TenantID)
		require.Equal(t, models.RoleMember, access[1].Role)

		none, err := memberships.ListTenantsForUser(ctx, newID())
		require.NoError(t, err)
		require.Empty(t, none)
	})
}

func testInvitations(t *testing.T, stores *store.Stores) {
	ctx := context.Background()
	invitations := stores.Invitations

	owner, tenant := seedTenant(t, stores, "invites")
	_, other := seedTenant(t, stores, "invites-other")
	now := time.Now().UTC()

	first := NewInvitation("Carol@Example.com", tenant.TenantID, owner.UserID, now.Add(-2*time.Hour))
	require.NoError(t, invitations.CreatePending(ctx, first, now))

	t.Run("email is normalized", func(t *testing.T) {
		got, err := invitations.Get(ctx, first.InvitationID)
		require.NoError(t, err)
		require.Equal(t, "carol@example.com", got.Email)
		require.Equal(t, models.InvitationPending, got.Status)
	})

	t.Run("duplicate pending invitation rejected", func(t *testing.T) {
		dup := NewInvitation("carol@example.com", tenant.TenantID, owner.UserID, now)
		require.ErrorIs(t, invitations.CreatePending(ctx, dup, now), store.ErrInvitationAlreadyExists)
	})

	t.Run("same email in another tenant is allowed", func(t *testing.T) {
		inv := NewInvitation("carol@example.com", other.TenantID, other.OwnerUserID, now.Add(-time.Hour))
		require.NoError(t, invitations.CreatePending(ctx, inv, now))
	})

	t.Run("pending for email oldest first", func(t *testing.T) {
		list, err := invitations.ListPendingForEmail(ctx, "CAROL@example.com", now)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, first.InvitationID, list[0].InvitationID)
		require.Equal(t, other.TenantID, list[1].TenantID)
	})

	t.Run("expired invitations are not pending", func(t *testing.T) {
		later := now.Add(models.InvitationTTL + time.Hour)
		list, err := invitations.ListPendingForEmail(ctx, "carol@example.com", later)
		require.NoError(t, err)
		require.Empty(t, list)

		reinvite := NewInvitation("carol@example.com", tenant.TenantID, owner.UserID, later)
		require.NoError(t, invitations.CreatePending(ctx, reinvite, later))
	})

	t.Run("list by tenant with status filter", func(t *testing.T) {
		all, err := invitations.ListByTenant(ctx, tenant.TenantID, store.ListInvitationsOptions{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		require.True(t, !all[0].CreatedAt.Before(all[1].CreatedAt))

		accepted, err := invitations.ListByTenant(ctx, tenant.TenantID, store.ListInvitationsOptions{Status: models.InvitationAccepted})
		require.NoError(t, err)
		require.Empty(t, accepted)

		everything, err := invitations.ListAll(ctx, store.ListInvitationsOptions{Status: models.InvitationPending})
		require.NoError(t, err)
		require.Len(t, everything, 3)
	})

	t.Run("accept is idempotent", func(t *testing.T) {
		carol := NewUser("carol@example.com")
		require.NoError(t, stores.Users.Create(ctx, carol))

		require.NoError(t, invitations.Accept(ctx, first.InvitationID, carol.UserID, now))
		require.NoError(t, invitations.Accept(ctx, first.InvitationID, carol.UserID, now.Add(time.Minute)))

		got, err := invitations.Get(ctx, first.InvitationID)
		require.NoError(t, err)
		require.Equal(t, models.InvitationAccepted, got.Status)
		require.Equal(t, carol.UserID, *got.AcceptedByUserID)
		require.WithinDuration(t, now, *got.AcceptedAt, time.Millisecond)

		require.ErrorIs(t, invitations.Revoke(ctx, first.InvitationID, now), store.ErrInvitationNotPending)
	})

	t.Run("revoke", func(t *testing.T) {
		inv := NewInvitation("dave@example.com", tenant.TenantID, owner.UserID, now)
		require.NoError(t, invitations.CreatePending(ctx, inv, now))

		require.NoError(t, invitations.Revoke(ctx, inv.InvitationID, now))
		require.ErrorIs(t, invitations.Revoke(ctx, inv.InvitationID, now), store.ErrInvitationNotPending)
		require.ErrorIs(t, invitations.Accept(ctx, inv.InvitationID, owner.UserID, now), store.ErrInvitationNotPending)

		pending, err := invitations.ListPendingForEmail(ctx, "dave@example.com", now)
		require.NoError(t, err)
		require.Empty(t, pending)
	})

	t.Run("missing invitation", func(t *testing.T) {
		_, err := invitations.Get(ctx, newID())
		require.ErrorIs(t, err, store.ErrInvitationNotFound)
		require.ErrorIs(t, invitations.Accept(ctx, newID(), owner.UserID, now), store.ErrInvitationNotFound)
		require.ErrorIs(t, invitations.Revoke(ctx, newID(), now), store.ErrInvitationNotFound)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		inv := NewInvitation("erin@example.com", newID(), owner.UserID, now)
		require.ErrorIs(t, invitations.CreatePending(ctx, inv, now), store.ErrTenantNotFound)
	})
}

func testSubscriptions(t *testing.T, stores *store.Stores) {
	ctx := context.Background()
	subs := stores.Subscriptions

	_, tenant := seedTenant(t, stores, "subs")

	_, err := subs.GetByTenant(ctx, tenant.TenantID)
	require.ErrorIs(t, err, store.ErrSubscriptionNotFound)

	sub := &models.Subscription{
		TenantID:  tenant.TenantID,
		PlanID:    "starter",
		Status:    models.SubscriptionPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, subs.Upsert(ctx, sub))

	start := time.Now().UTC().Truncate(time.Second)
	end := start.AddDate(0, 1, 0)
	sub.Status = models.SubscriptionActive
	sub.CurrentPeriodStart = &start
	sub.CurrentPeriodEnd = &end
	require.NoError(t, subs.Upsert(ctx, sub))

	got, err := subs.GetByTenant(ctx, tenant.TenantID)
	require.NoError(t, err)
	require.Equal(t, models.SubscriptionActive, got.Status)
	require.WithinDuration(t, end, *got.CurrentPeriodEnd, time.Millisecond)

	orphan := &models.Subscription{TenantID: newID(), PlanID: "starter", Status: models.SubscriptionPending}
	require.ErrorIs(t, subs.Upsert(ctx, orphan), store.ErrTenantNotFound)
}

func testPlans(t *testing.T, stores *store.Stores) {
	ctx := context.Background()
	plans := stores.Plans

	_, err := plans.Get(ctx, "starter")
	require.ErrorIs(t, err, store.ErrPlanNotFound)

	require.NoError(t, plans.Upsert(ctx, &models.Plan{PlanID: "team", Name: "Team", IsActive: true, MaxUsers: 25}))
	require.NoError(t, plans.Upsert(ctx, &models.Plan{PlanID: "starter", Name: "Starter", IsActive: true, MaxUsers: 5}))
	require.NoError(t, plans.Upsert(ctx, &models.Plan{PlanID: "starter", Name: "Starter v2", IsActive: true, MaxUsers: 10}))

	got, err := plans.Get(ctx, "starter")
	require.NoError(t, err)
	require.Equal(t, "Starter v2", got.Name)
	require.Equal(t, 10, got.MaxUsers)

	list, err := plans.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "starter", list[0].PlanID)
	require.Equal(t, "team", list[1].PlanID)
}
