package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
	"github.com/wolfeidau/backoffice/internal/store/storetest"
)

func TestMemoryStores(t *testing.T) {
	storetest.Run(t, func(t *testing.T) *store.Stores {
		return NewStores()
	})
}

func TestMemoryStores_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()

	user := storetest.NewUser("copy@example.com")
	require.NoError(t, stores.Users.Create(ctx, user))

	user.FirstName = "Mutated"

	got, err := stores.Users.Get(ctx, user.UserID)
	require.NoError(t, err)
	require.Equal(t, "Test", got.FirstName)

	got.FirstName = "Again"
	again, err := stores.Users.Get(ctx, user.UserID)
	require.NoError(t, err)
	require.Equal(t, "Test", again.FirstName)
}

func TestMemoryStores_CreateWithOwnerIsAtomic(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()

	tenant := storetest.NewTenant("Orphan", "orphan", storetest.NewUser("ghost@example.com").UserID)
	owner := storetest.NewMembership(tenant.OwnerUserID, tenant.TenantID, models.RoleOwner)

	err := stores.Tenants.CreateWithOwner(ctx, tenant, owner, nil)
	require.ErrorIs(t, err, store.ErrUserNotFound)

	_, err = stores.Tenants.Get(ctx, tenant.TenantID)
	require.ErrorIs(t, err, store.ErrTenantNotFound)
}
