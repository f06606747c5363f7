package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/backoffice/internal/plans"
	"github.com/wolfeidau/backoffice/internal/server"
	"github.com/wolfeidau/backoffice/internal/store/memory"
)

func newGlobals(t *testing.T, userID string) (*Globals, *bytes.Buffer) {
	t.Helper()

	stores := memory.NewStores()
	catalog, err := plans.Default()
	require.NoError(t, err)
	require.NoError(t, plans.Seed(context.Background(), stores.Plans, catalog))

	ts := httptest.NewServer(server.NewServer(stores, server.Config{}).Handler(zerolog.Nop()))
	t.Cleanup(ts.Close)

	var out bytes.Buffer
	return &Globals{
		Client: ClientFlags{Server: ts.URL, UserID: userID, Retries: 1},
		Out:    &out,
	}, &out
}

func TestSyncCmd(t *testing.T) {
	userID := uuid.Must(uuid.NewV7()).String()
	globals, out := newGlobals(t, userID)

	cmd := &SyncCmd{Email: "cli@example.com", FirstName: "Cli"}
	require.NoError(t, cmd.Run(context.Background(), globals))

	assert.Contains(t, out.String(), "Created user "+userID)
	assert.Contains(t, out.String(), "No tenants found.")
	assert.Contains(t, out.String(), "Onboarding required (step 0 of 4)")

	out.Reset()
	require.NoError(t, cmd.Run(context.Background(), globals))
	assert.Contains(t, out.String(), "Updated user "+userID)
}

func TestOnboardingStatusCmd(t *testing.T) {
	globals, out := newGlobals(t, uuid.Must(uuid.NewV7()).String())

	require.NoError(t, (&OnboardingStatusCmd{}).Run(context.Background(), globals))
	assert.Equal(t, "Step: 0 (not started)\n", out.String())
}

func TestInviteCmdRequiresTenant(t *testing.T) {
	globals, _ := newGlobals(t, uuid.Must(uuid.NewV7()).String())

	err := (&InviteCmd{Email: "friend@example.com"}).Run(context.Background(), globals)
	require.ErrorContains(t, err, "a tenant is required")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "a very ...", truncateString("a very long name", 10))
}
