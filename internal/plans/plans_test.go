package plans

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/backoffice/internal/store/memory"
)

func TestDefault(t *testing.T) {
	catalog, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, catalog.Plans)

	ids := make([]string, 0, len(catalog.Plans))
	for _, p := range catalog.Plans {
		ids = append(ids, p.PlanID)
	}
	require.Contains(t, ids, "free")
	require.Contains(t, ids, "legacy")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name: "valid",
			data: "plans:\n  - id: pro\n    name: Pro\n    active: true\n    max_users: 5\n",
		},
		{
			name:    "empty",
			data:    "plans: []\n",
			wantErr: "plan catalog is empty",
		},
		{
			name:    "missing id",
			data:    "plans:\n  - name: Pro\n",
			wantErr: "id is required",
		},
		{
			name:    "missing name",
			data:    "plans:\n  - id: pro\n",
			wantErr: "name is required",
		},
		{
			name:    "duplicate",
			data:    "plans:\n  - id: pro\n    name: Pro\n  - id: pro\n    name: Pro Again\n",
			wantErr: "duplicate id",
		},
		{
			name:    "negative limit",
			data:    "plans:\n  - id: pro\n    name: Pro\n    max_users: -1\n",
			wantErr: "cannot be negative",
		},
		{
			name:    "malformed",
			data:    "plans: {",
			wantErr: "failed to parse plans",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := Parse([]byte(tt.data))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, catalog.Plans, 1)
			require.Equal(t, "pro", catalog.Plans[0].PlanID)
			require.True(t, catalog.Plans[0].IsActive)
			require.Equal(t, 5, catalog.Plans[0].MaxUsers)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plans:\n  - id: team\n    name: Team\n    active: true\n"), 0o600))

	catalog, err := Load(path)
	require.NoError(t, err)
	require.Len(t, catalog.Plans, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "failed to read plans file")

	catalog, err = Load("")
	require.NoError(t, err)
	require.NotEmpty(t, catalog.Plans)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()

	catalog, err := Default()
	require.NoError(t, err)

	require.NoError(t, Seed(ctx, stores.Plans, catalog))
	// seeding is repeatable
	require.NoError(t, Seed(ctx, stores.Plans, catalog))

	listed, err := stores.Plans.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, len(catalog.Plans))

	legacy, err := stores.Plans.Get(ctx, "legacy")
	require.NoError(t, err)
	require.False(t, legacy.IsActive)
}
