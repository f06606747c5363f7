package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wolfeidau/backoffice/internal/client"
)

type TenantsCmd struct{}

func (t *TenantsCmd) Run(ctx context.Context, globals *Globals) error {
	resp, err := globals.client().Tenants(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	printTenants(globals.Out, resp.Tenants)
	printOnboarding(globals.Out, resp.Onboarding)

	return nil
}

func printTenants(w io.Writer, tenants []client.TenantAccess) {
	if len(tenants) == 0 {
		fmt.Fprintln(w, "No tenants found.")
		return
	}

	fmt.Fprintf(w, "%-36s %-30s %-30s %-12s\n", "Tenant ID", "Name", "Slug", "Role")
	fmt.Fprintln(w, strings.Repeat("─", 111))

	for _, t := range tenants {
		fmt.Fprintf(w, "%-36s %-30s %-30s %-12s\n",
			t.TenantID, truncateString(t.Name, 30), truncateString(t.Slug, 30), t.Role)
	}
}

func printOnboarding(w io.Writer, state client.OnboardingState) {
	if !state.RequiresOnboarding {
		return
	}

	fmt.Fprintf(w, "Onboarding required (step %d of 4", state.OnboardingStep)
	if state.OnboardingTenantID != nil {
		fmt.Fprintf(w, ", tenant %s", state.OnboardingTenantID)
	}
	fmt.Fprintln(w, ")")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
