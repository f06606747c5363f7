package commands

import (
	"context"
	"fmt"
)

var stepNames = []string{
	"not started",
	"tenant created",
	"invitations sent",
	"payment attached",
	"complete",
}

type OnboardingStatusCmd struct{}

func (o *OnboardingStatusCmd) Run(ctx context.Context, globals *Globals) error {
	status, err := globals.client().OnboardingStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get onboarding status: %w", err)
	}

	step := "unknown"
	if status.OnboardingStep >= 0 && status.OnboardingStep < len(stepNames) {
		step = stepNames[status.OnboardingStep]
	}

	fmt.Fprintf(globals.Out, "Step: %d (%s)\n", status.OnboardingStep, step)
	if status.Tenant != nil {
		fmt.Fprintf(globals.Out, "Tenant: %s (%s)\n", status.Tenant.Name, status.Tenant.Slug)
	}
	if status.Subscription != nil {
		fmt.Fprintf(globals.Out, "Plan: %s (%s)\n", status.Subscription.PlanID, status.Subscription.Status)
	}

	return nil
}
