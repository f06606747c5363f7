package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/backoffice"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Login metrics
	LoginsSyncedTotal metric.Int64Counter

	// Invitation metrics
	InvitationsCreatedTotal       metric.Int64Counter
	InvitationsReconciledTotal    metric.Int64Counter
	InvitationReconcileErrorTotal metric.Int64Counter

	// Tenant and onboarding metrics
	TenantsCreatedTotal        metric.Int64Counter
	OnboardingTransitionsTotal metric.Int64Counter
	SlugConflictsTotal         metric.Int64Counter

	// Authorization metrics
	AuthorizationDenialsTotal metric.Int64Counter

	// HTTP metrics
	RequestDuration metric.Float64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.LoginsSyncedTotal, _ = meter.Int64Counter(
		"backoffice.logins.synced.total",
		metric.WithDescription("Total number of login syncs"),
		metric.WithUnit("{login}"),
	)

	m.InvitationsCreatedTotal, _ = meter.Int64Counter(
		"backoffice.invitations.created.total",
		metric.WithDescription("Total number of invitations created"),
		metric.WithUnit("{invitation}"),
	)

	m.InvitationsReconciledTotal, _ = meter.Int64Counter(
		"backoffice.invitations.reconciled.total",
		metric.WithDescription("Total number of invitations accepted during login reconciliation"),
		metric.WithUnit("{invitation}"),
	)

	m.InvitationReconcileErrorTotal, _ = meter.Int64Counter(
		"backoffice.invitations.reconcile.errors.total",
		metric.WithDescription("Total number of invitations that failed to reconcile"),
		metric.WithUnit("{error}"),
	)

	m.TenantsCreatedTotal, _ = meter.Int64Counter(
		"backoffice.tenants.created.total",
		metric.WithDescription("Total number of tenants created"),
		metric.WithUnit("{tenant}"),
	)

	m.OnboardingTransitionsTotal, _ = meter.Int64Counter(
		"backoffice.onboarding.transitions.total",
		metric.WithDescription("Total number of onboarding step transitions"),
		metric.WithUnit("{transition}"),
	)

	m.SlugConflictsTotal, _ = meter.Int64Counter(
		"backoffice.tenants.slug_conflicts.total",
		metric.WithDescription("Total number of slug claims lost to a concurrent writer"),
		metric.WithUnit("{conflict}"),
	)

	m.AuthorizationDenialsTotal, _ = meter.Int64Counter(
		"backoffice.authz.denials.total",
		metric.WithDescription("Total number of denied management requests"),
		metric.WithUnit("{denial}"),
	)

	m.RequestDuration, _ = meter.Float64Histogram(
		"backoffice.http.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("ms"),
	)

	return m
}
