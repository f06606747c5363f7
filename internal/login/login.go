// Package login synchronizes users asserted by the identity gateway on every login.
package login

import (
	"context"
	"errors"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/access"
	"github.com/wolfeidau/backoffice/internal/auth"
	"github.com/wolfeidau/backoffice/internal/invitation"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
	"github.com/wolfeidau/backoffice/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Profile is the identity asserted by the gateway for the logged in user.
type Profile struct {
	Email          string
	ExternalAuthID string
	FirstName      string
	LastName       string
}

// Result is the outcome of a login sync.
type Result struct {
	User       *models.User
	Created    bool
	Tenants    []models.TenantAccess
	Onboarding access.OnboardingState
	Reconciled invitation.ReconcileResult
}

// Syncer upserts users on login and reconciles their invitations.
type Syncer struct {
	users      store.UserStore
	reconciler *invitation.Reconciler
	aggregator *access.Aggregator
	now        func() time.Time
}

// NewSyncer creates a Syncer.
func NewSyncer(stores *store.Stores, reconciler *invitation.Reconciler, aggregator *access.Aggregator) *Syncer {
	return &Syncer{
		users:      stores.Users,
		reconciler: reconciler,
		aggregator: aggregator,
		now:        time.Now,
	}
}

// Sync records a login.
//
// The user is found by external auth id, then by email, and created when neither
// matches. Empty name fields are backfilled from the profile. Pending invitations
// for the user's email are then reconciled; reconciliation problems never fail
// the login. The caller's user id, when present, must match the synced user and
// is used as the id of a newly created user.
func (s *Syncer) Sync(ctx context.Context, caller auth.CallerContext, profile Profile) (*Result, error) {
	email, err := invitation.ParseEmail(profile.Email)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	profile.Email = email
	profile.ExternalAuthID = strings.TrimSpace(profile.ExternalAuthID)

	user, created, err := s.upsertUser(ctx, caller, profile)
	if err != nil {
		return nil, err
	}

	result := &Result{User: user, Created: created}
	result.Reconciled = s.reconciler.Reconcile(ctx, user)

	caller.UserID = user.UserID
	result.Tenants, err = s.aggregator.TenantsFor(ctx, caller)
	if err != nil {
		log.Error().Err(err).Msg("Failed to aggregate tenants")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to list tenants"))
	}

	result.Onboarding, err = s.aggregator.Onboarding(ctx, caller, user.Email, result.Tenants)
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute onboarding state")
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to compute onboarding state"))
	}

	telemetry.GetMetrics().LoginsSyncedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("created", created)))

	log.Info().
		Str("user_id", user.UserID.String()).
		Bool("created", created).
		Int("tenants", len(result.Tenants)).
		Bool("requires_onboarding", result.Onboarding.RequiresOnboarding).
		Msg("login synced")

	return result, nil
}

func (s *Syncer) upsertUser(ctx context.Context, caller auth.CallerContext, profile Profile) (*models.User, bool, error) {
	user, err := s.find(ctx, profile)
	if errors.Is(err, store.ErrUserNotFound) {
		user, err = s.create(ctx, caller, profile)
		if err == nil {
			return user, true, nil
		}
		if !errors.Is(err, store.ErrUserAlreadyExists) {
			log.Error().Err(err).Msg("Failed to create user")
			return nil, false, connect.NewError(connect.CodeInternal, errors.New("failed to create user"))
		}
		// A concurrent login created the user first.
		user, err = s.find(ctx, profile)
	}
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, false, connect.NewError(connect.CodeAlreadyExists, errors.New("email or external id belongs to another user"))
		}
		log.Error().Err(err).Msg("Failed to find user")
		return nil, false, connect.NewError(connect.CodeInternal, errors.New("failed to find user"))
	}

	if caller.Authenticated() && caller.UserID != user.UserID {
		return nil, false, connect.NewError(connect.CodePermissionDenied, errors.New("caller does not match the synced profile"))
	}

	if user.ExternalAuthID != nil && profile.ExternalAuthID != "" && *user.ExternalAuthID != profile.ExternalAuthID {
		log.Warn().Str("user_id", user.UserID.String()).Msg("Login rejected for mismatched external id")
		return nil, false, connect.NewError(connect.CodePermissionDenied, errors.New("email is linked to a different identity"))
	}

	if !user.IsActive {
		log.Warn().Str("user_id", user.UserID.String()).Msg("Login rejected for deactivated user")
		return nil, false, connect.NewError(connect.CodePermissionDenied, errors.New("user is deactivated"))
	}

	now := s.now().UTC()
	if user.FirstName == "" {
		user.FirstName = profile.FirstName
	}
	if user.LastName == "" {
		user.LastName = profile.LastName
	}
	if user.ExternalAuthID == nil && profile.ExternalAuthID != "" {
		externalAuthID := profile.ExternalAuthID
		user.ExternalAuthID = &externalAuthID
	}
	user.LastLoginAt = &now
	user.UpdatedAt = now

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			return nil, false, connect.NewError(connect.CodeAlreadyExists, errors.New("external id belongs to another user"))
		}
		log.Error().Err(err).Str("user_id", user.UserID.String()).Msg("Failed to update user")
		return nil, false, connect.NewError(connect.CodeInternal, errors.New("failed to update user"))
	}

	return user, false, nil
}

func (s *Syncer) find(ctx context.Context, profile Profile) (*models.User, error) {
	if profile.ExternalAuthID != "" {
		user, err := s.users.GetByExternalID(ctx, profile.ExternalAuthID)
		if !errors.Is(err, store.ErrUserNotFound) {
			return user, err
		}
	}
	return s.users.GetByEmail(ctx, profile.Email)
}

func (s *Syncer) create(ctx context.Context, caller auth.CallerContext, profile Profile) (*models.User, error) {
	userID := caller.UserID
	if !caller.Authenticated() {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		userID = id
	}

	now := s.now().UTC()
	user := &models.User{
		UserID:      userID,
		Email:       profile.Email,
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
		IsActive:    true,
		LastLoginAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if profile.ExternalAuthID != "" {
		externalAuthID := profile.ExternalAuthID
		user.ExternalAuthID = &externalAuthID
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.UserID.String()).Msg("user created on first login")

	return user, nil
}
