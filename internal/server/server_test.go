package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/backoffice/internal/auth"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/plans"
	"github.com/wolfeidau/backoffice/internal/store"
	"github.com/wolfeidau/backoffice/internal/store/memory"
	"github.com/wolfeidau/backoffice/internal/store/storetest"
)

type testServer struct {
	*httptest.Server
	stores *store.Stores
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	stores := memory.NewStores()
	catalog, err := plans.Default()
	require.NoError(t, err)
	require.NoError(t, plans.Seed(context.Background(), stores.Plans, catalog))

	srv := NewServer(stores, Config{CORSOrigins: []string{"https://app.example.com"}})
	ts := httptest.NewServer(srv.Handler(zerolog.Nop()))
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, stores: stores}
}

// caller identifies the requesting user through gateway headers.
type caller struct {
	userID   uuid.UUID
	admin    bool
	tenantID uuid.UUID
}

func (ts *testServer) do(t *testing.T, c caller, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+"/api/v1"+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.userID != uuid.Nil {
		req.Header.Set(auth.HeaderUserID, c.userID.String())
	}
	if c.admin {
		req.Header.Set(auth.HeaderSystemAdmin, "true")
	}
	if c.tenantID != uuid.Nil {
		req.Header.Set(auth.HeaderTenantID, c.tenantID.String())
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func requireError(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	body := decodeBody[errorResponse](t, resp)
	require.Equal(t, code, body.Code)
	require.NotEmpty(t, body.Error)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestOnboardingFlow(t *testing.T) {
	ts := newTestServer(t)
	owner := caller{userID: uuid.Must(uuid.NewV7())}

	resp := ts.do(t, owner, http.MethodPost, "/auth/sync", syncRequest{
		Email:          "Owner@Example.com",
		ExternalAuthID: "idp|owner",
		FirstName:      "Olive",
		LastName:       "Owner",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	synced := decodeBody[syncResponse](t, resp)
	require.True(t, synced.Created)
	require.Equal(t, owner.userID, synced.User.UserID)
	require.Equal(t, "owner@example.com", synced.User.Email)
	require.Empty(t, synced.Tenants)
	require.True(t, synced.Onboarding.RequiresOnboarding)
	require.Equal(t, 0, synced.Onboarding.OnboardingStep)

	resp = ts.do(t, owner, http.MethodPost, "/onboarding/tenant", onboardingTenantRequest{Name: "Acme Widgets", PlanID: "starter"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[onboardingTenantResponse](t, resp)
	require.True(t, created.Created)
	require.Equal(t, "acme-widgets", created.Tenant.Slug)
	require.Equal(t, models.OnboardingTenantCreated, created.OnboardingStep)
	require.NotNil(t, created.Subscription)
	require.Equal(t, "pending", created.Subscription.Status)

	tenantID := created.Tenant.TenantID

	// resuming the step updates the same tenant
	resp = ts.do(t, owner, http.MethodPost, "/onboarding/tenant", onboardingTenantRequest{Name: "Acme Corp", PlanID: "business"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[onboardingTenantResponse](t, resp)
	require.False(t, updated.Created)
	require.Equal(t, tenantID, updated.Tenant.TenantID)
	require.Equal(t, "acme-corp", updated.Tenant.Slug)
	require.Equal(t, "business", updated.Subscription.PlanID)

	resp = ts.do(t, owner, http.MethodGet, "/me/tenants", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mine := decodeBody[tenantsResponse](t, resp)
	require.True(t, mine.Onboarding.RequiresOnboarding)
	require.Equal(t, models.OnboardingTenantCreated, mine.Onboarding.OnboardingStep)
	require.Equal(t, tenantID, *mine.Onboarding.OnboardingTenantID)

	resp = ts.do(t, owner, http.MethodPost, "/onboarding/invitations", onboardingInvitationsRequest{
		TenantID: &tenantID,
		Emails:   []string{"teammate@example.com", "owner@example.com", "not-an-email"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	invited := decodeBody[invitationsResultResponse](t, resp)
	require.Len(t, invited.Created, 1)
	require.Len(t, invited.Failed, 2)
	require.Equal(t, models.OnboardingInvitesSent, invited.OnboardingStep)

	resp = ts.do(t, owner, http.MethodPost, "/onboarding/complete", nil)
	requireError(t, resp, http.StatusBadRequest, "bad_request")

	resp = ts.do(t, caller{userID: owner.userID, tenantID: tenantID}, http.MethodPost, "/onboarding/complete", nil)
	requireError(t, resp, http.StatusPreconditionFailed, "precondition_failed")

	resp = ts.do(t, owner, http.MethodPost, "/onboarding/payment", onboardingPaymentRequest{
		TenantID:         &tenantID,
		PaymentMethodRef: "pm_123",
		BillingEmail:     "billing@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sub := decodeBody[subscriptionResponse](t, resp)
	require.Equal(t, "active", sub.Status)
	require.True(t, sub.HasPaymentMethod)

	resp = ts.do(t, caller{userID: owner.userID, tenantID: tenantID}, http.MethodPost, "/onboarding/complete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	completed := decodeBody[tenantResponse](t, resp)
	require.True(t, completed.OnboardingCompleted)
	require.Equal(t, models.OnboardingComplete, completed.OnboardingStep)

	resp = ts.do(t, owner, http.MethodGet, "/me/tenants", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mine = decodeBody[tenantsResponse](t, resp)
	require.False(t, mine.Onboarding.RequiresOnboarding)
	require.Len(t, mine.Tenants, 1)
	require.Equal(t, "owner", mine.Tenants[0].Role)

	// the teammate joins through their invitation on first login
	teammate := caller{userID: uuid.Must(uuid.NewV7())}
	resp = ts.do(t, teammate, http.MethodPost, "/auth/sync", syncRequest{Email: "teammate@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	joined := decodeBody[syncResponse](t, resp)
	require.Equal(t, 1, joined.InvitationsAccepted)
	require.False(t, joined.Onboarding.RequiresOnboarding)
	require.Len(t, joined.Tenants, 1)
	require.Equal(t, tenantID, joined.Tenants[0].TenantID)
	require.Equal(t, "member", joined.Tenants[0].Role)

	resp = ts.do(t, caller{userID: owner.userID, tenantID: tenantID}, http.MethodGet, "/tenants/"+tenantID.String()+"/members", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	members := decodeBody[map[string][]memberResponse](t, resp)
	require.Len(t, members["members"], 2)
}

func TestSystemAdminTenants(t *testing.T) {
	ts := newTestServer(t)

	admin := storetest.NewUser("admin@example.com")
	require.NoError(t, ts.stores.Users.Create(context.Background(), admin))
	adminCaller := caller{userID: admin.UserID, admin: true}

	resp := ts.do(t, adminCaller, http.MethodPost, "/tenants", createTenantRequest{Name: "Globex"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	globex := decodeBody[tenantResponse](t, resp)
	require.Equal(t, "globex", globex.Slug)
	require.True(t, globex.OnboardingCompleted)

	resp = ts.do(t, adminCaller, http.MethodPost, "/tenants", createTenantRequest{Name: "Other", Slug: "globex"})
	requireError(t, resp, http.StatusConflict, "conflict")

	resp = ts.do(t, adminCaller, http.MethodGet, "/me/tenants", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mine := decodeBody[tenantsResponse](t, resp)
	require.NotEmpty(t, mine.Tenants)
	require.Equal(t, uuid.Nil, mine.Tenants[0].TenantID)
	require.Equal(t, "system_admin", mine.Tenants[0].Role)
	require.False(t, mine.Onboarding.RequiresOnboarding)

	resp = ts.do(t, adminCaller, http.MethodDelete, "/tenants/"+globex.TenantID.String(), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, adminCaller, http.MethodGet, "/tenants", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decodeBody[map[string][]tenantResponse](t, resp)
	require.Len(t, listed["tenants"], 1)
	require.False(t, listed["tenants"][0].IsActive)
}

func TestAccessErrors(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	owner := storetest.NewUser("owner@example.com")
	member := storetest.NewUser("member@example.com")
	require.NoError(t, ts.stores.Users.Create(ctx, owner))
	require.NoError(t, ts.stores.Users.Create(ctx, member))

	tenant := storetest.NewTenant("Acme", "acme", owner.UserID)
	tenant.AdvanceOnboarding(models.OnboardingComplete)
	require.NoError(t, ts.stores.Tenants.CreateWithOwner(ctx, tenant,
		storetest.NewMembership(owner.UserID, tenant.TenantID, models.RoleOwner), nil))
	_, err := ts.stores.Memberships.Upsert(ctx, storetest.NewMembership(member.UserID, tenant.TenantID, models.RoleMember))
	require.NoError(t, err)

	memberCaller := caller{userID: member.UserID, tenantID: tenant.TenantID}

	t.Run("member cannot rename tenant", func(t *testing.T) {
		name := "Hijacked"
		resp := ts.do(t, memberCaller, http.MethodPatch, "/tenants/"+tenant.TenantID.String(), updateTenantRequest{Name: &name})
		requireError(t, resp, http.StatusForbidden, "forbidden")
	})

	t.Run("member cannot invite", func(t *testing.T) {
		resp := ts.do(t, memberCaller, http.MethodPost, "/invitations", createInvitationRequest{Email: "new@example.com"})
		requireError(t, resp, http.StatusForbidden, "forbidden")
	})

	t.Run("owner invites", func(t *testing.T) {
		oc := caller{userID: owner.UserID, tenantID: tenant.TenantID}
		resp := ts.do(t, oc, http.MethodPost, "/invitations", createInvitationRequest{Email: "new@example.com"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		inv := decodeBody[invitationResponse](t, resp)
		require.Equal(t, "pending", inv.Status)

		resp = ts.do(t, oc, http.MethodPost, "/invitations", createInvitationRequest{Email: "NEW@example.com"})
		requireError(t, resp, http.StatusConflict, "conflict")

		resp = ts.do(t, oc, http.MethodGet, "/invitations?status=pending", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		listed := decodeBody[map[string][]invitationResponse](t, resp)
		require.Len(t, listed["invitations"], 1)

		resp = ts.do(t, oc, http.MethodDelete, "/invitations/"+inv.InvitationID.String(), nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = ts.do(t, oc, http.MethodDelete, "/invitations/"+inv.InvitationID.String(), nil)
		requireError(t, resp, http.StatusPreconditionFailed, "precondition_failed")
	})

	t.Run("outsider sees not found", func(t *testing.T) {
		outsider := caller{userID: uuid.Must(uuid.NewV7())}
		resp := ts.do(t, outsider, http.MethodGet, "/tenants/"+tenant.TenantID.String(), nil)
		requireError(t, resp, http.StatusNotFound, "not_found")
	})

	t.Run("anonymous is unauthenticated", func(t *testing.T) {
		resp := ts.do(t, caller{}, http.MethodGet, "/onboarding/status", nil)
		requireError(t, resp, http.StatusUnauthorized, "unauthenticated")
	})

	t.Run("malformed tenant header", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/me/tenants", nil)
		require.NoError(t, err)
		req.Header.Set(auth.HeaderUserID, member.UserID.String())
		req.Header.Set(auth.HeaderTenantID, "not-a-uuid")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		requireError(t, resp, http.StatusUnauthorized, "unauthenticated")
	})

	t.Run("bad path id", func(t *testing.T) {
		resp := ts.do(t, memberCaller, http.MethodGet, "/tenants/nope", nil)
		requireError(t, resp, http.StatusBadRequest, "bad_request")
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		resp := ts.do(t, memberCaller, http.MethodPost, "/onboarding/tenant", map[string]string{"name": "x", "colour": "red"})
		requireError(t, resp, http.StatusBadRequest, "bad_request")
	})

	t.Run("inactive plan", func(t *testing.T) {
		fresh := caller{userID: uuid.Must(uuid.NewV7())}
		resp := ts.do(t, fresh, http.MethodPost, "/onboarding/tenant", onboardingTenantRequest{Name: "Legacy Co", PlanID: "legacy"})
		requireError(t, resp, http.StatusPreconditionFailed, "precondition_failed")
	})

	t.Run("invalid invitation status", func(t *testing.T) {
		resp := ts.do(t, memberCaller, http.MethodGet, "/invitations?status=bogus", nil)
		requireError(t, resp, http.StatusBadRequest, "bad_request")
	})
}

func TestUsersAndPlans(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	user := storetest.NewUser("user@example.com")
	require.NoError(t, ts.stores.Users.Create(ctx, user))
	self := caller{userID: user.UserID}

	name := "Uma"
	resp := ts.do(t, self, http.MethodPatch, "/users/"+user.UserID.String(), updateUserRequest{DisplayName: &name})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[userResponse](t, resp)
	require.Equal(t, "Uma", updated.DisplayName)

	inactive := false
	resp = ts.do(t, self, http.MethodPatch, "/users/"+user.UserID.String(), updateUserRequest{IsActive: &inactive})
	requireError(t, resp, http.StatusForbidden, "forbidden")

	resp = ts.do(t, self, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decodeBody[map[string][]userResponse](t, resp)
	require.Empty(t, users["users"])

	resp = ts.do(t, self, http.MethodDelete, "/users/"+user.UserID.String(), nil)
	requireError(t, resp, http.StatusForbidden, "forbidden")

	resp = ts.do(t, caller{}, http.MethodGet, "/plans", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decodeBody[map[string][]planResponse](t, resp)
	require.Len(t, listed["plans"], 4)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/me/tenants", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	// browsers send the requested header names lower-cased
	req.Header.Set("Access-Control-Request-Headers", strings.ToLower(auth.HeaderTenantID+","+auth.HeaderUserID))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example.com")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   connect.Code
		status int
		name   string
	}{
		{connect.CodeNotFound, http.StatusNotFound, "not_found"},
		{connect.CodeAlreadyExists, http.StatusConflict, "conflict"},
		{connect.CodePermissionDenied, http.StatusForbidden, "forbidden"},
		{connect.CodeFailedPrecondition, http.StatusPreconditionFailed, "precondition_failed"},
		{connect.CodeInvalidArgument, http.StatusBadRequest, "bad_request"},
		{connect.CodeUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{connect.CodeInternal, http.StatusInternalServerError, "internal"},
		{connect.CodeUnavailable, http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			status, name := httpStatus(tt.code)
			require.Equal(t, tt.status, status)
			require.Equal(t, tt.name, name)
		})
	}
}

func TestWriteErrorHidesUnclassified(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(rec, req, io.ErrUnexpectedEOF)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "internal", body.Code)
	require.Equal(t, "internal error", body.Error)
}
