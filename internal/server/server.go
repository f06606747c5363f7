// Package server exposes the membership and onboarding services as a JSON HTTP API.
package server

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/backoffice/internal/access"
	"github.com/wolfeidau/backoffice/internal/admin"
	"github.com/wolfeidau/backoffice/internal/auth"
	httpmw "github.com/wolfeidau/backoffice/internal/http"
	"github.com/wolfeidau/backoffice/internal/invitation"
	"github.com/wolfeidau/backoffice/internal/logger"
	"github.com/wolfeidau/backoffice/internal/login"
	"github.com/wolfeidau/backoffice/internal/onboarding"
	"github.com/wolfeidau/backoffice/internal/store"
)

// Config holds the HTTP API settings.
type Config struct {
	// CORSOrigins lists the origins allowed to call the API from a browser.
	CORSOrigins []string
	// TrustProxyHeaders takes the client ip from X-Forwarded-For and X-Real-IP.
	TrustProxyHeaders bool
}

// Server wraps the HTTP API and the services behind it.
type Server struct {
	cfg         Config
	stores      *store.Stores
	aggregator  *access.Aggregator
	syncer      *login.Syncer
	invitations *invitation.Service
	workflow    *onboarding.Workflow
	admin       *admin.Service
}

// NewServer creates a new server backed by stores.
func NewServer(stores *store.Stores, cfg Config) *Server {
	authz := auth.NewAuthorizer(stores.Memberships)
	aggregator := access.NewAggregator(stores)
	invitations := invitation.NewService(stores, authz)

	return &Server{
		cfg:         cfg,
		stores:      stores,
		aggregator:  aggregator,
		syncer:      login.NewSyncer(stores, invitation.NewReconciler(stores), aggregator),
		invitations: invitations,
		workflow:    onboarding.NewWorkflow(stores, invitations),
		admin:       admin.NewService(stores, authz),
	}
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	api := http.NewServeMux()

	api.HandleFunc("POST /auth/sync", s.syncLogin)
	api.HandleFunc("GET /me/tenants", s.myTenants)

	api.HandleFunc("GET /onboarding/status", s.onboardingStatus)
	api.HandleFunc("POST /onboarding/tenant", s.onboardingTenant)
	api.HandleFunc("POST /onboarding/invitations", s.onboardingInvitations)
	api.HandleFunc("POST /onboarding/payment", s.onboardingPayment)
	api.HandleFunc("POST /onboarding/complete", s.onboardingComplete)

	api.HandleFunc("GET /tenants", s.listTenants)
	api.HandleFunc("POST /tenants", s.createTenant)
	api.HandleFunc("GET /tenants/{id}", s.getTenant)
	api.HandleFunc("PATCH /tenants/{id}", s.updateTenant)
	api.HandleFunc("DELETE /tenants/{id}", s.deactivateTenant)
	api.HandleFunc("GET /tenants/{id}/members", s.listMembers)
	api.HandleFunc("POST /tenants/{id}/members", s.addMember)
	api.HandleFunc("DELETE /tenants/{id}/members/{user_id}", s.removeMember)

	api.HandleFunc("GET /invitations", s.listInvitations)
	api.HandleFunc("POST /invitations", s.createInvitation)
	api.HandleFunc("DELETE /invitations/{id}", s.revokeInvitation)

	api.HandleFunc("GET /users", s.listUsers)
	api.HandleFunc("GET /users/{id}", s.getUser)
	api.HandleFunc("PATCH /users/{id}", s.updateUser)
	api.HandleFunc("DELETE /users/{id}", s.deleteUser)

	api.HandleFunc("GET /plans", s.listPlans)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", auth.Middleware(writeError)(api)))

	var handler http.Handler = mux
	handler = logger.RequestLogger(log)(handler)
	handler = httpmw.ClientIPMiddleware(s.cfg.TrustProxyHeaders)(handler)

	return withCORS(s.cfg.CORSOrigins, handler)
}

// withCORS adds CORS support for the micro frontend shell.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete,
		},
		AllowedHeaders: []string{
			"Content-Type", "Authorization",
			auth.HeaderUserID, auth.HeaderSystemAdmin, auth.HeaderTenantID,
		},
		AllowCredentials: true,
	})
	return middleware.Handler(h)
}
