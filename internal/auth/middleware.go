package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// Headers carrying the caller signals asserted by the upstream gateway.
const (
	HeaderUserID      = "X-User-Id"
	HeaderSystemAdmin = "X-System-Admin"
	HeaderTenantID    = "X-Tenant-Id"
)

type contextKey int

const (
	callerContextKey contextKey = iota
)

// WithCaller returns a copy of ctx carrying the caller.
func WithCaller(ctx context.Context, caller CallerContext) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// CallerFromContext returns the caller stored by Middleware.
// An anonymous CallerContext is returned when none is present.
func CallerFromContext(ctx context.Context) CallerContext {
	caller, _ := ctx.Value(callerContextKey).(CallerContext)
	return caller
}

// gatewayClaims are the claims of a bearer token forwarded by the gateway.
// The gateway has already verified the signature.
type gatewayClaims struct {
	jwt.RegisteredClaims
	SystemAdmin bool   `json:"system_admin"`
	TenantID    string `json:"tenant_id"`
}

// CallerFromRequest resolves the caller of a request.
//
// A forwarded bearer token supplies the user (sub), the system admin flag and the
// tenant. Without a token the X-User-Id and X-System-Admin headers are used. The
// X-Tenant-Id header always takes precedence for tenant selection.
func CallerFromRequest(r *http.Request) (CallerContext, error) {
	userID := r.Header.Get(HeaderUserID)
	systemAdmin := r.Header.Get(HeaderSystemAdmin)
	tenantID := r.Header.Get(HeaderTenantID)

	if tokenString := extractBearerToken(r); tokenString != "" {
		claims := &gatewayClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return CallerContext{}, fmt.Errorf("%w: bearer token: %w", ErrInvalidCaller, err)
		}

		userID = claims.Subject
		systemAdmin = ""
		if claims.SystemAdmin {
			systemAdmin = "true"
		}
		if tenantID == "" {
			tenantID = claims.TenantID
		}
	}

	return Resolve(userID, systemAdmin, tenantID)
}

// ErrorWriter renders an error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware returns an HTTP middleware that resolves the caller once per request
// and stores it in the request context. Requests with malformed caller signals
// are passed to onError as an Unauthenticated connect error.
func Middleware(onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := CallerFromRequest(r)
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Rejected caller context")
				onError(w, r, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid caller context")))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// extractBearerToken extracts the token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
