package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/clinicdesk/appointments/internal/domain"
	"github.com/clinicdesk/appointments/internal/http/response"
	"github.com/clinicdesk/appointments/pkg/auth"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// RequireAuth resolves the bearer token into claims and stores them on the
// request context. Missing, malformed or expired tokens end the request with
// 401 and no state change.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "Authentication required")
				return
			}
			raw := strings.TrimPrefix(authz, "Bearer ")
			claims, err := auth.Parse(raw, secret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), CtxClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated requests whose role does not match.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := Claims(r)
			if claims == nil {
				response.Unauthorized(w, "Authentication required")
				return
			}
			if claims.Role != string(role) {
				response.Forbidden(w, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func Claims(r *http.Request) *auth.Claims {
	v := r.Context().Value(CtxClaims)
	if v == nil {
		return nil
	}
	return v.(*auth.Claims)
}
