package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

// ScopeAllOrgs lets an operator token act on every tenant.
const ScopeAllOrgs = "*"

// AdminClaims are the claims carried by operator tokens. OrgID limits the token to one tenant.
type AdminClaims struct {
	OrgID string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

// CanAccess reports whether the token may act on orgID.
func (c AdminClaims) CanAccess(orgID string) bool {
	scope := strings.TrimSpace(c.OrgID)
	return scope == ScopeAllOrgs || (scope != "" && scope == strings.TrimSpace(orgID))
}

// AdminJWT enforces an HMAC-signed JWT for admin endpoints.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "admin auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			claims := AdminClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			}, jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOrgScope rejects requests whose {orgID} route parameter is outside the token's scope.
// It must run after AdminJWT and be attached to the route itself (router.With), because chi only
// resolves URL parameters once the sub-route matches. A route without {orgID} is refused.
func RequireOrgScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := AdminClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !claims.CanAccess(chi.URLParam(r, "orgID")) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionOrgFunc resolves the org that owns a session. found is false when the session does not exist.
type SessionOrgFunc func(ctx context.Context, sessionID string) (orgID string, found bool, err error)

// RequireSessionScope rejects requests for a {sessionID} owned by an org outside the token's scope.
// Like RequireOrgScope it must be attached to the route.
func RequireSessionScope(resolve SessionOrgFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := AdminClaimsFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			orgID, found, err := resolve(r.Context(), chi.URLParam(r, "sessionID"))
			if err != nil {
				http.Error(w, "Failed to load session", http.StatusInternalServerError)
				return
			}
			// An unknown session and a foreign one look the same to a scoped token.
			if !found || !claims.CanAccess(orgID) {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (AdminClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(AdminClaims)
	return claims, ok
}
