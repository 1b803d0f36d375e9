package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shiftlane/onboard/pkg/slogx"
)

// Claims are the bearer-token claims this service cares about. Identity is
// established upstream (the identity provider signs these); the onboarding
// core only consumes the established user and tenant.
type Claims struct {
	TenantID string `json:"tid,omitempty"`
	Admin    bool   `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// AuthnMiddleware verifies an HS256 bearer token and injects the caller's
// user id, tenant id and admin flag into the request context.
func AuthnMiddleware(secret []byte, issuer string) Middleware {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			var claims Claims
			if _, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
				return secret, nil
			}); err != nil {
				log.Warn("jwt verify failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			if claims.Subject == "" {
				writeBearerError(w, "token missing subject")
				return
			}

			// Inject into context for downstream handlers.
			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects callers whose token does not carry the tenant admin
// flag. Must sit inside AuthnMiddleware in the chain.
func RequireAdmin() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdminFromCtx(r.Context()) {
				w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
				WriteError(w, http.StatusForbidden, "forbidden", "tenant admin role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SignToken mints an HS256 token for the given identity. Used by tests and
// local tooling; production tokens come from the identity provider.
func SignToken(secret []byte, issuer, userID, tenantID string, admin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TenantID: tenantID,
		Admin:    admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func contextWithAuth(ctx context.Context, c Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyTenantID, c.TenantID)
	ctx = context.WithValue(ctx, CtxKeyAdmin, c.Admin)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
