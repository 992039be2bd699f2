package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
)

// Validator is the part of *authcore.Engine the guards need.
type Validator interface {
	Validate(ctx context.Context, token string, mode authcore.ValidationMode) (authcore.AccessClaims, error)
}

type claimsContextKey struct{}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims authcore.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext returns the claims stored by a guard.
func ClaimsFromContext(ctx context.Context) (authcore.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(authcore.AccessClaims)
	return claims, ok
}

// Guard rejects requests without a valid bearer token. Every rejection is the same
// 401; a store failure in strict mode is a 503.
func Guard(v Validator, mode authcore.ValidationMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				unauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := v.Validate(r.Context(), token, mode)
			if err != nil {
				switch authcore.KindOf(err) {
				case authcore.KindInvalidCredentials, authcore.KindNotFound:
					unauthorized(w)
				default:
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireJWTOnly guards with signature and expiry checks only, whatever the engine default.
func RequireJWTOnly(v Validator) func(http.Handler) http.Handler {
	return Guard(v, authcore.ModeJWTOnly)
}

// RequireStrict guards and also requires the subject to be an active identity.
// Use it on routes that change state so a deactivated identity's unexpired
// token cannot act.
func RequireStrict(v Validator) func(http.Handler) http.Handler {
	return Guard(v, authcore.ModeStrict)
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="authcore"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}
