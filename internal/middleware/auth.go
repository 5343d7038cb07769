package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/otcheredev/medorders/internal/auth"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	claimsKey      contextKey = "claims"
	requestInfoKey contextKey = "request_info"
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// requestInfo is shared between Audit and the middleware below it, so
// values learned deeper in the chain reach the audit record.
type requestInfo struct {
	userID string
}

func withRequestInfo(ctx context.Context, info *requestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

// Authenticate rejects requests without a valid bearer token. The response
// is a bare 401 whatever the reason, so callers learn nothing about which
// check failed.
func Authenticate(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				log.Debug().Str("path", r.URL.Path).Msg("Missing or malformed bearer token")
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Bearer token rejected")
				unauthorized(w)
				return
			}

			if info, ok := r.Context().Value(requestInfoKey).(*requestInfo); ok {
				info.userID = claims.UserID()
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims of the authenticated caller
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
}
