package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/otcheredev/medorders/internal/auth"
	"github.com/stretchr/testify/assert"
)

type staticValidator struct {
	claims *auth.Claims
}

func (s staticValidator) ValidateToken(token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, auth.ErrInvalidToken
	}
	return s.claims, nil
}

func TestAuthenticate(t *testing.T) {
	claims := &auth.Claims{Username: "alice"}
	claims.Subject = "user-1"

	var reached bool
	var seen *auth.Claims
	handler := Authenticate(staticValidator{claims: claims})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"no token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
		{"lower case scheme", "bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached, seen = false, nil
			req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.False(t, reached)
				assert.Empty(t, rec.Body.String())
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
				return
			}
			assert.True(t, reached)
			if assert.NotNil(t, seen) {
				assert.Equal(t, "user-1", seen.UserID())
			}
		})
	}
}

func TestClaimsFromContext_Missing(t *testing.T) {
	_, ok := ClaimsFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
