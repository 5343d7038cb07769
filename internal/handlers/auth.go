package handlers

import (
	"errors"
	"net/http"

	"github.com/otcheredev/medorders/internal/metrics"
	"github.com/otcheredev/medorders/internal/middleware"
	"github.com/otcheredev/medorders/internal/models"
	"github.com/otcheredev/medorders/internal/services"
)

// AuthHandler serves registration, login and the current account
type AuthHandler struct {
	authService *services.AuthService
	metrics     *metrics.Metrics
}

// NewAuthHandler creates the register/login handler. m may be nil.
func NewAuthHandler(authService *services.AuthService, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		metrics:     m,
	}
}

// Register creates a user and returns a token
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		h.attempt("register", metrics.OutcomeRejected)
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			h.attempt("register", metrics.OutcomeRejected)
		} else {
			h.attempt("register", metrics.OutcomeError)
		}
		writeError(w, r, err, "Failed to register user")
		return
	}

	h.attempt("register", metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, resp)
}

// Login exchanges credentials for a token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		h.attempt("login", metrics.OutcomeRejected)
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.attempt("login", metrics.OutcomeRejected)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		h.attempt("login", metrics.OutcomeError)
		writeError(w, r, err, "Failed to log in")
		return
	}

	h.attempt("login", metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) attempt(operation, outcome string) {
	if h.metrics != nil {
		h.metrics.AuthAttempt(operation, outcome)
	}
}

// Me returns the account behind the bearer token
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	user, err := h.authService.CurrentUser(r.Context(), claims.UserID())
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeError(w, r, err, "Failed to get current user")
		return
	}
	writeJSON(w, http.StatusOK, user.Summary())
}
