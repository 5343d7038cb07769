package handlers

import (
	"net/http"
	"strconv"

	"github.com/otcheredev/medorders/internal/middleware"
	"github.com/otcheredev/medorders/internal/services"
)

// ActivityHandler serves the caller's own audit trail
type ActivityHandler struct {
	auditService *services.AuditService
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(auditService *services.AuditService) *ActivityHandler {
	return &ActivityHandler{
		auditService: auditService,
	}
}

// List returns the caller's persisted requests, newest first. Paging uses
// the limit and offset query parameters.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset")
	if !ok {
		return
	}

	entries, err := h.auditService.UserActivity(r.Context(), claims.UserID(), limit, offset)
	if err != nil {
		writeError(w, r, err, "Failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return v, true
}
