package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/otcheredev/medorders/internal/cache"
	"github.com/otcheredev/medorders/internal/database"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const pingTimeout = 2 * time.Second

// HealthHandler serves the liveness and readiness probes
type HealthHandler struct {
	db    *gorm.DB
	cache cache.Cache
}

// NewHealthHandler creates the health handler. c may be nil when caching is
// disabled.
func NewHealthHandler(db *gorm.DB, c cache.Cache) *HealthHandler {
	return &HealthHandler{db: db, cache: c}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// Health reports database and cache status
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Services:  make(map[string]string),
	}

	// Check database
	if err := database.Ping(h.db); err != nil {
		log.Warn().Err(err).Msg("Database health check failed")
		response.Services["database"] = "unhealthy"
		response.Status = "degraded"
	} else {
		response.Services["database"] = "healthy"
	}

	// Check cache
	if h.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.cache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Cache health check failed")
			response.Services["cache"] = "unhealthy"
			response.Status = "degraded"
		} else {
			response.Services["cache"] = "healthy"
		}
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// Ready answers OK once the database is reachable
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := database.Ping(h.db); err != nil {
		http.Error(w, "Service not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
