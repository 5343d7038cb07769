package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/otcheredev/medorders/internal/cache"
	"github.com/otcheredev/medorders/internal/config"
	"github.com/otcheredev/medorders/internal/metrics"
	"github.com/otcheredev/medorders/internal/middleware"
	"github.com/otcheredev/medorders/internal/services"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// RouterConfig holds everything the HTTP layer depends on
type RouterConfig struct {
	AuthService    *services.AuthService
	PatientService *services.PatientService
	AuditService   *services.AuditService
	Tokens         middleware.TokenValidator
	DB             *gorm.DB
	Cache          cache.Cache

	// Metrics and MetricsHandler are optional. Without MetricsHandler no
	// /metrics route is mounted.
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler

	AuditLogger zerolog.Logger
	Audit       middleware.AuditOptions
	CORS        config.CORSConfig
}

// NewRouter builds the application's HTTP handler
func NewRouter(cfg RouterConfig) http.Handler {
	healthHandler := NewHealthHandler(cfg.DB, cfg.Cache)
	authHandler := NewAuthHandler(cfg.AuthService, cfg.Metrics)
	patientHandler := NewPatientHandler(cfg.PatientService)
	orderHandler := NewOrderHandler(cfg.PatientService)
	activityHandler := NewActivityHandler(cfg.AuditService)

	r := chi.NewRouter()

	// Global middleware. Compress sits outside Audit so the audit log sees
	// the uncompressed body.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.Audit(cfg.AuditLogger, cfg.Audit))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Length", "Content-Type", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints (no authentication required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Tokens))

			r.Get("/auth/me", authHandler.Me)
			r.Get("/auth/me/activity", activityHandler.List)

			r.Route("/patients", func(r chi.Router) {
				r.Get("/", patientHandler.List)
				r.Post("/", patientHandler.Create)
				r.Get("/{id}", patientHandler.Get)
				r.Put("/{id}", patientHandler.Update)
				r.Delete("/{id}", patientHandler.Delete)
				r.Get("/{id}/medicalorders", orderHandler.ListByPatient)
			})

			r.Route("/medicalorders", func(r chi.Router) {
				r.Get("/", orderHandler.List)
				r.Post("/", orderHandler.Create)
				r.Get("/{id}", orderHandler.Get)
				r.Put("/{id}", orderHandler.Update)
				r.Delete("/{id}", orderHandler.Delete)
			})
		})
	})

	return r
}
