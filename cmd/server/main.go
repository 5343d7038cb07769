package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/otcheredev/medorders/internal/auth"
	"github.com/otcheredev/medorders/internal/cache"
	"github.com/otcheredev/medorders/internal/config"
	"github.com/otcheredev/medorders/internal/database"
	"github.com/otcheredev/medorders/internal/handlers"
	"github.com/otcheredev/medorders/internal/metrics"
	"github.com/otcheredev/medorders/internal/middleware"
	"github.com/otcheredev/medorders/internal/repository"
	"github.com/otcheredev/medorders/internal/services"
	"github.com/otcheredev/medorders/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting medical orders service")

	// Token service; a weak key stops startup here
	tokens, err := auth.NewTokenService(auth.Settings{
		SecretKey: cfg.JWT.SecretKey,
		Issuer:    cfg.JWT.Issuer,
		Audience:  cfg.JWT.Audience,
		TTL:       cfg.JWT.TokenTTL(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token service")
	}

	// Connect to database
	db, err := database.Connect(database.Config{
		DSN:      cfg.Database.DSN(),
		LogLevel: cfg.Database.LogLevel,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close(db)

	// Initialize cache
	var cacheImpl cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.Type == "redis" {
			addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			cacheImpl, err = cache.NewRedisCache(addr, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to connect to Redis")
			}
			log.Info().Msg("Redis cache initialized")
		} else {
			cacheImpl = cache.NewMemoryCache()
			log.Info().Msg("Memory cache initialized")
		}
		defer cacheImpl.Close()
	} else {
		log.Info().Msg("Patient cache disabled")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Initialize services
	authService, err := services.NewAuthService(userRepo, tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth service")
	}
	patientService := services.NewPatientService(patientRepo, orderRepo, cacheImpl, cfg.Cache.TTL)
	auditService := services.NewAuditService(auditRepo)

	auditOpts := middleware.AuditOptions{MaxBodyBytes: cfg.Audit.MaxBodyBytes}
	if cfg.Audit.Persist {
		auditOpts.Recorder = auditRepo
		log.Info().Msg("Audit log persistence enabled")
	}

	routerCfg := handlers.RouterConfig{
		AuthService:    authService,
		PatientService: patientService,
		AuditService:   auditService,
		Tokens:         tokens,
		DB:             db,
		Cache:          cacheImpl,
		AuditLogger:    logger.Get(),
		Audit:          auditOpts,
		CORS:           cfg.CORS,
	}
	if cfg.Metrics.Enabled {
		routerCfg.Metrics = metrics.New(prometheus.DefaultRegisterer)
		routerCfg.MetricsHandler = promhttp.Handler()
	}

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handlers.NewRouter(routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server stopped")
}
