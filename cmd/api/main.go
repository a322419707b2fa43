package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hospital-api/internal/config"
	adminHandler "github.com/jwalitptl/hospital-api/internal/handler/admin"
	authHandler "github.com/jwalitptl/hospital-api/internal/handler/auth"
	doctorHandler "github.com/jwalitptl/hospital-api/internal/handler/doctor"
	"github.com/jwalitptl/hospital-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/hospital-api/internal/handler/patient"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/repository/postgres"
	"github.com/jwalitptl/hospital-api/internal/router"
	adminService "github.com/jwalitptl/hospital-api/internal/service/admin"
	"github.com/jwalitptl/hospital-api/internal/service/audit"
	authService "github.com/jwalitptl/hospital-api/internal/service/auth"
	"github.com/jwalitptl/hospital-api/internal/service/directory"
	eventService "github.com/jwalitptl/hospital-api/internal/service/event"
	"github.com/jwalitptl/hospital-api/internal/service/scheduler"
	"github.com/jwalitptl/hospital-api/pkg/auth"
	"github.com/jwalitptl/hospital-api/pkg/event"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/messaging/redis"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
	"github.com/jwalitptl/hospital-api/pkg/security"
	"github.com/jwalitptl/hospital-api/pkg/validator"
	"github.com/jwalitptl/hospital-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
	})
	log.Logger = *appLog.ZL()
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
	}

	repos := postgres.NewRepositories(db)
	m := metrics.NewMetrics(prometheus.DefaultRegisterer, cfg.Server.MetricsPrefix, "")
	v := validator.New()

	auditSvc := audit.NewService(repos.Audit)
	auditor := audit.NewAuditLogger(auditSvc, appLog)

	tokens := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry())
	authSvc := authService.NewService(
		repos.Accounts, repos.Doctors, repos.Patients, &repos.Base,
		security.NewBcryptHasher(bcrypt.DefaultCost), tokens, v, auditor, appLog,
	)
	directorySvc := directory.NewService(repos.Doctors, repos.Patients, v, auditor, directory.CacheConfig{
		TTL:             cfg.Cache.DoctorTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})
	schedulerSvc := scheduler.NewService(repos.Appointment, repos.Doctors, repos.Patients, v, auditor, m, appLog)
	adminSvc := adminService.NewService(repos.Accounts, repos.Doctors, repos.Patients, schedulerSvc, directorySvc, auditSvc, v, auditor)

	if cfg.Seed.AdminPassword == "" {
		appLog.Warn("no admin password configured, skipping admin seed", "email", cfg.Seed.AdminEmail)
	} else if err := authSvc.SeedAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword, cfg.Seed.AdminName); err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin account")
	}

	eventTracker := event.NewTrackerMiddleware(eventService.NewService(repos.Outbox), appLog)

	checks := map[string]health.Pinger{"database": db}

	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLog.ZL())
	if err != nil {
		// Events stay in the outbox until a relay can reach the broker.
		appLog.Error(err, "redis unavailable, outbox relay disabled")
	} else {
		defer broker.Close()
		checks["broker"] = health.PingFunc(broker.Ping)

		processor, err := worker.NewOutboxProcessor(repos.Outbox, broker, worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
			Retention:     cfg.Outbox.Retention,
		}, appLog.WithFields(map[string]interface{}{"component": "outbox"}), m)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create outbox processor")
		}
		go processor.Start(ctx)
	}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		router.Handlers{
			Health:  health.NewHandler(checks, prometheus.DefaultGatherer),
			Auth:    authHandler.NewHandler(authSvc, middleware.NewAuthMiddleware(authSvc)),
			Patient: patientHandler.NewHandler(schedulerSvc, directorySvc),
			Doctor:  doctorHandler.NewHandler(schedulerSvc, directorySvc),
			Admin:   adminHandler.NewHandler(adminSvc, authSvc, directorySvc, schedulerSvc),
		},
		eventTracker,
		appLog,
		m,
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig:       middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins...),
			RequestTimeout:   cfg.Server.RequestTimeout,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
