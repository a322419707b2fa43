package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/event"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Handlers groups the route owners by audience.
type Handlers struct {
	Health  Handler
	Auth    event.EventHandler
	Patient event.EventHandler
	Doctor  event.EventHandler
	Admin   event.EventHandler
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORSConfig       middleware.CORSConfig
	RequestTimeout   time.Duration
	MaxBodyBytes     int64
}

type Router struct {
	engine       *gin.Engine
	auth         *middleware.AuthMiddleware
	handlers     Handlers
	eventTracker *event.TrackerMiddleware
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	handlers Handlers,
	eventTracker *event.TrackerMiddleware,
	log *logger.Logger,
	m *metrics.Metrics,
	config RouterConfig,
) *Router {
	engine := gin.New()

	r := &Router{
		engine:       engine,
		auth:         auth,
		handlers:     handlers,
		eventTracker: eventTracker,
	}

	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = middleware.DefaultMaxBodySize
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.ErrorHandler(log),
		middleware.Metrics(m),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	engine.Use(
		middleware.SizeLimit(config.MaxBodyBytes),
		middleware.Timeout(config.RequestTimeout),
		middleware.RequestInfo(),
	)

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.handlers.Health.RegisterRoutes(api)

	// Public routes; /auth/profile authenticates itself.
	r.handlers.Auth.RegisterRoutes(api, r.eventTracker)

	protected := api.Group("", r.auth.Authenticate())
	r.handlers.Patient.RegisterRoutes(protected.Group("", middleware.RequireRole(model.RolePatient)), r.eventTracker)
	r.handlers.Doctor.RegisterRoutes(protected.Group("", middleware.RequireRole(model.RoleDoctor)), r.eventTracker)
	r.handlers.Admin.RegisterRoutes(protected.Group("", middleware.RequireRole(model.RoleAdmin)), r.eventTracker)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
