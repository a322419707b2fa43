package auth

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/event"
	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

type Service interface {
	Authenticate(ctx context.Context, req model.LoginRequest) (*model.Session, error)
	Register(ctx context.Context, req model.RegistrationRequest) (*model.Session, error)
	Profile(ctx context.Context, p *model.Principal) (*model.Profile, error)
}

type Handler struct {
	service Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, tracker *event.TrackerMiddleware) {
	g := r.Group("/auth")
	g.POST("/register", tracker.TrackEvent(model.EventAccountRegistered, "id", "email", "full_name", "role"), h.Register)
	g.POST("/login", h.Login)
	g.GET("/profile", h.auth.Authenticate(), h.Profile)
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegistrationRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	session, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, session.Account)
	httputil.RespondWithCreated(c, "registration successful", session)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	session, err := h.service.Authenticate(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, session)
}

func (h *Handler) Profile(c *gin.Context) {
	profile, err := h.service.Profile(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, profile)
}
