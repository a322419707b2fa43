// Package admin serves the administrator console under /admin.
package admin

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/model"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/event"
	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

type Service interface {
	Dashboard(ctx context.Context, p *model.Principal) (*model.DashboardStats, error)
	ListAccounts(ctx context.Context, p *model.Principal, role, search string, active *bool, page model.Pagination) ([]*model.Account, int, error)
	UpdateAccount(ctx context.Context, p *model.Principal, id uuid.UUID, req model.UpdateAccountRequest) (*model.Account, error)
	DeleteAccount(ctx context.Context, p *model.Principal, id uuid.UUID) error
	DeleteDoctor(ctx context.Context, p *model.Principal, id uuid.UUID) error
	DeletePatient(ctx context.Context, p *model.Principal, id uuid.UUID) error
	AuditLogs(ctx context.Context, p *model.Principal, filters model.AuditFilters, page model.Pagination) ([]*model.AuditLog, int, error)
}

// AccountCreator is the slice of the auth service used to add users.
type AccountCreator interface {
	CreateAccount(ctx context.Context, p *model.Principal, req model.CreateAccountRequest) (*model.Profile, error)
}

type Handler struct {
	admin        Service
	accounts     AccountCreator
	directory    handler.Directory
	appointments handler.Scheduler
}

func NewHandler(admin Service, accounts AccountCreator, directory handler.Directory, appointments handler.Scheduler) *Handler {
	return &Handler{
		admin:        admin,
		accounts:     accounts,
		directory:    directory,
		appointments: appointments,
	}
}

// RegisterRoutes expects r to be authenticated and restricted to admins.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, tracker *event.TrackerMiddleware) {
	g := r.Group("/admin")
	{
		g.GET("/dashboard", h.Dashboard)

		users := g.Group("/users")
		{
			users.GET("", h.ListUsers)
			users.POST("", h.CreateUser)
			users.PUT("/:id", h.UpdateUser)
			users.DELETE("/:id", h.DeleteUser)
		}

		doctors := g.Group("/doctors")
		{
			doctors.GET("", h.ListDoctors)
			doctors.PUT("/:id", h.UpdateDoctor)
			doctors.DELETE("/:id", h.DeleteDoctor)
		}

		patients := g.Group("/patients")
		{
			patients.GET("", h.ListPatients)
			patients.PUT("/:id", h.UpdatePatient)
			patients.DELETE("/:id", h.DeletePatient)
		}

		appointments := g.Group("/appointments")
		{
			appointments.GET("", h.ListAppointments)
			appointments.POST("", tracker.TrackEvent(model.EventAppointmentBooked, model.AppointmentEventFields...), h.CreateAppointment)
			appointments.PUT("/:id", tracker.TrackEvent(model.EventAppointmentRescheduled, model.AppointmentEventFields...), h.UpdateAppointment)
			appointments.DELETE("/:id", h.DeleteAppointment)
		}

		g.GET("/audit-logs", h.AuditLogs)
	}
}

func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.admin.Dashboard(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}

func (h *Handler) ListUsers(c *gin.Context) {
	var active *bool
	if raw := c.Query("is_active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewValidation("is_active", "is_active must be true or false"))
			return
		}
		active = &v
	}

	page := handler.Pagination(c)
	accounts, total, err := h.admin.ListAccounts(c.Request.Context(), middleware.PrincipalFrom(c), c.Query("role"), c.Query("search"), active, page)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, accounts, page, total)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req model.CreateAccountRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	profile, err := h.accounts.CreateAccount(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "user created", profile)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.UpdateAccountRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	account, err := h.admin.UpdateAccount(c.Request.Context(), middleware.PrincipalFrom(c), id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, account)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	h.delete(c, h.admin.DeleteAccount, "user deleted")
}

func (h *Handler) ListDoctors(c *gin.Context) {
	page := handler.Pagination(c)
	doctors, total, err := h.directory.ListDoctors(c.Request.Context(), middleware.PrincipalFrom(c), c.Query("specialization"), page)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, doctors, page, total)
}

func (h *Handler) UpdateDoctor(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.UpdateDoctorProfileRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	doctor, err := h.directory.UpdateDoctor(c.Request.Context(), middleware.PrincipalFrom(c), id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctor)
}

func (h *Handler) DeleteDoctor(c *gin.Context) {
	h.delete(c, h.admin.DeleteDoctor, "doctor deleted")
}

func (h *Handler) ListPatients(c *gin.Context) {
	page := handler.Pagination(c)
	patients, total, err := h.directory.ListPatients(c.Request.Context(), middleware.PrincipalFrom(c), c.Query("search"), page)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, patients, page, total)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.UpdatePatientProfileRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	patient, err := h.directory.UpdatePatient(c.Request.Context(), middleware.PrincipalFrom(c), id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patient)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	h.delete(c, h.admin.DeletePatient, "patient deleted")
}

func (h *Handler) ListAppointments(c *gin.Context) {
	filters, page, err := handler.AppointmentFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointments, total, err := h.appointments.List(c.Request.Context(), middleware.PrincipalFrom(c), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, appointments, page, total)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.BookAppointmentRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointment, err := h.appointments.Create(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, appointment)
	httputil.RespondWithCreated(c, "appointment booked", appointment)
}

// UpdateAppointment amends and optionally moves an appointment. Only a move
// is announced to the patient.
func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.AdminUpdateAppointmentRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointment, err := h.appointments.Update(c.Request.Context(), middleware.PrincipalFrom(c), id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if req.AppointmentDate != nil || req.AppointmentTime != nil {
		event.Record(c, appointment)
	}
	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	h.delete(c, h.appointments.Delete, "appointment deleted")
}

func (h *Handler) AuditLogs(c *gin.Context) {
	filters := model.AuditFilters{
		EntityType: c.Query("entity_type"),
		Action:     c.Query("action"),
	}
	var err error
	if filters.AccountID, err = handler.QueryID(c, "user_id"); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if filters.EntityID, err = handler.QueryID(c, "entity_id"); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	page := handler.Pagination(c)
	logs, total, err := h.admin.AuditLogs(c.Request.Context(), middleware.PrincipalFrom(c), filters, page)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, logs, page, total)
}

func (h *Handler) delete(c *gin.Context, remove func(context.Context, *model.Principal, uuid.UUID) error, message string) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if err := remove(c.Request.Context(), middleware.PrincipalFrom(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, message)
}
