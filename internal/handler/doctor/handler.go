// Package doctor serves the doctor workspace under /doctor.
package doctor

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/event"
	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

type Handler struct {
	appointments handler.Scheduler
	directory    handler.Directory
}

func NewHandler(appointments handler.Scheduler, directory handler.Directory) *Handler {
	return &Handler{appointments: appointments, directory: directory}
}

// RegisterRoutes expects r to be authenticated and restricted to doctors.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, tracker *event.TrackerMiddleware) {
	g := r.Group("/doctor")
	{
		g.GET("/profile", h.GetProfile)
		g.PUT("/profile", h.UpdateProfile)
		g.PUT("/availability", h.UpdateAvailability)
		g.GET("/stats", h.Stats)
		g.GET("/patients", h.Patients)

		g.GET("/appointments", h.ListAppointments)
		g.GET("/appointments/:id", h.GetAppointment)
		g.PUT("/appointments/:id/approve",
			tracker.TrackEvent(model.EventAppointmentConfirmed, model.AppointmentEventFields...),
			h.transition(model.ActionApprove))
		g.PUT("/appointments/:id/cancel",
			tracker.TrackEvent(model.EventAppointmentCancelled, model.AppointmentEventFields...),
			h.transition(model.ActionCancel))
		g.PUT("/appointments/:id/complete",
			tracker.TrackEvent(model.EventAppointmentCompleted, model.AppointmentEventFields...),
			h.transition(model.ActionComplete))
		g.PUT("/appointments/:id/notes", h.transition(model.ActionAddNotes))
		g.PUT("/appointments/:id/reschedule",
			tracker.TrackEvent(model.EventAppointmentRescheduled, model.AppointmentEventFields...),
			h.Reschedule)
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	profile, err := h.directory.Doctor(c.Request.Context(), p, p.ProfileID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, profile)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.UpdateDoctorProfileRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	p := middleware.PrincipalFrom(c)
	profile, err := h.directory.UpdateDoctor(c.Request.Context(), p, p.ProfileID, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, profile)
}

func (h *Handler) UpdateAvailability(c *gin.Context) {
	var req model.UpdateAvailabilityRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	profile, err := h.directory.UpdateAvailability(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, profile)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.appointments.Stats(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}

func (h *Handler) Patients(c *gin.Context) {
	page := handler.Pagination(c)
	patients, total, err := h.directory.MyPatients(c.Request.Context(), middleware.PrincipalFrom(c), page)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, patients, page, total)
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

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointment, err := h.appointments.Get(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointment)
}

// transition builds the handler for one state-machine action. The optional
// body carries notes.
func (h *Handler) transition(action model.AppointmentAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := handler.ParseID(c, "id")
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		var req model.TransitionRequest
		if err := handler.BindOptionalJSON(c, &req); err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		appointment, err := h.appointments.Transition(c.Request.Context(), middleware.PrincipalFrom(c), id, action, req.Notes)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		event.Record(c, appointment)
		httputil.RespondWithSuccess(c, appointment)
	}
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.RescheduleAppointmentRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointment, err := h.appointments.Reschedule(c.Request.Context(), middleware.PrincipalFrom(c), id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, appointment)
	httputil.RespondWithSuccess(c, appointment)
}
