// Package patient serves the patient portal under /patient.
package patient

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

// RegisterRoutes expects r to be authenticated and restricted to patients.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, tracker *event.TrackerMiddleware) {
	g := r.Group("/patient")
	{
		g.GET("/profile", h.GetProfile)
		g.PUT("/profile", h.UpdateProfile)
		g.GET("/stats", h.Stats)

		g.GET("/doctors", h.ListDoctors)
		g.GET("/doctors/:id", h.GetDoctor)

		g.POST("/appointments", tracker.TrackEvent(model.EventAppointmentBooked, model.AppointmentEventFields...), h.Book)
		g.GET("/appointments", h.ListAppointments)
		g.GET("/appointments/:id", h.GetAppointment)
		g.PUT("/appointments/:id/cancel", tracker.TrackEvent(model.EventAppointmentCancelled, model.AppointmentEventFields...), h.Cancel)
		g.PUT("/appointments/:id/reschedule", tracker.TrackEvent(model.EventAppointmentRescheduled, model.AppointmentEventFields...), h.Reschedule)
		g.PUT("/appointments/:id/reason", h.UpdateReason)
		g.GET("/appointment-history", h.History)
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	profile, err := h.directory.Patient(c.Request.Context(), p, p.ProfileID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, profile)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.UpdatePatientProfileRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	p := middleware.PrincipalFrom(c)
	profile, err := h.directory.UpdatePatient(c.Request.Context(), p, p.ProfileID, req)
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

func (h *Handler) ListDoctors(c *gin.Context) {
	page := handler.Pagination(c)
	doctors, total, err := h.directory.ListDoctors(c.Request.Context(), middleware.PrincipalFrom(c), c.Query("specialization"), page)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, doctors, page, total)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	doctor, err := h.directory.Doctor(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctor)
}

func (h *Handler) Book(c *gin.Context) {
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

// History lists every appointment the patient has had, unfiltered.
func (h *Handler) History(c *gin.Context) {
	page := handler.Pagination(c)
	appointments, total, err := h.appointments.List(c.Request.Context(), middleware.PrincipalFrom(c), model.AppointmentFilters{
		Limit:  page.Limit,
		Offset: page.Offset(),
	})
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

// Cancel ignores any notes in the body; only doctors write notes.
func (h *Handler) Cancel(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointment, err := h.appointments.Transition(c.Request.Context(), middleware.PrincipalFrom(c), id, model.ActionCancel, nil)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, appointment)
	httputil.RespondWithSuccess(c, appointment)
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

type reasonRequest struct {
	Reason *string `json:"reason"`
}

func (h *Handler) UpdateReason(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req reasonRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointment, err := h.appointments.Amend(c.Request.Context(), middleware.PrincipalFrom(c), id, model.AmendAppointmentRequest{Reason: req.Reason})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointment)
}
