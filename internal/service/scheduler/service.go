// Package scheduler owns the appointment lifecycle: booking, rescheduling,
// state transitions and role-scoped reads. It never double-books a doctor;
// the store's partial unique index on (doctor, date, time) backs every write.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/service/audit"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

const (
	msgSlotTaken      = "doctor already has an appointment at this date and time"
	msgNotOwner       = "you do not have access to this appointment"
	msgDoctorInactive = "doctor is not accepting appointments"
)

type Service struct {
	appointments repository.AppointmentRepository
	doctors      repository.DoctorRepository
	patients     repository.PatientRepository
	validator    *validator.Validator
	auditor      audit.Recorder
	metrics      *metrics.Metrics
	log          *logger.Logger
}

func NewService(
	appointments repository.AppointmentRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	v *validator.Validator,
	auditor audit.Recorder,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		appointments: appointments,
		doctors:      doctors,
		patients:     patients,
		validator:    v,
		auditor:      auditor,
		metrics:      m,
		log:          log,
	}
}

// Create books a pending appointment. Patients always book for themselves;
// admins must name the patient.
func (s *Service) Create(ctx context.Context, p *model.Principal, req model.BookAppointmentRequest) (*model.AppointmentDetail, error) {
	if p == nil {
		return nil, apperrors.Unauthorized(nil)
	}

	var patientID uuid.UUID
	switch p.Role {
	case model.RolePatient:
		patientID = p.ProfileID
	case model.RoleAdmin:
		if req.PatientID == uuid.Nil {
			return nil, apperrors.NewValidation("patient_id", "patient_id is required")
		}
		patientID = req.PatientID
	default:
		return nil, apperrors.NewForbidden("only patients and administrators can book appointments")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	clock, err := validator.NormalizeTime(req.AppointmentTime)
	if err != nil {
		return nil, apperrors.NewValidation("appointment_time", err.Error())
	}

	doctor, err := s.doctors.GetByID(ctx, req.DoctorID)
	if err != nil {
		return nil, lookupError("doctor", err)
	}
	if !doctor.IsActive {
		return nil, apperrors.NewValidation("doctor_id", msgDoctorInactive)
	}
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, lookupError("patient", err)
	}

	taken, err := s.appointments.HasConflict(ctx, doctor.ID, req.AppointmentDate, clock, nil)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if taken {
		s.metrics.Booking("conflict")
		return nil, apperrors.NewConflict(msgSlotTaken, repository.ErrSlotTaken)
	}

	appointment := &model.Appointment{
		PatientID:       patientID,
		DoctorID:        doctor.ID,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: clock,
		Status:          model.AppointmentStatusPending,
		Reason:          optional(req.Reason),
	}
	if err := s.appointments.Create(ctx, appointment); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			// Lost the race between the pre-check and the insert.
			s.metrics.Booking("conflict")
			return nil, apperrors.NewConflict(msgSlotTaken, err)
		}
		return nil, apperrors.NewInternal(err)
	}

	s.metrics.Booking("created")
	s.auditor.Record(ctx, p, model.AuditActionCreate, model.AuditEntityAppointment, appointment.ID, map[string]string{
		"doctor_id": doctor.ID.String(),
		"date":      appointment.AppointmentDate,
		"time":      appointment.AppointmentTime,
	})

	return s.reload(ctx, appointment.ID)
}

// Reschedule moves an appointment to a new slot with the same doctor.
func (s *Service) Reschedule(ctx context.Context, p *model.Principal, id uuid.UUID, req model.RescheduleAppointmentRequest) (*model.AppointmentDetail, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	clock, err := validator.NormalizeTime(req.AppointmentTime)
	if err != nil {
		return nil, apperrors.NewValidation("appointment_time", err.Error())
	}

	current, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}

	from := rescheduleFrom(p.Role)
	if !containsStatus(from, current.Status) {
		return nil, apperrors.NewInvalidState(fmt.Sprintf("cannot reschedule an appointment that is %s", current.Status))
	}

	taken, err := s.appointments.HasConflict(ctx, current.DoctorID, req.AppointmentDate, clock, &id)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if taken {
		return nil, apperrors.NewConflict(msgSlotTaken, repository.ErrSlotTaken)
	}

	if _, err := s.appointments.Reschedule(ctx, id, from, req.AppointmentDate, clock); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			return nil, apperrors.NewConflict(msgSlotTaken, err)
		case errors.Is(err, repository.ErrNotFound):
			return nil, s.resolveMiss(ctx, id, "reschedule")
		}
		return nil, apperrors.NewInternal(err)
	}

	s.auditor.Record(ctx, p, "reschedule", model.AuditEntityAppointment, id, map[string]string{
		"from_date": current.AppointmentDate,
		"from_time": current.AppointmentTime,
		"to_date":   req.AppointmentDate,
		"to_time":   clock,
	})

	return s.reload(ctx, id)
}

// Transition applies one state-machine action. Checks run in a fixed order:
// existence, ownership, then current state, so an outsider learns nothing
// about an appointment's status.
func (s *Service) Transition(ctx context.Context, p *model.Principal, id uuid.UUID, action model.AppointmentAction, notes *string) (*model.AppointmentDetail, error) {
	t, ok := model.LookupTransition(action)
	if !ok {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown action %q", action), nil)
	}
	if p == nil {
		return nil, apperrors.Unauthorized(nil)
	}

	current, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, lookupError("appointment", err)
	}
	if !t.AllowsRole(p.Role) || !p.Owns(&current.Appointment) {
		s.metrics.Transition(string(action), "denied")
		return nil, apperrors.NewAccessDenied(msgNotOwner)
	}
	if !t.AllowsFrom(current.Status) {
		s.metrics.Transition(string(action), "invalid_state")
		return nil, apperrors.NewInvalidState(fmt.Sprintf("cannot %s an appointment that is %s", verb(action), current.Status))
	}

	if p.Role != model.RoleDoctor {
		notes = nil
	}
	if action == model.ActionAddNotes {
		if notes == nil || strings.TrimSpace(*notes) == "" {
			return nil, apperrors.NewValidation("notes", "notes is required")
		}
	}
	if notes != nil {
		if err := s.validator.Var("notes", *notes, "max=5000"); err != nil {
			return nil, err
		}
	}

	_, err = s.appointments.Apply(ctx, model.AppointmentUpdate{
		ID:    id,
		From:  t.From,
		To:    t.To,
		Notes: notes,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.Transition(string(action), "invalid_state")
			return nil, s.resolveMiss(ctx, id, verb(action))
		}
		return nil, apperrors.NewInternal(err)
	}

	s.metrics.Transition(string(action), "ok")
	meta := map[string]string{"from": string(current.Status)}
	if t.To != "" {
		meta["to"] = string(t.To)
	}
	s.auditor.Record(ctx, p, string(action), model.AuditEntityAppointment, id, meta)

	return s.reload(ctx, id)
}

// Amend edits reason and notes without touching status. Patients own the
// reason while pending; doctors own the notes; admins may edit both.
func (s *Service) Amend(ctx context.Context, p *model.Principal, id uuid.UUID, req model.AmendAppointmentRequest) (*model.AppointmentDetail, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Reason == nil && req.Notes == nil {
		return nil, apperrors.NewBadRequest("no fields to update", nil)
	}

	current, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}

	var from []model.AppointmentStatus
	switch p.Role {
	case model.RolePatient:
		if req.Notes != nil {
			return nil, apperrors.NewAccessDenied("only the doctor may write notes")
		}
		from = []model.AppointmentStatus{model.AppointmentStatusPending}
	case model.RoleDoctor:
		if req.Reason != nil {
			return nil, apperrors.NewAccessDenied("only the patient may change the reason")
		}
		from = nonTerminal()
	case model.RoleAdmin:
		from = nonTerminal()
	}
	if !containsStatus(from, current.Status) {
		return nil, apperrors.NewInvalidState(fmt.Sprintf("cannot amend an appointment that is %s", current.Status))
	}

	_, err = s.appointments.Apply(ctx, model.AppointmentUpdate{
		ID:     id,
		From:   from,
		Notes:  req.Notes,
		Reason: req.Reason,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.resolveMiss(ctx, id, "amend")
		}
		return nil, apperrors.NewInternal(err)
	}

	s.auditor.Record(ctx, p, model.AuditActionUpdate, model.AuditEntityAppointment, id, nil)
	return s.reload(ctx, id)
}

// Update is the admin edit path. A move and an amendment land in one
// conditional write, so a rejected half never leaves the other applied.
// Status is never set directly.
func (s *Service) Update(ctx context.Context, p *model.Principal, id uuid.UUID, req model.AdminUpdateAppointmentRequest) (*model.AppointmentDetail, error) {
	if !p.Is(model.RoleAdmin) {
		return nil, apperrors.NewForbidden("administrator access required")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	moving := req.AppointmentDate != nil || req.AppointmentTime != nil
	if !moving && req.Reason == nil && req.Notes == nil {
		return current, nil
	}

	update := model.AppointmentUpdate{
		ID:     id,
		From:   nonTerminal(),
		Notes:  req.Notes,
		Reason: req.Reason,
	}
	if !containsStatus(update.From, current.Status) {
		return nil, apperrors.NewInvalidState(fmt.Sprintf("cannot update an appointment that is %s", current.Status))
	}

	var meta map[string]string
	if moving {
		date, clock := current.AppointmentDate, current.AppointmentTime
		if req.AppointmentDate != nil {
			date = *req.AppointmentDate
		}
		if req.AppointmentTime != nil {
			if clock, err = validator.NormalizeTime(*req.AppointmentTime); err != nil {
				return nil, apperrors.NewValidation("appointment_time", err.Error())
			}
		}

		taken, err := s.appointments.HasConflict(ctx, current.DoctorID, date, clock, &id)
		if err != nil {
			return nil, apperrors.NewInternal(err)
		}
		if taken {
			return nil, apperrors.NewConflict(msgSlotTaken, repository.ErrSlotTaken)
		}
		update.Date, update.Time = &date, &clock
		meta = map[string]string{
			"from_date": current.AppointmentDate,
			"from_time": current.AppointmentTime,
			"to_date":   date,
			"to_time":   clock,
		}
	}

	if _, err := s.appointments.Apply(ctx, update); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			return nil, apperrors.NewConflict(msgSlotTaken, err)
		case errors.Is(err, repository.ErrNotFound):
			return nil, s.resolveMiss(ctx, id, "update")
		}
		return nil, apperrors.NewInternal(err)
	}

	s.auditor.Record(ctx, p, model.AuditActionUpdate, model.AuditEntityAppointment, id, meta)
	return s.reload(ctx, id)
}

// List returns appointments visible to p, newest slot first. Patients and
// doctors are pinned to their own profile regardless of the filters given.
func (s *Service) List(ctx context.Context, p *model.Principal, filters model.AppointmentFilters) ([]*model.AppointmentDetail, int, error) {
	filters, err := s.scope(p, filters)
	if err != nil {
		return nil, 0, err
	}
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, 0, apperrors.NewValidation("status", fmt.Sprintf("unknown status %q", filters.Status))
	}
	if filters.Date != "" && !validator.ValidDate(filters.Date) {
		return nil, 0, apperrors.NewValidation("date", "date must be in YYYY-MM-DD format")
	}

	appointments, total, err := s.appointments.List(ctx, filters)
	if err != nil {
		return nil, 0, apperrors.NewInternal(err)
	}
	return appointments, total, nil
}

func (s *Service) Get(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.AppointmentDetail, error) {
	return s.load(ctx, p, id)
}

// Delete removes an appointment outright; administrators only.
func (s *Service) Delete(ctx context.Context, p *model.Principal, id uuid.UUID) error {
	if !p.Is(model.RoleAdmin) {
		return apperrors.NewForbidden("administrator access required")
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return lookupError("appointment", err)
	}
	s.auditor.Record(ctx, p, model.AuditActionDelete, model.AuditEntityAppointment, id, nil)
	return nil
}

// Stats counts appointments per status within p's scope.
func (s *Service) Stats(ctx context.Context, p *model.Principal) (model.AppointmentStats, error) {
	filters, err := s.scope(p, model.AppointmentFilters{})
	if err != nil {
		return model.AppointmentStats{}, err
	}
	counts, err := s.appointments.CountByStatus(ctx, filters)
	if err != nil {
		return model.AppointmentStats{}, apperrors.NewInternal(err)
	}
	return model.NewAppointmentStats(counts), nil
}

func (s *Service) scope(p *model.Principal, filters model.AppointmentFilters) (model.AppointmentFilters, error) {
	if p == nil {
		return filters, apperrors.Unauthorized(nil)
	}
	own := p.ProfileID
	switch p.Role {
	case model.RolePatient:
		filters.PatientID = &own
	case model.RoleDoctor:
		filters.DoctorID = &own
	case model.RoleAdmin:
	default:
		return filters, apperrors.NewForbidden("unknown role")
	}
	return filters, nil
}

// load reads an appointment and enforces ownership for non-admins.
func (s *Service) load(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.AppointmentDetail, error) {
	if p == nil {
		return nil, apperrors.Unauthorized(nil)
	}
	detail, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, lookupError("appointment", err)
	}
	if !p.Is(model.RoleAdmin) && !p.Owns(&detail.Appointment) {
		return nil, apperrors.NewAccessDenied(msgNotOwner)
	}
	return detail, nil
}

func (s *Service) reload(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	detail, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, lookupError("appointment", err)
	}
	return detail, nil
}

// resolveMiss explains a conditional update that matched no row: either the
// appointment vanished or a concurrent writer moved it out of the expected state.
func (s *Service) resolveMiss(ctx context.Context, id uuid.UUID, what string) error {
	detail, err := s.appointments.Get(ctx, id)
	if err != nil {
		return lookupError("appointment", err)
	}
	s.log.Warn("conditional appointment update lost a race",
		"appointment_id", id.String(),
		"status", string(detail.Status),
	)
	return apperrors.NewInvalidState(fmt.Sprintf("cannot %s an appointment that is %s", what, detail.Status))
}

func lookupError(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, err)
	}
	return apperrors.NewInternal(err)
}

func rescheduleFrom(role model.Role) []model.AppointmentStatus {
	if role == model.RolePatient {
		return []model.AppointmentStatus{model.AppointmentStatusPending}
	}
	return nonTerminal()
}

func nonTerminal() []model.AppointmentStatus {
	return []model.AppointmentStatus{model.AppointmentStatusPending, model.AppointmentStatusConfirmed}
}

func containsStatus(set []model.AppointmentStatus, s model.AppointmentStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func verb(action model.AppointmentAction) string {
	if action == model.ActionAddNotes {
		return "add notes to"
	}
	return string(action)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
