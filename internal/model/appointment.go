package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// AllAppointmentStatuses is ordered by lifecycle.
var AllAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed,
		AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

// Terminal statuses admit no further transitions.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	st := AppointmentStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown appointment status %q", s)
	}
	return st, nil
}

// AppointmentAction names a state-machine operation on an appointment.
type AppointmentAction string

const (
	ActionApprove  AppointmentAction = "approve"
	ActionCancel   AppointmentAction = "cancel"
	ActionComplete AppointmentAction = "complete"
	ActionAddNotes AppointmentAction = "add_notes"
)

// Transition describes one row of the appointment state machine.
type Transition struct {
	Action AppointmentAction
	// Roles that may perform the action, each still bound to ownership.
	Roles []Role
	From  []AppointmentStatus
	// To is empty when the action leaves the status unchanged.
	To AppointmentStatus
}

var transitions = map[AppointmentAction]Transition{
	ActionApprove: {
		Action: ActionApprove,
		Roles:  []Role{RoleDoctor},
		From:   []AppointmentStatus{AppointmentStatusPending},
		To:     AppointmentStatusConfirmed,
	},
	ActionCancel: {
		Action: ActionCancel,
		Roles:  []Role{RoleDoctor, RolePatient},
		From:   []AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed},
		To:     AppointmentStatusCancelled,
	},
	ActionComplete: {
		Action: ActionComplete,
		Roles:  []Role{RoleDoctor},
		From:   []AppointmentStatus{AppointmentStatusConfirmed},
		To:     AppointmentStatusCompleted,
	},
	ActionAddNotes: {
		Action: ActionAddNotes,
		Roles:  []Role{RoleDoctor},
		From:   []AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed},
	},
}

// LookupTransition returns the state-machine row for an action.
func LookupTransition(action AppointmentAction) (Transition, bool) {
	t, ok := transitions[action]
	return t, ok
}

func (t Transition) AllowsRole(r Role) bool {
	for _, allowed := range t.Roles {
		if allowed == r {
			return true
		}
	}
	return false
}

func (t Transition) AllowsFrom(s AppointmentStatus) bool {
	for _, from := range t.From {
		if from == s {
			return true
		}
	}
	return false
}

type Appointment struct {
	Base
	PatientID       uuid.UUID         `json:"patient_id" db:"patient_id"`
	DoctorID        uuid.UUID         `json:"doctor_id" db:"doctor_id"`
	AppointmentDate string            `json:"appointment_date" db:"appointment_date"`
	AppointmentTime string            `json:"appointment_time" db:"appointment_time"`
	Status          AppointmentStatus `json:"status" db:"status"`
	Reason          *string           `json:"reason,omitempty" db:"reason"`
	Notes           *string           `json:"notes,omitempty" db:"notes"`
}

// AppointmentDetail carries the joined display fields.
type AppointmentDetail struct {
	Appointment
	PatientName    string `json:"patient_name" db:"patient_name"`
	PatientEmail   string `json:"patient_email" db:"patient_email"`
	DoctorName     string `json:"doctor_name" db:"doctor_name"`
	Specialization string `json:"specialization" db:"specialization"`
}

type BookAppointmentRequest struct {
	// PatientID is only honoured for admins booking on behalf of a patient.
	PatientID       uuid.UUID `json:"patient_id"`
	DoctorID        uuid.UUID `json:"doctor_id" validate:"required"`
	AppointmentDate string    `json:"appointment_date" validate:"required,isodate"`
	AppointmentTime string    `json:"appointment_time" validate:"required,hhmm"`
	Reason          string    `json:"reason" validate:"max=500"`
}

type RescheduleAppointmentRequest struct {
	AppointmentDate string `json:"appointment_date" validate:"required,isodate"`
	AppointmentTime string `json:"appointment_time" validate:"required,hhmm"`
}

type TransitionRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=5000"`
}

// AmendAppointmentRequest edits free-text fields only; status is never touched.
type AmendAppointmentRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
	Notes  *string `json:"notes" validate:"omitempty,max=5000"`
}

// AdminUpdateAppointmentRequest combines amendment and rescheduling.
type AdminUpdateAppointmentRequest struct {
	AppointmentDate *string `json:"appointment_date" validate:"omitempty,isodate"`
	AppointmentTime *string `json:"appointment_time" validate:"omitempty,hhmm"`
	Reason          *string `json:"reason" validate:"omitempty,max=500"`
	Notes           *string `json:"notes" validate:"omitempty,max=5000"`
}

type AppointmentFilters struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    AppointmentStatus
	Date      string
	// Limit of zero leaves the result unpaginated.
	Limit  int
	Offset int
}

// AppointmentUpdate is a conditional write applied atomically by the store.
type AppointmentUpdate struct {
	ID   uuid.UUID
	From []AppointmentStatus
	// Empty leaves status unchanged.
	To     AppointmentStatus
	Notes  *string
	Reason *string
	// Date and Time move the appointment when set; the active-slot index
	// still applies.
	Date *string
	Time *string
}

type AppointmentStats struct {
	Total     int `json:"total_appointments"`
	Pending   int `json:"pending_appointments"`
	Confirmed int `json:"confirmed_appointments"`
	Completed int `json:"completed_appointments"`
	Cancelled int `json:"cancelled_appointments"`
}

// NewAppointmentStats folds per-status counts into the summary.
func NewAppointmentStats(counts map[AppointmentStatus]int) AppointmentStats {
	s := AppointmentStats{
		Pending:   counts[AppointmentStatusPending],
		Confirmed: counts[AppointmentStatusConfirmed],
		Completed: counts[AppointmentStatusCompleted],
		Cancelled: counts[AppointmentStatusCancelled],
	}
	s.Total = s.Pending + s.Confirmed + s.Completed + s.Cancelled
	return s
}

type DashboardStats struct {
	TotalAccounts int `json:"total_users"`
	TotalDoctors  int `json:"total_doctors"`
	TotalPatients int `json:"total_patients"`
	AppointmentStats
}
