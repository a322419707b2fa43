package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
)

// Scheduler is the appointment surface the role handlers drive.
type Scheduler interface {
	Create(ctx context.Context, p *model.Principal, req model.BookAppointmentRequest) (*model.AppointmentDetail, error)
	Reschedule(ctx context.Context, p *model.Principal, id uuid.UUID, req model.RescheduleAppointmentRequest) (*model.AppointmentDetail, error)
	Transition(ctx context.Context, p *model.Principal, id uuid.UUID, action model.AppointmentAction, notes *string) (*model.AppointmentDetail, error)
	Amend(ctx context.Context, p *model.Principal, id uuid.UUID, req model.AmendAppointmentRequest) (*model.AppointmentDetail, error)
	Update(ctx context.Context, p *model.Principal, id uuid.UUID, req model.AdminUpdateAppointmentRequest) (*model.AppointmentDetail, error)
	List(ctx context.Context, p *model.Principal, filters model.AppointmentFilters) ([]*model.AppointmentDetail, int, error)
	Get(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.AppointmentDetail, error)
	Delete(ctx context.Context, p *model.Principal, id uuid.UUID) error
	Stats(ctx context.Context, p *model.Principal) (model.AppointmentStats, error)
}

// Directory serves doctor and patient profiles.
type Directory interface {
	Doctor(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.DoctorProfile, error)
	ListDoctors(ctx context.Context, p *model.Principal, specialization string, page model.Pagination) ([]*model.DoctorProfile, int, error)
	UpdateDoctor(ctx context.Context, p *model.Principal, id uuid.UUID, req model.UpdateDoctorProfileRequest) (*model.DoctorProfile, error)
	UpdateAvailability(ctx context.Context, p *model.Principal, req model.UpdateAvailabilityRequest) (*model.DoctorProfile, error)
	Patient(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.PatientProfile, error)
	UpdatePatient(ctx context.Context, p *model.Principal, id uuid.UUID, req model.UpdatePatientProfileRequest) (*model.PatientProfile, error)
	ListPatients(ctx context.Context, p *model.Principal, search string, page model.Pagination) ([]*model.PatientProfile, int, error)
	MyPatients(ctx context.Context, p *model.Principal, page model.Pagination) ([]*model.PatientProfile, int, error)
}
