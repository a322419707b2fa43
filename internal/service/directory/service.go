// Package directory serves doctor and patient profiles: self-service
// updates, availability, browsing for patients and a doctor's patient list.
package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/service/audit"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

type CacheConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

type Service struct {
	doctors   repository.DoctorRepository
	patients  repository.PatientRepository
	validator *validator.Validator
	auditor   audit.Recorder
	// doctorCache holds *model.DoctorProfile keyed by profile id.
	doctorCache *cache.Cache
}

func NewService(
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	v *validator.Validator,
	auditor audit.Recorder,
	cfg CacheConfig,
) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}
	return &Service{
		doctors:     doctors,
		patients:    patients,
		validator:   v,
		auditor:     auditor,
		doctorCache: cache.New(cfg.TTL, cfg.CleanupInterval),
	}
}

// Doctor returns a doctor profile. Only administrators can see inactive doctors.
func (s *Service) Doctor(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.DoctorProfile, error) {
	doctor, err := s.doctor(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doctor.IsActive && !p.Is(model.RoleAdmin) {
		return nil, apperrors.NewNotFound("doctor", repository.ErrNotFound)
	}
	return doctor, nil
}

// ListDoctors browses doctors, optionally by specialization. Non-admins only
// ever see active doctors.
func (s *Service) ListDoctors(ctx context.Context, p *model.Principal, specialization string, page model.Pagination) ([]*model.DoctorProfile, int, error) {
	page = page.Normalize()
	doctors, total, err := s.doctors.List(ctx, model.DoctorFilters{
		Specialization: strings.TrimSpace(specialization),
		ActiveOnly:     !p.Is(model.RoleAdmin),
		Limit:          page.Limit,
		Offset:         page.Offset(),
	})
	if err != nil {
		return nil, 0, apperrors.NewInternal(err)
	}
	return doctors, total, nil
}

// UpdateDoctor edits a doctor's professional details. A doctor may only edit
// their own profile.
func (s *Service) UpdateDoctor(ctx context.Context, p *model.Principal, id uuid.UUID, req model.UpdateDoctorProfileRequest) (*model.DoctorProfile, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !s.mayEdit(p, model.RoleDoctor, id) {
		return nil, apperrors.NewAccessDenied("you may only edit your own profile")
	}

	doctor, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("doctor", err)
	}
	if req.Specialization != nil {
		doctor.Specialization = strings.TrimSpace(*req.Specialization)
	}
	if req.Qualifications != nil {
		doctor.Qualifications = *req.Qualifications
	}
	if req.ExperienceYears != nil {
		doctor.ExperienceYears = *req.ExperienceYears
	}
	if req.ConsultationFee != nil {
		doctor.ConsultationFee = *req.ConsultationFee
	}

	if err := s.doctors.Update(ctx, doctor); err != nil {
		return nil, lookupError("doctor", err)
	}
	s.ForgetDoctor(id)
	s.auditor.Record(ctx, p, model.AuditActionUpdate, model.AuditEntityDoctor, id, nil)
	return s.doctor(ctx, id)
}

// UpdateAvailability replaces the calling doctor's weekly availability.
func (s *Service) UpdateAvailability(ctx context.Context, p *model.Principal, req model.UpdateAvailabilityRequest) (*model.DoctorProfile, error) {
	if !p.Is(model.RoleDoctor) {
		return nil, apperrors.NewForbidden("only doctors have availability")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	availability, err := validator.NormalizeAvailability(req.Availability)
	if err != nil {
		return nil, err
	}

	if err := s.doctors.UpdateAvailability(ctx, p.ProfileID, availability); err != nil {
		return nil, lookupError("doctor", err)
	}
	s.ForgetDoctor(p.ProfileID)
	s.auditor.Record(ctx, p, "update_availability", model.AuditEntityDoctor, p.ProfileID, nil)
	return s.doctor(ctx, p.ProfileID)
}

// Patient returns a patient profile. Patients see only themselves.
func (s *Service) Patient(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.PatientProfile, error) {
	if p == nil {
		return nil, apperrors.Unauthorized(nil)
	}
	if p.Is(model.RolePatient) && p.ProfileID != id {
		return nil, apperrors.NewAccessDenied("you may only view your own profile")
	}
	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("patient", err)
	}
	return patient, nil
}

func (s *Service) UpdatePatient(ctx context.Context, p *model.Principal, id uuid.UUID, req model.UpdatePatientProfileRequest) (*model.PatientProfile, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !s.mayEdit(p, model.RolePatient, id) {
		return nil, apperrors.NewAccessDenied("you may only edit your own profile")
	}

	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("patient", err)
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = req.DateOfBirth
	}
	if req.Gender != nil {
		patient.Gender = *req.Gender
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.MedicalHistory != nil {
		patient.MedicalHistory = *req.MedicalHistory
	}

	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, lookupError("patient", err)
	}
	s.auditor.Record(ctx, p, model.AuditActionUpdate, model.AuditEntityPatient, id, nil)
	return s.Patient(ctx, p, id)
}

func (s *Service) ListPatients(ctx context.Context, p *model.Principal, search string, page model.Pagination) ([]*model.PatientProfile, int, error) {
	if !p.Is(model.RoleAdmin) {
		return nil, 0, apperrors.NewForbidden("administrator access required")
	}
	page = page.Normalize()
	patients, total, err := s.patients.List(ctx, model.PatientFilters{
		Search: strings.TrimSpace(search),
		Limit:  page.Limit,
		Offset: page.Offset(),
	})
	if err != nil {
		return nil, 0, apperrors.NewInternal(err)
	}
	return patients, total, nil
}

// MyPatients lists the distinct patients who have booked with the calling doctor.
func (s *Service) MyPatients(ctx context.Context, p *model.Principal, page model.Pagination) ([]*model.PatientProfile, int, error) {
	if !p.Is(model.RoleDoctor) {
		return nil, 0, apperrors.NewForbidden("only doctors have patients")
	}
	page = page.Normalize()
	patients, total, err := s.patients.ListByDoctor(ctx, p.ProfileID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, apperrors.NewInternal(err)
	}
	return patients, total, nil
}

// ForgetDoctor drops a cached profile; callers changing a doctor's account
// row must call it too.
func (s *Service) ForgetDoctor(id uuid.UUID) {
	s.doctorCache.Delete(id.String())
}

func (s *Service) doctor(ctx context.Context, id uuid.UUID) (*model.DoctorProfile, error) {
	if cached, found := s.doctorCache.Get(id.String()); found {
		return cached.(*model.DoctorProfile), nil
	}
	doctor, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("doctor", err)
	}
	s.doctorCache.Set(id.String(), doctor, cache.DefaultExpiration)
	return doctor, nil
}

func (s *Service) mayEdit(p *model.Principal, role model.Role, id uuid.UUID) bool {
	if p.Is(model.RoleAdmin) {
		return true
	}
	return p.Is(role) && p.ProfileID == id
}

func lookupError(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, err)
	}
	return apperrors.NewInternal(err)
}
