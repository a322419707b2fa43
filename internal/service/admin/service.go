// Package admin backs the administrator console: dashboard counts, account
// management and the audit trail.
package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/service/audit"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

// StatsSource reports appointment counts within the caller's scope.
type StatsSource interface {
	Stats(ctx context.Context, p *model.Principal) (model.AppointmentStats, error)
}

// DoctorCache is notified when a doctor's account row changes.
type DoctorCache interface {
	ForgetDoctor(id uuid.UUID)
}

type AuditLister interface {
	ListWithPagination(ctx context.Context, filters model.AuditFilters) ([]*model.AuditLog, int, error)
}

type Service struct {
	accounts  repository.AccountRepository
	doctors   repository.DoctorRepository
	patients  repository.PatientRepository
	stats     StatsSource
	cache     DoctorCache
	auditLogs AuditLister
	validator *validator.Validator
	auditor   audit.Recorder
}

func NewService(
	accounts repository.AccountRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	stats StatsSource,
	cache DoctorCache,
	auditLogs AuditLister,
	v *validator.Validator,
	auditor audit.Recorder,
) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		accounts:  accounts,
		doctors:   doctors,
		patients:  patients,
		stats:     stats,
		cache:     cache,
		auditLogs: auditLogs,
		validator: v,
		auditor:   auditor,
	}
}

func (s *Service) Dashboard(ctx context.Context, p *model.Principal) (*model.DashboardStats, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}

	var (
		out model.DashboardStats
		err error
	)
	if out.TotalAccounts, err = s.accounts.Count(ctx, ""); err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if out.TotalDoctors, err = s.doctors.Count(ctx); err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if out.TotalPatients, err = s.patients.Count(ctx); err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if out.AppointmentStats, err = s.stats.Stats(ctx, p); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) ListAccounts(ctx context.Context, p *model.Principal, role, search string, active *bool, page model.Pagination) ([]*model.Account, int, error) {
	if err := requireAdmin(p); err != nil {
		return nil, 0, err
	}

	filters := model.AccountFilters{
		IsActive: active,
		Search:   strings.TrimSpace(search),
	}
	if role != "" {
		r, err := model.ParseRole(role)
		if err != nil {
			return nil, 0, apperrors.NewValidation("role", "must be one of: admin, doctor, patient")
		}
		filters.Role = r
	}
	page = page.Normalize()
	filters.Limit, filters.Offset = page.Limit, page.Offset()

	accounts, total, err := s.accounts.List(ctx, filters)
	if err != nil {
		return nil, 0, apperrors.NewInternal(err)
	}
	return accounts, total, nil
}

// UpdateAccount edits name, phone and the active flag. Administrators cannot
// deactivate themselves.
func (s *Service) UpdateAccount(ctx context.Context, p *model.Principal, id uuid.UUID, req model.UpdateAccountRequest) (*model.Account, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if id == p.AccountID && req.IsActive != nil && !*req.IsActive {
		return nil, apperrors.NewValidation("is_active", "you cannot deactivate your own account")
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("account", err)
	}
	if req.FullName != nil {
		account.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		account.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.IsActive != nil {
		account.IsActive = *req.IsActive
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, lookupError("account", err)
	}
	s.forgetAccount(ctx, account)
	s.auditor.Record(ctx, p, model.AuditActionUpdate, model.AuditEntityAccount, id, req)
	return account, nil
}

// DeleteAccount removes an account; its profile and appointments go with it.
func (s *Service) DeleteAccount(ctx context.Context, p *model.Principal, id uuid.UUID) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	if id == p.AccountID {
		return apperrors.NewValidation("id", "you cannot delete your own account")
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return lookupError("account", err)
	}
	s.forgetAccount(ctx, account)
	if err := s.accounts.Delete(ctx, id); err != nil {
		return lookupError("account", err)
	}
	s.auditor.Record(ctx, p, model.AuditActionDelete, model.AuditEntityAccount, id, map[string]string{
		"role":  string(account.Role),
		"email": account.Email,
	})
	return nil
}

// DeleteDoctor removes the doctor's whole account.
func (s *Service) DeleteDoctor(ctx context.Context, p *model.Principal, id uuid.UUID) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	doctor, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return lookupError("doctor", err)
	}
	s.cache.ForgetDoctor(id)
	if err := s.accounts.Delete(ctx, doctor.AccountID); err != nil {
		return lookupError("doctor", err)
	}
	s.auditor.Record(ctx, p, model.AuditActionDelete, model.AuditEntityDoctor, id, nil)
	return nil
}

// DeletePatient removes the patient's whole account.
func (s *Service) DeletePatient(ctx context.Context, p *model.Principal, id uuid.UUID) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return lookupError("patient", err)
	}
	if err := s.accounts.Delete(ctx, patient.AccountID); err != nil {
		return lookupError("patient", err)
	}
	s.auditor.Record(ctx, p, model.AuditActionDelete, model.AuditEntityPatient, id, nil)
	return nil
}

func (s *Service) AuditLogs(ctx context.Context, p *model.Principal, filters model.AuditFilters, page model.Pagination) ([]*model.AuditLog, int, error) {
	if err := requireAdmin(p); err != nil {
		return nil, 0, err
	}
	page = page.Normalize()
	filters.Limit, filters.Offset = page.Limit, page.Offset()

	logs, total, err := s.auditLogs.ListWithPagination(ctx, filters)
	if err != nil {
		return nil, 0, apperrors.NewInternal(err)
	}
	return logs, total, nil
}

func (s *Service) forgetAccount(ctx context.Context, account *model.Account) {
	if account.Role != model.RoleDoctor {
		return
	}
	if doctor, err := s.doctors.GetByAccountID(ctx, account.ID); err == nil {
		s.cache.ForgetDoctor(doctor.ID)
	}
}

func requireAdmin(p *model.Principal) error {
	if !p.Is(model.RoleAdmin) {
		return apperrors.NewForbidden("administrator access required")
	}
	return nil
}

func lookupError(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, err)
	}
	return apperrors.NewInternal(err)
}
