package admin

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/hospital-api/internal/model"
)

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) Create(ctx context.Context, tx *sqlx.Tx, account *model.Account) error {
	return m.Called(ctx, tx, account).Error(0)
}

func (m *mockAccounts) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*model.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccounts) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	args := m.Called(ctx, email)
	if a := args.Get(0); a != nil {
		return a.(*model.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccounts) Update(ctx context.Context, account *model.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *mockAccounts) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAccounts) List(ctx context.Context, filters model.AccountFilters) ([]*model.Account, int, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*model.Account), args.Int(1), args.Error(2)
}

func (m *mockAccounts) Count(ctx context.Context, role model.Role) (int, error) {
	args := m.Called(ctx, role)
	return args.Int(0), args.Error(1)
}

type mockDoctors struct {
	mock.Mock
}

func (m *mockDoctors) Create(ctx context.Context, tx *sqlx.Tx, doctor *model.DoctorProfile) error {
	return m.Called(ctx, tx, doctor).Error(0)
}

func (m *mockDoctors) GetByID(ctx context.Context, id uuid.UUID) (*model.DoctorProfile, error) {
	args := m.Called(ctx, id)
	if d := args.Get(0); d != nil {
		return d.(*model.DoctorProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDoctors) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*model.DoctorProfile, error) {
	args := m.Called(ctx, accountID)
	if d := args.Get(0); d != nil {
		return d.(*model.DoctorProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDoctors) Update(ctx context.Context, doctor *model.DoctorProfile) error {
	return m.Called(ctx, doctor).Error(0)
}

func (m *mockDoctors) UpdateAvailability(ctx context.Context, id uuid.UUID, availability model.Availability) error {
	return m.Called(ctx, id, availability).Error(0)
}

func (m *mockDoctors) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDoctors) List(ctx context.Context, filters model.DoctorFilters) ([]*model.DoctorProfile, int, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*model.DoctorProfile), args.Int(1), args.Error(2)
}

func (m *mockDoctors) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockPatients struct {
	mock.Mock
}

func (m *mockPatients) Create(ctx context.Context, tx *sqlx.Tx, patient *model.PatientProfile) error {
	return m.Called(ctx, tx, patient).Error(0)
}

func (m *mockPatients) GetByID(ctx context.Context, id uuid.UUID) (*model.PatientProfile, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*model.PatientProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPatients) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*model.PatientProfile, error) {
	args := m.Called(ctx, accountID)
	if p := args.Get(0); p != nil {
		return p.(*model.PatientProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPatients) Update(ctx context.Context, patient *model.PatientProfile) error {
	return m.Called(ctx, patient).Error(0)
}

func (m *mockPatients) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPatients) List(ctx context.Context, filters model.PatientFilters) ([]*model.PatientProfile, int, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*model.PatientProfile), args.Int(1), args.Error(2)
}

func (m *mockPatients) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*model.PatientProfile, int, error) {
	args := m.Called(ctx, doctorID, limit, offset)
	return args.Get(0).([]*model.PatientProfile), args.Int(1), args.Error(2)
}

func (m *mockPatients) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type stubStats struct {
	stats model.AppointmentStats
}

func (s stubStats) Stats(context.Context, *model.Principal) (model.AppointmentStats, error) {
	return s.stats, nil
}

type recordingCache struct {
	forgotten []uuid.UUID
}

func (c *recordingCache) ForgetDoctor(id uuid.UUID) {
	c.forgotten = append(c.forgotten, id)
}

type mockAuditLister struct {
	mock.Mock
}

func (m *mockAuditLister) ListWithPagination(ctx context.Context, filters model.AuditFilters) ([]*model.AuditLog, int, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*model.AuditLog), args.Int(1), args.Error(2)
}
