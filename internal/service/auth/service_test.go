package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/service/audit"
	"github.com/jwalitptl/hospital-api/pkg/auth"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/security"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

type fixture struct {
	accounts *mockAccounts
	doctors  *mockDoctors
	patients *mockPatients
	tx       *inlineTx
	hasher   security.PasswordHasher
	tokens   auth.TokenService
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts: new(mockAccounts),
		doctors:  new(mockDoctors),
		patients: new(mockPatients),
		tx:       &inlineTx{},
		hasher:   security.NewBcryptHasher(bcrypt.MinCost),
		tokens:   auth.NewJWTService("test-secret", "hospital-api", time.Hour),
	}
	f.svc = NewService(f.accounts, f.doctors, f.patients, f.tx, f.hasher, f.tokens, validator.New(), audit.Nop{}, logger.Nop())
	return f
}

func (f *fixture) account(t *testing.T, role model.Role, password string, active bool) *model.Account {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	return &model.Account{
		Base:         model.Base{ID: uuid.New()},
		Email:        "user@hospital.com",
		PasswordHash: hash,
		FullName:     "Some User",
		Role:         role,
		IsActive:     active,
	}
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, code), "got %v", err)
}

func TestAuthenticateResolvesPatientProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, model.RolePatient, "secret1", true)
	profile := &model.PatientProfile{Base: model.Base{ID: uuid.New()}, AccountID: acct.ID}

	f.accounts.On("GetByEmail", ctx, "user@hospital.com").Return(acct, nil)
	f.patients.On("GetByAccountID", ctx, acct.ID).Return(profile, nil)

	session, err := f.svc.Authenticate(ctx, model.LoginRequest{Email: "user@hospital.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, profile.ID, session.Principal.ProfileID)
	assert.Equal(t, acct.ID, session.Account.ID)

	f.accounts.On("GetByID", ctx, acct.ID).Return(acct, nil)
	principal, err := f.svc.ValidateToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Principal, *principal)
}

func TestAuthenticateAdminHasNoProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, model.RoleAdmin, "secret1", true)
	f.accounts.On("GetByEmail", ctx, "user@hospital.com").Return(acct, nil)

	session, err := f.svc.Authenticate(ctx, model.LoginRequest{Email: "user@hospital.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, session.Principal.ProfileID)
	f.doctors.AssertNotCalled(t, "GetByAccountID", mock.Anything, mock.Anything)
	f.patients.AssertNotCalled(t, "GetByAccountID", mock.Anything, mock.Anything)
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, model.RoleDoctor, "secret1", true)

	f.accounts.On("GetByEmail", ctx, "user@hospital.com").Return(acct, nil)
	f.accounts.On("GetByEmail", ctx, "ghost@hospital.com").Return(nil, repository.ErrNotFound)

	_, wrongPassword := f.svc.Authenticate(ctx, model.LoginRequest{Email: "user@hospital.com", Password: "wrong99"})
	_, unknownEmail := f.svc.Authenticate(ctx, model.LoginRequest{Email: "ghost@hospital.com", Password: "secret1"})

	assertCode(t, wrongPassword, apperrors.ErrInvalidCredentials)
	assertCode(t, unknownEmail, apperrors.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, model.RolePatient, "secret1", false)
	f.accounts.On("GetByEmail", ctx, "user@hospital.com").Return(acct, nil)

	_, err := f.svc.Authenticate(ctx, model.LoginRequest{Email: "user@hospital.com", Password: "secret1"})
	assertCode(t, err, apperrors.ErrAccountDisabled)

	// Without the right password the account state is not revealed.
	_, err = f.svc.Authenticate(ctx, model.LoginRequest{Email: "user@hospital.com", Password: "nope123"})
	assertCode(t, err, apperrors.ErrInvalidCredentials)
}

func TestRegisterDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.accounts.On("GetByEmail", ctx, "new.doc@hospital.com").Return(nil, repository.ErrNotFound)
	f.accounts.On("Create", ctx, mock.Anything, mock.AnythingOfType("*model.Account")).
		Run(func(args mock.Arguments) { args.Get(2).(*model.Account).ID = uuid.New() }).
		Return(nil)
	var created *model.DoctorProfile
	f.doctors.On("Create", ctx, mock.Anything, mock.AnythingOfType("*model.DoctorProfile")).
		Run(func(args mock.Arguments) {
			created = args.Get(2).(*model.DoctorProfile)
			created.ID = uuid.New()
		}).
		Return(nil)

	session, err := f.svc.Register(ctx, model.RegistrationRequest{
		Email:    "New.Doc@hospital.com",
		Password: "secret1",
		FullName: "Dr New",
		Role:     model.RoleDoctor,
		Doctor: &model.DoctorFields{
			Specialization: "Cardiology",
			Availability: model.Availability{
				{DayOfWeek: "monday", Slots: []model.TimeRange{{Start: "9:00", End: "12:00"}}},
			},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, 1, f.tx.calls)
	assert.Equal(t, "new.doc@hospital.com", session.Account.Email)
	assert.True(t, session.Account.IsActive)
	assert.Equal(t, created.ID, session.Principal.ProfileID)
	assert.Equal(t, session.Account.ID, created.AccountID)
	assert.Equal(t, "09:00", created.Availability[0].Slots[0].Start)
	assert.NotEqual(t, "secret1", session.Account.PasswordHash)
}

func TestRegisterRejectsMismatchedVariant(t *testing.T) {
	tests := []struct {
		name  string
		req   model.RegistrationRequest
		field string
	}{
		{
			name:  "doctor without details",
			req:   model.RegistrationRequest{Role: model.RoleDoctor},
			field: "doctor",
		},
		{
			name: "doctor with patient details",
			req: model.RegistrationRequest{
				Role:    model.RoleDoctor,
				Doctor:  &model.DoctorFields{Specialization: "ENT"},
				Patient: &model.PatientFields{},
			},
			field: "patient",
		},
		{
			name: "patient with doctor details",
			req: model.RegistrationRequest{
				Role:   model.RolePatient,
				Doctor: &model.DoctorFields{Specialization: "ENT"},
			},
			field: "doctor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.req.Email = "x@hospital.com"
			tt.req.Password = "secret1"
			tt.req.FullName = "Some One"

			_, err := f.svc.Register(context.Background(), tt.req)
			assertCode(t, err, apperrors.ErrValidation)
			appErr, _ := apperrors.As(err)
			assert.Equal(t, tt.field, appErr.Field)
			assert.Zero(t, f.tx.calls)
		})
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), model.RegistrationRequest{
		Email: "x@hospital.com", Password: "secret1", FullName: "Some One", Role: model.RoleAdmin,
	})
	assertCode(t, err, apperrors.ErrValidation)
	assert.Zero(t, f.tx.calls)
}

func TestRegisterWeakPassword(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), model.RegistrationRequest{
		Email: "x@hospital.com", Password: "abcdefgh", FullName: "Some One", Role: model.RolePatient,
	})
	assertCode(t, err, apperrors.ErrValidation)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.account(t, model.RolePatient, "secret1", true)
	f.accounts.On("GetByEmail", ctx, "user@hospital.com").Return(existing, nil)

	_, err := f.svc.Register(ctx, model.RegistrationRequest{
		Email: "user@hospital.com", Password: "secret1", FullName: "Some One", Role: model.RolePatient,
	})
	assertCode(t, err, apperrors.ErrConflict)
	assert.Zero(t, f.tx.calls)
}

func TestRegisterDuplicateEmailOnInsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.accounts.On("GetByEmail", ctx, "user@hospital.com").Return(nil, repository.ErrNotFound)
	f.accounts.On("Create", ctx, mock.Anything, mock.Anything).Return(repository.ErrDuplicateEmail)

	_, err := f.svc.Register(ctx, model.RegistrationRequest{
		Email: "user@hospital.com", Password: "secret1", FullName: "Some One", Role: model.RolePatient,
	})
	assertCode(t, err, apperrors.ErrConflict)
	assert.True(t, f.tx.rolledBack)
}

func TestRegisterRollsBackWhenProfileFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.accounts.On("GetByEmail", ctx, "user@hospital.com").Return(nil, repository.ErrNotFound)
	f.accounts.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)
	f.patients.On("Create", ctx, mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	_, err := f.svc.Register(ctx, model.RegistrationRequest{
		Email: "user@hospital.com", Password: "secret1", FullName: "Some One", Role: model.RolePatient,
	})
	assertCode(t, err, apperrors.ErrInternal)
	assert.True(t, f.tx.rolledBack)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ValidateToken(context.Background(), "not-a-token")
	assertCode(t, err, apperrors.ErrUnauthorized)
}

func TestValidateTokenChecksAccount(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*model.Account)
		lookup error
		code   apperrors.ErrorCode
	}{
		{name: "deactivated", mutate: func(a *model.Account) { a.IsActive = false }, code: apperrors.ErrAccountDisabled},
		{name: "deleted", lookup: repository.ErrNotFound, code: apperrors.ErrUnauthorized},
		{name: "role changed", mutate: func(a *model.Account) { a.Role = model.RoleAdmin }, code: apperrors.ErrUnauthorized},
		{name: "store down", lookup: errors.New("connection refused"), code: apperrors.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			acct := f.account(t, model.RoleDoctor, "secret1", true)
			token, _, err := f.tokens.Issue(model.Principal{AccountID: acct.ID, Role: model.RoleDoctor, ProfileID: uuid.New()})
			require.NoError(t, err)

			if tt.mutate != nil {
				tt.mutate(acct)
			}
			if tt.lookup != nil {
				f.accounts.On("GetByID", ctx, acct.ID).Return(nil, tt.lookup)
			} else {
				f.accounts.On("GetByID", ctx, acct.ID).Return(acct, nil)
			}

			_, err = f.svc.ValidateToken(ctx, token)
			assertCode(t, err, tt.code)
		})
	}
}

func TestCreateAccountRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	caller := &model.Principal{AccountID: uuid.New(), Role: model.RoleDoctor, ProfileID: uuid.New()}

	_, err := f.svc.CreateAccount(context.Background(), caller, model.CreateAccountRequest{
		Email: "x@hospital.com", Password: "secret1", FullName: "Some One", Role: model.RoleAdmin,
	})
	assertCode(t, err, apperrors.ErrForbidden)
}

func TestCreateAccountAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caller := &model.Principal{AccountID: uuid.New(), Role: model.RoleAdmin}

	f.accounts.On("GetByEmail", ctx, "ops@hospital.com").Return(nil, repository.ErrNotFound)
	f.accounts.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)

	profile, err := f.svc.CreateAccount(ctx, caller, model.CreateAccountRequest{
		Email: "ops@hospital.com", Password: "secret1", FullName: "Ops Admin", Role: model.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, profile.Account.Role)
	assert.Nil(t, profile.Doctor)
	assert.Nil(t, profile.Patient)
}

func TestProfileReturnsDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, model.RoleDoctor, "secret1", true)
	doc := &model.DoctorProfile{Base: model.Base{ID: uuid.New()}, AccountID: acct.ID}

	f.accounts.On("GetByID", ctx, acct.ID).Return(acct, nil)
	f.doctors.On("GetByAccountID", ctx, acct.ID).Return(doc, nil)

	profile, err := f.svc.Profile(ctx, &model.Principal{AccountID: acct.ID, Role: model.RoleDoctor, ProfileID: doc.ID})
	require.NoError(t, err)
	assert.Equal(t, doc, profile.Doctor)
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.account(t, model.RoleAdmin, "secret1", true)
	f.accounts.On("GetByEmail", ctx, "admin@hospital.com").Return(existing, nil)

	require.NoError(t, f.svc.SeedAdmin(ctx, "admin@hospital.com", "admin123", "System Admin"))
	assert.Zero(t, f.tx.calls)
}

func TestSeedAdminCreates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.accounts.On("GetByEmail", ctx, "admin@hospital.com").Return(nil, repository.ErrNotFound)
	f.accounts.On("Create", ctx, mock.Anything, mock.MatchedBy(func(a *model.Account) bool {
		return a.Role == model.RoleAdmin && a.IsActive
	})).Return(nil)

	require.NoError(t, f.svc.SeedAdmin(ctx, "admin@hospital.com", "admin123", "System Admin"))
	f.accounts.AssertExpectations(t)
}
