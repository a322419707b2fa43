// Package auth authenticates accounts, registers new ones together with their
// role profile and resolves bearer tokens into principals.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/service/audit"
	"github.com/jwalitptl/hospital-api/pkg/auth"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/security"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

const msgEmailTaken = "email already registered"

// dummyPassword is hashed once so that unknown emails cost a bcrypt compare too.
const dummyPassword = "timing-equalizer-0"

type Service struct {
	accounts  repository.AccountRepository
	doctors   repository.DoctorRepository
	patients  repository.PatientRepository
	tx        repository.Transactor
	hasher    security.PasswordHasher
	tokens    auth.TokenService
	validator *validator.Validator
	auditor   audit.Recorder
	log       *logger.Logger
	dummyHash string
}

func NewService(
	accounts repository.AccountRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	tx repository.Transactor,
	hasher security.PasswordHasher,
	tokens auth.TokenService,
	v *validator.Validator,
	auditor audit.Recorder,
	log *logger.Logger,
) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		log.Error(err, "failed to prepare dummy password hash")
	}
	return &Service{
		accounts:  accounts,
		doctors:   doctors,
		patients:  patients,
		tx:        tx,
		hasher:    hasher,
		tokens:    tokens,
		validator: v,
		auditor:   auditor,
		log:       log,
		dummyHash: dummy,
	}
}

// Authenticate checks credentials and issues a session. Unknown email and
// wrong password are indistinguishable to the caller; a disabled account is
// only reported once the password has matched.
func (s *Service) Authenticate(ctx context.Context, req model.LoginRequest) (*model.Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = s.hasher.Compare(s.dummyHash, req.Password)
			return nil, apperrors.InvalidCredentials()
		}
		return nil, apperrors.NewInternal(err)
	}

	if err := s.hasher.Compare(account.PasswordHash, req.Password); err != nil {
		if errors.Is(err, security.ErrMismatch) {
			s.log.Debug("password mismatch", "account_id", account.ID.String())
			return nil, apperrors.InvalidCredentials()
		}
		return nil, apperrors.NewInternal(err)
	}

	if !account.IsActive {
		return nil, apperrors.AccountDisabled()
	}

	principal, err := s.principalFor(ctx, account)
	if err != nil {
		return nil, err
	}

	session, err := s.issue(account, principal)
	if err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, &principal, model.AuditActionLogin, model.AuditEntityAccount, account.ID, nil)
	return session, nil
}

// Register creates an account and its role profile in one transaction.
func (s *Service) Register(ctx context.Context, req model.RegistrationRequest) (*model.Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	account, profileID, err := s.create(ctx, newAccountInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     req.Role,
		Doctor:   req.Doctor,
		Patient:  req.Patient,
	})
	if err != nil {
		return nil, err
	}

	principal := model.Principal{AccountID: account.ID, Role: account.Role, ProfileID: profileID}
	s.auditor.Record(ctx, &principal, model.AuditActionRegister, model.AuditEntityAccount, account.ID, map[string]string{
		"role": string(account.Role),
	})
	return s.issue(account, principal)
}

// CreateAccount is the administrator path; unlike Register it may create
// other administrators.
func (s *Service) CreateAccount(ctx context.Context, p *model.Principal, req model.CreateAccountRequest) (*model.Profile, error) {
	if !p.Is(model.RoleAdmin) {
		return nil, apperrors.NewForbidden("administrator access required")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	account, _, err := s.create(ctx, newAccountInput(req))
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, p, model.AuditActionCreate, model.AuditEntityAccount, account.ID, map[string]string{
		"role": string(account.Role),
	})
	return s.profileOf(ctx, account)
}

// ValidateToken resolves a bearer token to the principal it was issued for.
// The account is re-read on every call so that deactivating it, deleting it
// or changing its role takes effect before the token expires.
func (s *Service) ValidateToken(ctx context.Context, token string) (*model.Principal, error) {
	principal, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	account, err := s.accounts.GetByID(ctx, principal.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(err)
		}
		return nil, apperrors.NewInternal(err)
	}
	if !account.IsActive {
		return nil, apperrors.AccountDisabled()
	}
	if account.Role != principal.Role {
		s.log.Warn("token role no longer matches account", "account_id", account.ID.String())
		return nil, apperrors.Unauthorized(nil)
	}
	return principal, nil
}

// Profile returns the caller's account along with its role profile.
func (s *Service) Profile(ctx context.Context, p *model.Principal) (*model.Profile, error) {
	if p == nil {
		return nil, apperrors.Unauthorized(nil)
	}
	account, err := s.accounts.GetByID(ctx, p.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("account", err)
		}
		return nil, apperrors.NewInternal(err)
	}
	return s.profileOf(ctx, account)
}

// SeedAdmin creates the bootstrap administrator unless the email is taken.
func (s *Service) SeedAdmin(ctx context.Context, email, password, fullName string) error {
	_, err := s.accounts.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	account, _, err := s.create(ctx, newAccountInput{
		Email:    email,
		Password: password,
		FullName: fullName,
		Role:     model.RoleAdmin,
	})
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrConflict) {
			return nil
		}
		return err
	}
	s.log.Info("Seeded administrator account", "account_id", account.ID.String(), "email", account.Email)
	return nil
}

type newAccountInput struct {
	Email    string
	Password string
	FullName string
	Role     model.Role
	Phone    string
	Doctor   *model.DoctorFields
	Patient  *model.PatientFields
}

// create checks the role variant, hashes the password and writes the
// account plus profile atomically. It returns the new profile id, or
// uuid.Nil for administrators.
func (s *Service) create(ctx context.Context, in newAccountInput) (*model.Account, uuid.UUID, error) {
	if err := checkVariant(in.Role, in.Doctor, in.Patient); err != nil {
		return nil, uuid.Nil, err
	}

	var availability model.Availability
	if in.Doctor != nil {
		var err error
		if availability, err = validator.NormalizeAvailability(in.Doctor.Availability); err != nil {
			return nil, uuid.Nil, err
		}
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, uuid.Nil, apperrors.NewConflict(msgEmailTaken, repository.ErrDuplicateEmail)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, uuid.Nil, apperrors.NewInternal(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) || errors.Is(err, security.ErrPasswordNoDigit) {
			return nil, uuid.Nil, apperrors.NewValidation("password", err.Error())
		}
		return nil, uuid.Nil, apperrors.NewInternal(err)
	}

	account := &model.Account{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         in.Role,
		Phone:        strings.TrimSpace(in.Phone),
		IsActive:     true,
	}
	profileID := uuid.Nil

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.accounts.Create(ctx, tx, account); err != nil {
			return err
		}
		switch in.Role {
		case model.RoleDoctor:
			doctor := &model.DoctorProfile{
				AccountID:       account.ID,
				Specialization:  strings.TrimSpace(in.Doctor.Specialization),
				Qualifications:  in.Doctor.Qualifications,
				ExperienceYears: in.Doctor.ExperienceYears,
				ConsultationFee: in.Doctor.ConsultationFee,
				Availability:    availability,
			}
			if err := s.doctors.Create(ctx, tx, doctor); err != nil {
				return err
			}
			profileID = doctor.ID
		case model.RolePatient:
			patient := &model.PatientProfile{AccountID: account.ID}
			if in.Patient != nil {
				patient.DateOfBirth = in.Patient.DateOfBirth
				patient.Gender = in.Patient.Gender
				patient.Address = in.Patient.Address
				patient.MedicalHistory = in.Patient.MedicalHistory
			}
			if err := s.patients.Create(ctx, tx, patient); err != nil {
				return err
			}
			profileID = patient.ID
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, uuid.Nil, apperrors.NewConflict(msgEmailTaken, err)
		}
		return nil, uuid.Nil, apperrors.NewInternal(err)
	}

	return account, profileID, nil
}

// checkVariant enforces that only the fields matching the role are present.
func checkVariant(role model.Role, doctor *model.DoctorFields, patient *model.PatientFields) error {
	switch role {
	case model.RoleDoctor:
		if doctor == nil {
			return apperrors.NewValidation("doctor", "doctor details are required for doctor accounts")
		}
		if patient != nil {
			return apperrors.NewValidation("patient", "patient details are not allowed for doctor accounts")
		}
	case model.RolePatient:
		if doctor != nil {
			return apperrors.NewValidation("doctor", "doctor details are not allowed for patient accounts")
		}
	case model.RoleAdmin:
		if doctor != nil || patient != nil {
			return apperrors.NewValidation("role", "administrators have no role profile")
		}
	default:
		return apperrors.NewValidation("role", "must be one of: admin, doctor, patient")
	}
	return nil
}

func (s *Service) principalFor(ctx context.Context, account *model.Account) (model.Principal, error) {
	principal := model.Principal{AccountID: account.ID, Role: account.Role}

	var err error
	switch account.Role {
	case model.RoleDoctor:
		var doctor *model.DoctorProfile
		if doctor, err = s.doctors.GetByAccountID(ctx, account.ID); err == nil {
			principal.ProfileID = doctor.ID
		}
	case model.RolePatient:
		var patient *model.PatientProfile
		if patient, err = s.patients.GetByAccountID(ctx, account.ID); err == nil {
			principal.ProfileID = patient.ID
		}
	}
	if err != nil {
		// A doctor or patient without a profile cannot act in its role.
		s.log.Error(err, "role profile missing", "account_id", account.ID.String(), "role", string(account.Role))
		return principal, apperrors.NewInternal(err)
	}
	return principal, nil
}

func (s *Service) profileOf(ctx context.Context, account *model.Account) (*model.Profile, error) {
	profile := &model.Profile{Account: account}

	var err error
	switch account.Role {
	case model.RoleDoctor:
		profile.Doctor, err = s.doctors.GetByAccountID(ctx, account.ID)
	case model.RolePatient:
		profile.Patient, err = s.patients.GetByAccountID(ctx, account.ID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("profile", err)
		}
		return nil, apperrors.NewInternal(err)
	}
	return profile, nil
}

func (s *Service) issue(account *model.Account, principal model.Principal) (*model.Session, error) {
	token, expiresAt, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return &model.Session{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   account,
		Principal: principal,
	}, nil
}
