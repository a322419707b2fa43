package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/model"
)

var (
	// ErrNotFound is returned by every lookup when the row is absent.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail maps the unique violation on accounts.email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrSlotTaken maps the unique violation on the active-slot index.
	ErrSlotTaken = errors.New("doctor already has an appointment at this date and time")
	// ErrDuplicate covers any other unique violation.
	ErrDuplicate = errors.New("duplicate record")
)

// All repository interfaces in one file
type (
	// Transactor runs fn inside a single database transaction.
	Transactor interface {
		WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
	}

	AccountRepository interface {
		Create(ctx context.Context, tx *sqlx.Tx, account *model.Account) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
		GetByEmail(ctx context.Context, email string) (*model.Account, error)
		Update(ctx context.Context, account *model.Account) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters model.AccountFilters) ([]*model.Account, int, error)
		// Count with an empty role counts every account.
		Count(ctx context.Context, role model.Role) (int, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, tx *sqlx.Tx, doctor *model.DoctorProfile) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.DoctorProfile, error)
		GetByAccountID(ctx context.Context, accountID uuid.UUID) (*model.DoctorProfile, error)
		Update(ctx context.Context, doctor *model.DoctorProfile) error
		UpdateAvailability(ctx context.Context, id uuid.UUID, availability model.Availability) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters model.DoctorFilters) ([]*model.DoctorProfile, int, error)
		Count(ctx context.Context) (int, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, tx *sqlx.Tx, patient *model.PatientProfile) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.PatientProfile, error)
		GetByAccountID(ctx context.Context, accountID uuid.UUID) (*model.PatientProfile, error)
		Update(ctx context.Context, patient *model.PatientProfile) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters model.PatientFilters) ([]*model.PatientProfile, int, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*model.PatientProfile, int, error)
		Count(ctx context.Context) (int, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error)
		HasConflict(ctx context.Context, doctorID uuid.UUID, date, time string, excludeID *uuid.UUID) (bool, error)
		Reschedule(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, date, time string) (*model.Appointment, error)
		// Apply performs a conditional update and returns ErrNotFound when no
		// row with the given id is in one of the expected states.
		Apply(ctx context.Context, update model.AppointmentUpdate) (*model.Appointment, error)
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters model.AppointmentFilters) ([]*model.AppointmentDetail, int, error)
		CountByStatus(ctx context.Context, filters model.AppointmentFilters) (map[model.AppointmentStatus]int, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error)
		UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
		Transactor
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		ListWithPagination(ctx context.Context, filters model.AuditFilters) ([]*model.AuditLog, int, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
)
