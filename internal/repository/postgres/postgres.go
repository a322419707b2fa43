package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/repository"
)

// Repositories bundles every store sharing one connection pool.
type Repositories struct {
	Base        BaseRepository
	Accounts    repository.AccountRepository
	Doctors     repository.DoctorRepository
	Patients    repository.PatientRepository
	Appointment repository.AppointmentRepository
	Outbox      repository.OutboxRepository
	Audit       repository.AuditRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	base := NewBaseRepository(db)
	return &Repositories{
		Base:        base,
		Accounts:    NewAccountRepository(base),
		Doctors:     NewDoctorRepository(base),
		Patients:    NewPatientRepository(base),
		Appointment: NewAppointmentRepository(base),
		Outbox:      NewOutboxRepository(base),
		Audit:       NewAuditRepository(base),
	}
}
