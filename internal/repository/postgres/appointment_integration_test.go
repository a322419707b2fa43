package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

// These tests run against a real database and are skipped unless
// HOSPITAL_TEST_DATABASE_URL points at a disposable Postgres instance.
// Every run truncates the appointment tables.
const testDatabaseEnv = "HOSPITAL_TEST_DATABASE_URL"

type seeded struct {
	repos   *Repositories
	doctor  *model.DoctorProfile
	patient *model.PatientProfile
}

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))
	_, err = db.ExecContext(ctx, `TRUNCATE appointments, patient_profiles, doctor_profiles, accounts CASCADE`)
	require.NoError(t, err)
	return db
}

func seed(t *testing.T) *seeded {
	t.Helper()
	ctx := context.Background()
	repos := NewRepositories(openTestDB(t))

	doctorAccount := &model.Account{
		Email:        "doc-" + uuid.NewString() + "@hospital.test",
		PasswordHash: "x",
		FullName:     "Dr Slot",
		Role:         model.RoleDoctor,
		IsActive:     true,
	}
	require.NoError(t, repos.Accounts.Create(ctx, nil, doctorAccount))
	doctor := &model.DoctorProfile{AccountID: doctorAccount.ID, Specialization: "Cardiology"}
	require.NoError(t, repos.Doctors.Create(ctx, nil, doctor))

	patientAccount := &model.Account{
		Email:        "pat-" + uuid.NewString() + "@hospital.test",
		PasswordHash: "x",
		FullName:     "Pat Slot",
		Role:         model.RolePatient,
		IsActive:     true,
	}
	require.NoError(t, repos.Accounts.Create(ctx, nil, patientAccount))
	patient := &model.PatientProfile{AccountID: patientAccount.ID}
	require.NoError(t, repos.Patients.Create(ctx, nil, patient))

	return &seeded{repos: repos, doctor: doctor, patient: patient}
}

func (s *seeded) book(t *testing.T, date, clock string) *model.Appointment {
	t.Helper()
	a := &model.Appointment{
		PatientID:       s.patient.ID,
		DoctorID:        s.doctor.ID,
		AppointmentDate: date,
		AppointmentTime: clock,
	}
	require.NoError(t, s.repos.Appointment.Create(context.Background(), a))
	return a
}

func (s *seeded) cancel(t *testing.T, id uuid.UUID) {
	t.Helper()
	_, err := s.repos.Appointment.Apply(context.Background(), model.AppointmentUpdate{
		ID:   id,
		From: []model.AppointmentStatus{model.AppointmentStatusPending, model.AppointmentStatusConfirmed},
		To:   model.AppointmentStatusCancelled,
	})
	require.NoError(t, err)
}

func TestAppointmentActiveSlotIndex(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	appointments := s.repos.Appointment

	first := s.book(t, "2030-03-01", "09:00")

	dup := &model.Appointment{PatientID: s.patient.ID, DoctorID: s.doctor.ID, AppointmentDate: "2030-03-01", AppointmentTime: "09:00"}
	assert.ErrorIs(t, appointments.Create(ctx, dup), repository.ErrSlotTaken)

	taken, err := appointments.HasConflict(ctx, s.doctor.ID, "2030-03-01", "09:00", nil)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = appointments.HasConflict(ctx, s.doctor.ID, "2030-03-01", "09:00", &first.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	// Cancelling frees the slot for a new booking.
	s.cancel(t, first.ID)
	taken, err = appointments.HasConflict(ctx, s.doctor.ID, "2030-03-01", "09:00", nil)
	require.NoError(t, err)
	assert.False(t, taken)

	second := s.book(t, "2030-03-01", "09:00")
	got, err := appointments.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "2030-03-01", got.AppointmentDate)
	assert.Equal(t, "09:00", got.AppointmentTime)
	assert.Equal(t, model.AppointmentStatusPending, got.Status)
	assert.Equal(t, "Dr Slot", got.DoctorName)
	assert.Equal(t, "Pat Slot", got.PatientName)
}

func TestAppointmentApplyIsConditional(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	appointments := s.repos.Appointment

	a := s.book(t, "2030-03-02", "10:00")
	before, err := appointments.Get(ctx, a.ID)
	require.NoError(t, err)

	notes := "should not land"
	_, err = appointments.Apply(ctx, model.AppointmentUpdate{
		ID:    a.ID,
		From:  []model.AppointmentStatus{model.AppointmentStatusConfirmed},
		To:    model.AppointmentStatusCompleted,
		Notes: &notes,
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	after, err := appointments.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, after.Status)
	assert.Nil(t, after.Notes)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt), "updated_at moved on a rejected write")

	updated, err := appointments.Apply(ctx, model.AppointmentUpdate{
		ID:    a.ID,
		From:  []model.AppointmentStatus{model.AppointmentStatusPending},
		To:    model.AppointmentStatusConfirmed,
		Notes: &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, updated.Status)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, notes, *updated.Notes)
	assert.False(t, updated.UpdatedAt.Before(after.UpdatedAt))

	_, err = appointments.Apply(ctx, model.AppointmentUpdate{ID: uuid.New(), From: []model.AppointmentStatus{model.AppointmentStatusPending}})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAppointmentMovesRespectLiveSlots(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	appointments := s.repos.Appointment
	open := []model.AppointmentStatus{model.AppointmentStatusPending, model.AppointmentStatusConfirmed}

	s.book(t, "2030-03-03", "08:00")
	b := s.book(t, "2030-03-03", "11:00")

	_, err := appointments.Reschedule(ctx, b.ID, open, "2030-03-03", "08:00")
	assert.ErrorIs(t, err, repository.ErrSlotTaken)

	date, clock, reason := "2030-03-03", "08:00", "combined edit"
	_, err = appointments.Apply(ctx, model.AppointmentUpdate{ID: b.ID, From: open, Reason: &reason, Date: &date, Time: &clock})
	assert.ErrorIs(t, err, repository.ErrSlotTaken)

	unchanged, err := appointments.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "11:00", unchanged.AppointmentTime)
	assert.Nil(t, unchanged.Reason)

	moved, err := appointments.Reschedule(ctx, b.ID, open, "2030-03-04", "16:30")
	require.NoError(t, err)
	assert.Equal(t, "2030-03-04", moved.AppointmentDate)
	assert.Equal(t, "16:30", moved.AppointmentTime)

	clock = "17:00"
	moved, err = appointments.Apply(ctx, model.AppointmentUpdate{ID: b.ID, From: open, Reason: &reason, Time: &clock})
	require.NoError(t, err)
	assert.Equal(t, "2030-03-04", moved.AppointmentDate)
	assert.Equal(t, "17:00", moved.AppointmentTime)
	require.NotNil(t, moved.Reason)
	assert.Equal(t, reason, *moved.Reason)

	// A terminal appointment cannot be moved even onto a free slot.
	s.cancel(t, b.ID)
	_, err = appointments.Reschedule(ctx, b.ID, open, "2030-03-05", "10:00")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAppointmentListOrderAndCount(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	appointments := s.repos.Appointment

	early := s.book(t, "2030-04-01", "09:00")
	s.cancel(t, early.ID)
	rebooked := s.book(t, "2030-04-01", "09:00")
	afternoon := s.book(t, "2030-04-01", "15:00")
	nextDay := s.book(t, "2030-04-02", "08:00")

	all, total, err := appointments.List(ctx, model.AppointmentFilters{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, all, 4)
	assert.Equal(t, []uuid.UUID{nextDay.ID, afternoon.ID, early.ID, rebooked.ID}, ids(all))

	page, total, err := appointments.List(ctx, model.AppointmentFilters{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, []uuid.UUID{afternoon.ID, early.ID}, ids(page))

	doctorID := s.doctor.ID
	cancelled, total, err := appointments.List(ctx, model.AppointmentFilters{
		DoctorID: &doctorID,
		Status:   model.AppointmentStatusCancelled,
		Limit:    1,
		Offset:   5,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, cancelled)

	byDate, total, err := appointments.List(ctx, model.AppointmentFilters{Date: "2030-04-02"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []uuid.UUID{nextDay.ID}, ids(byDate))

	counts, err := appointments.CountByStatus(ctx, model.AppointmentFilters{DoctorID: &doctorID})
	require.NoError(t, err)
	assert.Equal(t, 3, counts[model.AppointmentStatusPending])
	assert.Equal(t, 1, counts[model.AppointmentStatusCancelled])
}

func ids(rows []*model.AppointmentDetail) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}
