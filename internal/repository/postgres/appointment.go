package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

// appointmentColumns renders date and time as strings so they scan into
// the model without timezone handling.
const appointmentColumns = `
	ap.id, ap.patient_id, ap.doctor_id,
	to_char(ap.appointment_date, 'YYYY-MM-DD') AS appointment_date,
	to_char(ap.appointment_time, 'HH24:MI') AS appointment_time,
	ap.status, ap.reason, ap.notes, ap.created_at, ap.updated_at`

const returningColumns = `
	RETURNING id, patient_id, doctor_id,
		to_char(appointment_date, 'YYYY-MM-DD') AS appointment_date,
		to_char(appointment_time, 'HH24:MI') AS appointment_time,
		status, reason, notes, created_at, updated_at`

const appointmentDetailSelect = `
	SELECT ` + appointmentColumns + `,
		pa.full_name AS patient_name, pa.email AS patient_email,
		da.full_name AS doctor_name, d.specialization
	FROM appointments ap
	JOIN patient_profiles p ON p.id = ap.patient_id
	JOIN accounts pa ON pa.id = p.account_id
	JOIN doctor_profiles d ON d.id = ap.doctor_id
	JOIN accounts da ON da.id = d.account_id`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, appointment_date, appointment_time,
			status, reason, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	if appointment.Status == "" {
		appointment.Status = model.AppointmentStatusPending
	}
	now := time.Now().UTC()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.AppointmentDate,
		appointment.AppointmentTime,
		appointment.Status,
		appointment.Reason,
		appointment.Notes,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	return translate(err, "create appointment")
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	var appointment model.AppointmentDetail
	if err := r.db.GetContext(ctx, &appointment, appointmentDetailSelect+` WHERE ap.id = $1`, id); err != nil {
		return nil, translate(err, "get appointment")
	}
	return &appointment, nil
}

func (r *appointmentRepository) HasConflict(ctx context.Context, doctorID uuid.UUID, date, clock string, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			AND appointment_date = $2
			AND appointment_time = $3
			AND status <> 'cancelled'
			AND ($4::uuid IS NULL OR id <> $4::uuid)
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, doctorID, date, clock, excludeID); err != nil {
		return false, translate(err, "check appointment conflict")
	}
	return exists, nil
}

func (r *appointmentRepository) Reschedule(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, date, clock string) (*model.Appointment, error) {
	query := `
		UPDATE appointments SET
			appointment_date = $1,
			appointment_time = $2,
			updated_at = NOW()
		WHERE id = $3 AND status = ANY($4)
	` + returningColumns

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, date, clock, id, pq.Array(statusStrings(from)))
	if err != nil {
		return nil, translate(err, "reschedule appointment")
	}
	return &appointment, nil
}

func (r *appointmentRepository) Apply(ctx context.Context, update model.AppointmentUpdate) (*model.Appointment, error) {
	query := `
		UPDATE appointments SET
			status = COALESCE(NULLIF($1, ''), status),
			notes = COALESCE($2, notes),
			reason = COALESCE($3, reason),
			appointment_date = COALESCE($6::date, appointment_date),
			appointment_time = COALESCE($7::time, appointment_time),
			updated_at = NOW()
		WHERE id = $4 AND status = ANY($5)
	` + returningColumns

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query,
		string(update.To),
		update.Notes,
		update.Reason,
		update.ID,
		pq.Array(statusStrings(update.From)),
		update.Date,
		update.Time,
	)
	if err != nil {
		return nil, translate(err, "update appointment")
	}
	return &appointment, nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return translate(err, "delete appointment")
	}
	return expectOneRow(result, "delete appointment")
}

func appointmentWhere(filters model.AppointmentFilters) (string, []interface{}) {
	where, args := " WHERE 1=1", []interface{}{}

	if filters.PatientID != nil {
		args = append(args, *filters.PatientID)
		where += fmt.Sprintf(" AND ap.patient_id = $%d", len(args))
	}
	if filters.DoctorID != nil {
		args = append(args, *filters.DoctorID)
		where += fmt.Sprintf(" AND ap.doctor_id = $%d", len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(" AND ap.status = $%d", len(args))
	}
	if filters.Date != "" {
		args = append(args, filters.Date)
		where += fmt.Sprintf(" AND ap.appointment_date = $%d", len(args))
	}
	return where, args
}

func (r *appointmentRepository) List(ctx context.Context, filters model.AppointmentFilters) ([]*model.AppointmentDetail, int, error) {
	where, args := appointmentWhere(filters)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM appointments ap`+where, args...); err != nil {
		return nil, 0, translate(err, "count appointments")
	}

	query, args := paginate(
		appointmentDetailSelect+where+
			` ORDER BY ap.appointment_date DESC, ap.appointment_time DESC, ap.created_at ASC, ap.id ASC`,
		args, filters.Limit, filters.Offset,
	)

	appointments := []*model.AppointmentDetail{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, translate(err, "list appointments")
	}
	return appointments, total, nil
}

func (r *appointmentRepository) CountByStatus(ctx context.Context, filters model.AppointmentFilters) (map[model.AppointmentStatus]int, error) {
	where, args := appointmentWhere(filters)

	var rows []struct {
		Status model.AppointmentStatus `db:"status"`
		Count  int                     `db:"count"`
	}
	query := `SELECT ap.status, COUNT(*) AS count FROM appointments ap` + where + ` GROUP BY ap.status`
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translate(err, "count appointments by status")
	}

	counts := make(map[model.AppointmentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func statusStrings(statuses []model.AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
