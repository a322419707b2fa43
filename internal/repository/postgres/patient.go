package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

const patientColumns = `
	p.id, p.account_id, to_char(p.date_of_birth, 'YYYY-MM-DD') AS date_of_birth,
	p.gender, p.address, p.medical_history, p.created_at, p.updated_at,
	a.email, a.full_name, a.phone, a.is_active`

const patientSelect = `
	SELECT ` + patientColumns + `
	FROM patient_profiles p
	JOIN accounts a ON a.id = p.account_id`

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

func (r *patientRepository) Create(ctx context.Context, tx *sqlx.Tx, patient *model.PatientProfile) error {
	query := `
		INSERT INTO patient_profiles (
			id, account_id, date_of_birth, gender, address, medical_history, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	now := time.Now().UTC()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	_, err := r.ext(tx).ExecContext(ctx, query,
		patient.ID,
		patient.AccountID,
		patient.DateOfBirth,
		patient.Gender,
		patient.Address,
		patient.MedicalHistory,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	return translate(err, "create patient profile")
}

func (r *patientRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PatientProfile, error) {
	var patient model.PatientProfile
	if err := r.db.GetContext(ctx, &patient, patientSelect+` WHERE p.id = $1`, id); err != nil {
		return nil, translate(err, "get patient profile")
	}
	return &patient, nil
}

func (r *patientRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*model.PatientProfile, error) {
	var patient model.PatientProfile
	if err := r.db.GetContext(ctx, &patient, patientSelect+` WHERE p.account_id = $1`, accountID); err != nil {
		return nil, translate(err, "get patient profile by account")
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.PatientProfile) error {
	query := `
		UPDATE patient_profiles SET
			date_of_birth = $1,
			gender = $2,
			address = $3,
			medical_history = $4,
			updated_at = $5
		WHERE id = $6
	`

	patient.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		patient.DateOfBirth,
		patient.Gender,
		patient.Address,
		patient.MedicalHistory,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return translate(err, "update patient profile")
	}
	return expectOneRow(result, "update patient profile")
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM patient_profiles WHERE id = $1`, id)
	if err != nil {
		return translate(err, "delete patient profile")
	}
	return expectOneRow(result, "delete patient profile")
}

func (r *patientRepository) List(ctx context.Context, filters model.PatientFilters) ([]*model.PatientProfile, int, error) {
	where, args := " WHERE 1=1", []interface{}{}

	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += fmt.Sprintf(" AND (a.full_name ILIKE $%d OR a.email ILIKE $%d)", len(args), len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM patient_profiles p JOIN accounts a ON a.id = p.account_id` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, translate(err, "count patients")
	}

	query, args := paginate(patientSelect+where+` ORDER BY p.created_at DESC`, args, filters.Limit, filters.Offset)

	patients := []*model.PatientProfile{}
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, 0, translate(err, "list patients")
	}
	return patients, total, nil
}

// ListByDoctor returns the distinct patients who hold any appointment with the doctor.
func (r *patientRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*model.PatientProfile, int, error) {
	where := ` WHERE p.id IN (SELECT patient_id FROM appointments WHERE doctor_id = $1)`

	var total int
	countQuery := `SELECT COUNT(*) FROM patient_profiles p` + where
	if err := r.db.GetContext(ctx, &total, countQuery, doctorID); err != nil {
		return nil, 0, translate(err, "count doctor patients")
	}

	query, args := paginate(patientSelect+where+` ORDER BY p.created_at DESC`, []interface{}{doctorID}, limit, offset)

	patients := []*model.PatientProfile{}
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, 0, translate(err, "list doctor patients")
	}
	return patients, total, nil
}

func (r *patientRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM patient_profiles`); err != nil {
		return 0, translate(err, "count patients")
	}
	return total, nil
}
