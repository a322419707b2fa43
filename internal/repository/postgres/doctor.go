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

const doctorSelect = `
	SELECT d.id, d.account_id, d.specialization, d.qualifications, d.experience_years,
		d.consultation_fee, d.availability, d.created_at, d.updated_at,
		a.email, a.full_name, a.phone, a.is_active
	FROM doctor_profiles d
	JOIN accounts a ON a.id = d.account_id`

type doctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(base BaseRepository) repository.DoctorRepository {
	return &doctorRepository{base}
}

func (r *doctorRepository) Create(ctx context.Context, tx *sqlx.Tx, doctor *model.DoctorProfile) error {
	query := `
		INSERT INTO doctor_profiles (
			id, account_id, specialization, qualifications, experience_years,
			consultation_fee, availability, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if doctor.ID == uuid.Nil {
		doctor.ID = uuid.New()
	}
	if doctor.Availability == nil {
		doctor.Availability = model.Availability{}
	}
	now := time.Now().UTC()
	doctor.CreatedAt = now
	doctor.UpdatedAt = now

	_, err := r.ext(tx).ExecContext(ctx, query,
		doctor.ID,
		doctor.AccountID,
		doctor.Specialization,
		doctor.Qualifications,
		doctor.ExperienceYears,
		doctor.ConsultationFee,
		doctor.Availability,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	return translate(err, "create doctor profile")
}

func (r *doctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.DoctorProfile, error) {
	var doctor model.DoctorProfile
	if err := r.db.GetContext(ctx, &doctor, doctorSelect+` WHERE d.id = $1`, id); err != nil {
		return nil, translate(err, "get doctor profile")
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*model.DoctorProfile, error) {
	var doctor model.DoctorProfile
	if err := r.db.GetContext(ctx, &doctor, doctorSelect+` WHERE d.account_id = $1`, accountID); err != nil {
		return nil, translate(err, "get doctor profile by account")
	}
	return &doctor, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.DoctorProfile) error {
	query := `
		UPDATE doctor_profiles SET
			specialization = $1,
			qualifications = $2,
			experience_years = $3,
			consultation_fee = $4,
			updated_at = $5
		WHERE id = $6
	`

	doctor.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		doctor.Specialization,
		doctor.Qualifications,
		doctor.ExperienceYears,
		doctor.ConsultationFee,
		doctor.UpdatedAt,
		doctor.ID,
	)
	if err != nil {
		return translate(err, "update doctor profile")
	}
	return expectOneRow(result, "update doctor profile")
}

func (r *doctorRepository) UpdateAvailability(ctx context.Context, id uuid.UUID, availability model.Availability) error {
	if availability == nil {
		availability = model.Availability{}
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE doctor_profiles SET availability = $1, updated_at = NOW() WHERE id = $2`,
		availability, id,
	)
	if err != nil {
		return translate(err, "update availability")
	}
	return expectOneRow(result, "update availability")
}

func (r *doctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM doctor_profiles WHERE id = $1`, id)
	if err != nil {
		return translate(err, "delete doctor profile")
	}
	return expectOneRow(result, "delete doctor profile")
}

func (r *doctorRepository) List(ctx context.Context, filters model.DoctorFilters) ([]*model.DoctorProfile, int, error) {
	where, args := " WHERE 1=1", []interface{}{}

	if filters.Specialization != "" {
		args = append(args, "%"+filters.Specialization+"%")
		where += fmt.Sprintf(" AND d.specialization ILIKE $%d", len(args))
	}
	if filters.ActiveOnly {
		where += " AND a.is_active = TRUE"
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM doctor_profiles d JOIN accounts a ON a.id = d.account_id` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, translate(err, "count doctors")
	}

	query, args := paginate(doctorSelect+where+` ORDER BY d.created_at DESC`, args, filters.Limit, filters.Offset)

	doctors := []*model.DoctorProfile{}
	if err := r.db.SelectContext(ctx, &doctors, query, args...); err != nil {
		return nil, 0, translate(err, "list doctors")
	}
	return doctors, total, nil
}

func (r *doctorRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM doctor_profiles`); err != nil {
		return 0, translate(err, "count doctors")
	}
	return total, nil
}
