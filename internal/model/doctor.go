package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// TimeRange is a bookable window within a day, both ends as HH:MM.
type TimeRange struct {
	Start string `json:"start" validate:"required,hhmm"`
	End   string `json:"end" validate:"required,hhmm"`
}

type DayAvailability struct {
	DayOfWeek string      `json:"day_of_week" validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Slots     []TimeRange `json:"slots" validate:"dive"`
}

// Availability is stored as a JSONB array, in the order given.
type Availability []DayAvailability

func (a Availability) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *Availability) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*a = Availability{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported availability type %T", src)
	}
	return json.Unmarshal(data, a)
}

type DoctorProfile struct {
	Base
	AccountID       uuid.UUID    `json:"account_id" db:"account_id"`
	Specialization  string       `json:"specialization" db:"specialization"`
	Qualifications  string       `json:"qualifications,omitempty" db:"qualifications"`
	ExperienceYears int          `json:"experience_years" db:"experience_years"`
	ConsultationFee float64      `json:"consultation_fee" db:"consultation_fee"`
	Availability    Availability `json:"availability" db:"availability"`

	// Joined from accounts.
	Email    string `json:"email,omitempty" db:"email"`
	FullName string `json:"full_name,omitempty" db:"full_name"`
	Phone    string `json:"phone,omitempty" db:"phone"`
	IsActive bool   `json:"is_active" db:"is_active"`
}

// DoctorFields are the doctor-only registration fields.
type DoctorFields struct {
	Specialization  string       `json:"specialization" validate:"required,max=255"`
	Qualifications  string       `json:"qualifications" validate:"max=2000"`
	ExperienceYears int          `json:"experience_years" validate:"gte=0,lte=80"`
	ConsultationFee float64      `json:"consultation_fee" validate:"gte=0"`
	Availability    Availability `json:"availability" validate:"dive"`
}

type UpdateDoctorProfileRequest struct {
	Specialization  *string  `json:"specialization" validate:"omitempty,max=255"`
	Qualifications  *string  `json:"qualifications" validate:"omitempty,max=2000"`
	ExperienceYears *int     `json:"experience_years" validate:"omitempty,gte=0,lte=80"`
	ConsultationFee *float64 `json:"consultation_fee" validate:"omitempty,gte=0"`
}

type DoctorFilters struct {
	Specialization string
	ActiveOnly     bool
	Limit          int
	Offset         int
}

type UpdateAvailabilityRequest struct {
	Availability Availability `json:"availability" validate:"required,dive"`
}
