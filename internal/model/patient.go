package model

import (
	"github.com/google/uuid"
)

type PatientProfile struct {
	Base
	AccountID      uuid.UUID `json:"account_id" db:"account_id"`
	DateOfBirth    *string   `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Gender         string    `json:"gender,omitempty" db:"gender"`
	Address        string    `json:"address,omitempty" db:"address"`
	MedicalHistory string    `json:"medical_history,omitempty" db:"medical_history"`

	// Joined from accounts.
	Email    string `json:"email,omitempty" db:"email"`
	FullName string `json:"full_name,omitempty" db:"full_name"`
	Phone    string `json:"phone,omitempty" db:"phone"`
	IsActive bool   `json:"is_active" db:"is_active"`
}

// PatientFields are the patient-only registration fields.
type PatientFields struct {
	DateOfBirth    *string `json:"date_of_birth" validate:"omitempty,isodate"`
	Gender         string  `json:"gender" validate:"omitempty,oneof=male female other"`
	Address        string  `json:"address" validate:"max=1000"`
	MedicalHistory string  `json:"medical_history" validate:"max=5000"`
}

type UpdatePatientProfileRequest struct {
	DateOfBirth    *string `json:"date_of_birth" validate:"omitempty,isodate"`
	Gender         *string `json:"gender" validate:"omitempty,oneof=male female other"`
	Address        *string `json:"address" validate:"omitempty,max=1000"`
	MedicalHistory *string `json:"medical_history" validate:"omitempty,max=5000"`
}

type PatientFilters struct {
	Search string
	Limit  int
	Offset int
}
