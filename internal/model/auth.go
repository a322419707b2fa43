package model

import (
	"time"

	"github.com/google/uuid"
)

// Principal is the authenticated caller. It is passed explicitly to services.
type Principal struct {
	AccountID uuid.UUID `json:"account_id"`
	Role      Role      `json:"role"`
	// ProfileID is the doctor or patient profile; uuid.Nil for admins.
	ProfileID uuid.UUID `json:"profile_id,omitempty"`
}

func (p *Principal) Is(role Role) bool {
	return p != nil && p.Role == role
}

// Owns reports whether the principal is the doctor or patient on the appointment,
// matching its declared role.
func (p *Principal) Owns(a *Appointment) bool {
	if p == nil || a == nil || p.ProfileID == uuid.Nil {
		return false
	}
	switch p.Role {
	case RoleDoctor:
		return a.DoctorID == p.ProfileID
	case RolePatient:
		return a.PatientID == p.ProfileID
	}
	return false
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegistrationRequest is a tagged union on Role: exactly the matching
// variant must be present.
type RegistrationRequest struct {
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,password"`
	FullName string         `json:"full_name" validate:"required,min=2,max=100"`
	Phone    string         `json:"phone" validate:"omitempty,max=20"`
	Role     Role           `json:"role" validate:"required,oneof=doctor patient"`
	Doctor   *DoctorFields  `json:"doctor,omitempty"`
	Patient  *PatientFields `json:"patient,omitempty"`
}

// Session is returned on login and registration.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Account   *Account  `json:"user"`
	Principal Principal `json:"principal"`
}

// Profile is an account plus whichever role profile it owns.
type Profile struct {
	Account *Account        `json:"user"`
	Doctor  *DoctorProfile  `json:"doctor,omitempty"`
	Patient *PatientProfile `json:"patient,omitempty"`
}
