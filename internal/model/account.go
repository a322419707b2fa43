package model

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// ParseRole rejects anything outside the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

type Account struct {
	Base
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	FullName     string `json:"full_name" db:"full_name"`
	Role         Role   `json:"role" db:"role"`
	Phone        string `json:"phone,omitempty" db:"phone"`
	IsActive     bool   `json:"is_active" db:"is_active"`
}

type AccountFilters struct {
	Role     Role
	IsActive *bool
	Search   string
	Limit    int
	Offset   int
}

// CreateAccountRequest is the admin-side user creation payload.
type CreateAccountRequest struct {
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,password"`
	FullName string         `json:"full_name" validate:"required,min=2,max=100"`
	Role     Role           `json:"role" validate:"required,role"`
	Phone    string         `json:"phone" validate:"omitempty,max=20"`
	Doctor   *DoctorFields  `json:"doctor,omitempty"`
	Patient  *PatientFields `json:"patient,omitempty"`
}

type UpdateAccountRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=2,max=100"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
	IsActive *bool   `json:"is_active"`
}
