package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	AccountID  *uuid.UUID      `json:"account_id,omitempty" db:"account_id"`
	Role       string          `json:"role,omitempty" db:"role"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   *uuid.UUID      `json:"entity_id,omitempty" db:"entity_id"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	IPAddress  string          `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  string          `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionCreate   = "create"
	AuditActionUpdate   = "update"
	AuditActionDelete   = "delete"
	AuditActionLogin    = "login"
	AuditActionRegister = "register"

	// Entity types
	AuditEntityAccount     = "account"
	AuditEntityDoctor      = "doctor"
	AuditEntityPatient     = "patient"
	AuditEntityAppointment = "appointment"
)

type AuditFilters struct {
	AccountID  *uuid.UUID
	EntityType string
	EntityID   *uuid.UUID
	Action     string
	Limit      int
	Offset     int
}
