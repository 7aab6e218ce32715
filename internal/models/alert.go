package models

import (
	"encoding/json"
	"time"
)

// Priority of an alert, derived at creation time.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// DeactivatorKind identifies what kind of actor deactivated an alert.
type DeactivatorKind string

const (
	DeactivatorUser       DeactivatorKind = "usuario"
	DeactivatorHardware   DeactivatorKind = "hardware"
	DeactivatorAdmin      DeactivatorKind = "administrador"
	DeactivatorSuperAdmin DeactivatorKind = "super_admin"
	DeactivatorCompany    DeactivatorKind = "empresa"
)

// IsValidDeactivatorKind reports whether kind is a known actor kind.
func IsValidDeactivatorKind(kind DeactivatorKind) bool {
	switch kind {
	case DeactivatorUser, DeactivatorHardware, DeactivatorAdmin, DeactivatorSuperAdmin, DeactivatorCompany:
		return true
	}
	return false
}

// NotificationTarget is one phone-reachable user attached to an alert.
type NotificationTarget struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Available bool   `json:"available"`
	Onboard   bool   `json:"onboard"`
}

// Deactivation records who switched an alert off, when, and why.
type Deactivation struct {
	ByID    string          `json:"by_id"`
	ByKind  DeactivatorKind `json:"by_kind"`
	At      time.Time       `json:"at"`
	Message string          `json:"message,omitempty"`
}

// Alert is the central mutable record of the platform. Display
// metadata is denormalized from the catalog at creation time so later
// catalog edits do not rewrite history.
type Alert struct {
	ID                 string               `json:"id" db:"id"`
	CompanyName        string               `json:"company_name" db:"company_name"`
	Site               string               `json:"site" db:"site"`
	HardwareID         *string              `json:"hardware_id,omitempty" db:"hardware_id"`
	HardwareName       *string              `json:"hardware_name,omitempty" db:"hardware_name"`
	Code               string               `json:"code" db:"code"`
	TypeID             *string              `json:"type_id,omitempty" db:"type_id"`
	TypeName           string               `json:"type_name" db:"type_name"`
	Image              []byte               `json:"image,omitempty" db:"image"`
	Description        string               `json:"description" db:"description"`
	Priority           Priority             `json:"priority" db:"priority"`
	RecommendedActions []string             `json:"recommended_actions" db:"recommended_actions"`
	RequiredEquipment  []string             `json:"required_equipment" db:"required_equipment"`
	Context            json.RawMessage      `json:"context,omitempty" db:"context"`
	Targets            []NotificationTarget `json:"targets" db:"targets"`
	Topics             []string             `json:"topics" db:"topics"`
	Verified           bool                 `json:"verified" db:"verified"`
	Authorized         bool                 `json:"authorized" db:"authorized"`
	AuthorizedBy       *string              `json:"authorized_by,omitempty" db:"authorized_by"`
	AuthorizedAt       *time.Time           `json:"authorized_at,omitempty" db:"authorized_at"`
	Active             bool                 `json:"active" db:"active"`
	Deactivation       *Deactivation        `json:"deactivation,omitempty" db:"-"`
	Location           json.RawMessage      `json:"location,omitempty" db:"location"`
	CreatedAt          time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at" db:"updated_at"`
}

// IsDeactivated reports whether the alert reached the attributed
// deactivated sub-state (not a plain toggle to inactive).
func (a Alert) IsDeactivated() bool {
	return !a.Active && a.Deactivation != nil
}
