package models

import "time"

// AlertCode is the closed enumeration of catalog alert codes.
type AlertCode string

const (
	CodeRed    AlertCode = "ROJO"
	CodeBlue   AlertCode = "AZUL"
	CodeYellow AlertCode = "AMARILLO"
	CodeGreen  AlertCode = "VERDE"
	CodeOrange AlertCode = "NARANJA"
)

// Catalog field bounds enforced when creating definitions.
const (
	AlertTypeNameMaxLen        = 120
	AlertTypeDescriptionMaxLen = 1000
	AlertTypeImageMaxBytes     = 512 * 1024
)

// IsValidAlertCode reports whether code is one of the enumerated
// catalog codes. Resolved alert records may still carry free-text codes
// outside this set.
func IsValidAlertCode(code AlertCode) bool {
	switch code {
	case CodeRed, CodeBlue, CodeYellow, CodeGreen, CodeOrange:
		return true
	}
	return false
}

// AlertType is a catalog definition describing how an alert code is
// presented and what responders need for it. CompanyID is nil for
// global definitions shared across tenants.
type AlertType struct {
	ID                 string    `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Description        string    `json:"description" db:"description"`
	Code               AlertCode `json:"code" db:"code"`
	Color              string    `json:"color" db:"color"`
	Image              []byte    `json:"image,omitempty" db:"image"`
	Sound              string    `json:"sound,omitempty" db:"sound"`
	RecommendedActions []string  `json:"recommended_actions" db:"recommended_actions"`
	RequiredEquipment  []string  `json:"required_equipment" db:"required_equipment"`
	CompanyID          *string   `json:"company_id,omitempty" db:"company_id"`
	Active             bool      `json:"active" db:"active"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}
