package models

import (
	"fmt"
	"time"
)

// CategoryButton is the reserved hardware class for panic buttons.
// Buttons originate alerts but are never notification targets.
const CategoryButton = "BOTONERA"

// Physical status values reported by the staleness check.
const (
	PhysicalStatusOK    = "ok"
	PhysicalStatusStale = "stale"
)

// Hardware is a physical device registered by a company at one of its
// sites: a button, a semaphore-style alarm light, a siren, etc.
type Hardware struct {
	ID             string     `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	Category       string     `json:"category" db:"category"`
	CompanyID      string     `json:"company_id" db:"company_id"`
	Site           string     `json:"site" db:"site"`
	Topic          string     `json:"topic" db:"topic"`
	Address        string     `json:"address,omitempty" db:"address"`
	MapsURL        string     `json:"maps_url,omitempty" db:"maps_url"`
	Active         bool       `json:"active" db:"active"`
	PhysicalStatus string     `json:"physical_status" db:"physical_status"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty" db:"last_seen_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// IsButton reports whether the device belongs to the reserved button
// class excluded from alert fan-out.
func (h Hardware) IsButton() bool {
	return h.Category == CategoryButton
}

// BuildTopic derives the routing topic for a device.
func BuildTopic(companyName, site, category, name string) string {
	return fmt.Sprintf("%s/%s/%s/%s", companyName, site, category, name)
}
