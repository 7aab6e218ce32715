package models

import "time"

// Company is a tenant: the owner of sites, hardware, and users.
type Company struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Sites     []string  `json:"sites" db:"sites"`
	Address   string    `json:"address,omitempty" db:"address"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasSite reports whether the site is registered for the company.
func (c Company) HasSite(site string) bool {
	for _, s := range c.Sites {
		if s == site {
			return true
		}
	}
	return false
}
