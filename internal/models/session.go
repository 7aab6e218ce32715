package models

import "time"

// HardwareSession is the audit record written when a hardware
// credential is issued. The credential itself is self-validating;
// these rows exist for listing, audit, and single-use enforcement at
// the ingestion boundary.
type HardwareSession struct {
	ID           string    `json:"id" db:"id"`
	TokenID      string    `json:"token_id" db:"token_id"`
	HardwareID   string    `json:"hardware_id" db:"hardware_id"`
	HardwareName string    `json:"hardware_name" db:"hardware_name"`
	CompanyID    string    `json:"company_id" db:"company_id"`
	CompanyName  string    `json:"company_name" db:"company_name"`
	Site         string    `json:"site" db:"site"`
	IssuedAt     time.Time `json:"issued_at" db:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
}

// IsExpired reports whether the session passed its expiry.
func (s HardwareSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
