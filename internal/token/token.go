// Package token mints and validates the short-lived credentials that
// authorize hardware to submit exactly one alert.
//
// Validation is a pure signature+expiry check with no store access.
// Single-use enforcement lives in the session log: the ingestion
// orchestrator checks and removes the audit entry, Validate does not.
package token

import (
	"database/sql"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rescuedev/rescue-api/internal/fault"
	"github.com/rescuedev/rescue-api/internal/models"
	"github.com/rescuedev/rescue-api/internal/repository"
	"github.com/rs/zerolog"
)

// KindHardwareAuth is the token-kind discriminator carried in the
// claim set. Tokens of any other kind are rejected by Validate.
const KindHardwareAuth = "hardware_auth"

// DefaultTTL is the validity window applied when none is configured.
const DefaultTTL = 5 * time.Minute

// HardwareClaims is the signed claim set binding a device to its
// company and site.
type HardwareClaims struct {
	HardwareID   string `json:"hardware_id"`
	HardwareName string `json:"hardware_name"`
	CompanyID    string `json:"company_id"`
	CompanyName  string `json:"company_name"`
	Site         string `json:"site"`
	Kind         string `json:"kind"`
	jwt.RegisteredClaims
}

// IssuedCredential is the serialized token plus its expiry instant.
type IssuedCredential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service issues, validates, and invalidates hardware credentials and
// maintains the session audit log.
type Service struct {
	secret   []byte
	ttl      time.Duration
	sessions repository.SessionRepository
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(secret string, ttl time.Duration, sessions repository.SessionRepository, logger zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		secret:   []byte(secret),
		ttl:      ttl,
		sessions: sessions,
		logger:   logger.With().Str("component", "token_service").Logger(),
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issue mints a credential for an already-verified identity chain and
// appends an audit row to the session log. A session-log write failure
// is logged and swallowed: audit is not safety-critical to issuance.
func (s *Service) Issue(company models.Company, hw models.Hardware, site string) (IssuedCredential, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	claims := HardwareClaims{
		HardwareID:   hw.ID,
		HardwareName: hw.Name,
		CompanyID:    company.ID,
		CompanyName:  company.Name,
		Site:         site,
		Kind:         KindHardwareAuth,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return IssuedCredential{}, fault.Wrap(err, fault.KindUnexpected, "failed to sign credential")
	}

	_, err = s.sessions.Append(models.HardwareSession{
		TokenID:      claims.ID,
		HardwareID:   hw.ID,
		HardwareName: hw.Name,
		CompanyID:    company.ID,
		CompanyName:  company.Name,
		Site:         site,
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("hardware_id", hw.ID).
			Str("company_id", company.ID).
			Msg("failed to write session audit entry")
	}

	return IssuedCredential{Token: signed, ExpiresAt: expiresAt}, nil
}

// Validate decodes a serialized credential and checks signature,
// expiry, and the token-kind discriminator. Pure: no store access.
func (s *Service) Validate(tokenString string) (HardwareClaims, error) {
	// Claims validation is skipped at parse time so expiry is checked
	// against the service clock, keeping the signature check and the
	// expiry check distinguishable for callers.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims HardwareClaims
	parsed, err := parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return HardwareClaims{}, fault.Wrap(err, fault.KindInvalidToken, "invalid credential")
	}
	if !parsed.Valid {
		return HardwareClaims{}, fault.New(fault.KindInvalidToken, "invalid credential")
	}
	if claims.ExpiresAt == nil || s.now().After(claims.ExpiresAt.Time) {
		return HardwareClaims{}, fault.New(fault.KindTokenExpired, "credential expired")
	}
	if claims.Kind != KindHardwareAuth {
		return HardwareClaims{}, fault.New(fault.KindInvalidToken, "credential is not a hardware auth token")
	}

	return claims, nil
}

// Spent reports whether the credential's session entry is gone, which
// means it was already consumed (or never logged).
func (s *Service) Spent(tokenID string) (bool, error) {
	_, err := s.sessions.FindByTokenID(tokenID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// Invalidate removes the session entry for a consumed credential. The
// credential itself stays cryptographically valid until expiry; this
// is the audit-trail half of single-use enforcement.
func (s *Service) Invalidate(tokenID string) error {
	err := s.sessions.DeleteByTokenID(tokenID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

// ListActive returns non-expired session entries, optionally filtered
// by hardware id.
func (s *Service) ListActive(hardwareID string) ([]models.HardwareSession, error) {
	return s.sessions.ListActive(hardwareID, s.now())
}

// CleanupExpired deletes session entries past expiry plus the given
// retention window.
func (s *Service) CleanupExpired(retention time.Duration) (int64, error) {
	return s.sessions.DeleteExpired(s.now().Add(-retention))
}
