// Package alerts owns the alert lifecycle: creation, authorization,
// active toggling, attributed deactivation, and target status updates.
package alerts

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rescuedev/rescue-api/internal/fault"
	"github.com/rescuedev/rescue-api/internal/models"
	"github.com/rescuedev/rescue-api/internal/repository"
	"github.com/rs/zerolog"
)

// CreateParams carries the resolved, denormalized inputs for a new
// alert record.
type CreateParams struct {
	CompanyName        string
	Site               string
	HardwareID         string
	HardwareName       string
	Code               string
	TypeID             *string
	TypeName           string
	Image              []byte
	Description        string
	RecommendedActions []string
	RequiredEquipment  []string
	Context            json.RawMessage
	Targets            []models.NotificationTarget
	Topics             []string
	Location           json.RawMessage
	Payload            map[string]interface{}
}

// Service drives alert state transitions.
type Service struct {
	alerts    repository.AlertRepository
	companies repository.CompanyRepository
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(alerts repository.AlertRepository, companies repository.CompanyRepository, logger zerolog.Logger) *Service {
	return &Service{
		alerts:    alerts,
		companies: companies,
		logger:    logger.With().Str("component", "alert_service").Logger(),
		now:       time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateFromHardware records a hardware-originated alert. The record
// starts unauthorized; it starts active only when the identity chain
// was fully verified, so spoofed or stale reports are kept for audit
// without alarming responders.
func (s *Service) CreateFromHardware(params CreateParams, verified bool) (models.Alert, error) {
	alert := buildAlert(params)
	alert.Verified = verified
	alert.Active = verified
	if params.HardwareID != "" {
		id := params.HardwareID
		alert.HardwareID = &id
	}
	if params.HardwareName != "" {
		name := params.HardwareName
		alert.HardwareName = &name
	}

	created, err := s.alerts.Create(alert)
	if err != nil {
		return models.Alert{}, fault.Wrap(err, fault.KindUnexpected, "failed to create alert")
	}
	s.logger.Info().
		Str("alert_id", created.ID).
		Str("company", created.CompanyName).
		Str("priority", string(created.Priority)).
		Bool("verified", created.Verified).
		Msg("hardware alert created")
	return created, nil
}

// CreateFromUser records a human-initiated alert. Authenticated
// creation counts as verification, so the alert starts active.
func (s *Service) CreateFromUser(params CreateParams) (models.Alert, error) {
	alert := buildAlert(params)
	alert.Verified = true
	alert.Active = true

	created, err := s.alerts.Create(alert)
	if err != nil {
		return models.Alert{}, fault.Wrap(err, fault.KindUnexpected, "failed to create alert")
	}
	s.logger.Info().
		Str("alert_id", created.ID).
		Str("company", created.CompanyName).
		Str("priority", string(created.Priority)).
		Msg("user alert created")
	return created, nil
}

// Get returns an alert by id.
func (s *Service) Get(alertID string) (models.Alert, error) {
	alert, err := s.alerts.FindByID(alertID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Alert{}, fault.New(fault.KindNotFound, "alert %q not found", alertID)
		}
		return models.Alert{}, fault.Wrap(err, fault.KindUnexpected, "alert lookup failed")
	}
	return alert, nil
}

// List returns the company's alerts, newest first.
func (s *Service) List(companyName string, limit, offset int) ([]models.Alert, error) {
	return s.alerts.ListByCompany(companyName, limit, offset)
}

// Authorize stamps the alert with the authorizer and timestamp.
// Re-authorizing simply re-stamps.
func (s *Service) Authorize(alertID, userID string) (models.Alert, error) {
	alert, err := s.alerts.Authorize(alertID, userID, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Alert{}, fault.New(fault.KindNotFound, "alert %q not found", alertID)
		}
		return models.Alert{}, fault.Wrap(err, fault.KindUnexpected, "failed to authorize alert")
	}
	return alert, nil
}

// ToggleActive flips the active flag.
func (s *Service) ToggleActive(alertID string) (models.Alert, error) {
	alert, err := s.alerts.ToggleActive(alertID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Alert{}, fault.New(fault.KindNotFound, "alert %q not found", alertID)
		}
		return models.Alert{}, fault.Wrap(err, fault.KindUnexpected, "failed to toggle alert")
	}
	return alert, nil
}

// Deactivate switches the alert off with attribution. Re-deactivating
// an already-deactivated alert returns the original deactivation
// record untouched with idempotent=true. Companies may only
// deactivate their own alerts.
func (s *Service) Deactivate(alertID, byID string, byKind models.DeactivatorKind, message string) (models.Alert, bool, error) {
	if !models.IsValidDeactivatorKind(byKind) {
		return models.Alert{}, false, fault.New(fault.KindInvalidPayload, "invalid deactivator kind %q", byKind)
	}

	alert, err := s.Get(alertID)
	if err != nil {
		return models.Alert{}, false, err
	}

	if byKind == models.DeactivatorCompany {
		company, err := s.companies.GetByID(byID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.Alert{}, false, fault.New(fault.KindForbidden, "deactivating company not found")
			}
			return models.Alert{}, false, fault.Wrap(err, fault.KindUnexpected, "company lookup failed")
		}
		if company.Name != alert.CompanyName {
			return models.Alert{}, false, fault.New(fault.KindForbidden,
				"company %q cannot deactivate an alert owned by %q", company.Name, alert.CompanyName)
		}
	}

	if alert.IsDeactivated() {
		return alert, true, nil
	}

	updated, changed, err := s.alerts.DeactivateIfActive(alertID, models.Deactivation{
		ByID:    byID,
		ByKind:  byKind,
		At:      s.now(),
		Message: strings.TrimSpace(message),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Alert{}, false, fault.New(fault.KindNotFound, "alert %q not found", alertID)
		}
		return models.Alert{}, false, fault.Wrap(err, fault.KindUnexpected, "failed to deactivate alert")
	}

	// changed=false means another deactivation won the race between
	// our read and the conditional write; theirs stands.
	return updated, !changed, nil
}

// UpdateTargetStatus partially updates the available/onboard flags of
// one notification-target entry.
func (s *Service) UpdateTargetStatus(alertID, userID string, available, onboard *bool) (models.Alert, error) {
	alert, err := s.alerts.UpdateTargetStatus(alertID, userID, available, onboard)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Alert{}, fault.New(fault.KindNotFound, "alert %q not found", alertID)
		}
		if errors.Is(err, repository.ErrTargetNotFound) {
			return models.Alert{}, fault.New(fault.KindNotFound, "user %q is not a target of alert %q", userID, alertID)
		}
		return models.Alert{}, fault.Wrap(err, fault.KindUnexpected, "failed to update target status")
	}
	return alert, nil
}

func buildAlert(params CreateParams) models.Alert {
	return models.Alert{
		CompanyName:        params.CompanyName,
		Site:               params.Site,
		Code:               params.Code,
		TypeID:             params.TypeID,
		TypeName:           params.TypeName,
		Image:              params.Image,
		Description:        params.Description,
		Priority:           ComputePriority(params.Code, params.Payload),
		RecommendedActions: params.RecommendedActions,
		RequiredEquipment:  params.RequiredEquipment,
		Context:            params.Context,
		Targets:            params.Targets,
		Topics:             params.Topics,
		Location:           params.Location,
	}
}
