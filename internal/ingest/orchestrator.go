// Package ingest is the request-facing entry point for hardware alert
// submissions: it validates the credential, resolves type and targets,
// persists the alert, and spends the credential.
package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/rescuedev/rescue-api/internal/alerts"
	"github.com/rescuedev/rescue-api/internal/alerttype"
	"github.com/rescuedev/rescue-api/internal/fault"
	"github.com/rescuedev/rescue-api/internal/models"
	"github.com/rescuedev/rescue-api/internal/notification"
	"github.com/rescuedev/rescue-api/internal/repository"
	"github.com/rescuedev/rescue-api/internal/token"
	"github.com/rs/zerolog"
)

// typeFields are the payload keys accepted as the alert type
// reference, checked in order.
var typeFields = []string{"tipo_alerta", "tipo", "alert_type", "type", "codigo", "code"}

// descriptionFields are the payload keys accepted as free-text
// description.
var descriptionFields = []string{"descripcion", "description", "detalle", "detail"}

// SubmitRequest is the body of a hardware alert submission.
type SubmitRequest struct {
	Data map[string]interface{} `json:"data"`
}

// Orchestrator wires the pipeline components behind the submit flow.
type Orchestrator struct {
	tokens     *token.Service
	types      *alerttype.Resolver
	targets    *notification.TargetResolver
	lifecycle  *alerts.Service
	hardware   repository.HardwareRepository
	companies  repository.CompanyRepository
	dispatcher *notification.Dispatcher
	logger     zerolog.Logger
}

func NewOrchestrator(
	tokens *token.Service,
	types *alerttype.Resolver,
	targets *notification.TargetResolver,
	lifecycle *alerts.Service,
	hardware repository.HardwareRepository,
	companies repository.CompanyRepository,
	dispatcher *notification.Dispatcher,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		tokens:     tokens,
		types:      types,
		targets:    targets,
		lifecycle:  lifecycle,
		hardware:   hardware,
		companies:  companies,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "ingest").Logger(),
	}
}

// Submit runs one inbound hardware alert submission end to end. Any
// failure before the alert is persisted aborts without side effects;
// credential invalidation afterwards is best-effort.
func (o *Orchestrator) Submit(ctx context.Context, credential string, req SubmitRequest) (models.Alert, error) {
	if strings.TrimSpace(credential) == "" {
		return models.Alert{}, fault.New(fault.KindInvalidToken, "credential is required")
	}

	claims, err := o.tokens.Validate(credential)
	if err != nil {
		return models.Alert{}, err
	}

	// Single-use enforcement: a credential whose session entry is gone
	// was already consumed.
	spent, err := o.tokens.Spent(claims.ID)
	if err != nil {
		return models.Alert{}, fault.Wrap(err, fault.KindUnexpected, "session lookup failed")
	}
	if spent {
		return models.Alert{}, fault.New(fault.KindInvalidToken, "credential already used")
	}

	if len(req.Data) == 0 {
		return models.Alert{}, fault.New(fault.KindMissingPayload, "a non-empty data object is required")
	}

	typeRef, ok := extractField(req.Data, typeFields)
	if !ok {
		return models.Alert{}, fault.New(fault.KindMissingAlertType, "alert type reference is required")
	}
	resolved, err := o.types.Resolve(typeRef)
	if err != nil {
		return models.Alert{}, err
	}

	// Defensive re-reads: the records may have been deleted or
	// deactivated since the credential was issued.
	hw, err := o.hardware.FindByID(claims.HardwareID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Alert{}, fault.New(fault.KindNotFound, "hardware no longer exists")
		}
		return models.Alert{}, fault.Wrap(err, fault.KindUnexpected, "hardware lookup failed")
	}
	company, err := o.companies.GetByID(hw.CompanyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Alert{}, fault.New(fault.KindNotFound, "company no longer exists")
		}
		return models.Alert{}, fault.Wrap(err, fault.KindUnexpected, "company lookup failed")
	}

	verified := company.Active &&
		company.HasSite(claims.Site) &&
		hw.Active &&
		hw.Site == claims.Site &&
		hw.CompanyID == company.ID

	targetSet, err := o.targets.Resolve(company, claims.Site, hw.Name, "")
	if err != nil {
		return models.Alert{}, err
	}

	contextPayload, err := json.Marshal(map[string]interface{}{
		"payload":  req.Data,
		"token_id": claims.ID,
		"raw_type": resolved.Raw,
	})
	if err != nil {
		return models.Alert{}, fault.Wrap(err, fault.KindUnexpected, "failed to encode alert context")
	}

	alert, err := o.lifecycle.CreateFromHardware(alerts.CreateParams{
		CompanyName:        company.Name,
		Site:               claims.Site,
		HardwareID:         hw.ID,
		HardwareName:       hw.Name,
		Code:               resolved.Code,
		TypeID:             resolved.TypeID,
		TypeName:           resolved.Name,
		Image:              resolved.Image,
		Description:        descriptionFrom(req.Data),
		RecommendedActions: resolved.RecommendedActions,
		RequiredEquipment:  resolved.RequiredEquipment,
		Context:            contextPayload,
		Targets:            targetSet.PhoneTargets,
		Topics:             targetSet.FanoutTopics,
		Location:           locationFrom(req.Data, hw),
		Payload:            req.Data,
	}, verified)
	if err != nil {
		return models.Alert{}, err
	}

	// The alert is durably created; everything below is best-effort.
	if err := o.tokens.Invalidate(claims.ID); err != nil {
		o.logger.Warn().Err(err).Str("token_id", claims.ID).Msg("failed to invalidate credential after use")
	}
	if err := o.hardware.TouchLastSeen(hw.ID, alert.CreatedAt); err != nil {
		o.logger.Warn().Err(err).Str("hardware_id", hw.ID).Msg("failed to record hardware check-in")
	}
	o.dispatcher.Dispatch(ctx, alert)

	return alert, nil
}

func extractField(data map[string]interface{}, keys []string) (interface{}, bool) {
	for _, key := range keys {
		if v, ok := data[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func descriptionFrom(data map[string]interface{}) string {
	for _, key := range descriptionFields {
		if v, ok := data[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func locationFrom(data map[string]interface{}, hw models.Hardware) json.RawMessage {
	if v, ok := data["ubicacion"]; ok {
		if raw, err := json.Marshal(v); err == nil {
			return raw
		}
	}
	if v, ok := data["location"]; ok {
		if raw, err := json.Marshal(v); err == nil {
			return raw
		}
	}
	raw, err := json.Marshal(map[string]string{
		"address":  hw.Address,
		"maps_url": hw.MapsURL,
	})
	if err != nil {
		return nil
	}
	return raw
}
