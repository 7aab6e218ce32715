package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rescuedev/rescue-api/internal/identity"
	"github.com/rescuedev/rescue-api/internal/models"
	"github.com/rescuedev/rescue-api/internal/observability/metrics"
	"github.com/rescuedev/rescue-api/internal/repository"
	"github.com/rescuedev/rescue-api/internal/token"
	"github.com/rs/zerolog"
)

// HardwareTokenCookie is the cookie carrying the hardware credential.
const HardwareTokenCookie = "hardware_token"

// HardwareAuthHandler serves credential issuance, validation, and the
// session audit surface.
type HardwareAuthHandler struct {
	verifier         *identity.Verifier
	tokens           *token.Service
	hardware         repository.HardwareRepository
	sessionRetention time.Duration
	staleAfter       time.Duration
	logger           zerolog.Logger
}

func NewHardwareAuthHandler(
	verifier *identity.Verifier,
	tokens *token.Service,
	hardware repository.HardwareRepository,
	sessionRetention, staleAfter time.Duration,
	logger zerolog.Logger,
) *HardwareAuthHandler {
	return &HardwareAuthHandler{
		verifier:         verifier,
		tokens:           tokens,
		hardware:         hardware,
		sessionRetention: sessionRetention,
		staleAfter:       staleAfter,
		logger:           logger,
	}
}

type authenticateRequest struct {
	HardwareName string `json:"hardware_name"`
	CompanyName  string `json:"company_name"`
	Site         string `json:"site"`
}

// Authenticate verifies the identity chain and mints a single-use
// credential for the device.
func (h *HardwareAuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	verification, err := h.verifier.Verify(req.HardwareName, req.CompanyName, req.Site)
	if err != nil {
		metrics.CountAuthAttempt("denied")
		writeFault(w, err)
		return
	}

	credential, err := h.tokens.Issue(verification.Company, verification.Hardware, req.Site)
	if err != nil {
		metrics.CountAuthAttempt("error")
		writeFault(w, err)
		return
	}
	metrics.CountAuthAttempt("issued")

	http.SetCookie(w, &http.Cookie{
		Name:     HardwareTokenCookie,
		Value:    credential.Token,
		Expires:  credential.ExpiresAt,
		Path:     "/",
		HttpOnly: true,
	})
	writeJSON(w, http.StatusCreated, credential)
}

type verifyRequest struct {
	Token string `json:"token"`
}

// Verify decodes a credential and returns its claims.
func (h *HardwareAuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	claims, err := h.tokens.Validate(req.Token)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

// ListSessions returns active session audit entries, optionally
// filtered by hardware id.
func (h *HardwareAuthHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.tokens.ListActive(r.URL.Query().Get("hardware_id"))
	if err != nil {
		http.Error(w, "Failed to list sessions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []models.HardwareSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// CleanupSessions deletes session entries past the retention window.
func (h *HardwareAuthHandler) CleanupSessions(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.tokens.CleanupExpired(h.sessionRetention)
	if err != nil {
		http.Error(w, "Failed to cleanup sessions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// StaleHardware lists devices with no check-in inside the window and
// marks their physical status stale.
func (h *HardwareAuthHandler) StaleHardware(w http.ResponseWriter, r *http.Request) {
	window := h.staleAfter
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			http.Error(w, "Invalid window duration", http.StatusBadRequest)
			return
		}
		window = parsed
	}

	stale, err := h.hardware.ListStale(time.Now().Add(-window))
	if err != nil {
		http.Error(w, "Failed to list stale hardware: "+err.Error(), http.StatusInternalServerError)
		return
	}

	for i := range stale {
		if stale[i].PhysicalStatus == models.PhysicalStatusStale {
			continue
		}
		if err := h.hardware.UpdatePhysicalStatus(stale[i].ID, models.PhysicalStatusStale); err != nil {
			h.logger.Warn().Err(err).Str("hardware_id", stale[i].ID).Msg("failed to mark hardware stale")
			continue
		}
		stale[i].PhysicalStatus = models.PhysicalStatusStale
	}

	if stale == nil {
		stale = []models.Hardware{}
	}
	writeJSON(w, http.StatusOK, stale)
}
