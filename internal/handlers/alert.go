package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rescuedev/rescue-api/internal/alerts"
	"github.com/rescuedev/rescue-api/internal/alerttype"
	"github.com/rescuedev/rescue-api/internal/authz"
	"github.com/rescuedev/rescue-api/internal/ingest"
	"github.com/rescuedev/rescue-api/internal/models"
	"github.com/rescuedev/rescue-api/internal/notification"
	"github.com/rescuedev/rescue-api/internal/observability/metrics"
	"github.com/rescuedev/rescue-api/internal/repository"
	"github.com/rs/zerolog"
)

// AlertHandler serves hardware alert submission and operator alert
// management.
type AlertHandler struct {
	orchestrator *ingest.Orchestrator
	lifecycle    *alerts.Service
	types        *alerttype.Resolver
	targets      *notification.TargetResolver
	companies    repository.CompanyRepository
	logger       zerolog.Logger
}

func NewAlertHandler(
	orchestrator *ingest.Orchestrator,
	lifecycle *alerts.Service,
	types *alerttype.Resolver,
	targets *notification.TargetResolver,
	companies repository.CompanyRepository,
	logger zerolog.Logger,
) *AlertHandler {
	return &AlertHandler{
		orchestrator: orchestrator,
		lifecycle:    lifecycle,
		types:        types,
		targets:      targets,
		companies:    companies,
		logger:       logger,
	}
}

// Submit handles a hardware-originated alert submission authenticated
// by a single-use credential.
func (h *AlertHandler) Submit(w http.ResponseWriter, r *http.Request) {
	credential := credentialFromRequest(r)

	var req ingest.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	alert, err := h.orchestrator.Submit(r.Context(), credential, req)
	if err != nil {
		writeFault(w, err)
		return
	}

	metrics.CountAlertCreated("hardware", string(alert.Priority))
	writeJSON(w, http.StatusCreated, map[string]interface{}{"alert": alert})
}

type createAlertRequest struct {
	Site        string                 `json:"site"`
	Type        interface{}            `json:"type"`
	Description string                 `json:"description"`
	Location    json.RawMessage        `json:"location,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// Create handles a user-originated alert from an authenticated
// operator.
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	companyName, ok := authz.CompanyNameFromRequest(r)
	if !ok {
		http.Error(w, "Missing company scope", http.StatusUnauthorized)
		return
	}
	userID, _ := authz.UserIDFromRequest(r)

	var req createAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Site = strings.TrimSpace(req.Site)
	if req.Site == "" {
		http.Error(w, "Site is required", http.StatusBadRequest)
		return
	}

	company, err := h.companies.FindActiveByName(companyName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Company not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load company: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resolved, err := h.types.Resolve(req.Type)
	if err != nil {
		writeFault(w, err)
		return
	}

	targetSet, err := h.targets.Resolve(company, req.Site, "", userID)
	if err != nil {
		writeFault(w, err)
		return
	}

	alert, err := h.lifecycle.CreateFromUser(alerts.CreateParams{
		CompanyName:        company.Name,
		Site:               req.Site,
		Code:               resolved.Code,
		TypeID:             resolved.TypeID,
		TypeName:           resolved.Name,
		Image:              resolved.Image,
		Description:        strings.TrimSpace(req.Description),
		RecommendedActions: resolved.RecommendedActions,
		RequiredEquipment:  resolved.RequiredEquipment,
		Targets:            targetSet.PhoneTargets,
		Topics:             targetSet.FanoutTopics,
		Location:           req.Location,
		Payload:            req.Data,
	})
	if err != nil {
		writeFault(w, err)
		return
	}

	metrics.CountAlertCreated("user", string(alert.Priority))
	writeJSON(w, http.StatusCreated, map[string]interface{}{"alert": alert})
}

func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	alert, err := h.lifecycle.Get(mux.Vars(r)["alertID"])
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alert": alert})
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	companyName, ok := authz.CompanyNameFromRequest(r)
	if !ok {
		http.Error(w, "Missing company scope", http.StatusUnauthorized)
		return
	}

	limit := 25
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			limit = v
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil {
			offset = v
		}
	}

	list, err := h.lifecycle.List(companyName, limit, offset)
	if err != nil {
		http.Error(w, "Failed to list alerts: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": list})
}

func (h *AlertHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		http.Error(w, "User id is required", http.StatusBadRequest)
		return
	}

	alert, err := h.lifecycle.Authorize(mux.Vars(r)["alertID"], req.UserID)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alert": alert})
}

func (h *AlertHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	alert, err := h.lifecycle.ToggleActive(mux.Vars(r)["alertID"])
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alert": alert})
}

func (h *AlertHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ByID    string `json:"by_id"`
		ByKind  string `json:"by_kind"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ByID) == "" || strings.TrimSpace(req.ByKind) == "" {
		http.Error(w, "by_id and by_kind are required", http.StatusBadRequest)
		return
	}

	alert, idempotent, err := h.lifecycle.Deactivate(mux.Vars(r)["alertID"], req.ByID,
		models.DeactivatorKind(req.ByKind), req.Message)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alert": alert, "idempotent": idempotent})
}

func (h *AlertHandler) UpdateTargetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Available *bool `json:"available,omitempty"`
		Onboard   *bool `json:"onboard,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Available == nil && req.Onboard == nil {
		http.Error(w, "At least one of available or onboard is required", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	alert, err := h.lifecycle.UpdateTargetStatus(vars["alertID"], vars["userID"], req.Available, req.Onboard)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alert": alert})
}

// credentialFromRequest extracts the hardware credential from the
// cookie or the Authorization header.
func credentialFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(HardwareTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
