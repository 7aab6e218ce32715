package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rescuedev/rescue-api/internal/alerts"
	"github.com/rescuedev/rescue-api/internal/alerttype"
	"github.com/rescuedev/rescue-api/internal/fault"
	"github.com/rescuedev/rescue-api/internal/models"
	"github.com/rescuedev/rescue-api/internal/notification"
	"github.com/rescuedev/rescue-api/internal/token"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSessionRepo struct {
	entries map[string]models.HardwareSession
}

func (m *memSessionRepo) Append(session models.HardwareSession) (models.HardwareSession, error) {
	session.ID = "s-" + session.TokenID
	m.entries[session.TokenID] = session
	return session, nil
}

func (m *memSessionRepo) FindByTokenID(tokenID string) (models.HardwareSession, error) {
	session, ok := m.entries[tokenID]
	if !ok {
		return models.HardwareSession{}, sql.ErrNoRows
	}
	return session, nil
}

func (m *memSessionRepo) ListActive(hardwareID string, now time.Time) ([]models.HardwareSession, error) {
	return nil, nil
}

func (m *memSessionRepo) DeleteByTokenID(tokenID string) error {
	if _, ok := m.entries[tokenID]; !ok {
		return sql.ErrNoRows
	}
	delete(m.entries, tokenID)
	return nil
}

func (m *memSessionRepo) DeleteExpired(before time.Time) (int64, error) { return 0, nil }

type memCompanyRepo struct {
	companies map[string]models.Company
}

func (m *memCompanyRepo) FindActiveByName(name string) (models.Company, error) {
	for _, company := range m.companies {
		if company.Name == name && company.Active {
			return company, nil
		}
	}
	return models.Company{}, sql.ErrNoRows
}

func (m *memCompanyRepo) GetByID(id string) (models.Company, error) {
	company, ok := m.companies[id]
	if !ok {
		return models.Company{}, sql.ErrNoRows
	}
	return company, nil
}

func (m *memCompanyRepo) Create(name string, sites []string, address string) (models.Company, error) {
	return models.Company{}, sql.ErrConnDone
}

func (m *memCompanyRepo) List() ([]models.Company, error) { return nil, nil }

type memHardwareRepo struct {
	devices  map[string]models.Hardware
	lastSeen map[string]time.Time
}

func (m *memHardwareRepo) FindActiveByNameAndCompany(name, companyID string) (models.Hardware, error) {
	for _, hw := range m.devices {
		if hw.Name == name && hw.CompanyID == companyID && hw.Active {
			return hw, nil
		}
	}
	return models.Hardware{}, sql.ErrNoRows
}

func (m *memHardwareRepo) FindByID(id string) (models.Hardware, error) {
	hw, ok := m.devices[id]
	if !ok {
		return models.Hardware{}, sql.ErrNoRows
	}
	return hw, nil
}

func (m *memHardwareRepo) ListActiveByCompanySite(companyID, site string) ([]models.Hardware, error) {
	var out []models.Hardware
	for _, hw := range m.devices {
		if hw.CompanyID == companyID && hw.Site == site && hw.Active {
			out = append(out, hw)
		}
	}
	return out, nil
}

func (m *memHardwareRepo) Create(hw models.Hardware) (models.Hardware, error) { return hw, nil }

func (m *memHardwareRepo) UpdatePhysicalStatus(id, status string) error { return nil }

func (m *memHardwareRepo) TouchLastSeen(id string, at time.Time) error {
	m.lastSeen[id] = at
	return nil
}

func (m *memHardwareRepo) ListStale(cutoff time.Time) ([]models.Hardware, error) { return nil, nil }

type memUserRepo struct {
	users []models.User
}

func (m *memUserRepo) CreateUser(companyName, site, name, email, phone, password string, roles []models.UserRole) (models.User, error) {
	return models.User{}, sql.ErrConnDone
}

func (m *memUserRepo) AuthenticateUser(email, password string) (models.User, error) {
	return models.User{}, sql.ErrNoRows
}

func (m *memUserRepo) GetUserByID(userID string) (models.User, error) {
	return models.User{}, sql.ErrNoRows
}

func (m *memUserRepo) FindPhoneableByCompanyAndSite(companyName, site string) ([]models.User, error) {
	var out []models.User
	for _, user := range m.users {
		if user.CompanyName == companyName && user.Site == site && user.Phone != "" {
			out = append(out, user)
		}
	}
	return out, nil
}

type memCatalog struct {
	types []models.AlertType
}

func (m *memCatalog) FindByID(id string) (models.AlertType, error) {
	for _, at := range m.types {
		if at.ID == id {
			return at, nil
		}
	}
	return models.AlertType{}, sql.ErrNoRows
}

func (m *memCatalog) FindByCode(code string) (models.AlertType, error) {
	for _, at := range m.types {
		if string(at.Code) == code {
			return at, nil
		}
	}
	return models.AlertType{}, sql.ErrNoRows
}

func (m *memCatalog) FindByCodeFold(code string) (models.AlertType, error) {
	return m.FindByCode(code)
}

func (m *memCatalog) FindByNameFold(name string) (models.AlertType, error) {
	return models.AlertType{}, sql.ErrNoRows
}

func (m *memCatalog) Create(at models.AlertType) (models.AlertType, error) { return at, nil }

func (m *memCatalog) List() ([]models.AlertType, error) { return m.types, nil }

type memAlertRepo struct {
	alerts map[string]*models.Alert
	nextID int
}

func (m *memAlertRepo) Create(alert models.Alert) (models.Alert, error) {
	m.nextID++
	alert.ID = fmt.Sprintf("a-%d", m.nextID)
	alert.CreatedAt = time.Now()
	alert.UpdatedAt = alert.CreatedAt
	stored := alert
	m.alerts[alert.ID] = &stored
	return alert, nil
}

func (m *memAlertRepo) FindByID(id string) (models.Alert, error) {
	alert, ok := m.alerts[id]
	if !ok {
		return models.Alert{}, sql.ErrNoRows
	}
	return *alert, nil
}

func (m *memAlertRepo) ListByCompany(companyName string, limit, offset int) ([]models.Alert, error) {
	return nil, nil
}

func (m *memAlertRepo) Authorize(id, userID string, at time.Time) (models.Alert, error) {
	return models.Alert{}, sql.ErrNoRows
}

func (m *memAlertRepo) ToggleActive(id string) (models.Alert, error) {
	return models.Alert{}, sql.ErrNoRows
}

func (m *memAlertRepo) DeactivateIfActive(id string, d models.Deactivation) (models.Alert, bool, error) {
	return models.Alert{}, false, sql.ErrNoRows
}

func (m *memAlertRepo) UpdateTargetStatus(id, userID string, available, onboard *bool) (models.Alert, error) {
	return models.Alert{}, sql.ErrNoRows
}

func (m *memAlertRepo) SoftDelete(id string) error { return sql.ErrNoRows }

type fixture struct {
	orchestrator *Orchestrator
	tokens       *token.Service
	hardware     *memHardwareRepo
	companies    *memCompanyRepo
	sessions     *memSessionRepo
	alerts       *memAlertRepo
	now          *time.Time
}

func newFixture() *fixture {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := &base
	clock := func() time.Time { return *now }

	sessions := &memSessionRepo{entries: make(map[string]models.HardwareSession)}
	companies := &memCompanyRepo{companies: map[string]models.Company{
		"c-1": {ID: "c-1", Name: "Acme", Sites: []string{"Planta Norte"}, Active: true},
	}}
	hardware := &memHardwareRepo{
		devices: map[string]models.Hardware{
			"hw-1": {ID: "hw-1", Name: "boton-7", Category: models.CategoryButton,
				CompanyID: "c-1", Site: "Planta Norte",
				Topic: "Acme/Planta Norte/BOTONERA/boton-7", Active: true},
			"hw-2": {ID: "hw-2", Name: "sirena-1", Category: "SIRENA",
				CompanyID: "c-1", Site: "Planta Norte",
				Topic: "Acme/Planta Norte/SIRENA/sirena-1", Active: true},
		},
		lastSeen: make(map[string]time.Time),
	}
	users := &memUserRepo{users: []models.User{
		{ID: "u-1", CompanyName: "Acme", Site: "Planta Norte", Name: "Ana", Phone: "+5691111"},
	}}
	catalog := &memCatalog{types: []models.AlertType{
		{ID: "t-1", Name: "Incendio", Code: models.CodeRed, Active: true,
			RecommendedActions: []string{"evacuar"}},
	}}
	alertRepo := &memAlertRepo{alerts: make(map[string]*models.Alert)}

	tokens := token.NewService("secret", 5*time.Minute, sessions, zerolog.Nop()).WithClock(clock)
	lifecycle := alerts.NewService(alertRepo, companies, zerolog.Nop()).WithClock(clock)
	orchestrator := NewOrchestrator(
		tokens,
		alerttype.NewResolver(catalog),
		notification.NewTargetResolver(users, hardware),
		lifecycle,
		hardware,
		companies,
		notification.NewDispatcher(zerolog.Nop()),
		zerolog.Nop(),
	)

	return &fixture{
		orchestrator: orchestrator,
		tokens:       tokens,
		hardware:     hardware,
		companies:    companies,
		sessions:     sessions,
		alerts:       alertRepo,
		now:          now,
	}
}

func (f *fixture) issue(t *testing.T) string {
	t.Helper()
	credential, err := f.tokens.Issue(
		f.companies.companies["c-1"], f.hardware.devices["hw-1"], "Planta Norte")
	require.NoError(t, err)
	return credential.Token
}

func TestSubmitHappyPath(t *testing.T) {
	f := newFixture()
	credential := f.issue(t)

	alert, err := f.orchestrator.Submit(context.Background(), credential, SubmitRequest{
		Data: map[string]interface{}{
			"tipo_alerta": "ROJO",
			"descripcion": "fuego en bodega",
		},
	})
	require.NoError(t, err)

	assert.True(t, alert.Verified)
	assert.True(t, alert.Active)
	assert.Equal(t, "ROJO", alert.Code)
	assert.Equal(t, "Incendio", alert.TypeName)
	assert.Equal(t, models.PriorityCritical, alert.Priority)
	assert.Equal(t, "fuego en bodega", alert.Description)
	require.NotNil(t, alert.HardwareID)
	assert.Equal(t, "hw-1", *alert.HardwareID)

	// Fan-out excludes the reporting button itself.
	assert.Equal(t, []string{"Acme/Planta Norte/SIRENA/sirena-1"}, alert.Topics)
	require.Len(t, alert.Targets, 1)
	assert.Equal(t, "u-1", alert.Targets[0].UserID)
	assert.False(t, alert.Targets[0].Available)

	// The raw payload is preserved in the context envelope.
	var envelope struct {
		Payload map[string]interface{} `json:"payload"`
		TokenID string                 `json:"token_id"`
		RawType string                 `json:"raw_type"`
	}
	require.NoError(t, json.Unmarshal(alert.Context, &envelope))
	assert.Equal(t, "fuego en bodega", envelope.Payload["descripcion"])
	assert.NotEmpty(t, envelope.TokenID)
	assert.Equal(t, "ROJO", envelope.RawType)

	// Credential spent, check-in recorded.
	assert.Empty(t, f.sessions.entries)
	assert.Contains(t, f.hardware.lastSeen, "hw-1")
}

func TestSubmitCredentialIsSingleUse(t *testing.T) {
	f := newFixture()
	credential := f.issue(t)
	data := map[string]interface{}{"tipo": "ROJO"}

	_, err := f.orchestrator.Submit(context.Background(), credential, SubmitRequest{Data: data})
	require.NoError(t, err)

	_, err = f.orchestrator.Submit(context.Background(), credential, SubmitRequest{Data: data})
	require.Error(t, err)
	assert.Equal(t, fault.KindInvalidToken, fault.KindOf(err))
	assert.Contains(t, err.Error(), "already used")
}

func TestSubmitMissingCredential(t *testing.T) {
	f := newFixture()

	_, err := f.orchestrator.Submit(context.Background(), "  ", SubmitRequest{
		Data: map[string]interface{}{"tipo": "ROJO"},
	})
	require.Error(t, err)
	assert.Equal(t, fault.KindInvalidToken, fault.KindOf(err))
}

func TestSubmitExpiredCredential(t *testing.T) {
	f := newFixture()
	credential := f.issue(t)
	*f.now = f.now.Add(5*time.Minute + time.Second)

	_, err := f.orchestrator.Submit(context.Background(), credential, SubmitRequest{
		Data: map[string]interface{}{"tipo": "ROJO"},
	})
	require.Error(t, err)
	assert.Equal(t, fault.KindTokenExpired, fault.KindOf(err))
}

func TestSubmitEmptyPayload(t *testing.T) {
	f := newFixture()
	credential := f.issue(t)

	_, err := f.orchestrator.Submit(context.Background(), credential, SubmitRequest{})
	require.Error(t, err)
	assert.Equal(t, fault.KindMissingPayload, fault.KindOf(err))

	// The failed submission does not consume the credential.
	_, err = f.orchestrator.Submit(context.Background(), credential, SubmitRequest{
		Data: map[string]interface{}{"tipo": "ROJO"},
	})
	require.NoError(t, err)
}

func TestSubmitMissingTypeReference(t *testing.T) {
	f := newFixture()
	credential := f.issue(t)

	_, err := f.orchestrator.Submit(context.Background(), credential, SubmitRequest{
		Data: map[string]interface{}{"descripcion": "algo paso"},
	})
	require.Error(t, err)
	assert.Equal(t, fault.KindMissingAlertType, fault.KindOf(err))
}

func TestSubmitUncataloguedCodeStillRecorded(t *testing.T) {
	f := newFixture()
	credential := f.issue(t)

	alert, err := f.orchestrator.Submit(context.Background(), credential, SubmitRequest{
		Data: map[string]interface{}{"tipo": "derrame quimico"},
	})
	require.NoError(t, err)
	assert.Equal(t, "DERRAME QUIMICO", alert.Code)
	assert.Nil(t, alert.TypeID)
	assert.Equal(t, models.PriorityMedium, alert.Priority)
}

func TestSubmitDeactivatedHardwareRecordsUnverified(t *testing.T) {
	f := newFixture()
	credential := f.issue(t)

	// The device is disabled between issuance and submission.
	hw := f.hardware.devices["hw-1"]
	hw.Active = false
	f.hardware.devices["hw-1"] = hw

	alert, err := f.orchestrator.Submit(context.Background(), credential, SubmitRequest{
		Data: map[string]interface{}{"tipo": "ROJO"},
	})
	require.NoError(t, err)
	assert.False(t, alert.Verified)
	assert.False(t, alert.Active)
}

func TestSubmitVanishedHardware(t *testing.T) {
	f := newFixture()
	credential := f.issue(t)
	delete(f.hardware.devices, "hw-1")

	_, err := f.orchestrator.Submit(context.Background(), credential, SubmitRequest{
		Data: map[string]interface{}{"tipo": "ROJO"},
	})
	require.Error(t, err)
	assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
}

func TestSubmitFallsBackToHardwareLocation(t *testing.T) {
	f := newFixture()
	hw := f.hardware.devices["hw-1"]
	hw.Address = "Av. Siempre Viva 742"
	hw.MapsURL = "https://maps.example/742"
	f.hardware.devices["hw-1"] = hw
	credential := f.issue(t)

	alert, err := f.orchestrator.Submit(context.Background(), credential, SubmitRequest{
		Data: map[string]interface{}{"tipo": "ROJO"},
	})
	require.NoError(t, err)

	var location map[string]string
	require.NoError(t, json.Unmarshal(alert.Location, &location))
	assert.Equal(t, "Av. Siempre Viva 742", location["address"])
	assert.Equal(t, "https://maps.example/742", location["maps_url"])
}

func TestSubmitExplicitLocationWins(t *testing.T) {
	f := newFixture()
	credential := f.issue(t)

	alert, err := f.orchestrator.Submit(context.Background(), credential, SubmitRequest{
		Data: map[string]interface{}{
			"tipo":      "ROJO",
			"ubicacion": map[string]interface{}{"lat": -33.45, "lng": -70.66},
		},
	})
	require.NoError(t, err)

	var location map[string]float64
	require.NoError(t, json.Unmarshal(alert.Location, &location))
	assert.InDelta(t, -33.45, location["lat"], 0.001)
}
