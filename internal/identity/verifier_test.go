package identity

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rescuedev/rescue-api/internal/fault"
	"github.com/rescuedev/rescue-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompanyRepo struct {
	companies map[string]models.Company
}

func (f *fakeCompanyRepo) FindActiveByName(name string) (models.Company, error) {
	company, ok := f.companies[name]
	if !ok || !company.Active {
		return models.Company{}, sql.ErrNoRows
	}
	return company, nil
}

func (f *fakeCompanyRepo) GetByID(id string) (models.Company, error) {
	for _, company := range f.companies {
		if company.ID == id {
			return company, nil
		}
	}
	return models.Company{}, sql.ErrNoRows
}

func (f *fakeCompanyRepo) Create(name string, sites []string, address string) (models.Company, error) {
	return models.Company{}, sql.ErrConnDone
}

func (f *fakeCompanyRepo) List() ([]models.Company, error) {
	return nil, nil
}

type fakeHardwareRepo struct {
	devices map[string]models.Hardware // keyed by name
}

func (f *fakeHardwareRepo) FindActiveByNameAndCompany(name, companyID string) (models.Hardware, error) {
	hw, ok := f.devices[name]
	if !ok || !hw.Active || hw.CompanyID != companyID {
		return models.Hardware{}, sql.ErrNoRows
	}
	return hw, nil
}

func (f *fakeHardwareRepo) FindByID(id string) (models.Hardware, error) {
	for _, hw := range f.devices {
		if hw.ID == id {
			return hw, nil
		}
	}
	return models.Hardware{}, sql.ErrNoRows
}

func (f *fakeHardwareRepo) ListActiveByCompanySite(companyID, site string) ([]models.Hardware, error) {
	var out []models.Hardware
	for _, hw := range f.devices {
		if hw.CompanyID == companyID && hw.Site == site && hw.Active {
			out = append(out, hw)
		}
	}
	return out, nil
}

func (f *fakeHardwareRepo) Create(hw models.Hardware) (models.Hardware, error) {
	return hw, nil
}

func (f *fakeHardwareRepo) UpdatePhysicalStatus(id, status string) error { return nil }

func (f *fakeHardwareRepo) TouchLastSeen(id string, at time.Time) error { return nil }

func (f *fakeHardwareRepo) ListStale(cutoff time.Time) ([]models.Hardware, error) {
	return nil, nil
}

func newVerifierFixture() *Verifier {
	companies := &fakeCompanyRepo{companies: map[string]models.Company{
		"Acme": {
			ID:     "c-1",
			Name:   "Acme",
			Sites:  []string{"Planta Norte", "Planta Sur"},
			Active: true,
		},
		"Dormant": {
			ID:     "c-2",
			Name:   "Dormant",
			Sites:  []string{"Bodega"},
			Active: false,
		},
	}}
	hardware := &fakeHardwareRepo{devices: map[string]models.Hardware{
		"boton-7": {
			ID:        "hw-1",
			Name:      "boton-7",
			Category:  models.CategoryButton,
			CompanyID: "c-1",
			Site:      "Planta Norte",
			Active:    true,
		},
		"sirena-2": {
			ID:        "hw-2",
			Name:      "sirena-2",
			Category:  "SIRENA",
			CompanyID: "c-1",
			Site:      "Planta Sur",
			Active:    false,
		},
	}}
	return NewVerifier(companies, hardware)
}

func TestVerifyHappyPath(t *testing.T) {
	v := newVerifierFixture()

	verification, err := v.Verify("boton-7", "Acme", "Planta Norte")
	require.NoError(t, err)
	assert.Equal(t, "c-1", verification.Company.ID)
	assert.Equal(t, "hw-1", verification.Hardware.ID)
}

func TestVerifyTrimsInput(t *testing.T) {
	v := newVerifierFixture()

	_, err := v.Verify("  boton-7 ", " Acme ", " Planta Norte ")
	require.NoError(t, err)
}

func TestVerifyChainBreaks(t *testing.T) {
	v := newVerifierFixture()

	tests := []struct {
		name                     string
		hardware, company, site  string
		want                     fault.Kind
	}{
		{"missing hardware name", "", "Acme", "Planta Norte", fault.KindMissingParameter},
		{"missing company name", "boton-7", "", "Planta Norte", fault.KindMissingParameter},
		{"missing site", "boton-7", "Acme", "", fault.KindMissingParameter},
		{"unknown company", "boton-7", "Nadie", "Planta Norte", fault.KindCompanyNotFound},
		{"inactive company", "boton-7", "Dormant", "Bodega", fault.KindCompanyNotFound},
		{"site not registered", "boton-7", "Acme", "Planta Este", fault.KindSiteNotFound},
		{"unknown hardware", "boton-99", "Acme", "Planta Norte", fault.KindHardwareNotFound},
		{"inactive hardware", "sirena-2", "Acme", "Planta Sur", fault.KindHardwareNotFound},
		// The device exists but at a different site; reported the same
		// as a missing device.
		{"site mismatch", "boton-7", "Acme", "Planta Sur", fault.KindHardwareNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(tc.hardware, tc.company, tc.site)
			require.Error(t, err)
			assert.Equal(t, tc.want, fault.KindOf(err))
		})
	}
}
