// Package identity verifies the hardware -> company -> site identity
// chain before a credential is minted.
package identity

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/rescuedev/rescue-api/internal/fault"
	"github.com/rescuedev/rescue-api/internal/models"
	"github.com/rescuedev/rescue-api/internal/repository"
)

// Verification is the result of a successful identity-chain check.
type Verification struct {
	Company  models.Company
	Hardware models.Hardware
}

// Verifier confirms that a company is active, the site belongs to it,
// and the hardware is active and owned by that company and site.
type Verifier struct {
	companies repository.CompanyRepository
	hardware  repository.HardwareRepository
}

func NewVerifier(companies repository.CompanyRepository, hardware repository.HardwareRepository) *Verifier {
	return &Verifier{companies: companies, hardware: hardware}
}

// Verify walks the identity chain in order, short-circuiting on the
// first break. Read-only; no side effects.
func (v *Verifier) Verify(hardwareName, companyName, siteName string) (Verification, error) {
	hardwareName = strings.TrimSpace(hardwareName)
	companyName = strings.TrimSpace(companyName)
	siteName = strings.TrimSpace(siteName)

	if hardwareName == "" || companyName == "" || siteName == "" {
		return Verification{}, fault.New(fault.KindMissingParameter,
			"hardware name, company name, and site are required")
	}

	company, err := v.companies.FindActiveByName(companyName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Verification{}, fault.New(fault.KindCompanyNotFound,
				"company %q not found or inactive", companyName)
		}
		return Verification{}, fault.Wrap(err, fault.KindUnexpected, "company lookup failed")
	}

	if !company.HasSite(siteName) {
		return Verification{}, fault.New(fault.KindSiteNotFound,
			"site %q is not registered for company %q", siteName, companyName)
	}

	hw, err := v.hardware.FindActiveByNameAndCompany(hardwareName, company.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Do not disclose which part of the lookup failed.
			return Verification{}, fault.New(fault.KindHardwareNotFound,
				"hardware %q not found or inactive", hardwareName)
		}
		return Verification{}, fault.Wrap(err, fault.KindUnexpected, "hardware lookup failed")
	}

	if hw.Site != siteName {
		return Verification{}, fault.New(fault.KindHardwareNotFound,
			"hardware %q not found or inactive", hardwareName)
	}

	return Verification{Company: company, Hardware: hw}, nil
}
