package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTopic(t *testing.T) {
	topic := BuildTopic("Acme", "Planta Norte", "SIRENA", "sirena-1")
	assert.Equal(t, "Acme/Planta Norte/SIRENA/sirena-1", topic)
}

func TestIsButton(t *testing.T) {
	assert.True(t, Hardware{Category: CategoryButton}.IsButton())
	assert.False(t, Hardware{Category: "SIRENA"}.IsButton())
}

func TestHasSite(t *testing.T) {
	company := Company{Sites: []string{"Planta Norte", "Planta Sur"}}
	assert.True(t, company.HasSite("Planta Sur"))
	assert.False(t, company.HasSite("planta sur"))
	assert.False(t, company.HasSite(""))
}

func TestIsValidAlertCode(t *testing.T) {
	for _, code := range []AlertCode{CodeRed, CodeBlue, CodeYellow, CodeGreen, CodeOrange} {
		assert.True(t, IsValidAlertCode(code))
	}
	assert.False(t, IsValidAlertCode("MORADO"))
	assert.False(t, IsValidAlertCode("rojo"))
}

func TestRoleHelpers(t *testing.T) {
	roles := []UserRole{RoleViewer, RoleAdmin, RoleViewer}

	normalized := NormalizeRoles(roles)
	assert.Equal(t, []UserRole{RoleViewer, RoleAdmin}, normalized)

	assert.Equal(t, RoleAdmin, HighestRole(normalized))
	assert.True(t, HasAtLeast(normalized, RoleOperator))
	assert.False(t, HasAtLeast([]UserRole{RoleViewer}, RoleOperator))

	assert.Equal(t, []UserRole{RoleViewer}, EnsureDefaultRole(nil))
	assert.False(t, IsValidRoleList(nil))
	assert.False(t, IsValidRoleList([]UserRole{"jefe"}))
}

func TestIsDeactivated(t *testing.T) {
	assert.False(t, Alert{Active: true}.IsDeactivated())
	// A plain toggle to inactive is not an attributed deactivation.
	assert.False(t, Alert{Active: false}.IsDeactivated())
	assert.True(t, Alert{Active: false, Deactivation: &Deactivation{ByID: "u-1"}}.IsDeactivated())
}

func TestIsValidDeactivatorKind(t *testing.T) {
	for _, kind := range []DeactivatorKind{DeactivatorUser, DeactivatorHardware,
		DeactivatorAdmin, DeactivatorSuperAdmin, DeactivatorCompany} {
		assert.True(t, IsValidDeactivatorKind(kind))
	}
	assert.False(t, IsValidDeactivatorKind("robot"))
}
