package models

import "time"

// UserRole is an operator permission tier.
type UserRole string

const (
	RoleViewer     UserRole = "viewer"
	RoleOperator   UserRole = "operador"
	RoleAdmin      UserRole = "administrador"
	RoleSuperAdmin UserRole = "super_admin"
)

var roleRank = map[UserRole]int{
	RoleViewer:     1,
	RoleOperator:   2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

// User is an operator account scoped to a company and site. Users with
// a phone on file are eligible notification targets for alerts at
// their site.
type User struct {
	ID           string     `json:"id" db:"id"`
	CompanyName  string     `json:"company_name" db:"company_name"`
	Site         string     `json:"site" db:"site"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	Phone        string     `json:"phone,omitempty" db:"phone"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Roles        []UserRole `json:"roles" db:"roles"`
	Active       bool       `json:"active" db:"active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// IsValidRole reports whether the role is a known tier.
func IsValidRole(role UserRole) bool {
	_, ok := roleRank[role]
	return ok
}

// IsValidRoleList reports whether every role in the list is known and
// the list is non-empty.
func IsValidRoleList(roles []UserRole) bool {
	if len(roles) == 0 {
		return false
	}
	for _, role := range roles {
		if !IsValidRole(role) {
			return false
		}
	}
	return true
}

// NormalizeRoles removes duplicates while preserving order.
func NormalizeRoles(roles []UserRole) []UserRole {
	seen := make(map[UserRole]struct{}, len(roles))
	result := make([]UserRole, 0, len(roles))
	for _, role := range roles {
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		result = append(result, role)
	}
	return result
}

// EnsureDefaultRole guarantees the list is never empty by falling back
// to the viewer tier.
func EnsureDefaultRole(roles []UserRole) []UserRole {
	if len(roles) == 0 {
		return []UserRole{RoleViewer}
	}
	return roles
}

// HighestRole returns the highest tier present in the list.
func HighestRole(roles []UserRole) UserRole {
	highest := RoleViewer
	for _, role := range roles {
		if roleRank[role] > roleRank[highest] {
			highest = role
		}
	}
	return highest
}

// HasAtLeast reports whether any role in the list meets the required
// tier.
func HasAtLeast(roles []UserRole, required UserRole) bool {
	for _, role := range roles {
		if roleRank[role] >= roleRank[required] {
			return true
		}
	}
	return false
}
