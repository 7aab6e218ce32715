package authz

import (
	"context"
	"net/http"

	"github.com/rescuedev/rescue-api/internal/models"
)

type contextKey string

const (
	companyNameKey contextKey = "company_name"
	userIDKey      contextKey = "user_id"
	userRolesKey   contextKey = "user_roles"
)

// WithIdentity stores company, user, and role information on the context.
func WithIdentity(ctx context.Context, companyName, userID string, roles []models.UserRole) context.Context {
	if companyName != "" {
		ctx = context.WithValue(ctx, companyNameKey, companyName)
	}
	if userID != "" {
		ctx = context.WithValue(ctx, userIDKey, userID)
	}
	normalized := models.EnsureDefaultRole(models.NormalizeRoles(roles))
	ctx = context.WithValue(ctx, userRolesKey, normalized)
	return ctx
}

func CompanyNameFromRequest(r *http.Request) (string, bool) {
	name, ok := r.Context().Value(companyNameKey).(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

func UserIDFromRequest(r *http.Request) (string, bool) {
	uid, ok := r.Context().Value(userIDKey).(string)
	if !ok || uid == "" {
		return "", false
	}
	return uid, true
}

func RolesFromRequest(r *http.Request) ([]models.UserRole, bool) {
	roles, ok := r.Context().Value(userRolesKey).([]models.UserRole)
	if !ok || !models.IsValidRoleList(roles) {
		return nil, false
	}
	return roles, true
}
