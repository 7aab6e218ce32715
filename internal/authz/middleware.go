package authz

import (
	"net/http"

	"github.com/rescuedev/rescue-api/internal/models"
)

// RequireRole gates a route on the requester's role tier
// (viewer < operador < administrador < super_admin). The check is
// against the highest role the requester holds.
func RequireRole(required models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles, ok := RolesFromRequest(r)
			if !ok {
				http.Error(w, "missing role context", http.StatusForbidden)
				return
			}
			if !models.HasAtLeast(roles, required) {
				http.Error(w, "requires "+string(required)+" role or higher", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoleHandler applies the role gate inline when registering routes.
func RequireRoleHandler(required models.UserRole, next http.Handler) http.Handler {
	return RequireRole(required)(next)
}
