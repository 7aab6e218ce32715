package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rescuedev/rescue-api/internal/authz"
	"github.com/rescuedev/rescue-api/internal/handlers"
	"github.com/rescuedev/rescue-api/internal/models"
)

// NewRouter sets up the API routes
func NewRouter(
	auth *handlers.AuthHandler,
	hardwareAuth *handlers.HardwareAuthHandler,
	alert *handlers.AlertHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/signup", auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", auth.Login).Methods(http.MethodPost)

	// Public hardware endpoints, authenticated by their own credential.
	router.HandleFunc("/api/hardware/authenticate", hardwareAuth.Authenticate).Methods(http.MethodPost)
	router.HandleFunc("/api/hardware/verify", hardwareAuth.Verify).Methods(http.MethodPost)
	router.HandleFunc("/api/hardware/alerts", alert.Submit).Methods(http.MethodPost)

	// Operator endpoints behind the bearer JWT.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)

	api.Handle("/sessions", authz.RequireRoleHandler(models.RoleOperator,
		http.HandlerFunc(hardwareAuth.ListSessions))).Methods(http.MethodGet)
	api.Handle("/sessions/expired", authz.RequireRoleHandler(models.RoleAdmin,
		http.HandlerFunc(hardwareAuth.CleanupSessions))).Methods(http.MethodDelete)
	api.Handle("/hardware/stale", authz.RequireRoleHandler(models.RoleOperator,
		http.HandlerFunc(hardwareAuth.StaleHardware))).Methods(http.MethodGet)

	api.Handle("/alerts", authz.RequireRoleHandler(models.RoleOperator,
		http.HandlerFunc(alert.Create))).Methods(http.MethodPost)
	api.Handle("/alerts", authz.RequireRoleHandler(models.RoleViewer,
		http.HandlerFunc(alert.List))).Methods(http.MethodGet)
	api.Handle("/alerts/{alertID}", authz.RequireRoleHandler(models.RoleViewer,
		http.HandlerFunc(alert.Get))).Methods(http.MethodGet)
	api.Handle("/alerts/{alertID}/authorize", authz.RequireRoleHandler(models.RoleOperator,
		http.HandlerFunc(alert.Authorize))).Methods(http.MethodPost)
	api.Handle("/alerts/{alertID}/toggle", authz.RequireRoleHandler(models.RoleOperator,
		http.HandlerFunc(alert.Toggle))).Methods(http.MethodPost)
	api.Handle("/alerts/{alertID}/deactivate", authz.RequireRoleHandler(models.RoleOperator,
		http.HandlerFunc(alert.Deactivate))).Methods(http.MethodPost)
	api.Handle("/alerts/{alertID}/targets/{userID}", authz.RequireRoleHandler(models.RoleOperator,
		http.HandlerFunc(alert.UpdateTargetStatus))).Methods(http.MethodPatch)

	return router
}
