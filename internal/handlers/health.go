package handlers

import (
	"encoding/json"
	"net/http"
)

// HealthCheck reports liveness for load balancer checks. It does not
// touch the database: readiness is the migration step at startup.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "rescue-api",
		"status":  "ok",
	})
}
