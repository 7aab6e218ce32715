package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rescuedev/rescue-api/internal/fault"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeFault maps a pipeline failure to its HTTP status. Unexpected
// failures surface a generic message only.
func writeFault(w http.ResponseWriter, err error) {
	kind := fault.KindOf(err)
	status := fault.HTTPStatus(kind)
	msg := err.Error()
	if kind == fault.KindUnexpected {
		msg = "internal error"
	}
	http.Error(w, msg, status)
}
