// Package syncapi is the Ingestor HTTP server (§4.3, userbot_port,
// default 8082) and the Bot's client for it. Grounded on the teacher's
// internal/web package for the router+middleware+JSON-envelope shape,
// routed with chi instead of a bare ServeMux to get typed path/query
// param helpers and per-route middleware chaining.
package syncapi

import (
	"encoding/json"
	"net/http"

	"github.com/ZhiShengYuan/SearchGram/internal/logging"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Errorf("syncapi: write response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: http.StatusText(status), Message: message})
}
