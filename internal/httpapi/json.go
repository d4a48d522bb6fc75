package httpapi

import (
	"encoding/json"
	"net/http"
)

// envelope is the standard response shape for every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// toJSON writes a JSON response with status code.
func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respond writes a success envelope with the given payload.
func respond(w http.ResponseWriter, status int, data any) {
	toJSON(w, status, envelope{Success: true, Data: data})
}

// respondMsg writes a success envelope with a message and no payload.
func respondMsg(w http.ResponseWriter, status int, msg string) {
	toJSON(w, status, envelope{Success: true, Message: msg})
}
