package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

// envelope is the uniform response wrapper used by every endpoint.
type envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// Respond writes a success envelope.
func Respond(w http.ResponseWriter, status int, message string, data any) {
	writeEnvelope(w, status, envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// RespondError writes an error envelope. Data is always an empty object so
// clients can rely on its shape.
func RespondError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, envelope{
		Success:   false,
		Message:   message,
		Data:      map[string]any{},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}
