/**
 * @description
 * Shared JSON response helpers for the API layer. Every handler writes
 * through these so the wire shapes stay consistent: success payloads are
 * plain objects matching what the web client expects, and errors carry a
 * machine label plus a human message.
 */

package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// errorResponse is the uniform error body for non-2xx responses.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, label, message string) {
	writeJSON(w, status, errorResponse{Error: label, Message: message})
}
