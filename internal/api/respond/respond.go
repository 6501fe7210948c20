// Package respond writes the JSON envelope shared by every API response:
// {"success": bool, "message": "...", ...payload}.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// M is a response payload merged into the envelope.
type M map[string]any

// JSON writes a success envelope with the given status.
func JSON(w http.ResponseWriter, status int, payload M) {
	write(w, status, true, payload)
}

// Message writes a success envelope carrying only a message.
func Message(w http.ResponseWriter, status int, message string) {
	write(w, status, true, M{"message": message})
}

// Error writes a failure envelope with a message.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, false, M{"message": message})
}

// Fail writes a failure envelope with an arbitrary payload.
func Fail(w http.ResponseWriter, status int, payload M) {
	write(w, status, false, payload)
}

func write(w http.ResponseWriter, status int, success bool, payload M) {
	body := make(M, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = success

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Int("status", status).Msg("Failed to encode response")
	}
}
