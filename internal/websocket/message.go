package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

// Actions the server sends besides task notifications.
const (
	ActionError = "error"
	ActionPong  = "pong"
	ActionReady = "ready"
)

// NewMessage encodes a message for the wire.
func NewMessage(action string, payload any) []byte {
	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode websocket message")
		data, _ = json.Marshal(Message{Action: ActionError, Payload: map[string]string{"message": "encoding failed"}})
	}
	return data
}

// NewErrorMessage encodes an error notice for a single client.
func NewErrorMessage(message string) []byte {
	return NewMessage(ActionError, map[string]string{"message": message})
}
