package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/isdelr/taskflow-api/internal/api/respond"
	"github.com/isdelr/taskflow-api/internal/auth"
	"github.com/isdelr/taskflow-api/internal/models"
	ws "github.com/isdelr/taskflow-api/internal/websocket"
	"github.com/rs/zerolog/log"
)

// Authenticator resolves a raw bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// WebSocketHandler handles upgrading HTTP connections to WebSocket connections.
type WebSocketHandler struct {
	hub      *ws.Hub
	auth     Authenticator
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. Browser connections
// are accepted only from allowedOrigins.
func NewWebSocketHandler(hub *ws.Hub, authenticator Authenticator, allowedOrigins []string) *WebSocketHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.TrimRight(o, "/")] = true
	}
	return &WebSocketHandler{
		hub:  hub,
		auth: authenticator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Non-browser clients send no Origin.
				return origin == "" || origins[origin]
			},
		},
	}
}

// Serve authenticates the caller and upgrades the connection. Browsers cannot
// set headers on the upgrade request, so the token may come from the "token"
// query parameter.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = auth.BearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		respond.Error(w, http.StatusUnauthorized, "Access denied. No token provided.")
		return
	}

	user, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		status, message := auth.FailureResponse(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Msg("Failed to resolve websocket user")
		}
		respond.Error(w, status, message)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, user.ID)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}
	client.Reply(ws.NewMessage(ws.ActionReady, map[string]string{"userId": user.ID}))

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleIncomingWSMessage)
		// Unregistering closes Send, which ends WritePump.
		h.hub.Unregister(client)
	}()
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Warn().Err(err).Str("user_id", client.UserID).Msg("Error decoding websocket message")
		client.Reply(ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case "ping":
		client.Reply(ws.NewMessage(ws.ActionPong, nil))
	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		client.Reply(ws.NewErrorMessage("Unknown action: " + msg.Action))
	}
}
