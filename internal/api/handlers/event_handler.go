package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/taskflow-api/internal/api/respond"
	"github.com/isdelr/taskflow-api/internal/services"
)

// EventHandler handles HTTP requests related to the activity feed.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get the caller's recent activity.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20 // Default limit
	}

	events, err := h.service.GetRecentEvents(r.Context(), user.ID, limit)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	respond.JSON(w, http.StatusOK, respond.M{"count": len(events), "events": events})
}
