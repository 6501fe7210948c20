package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/isdelr/taskflow-api/internal/api/respond"
	"github.com/isdelr/taskflow-api/internal/monitoring"
	"github.com/rs/zerolog/log"
)

// ProcessStatsSource supplies the latest process resource sample.
type ProcessStatsSource interface {
	Latest() monitoring.ProcessStats
}

// Pinger checks that a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness. It always answers 200; the database field
// tells monitors whether storage is reachable.
type HealthHandler struct {
	started time.Time
	stats   ProcessStatsSource
	db      Pinger
}

// NewHealthHandler creates a new HealthHandler. stats and db may be nil.
func NewHealthHandler(stats ProcessStatsSource, db Pinger) *HealthHandler {
	return &HealthHandler{started: time.Now(), stats: stats, db: db}
}

// Get handles GET /api/health.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	payload := respond.M{
		"message":   "API is running",
		"timestamp": now.UTC().Format(time.RFC3339),
		"uptime":    int64(now.Sub(h.started).Seconds()),
	}

	if h.stats != nil {
		sample := h.stats.Latest()
		payload["rssBytes"] = sample.RSSBytes
		payload["goroutines"] = sample.Goroutines
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		payload["database"] = "up"
		if err := h.db.PingContext(ctx); err != nil {
			log.Warn().Err(err).Msg("Health check: database unreachable")
			payload["database"] = "down"
		}
	}

	respond.JSON(w, http.StatusOK, payload)
}
