package stubapi

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus `json:"status"`
	Message    string       `json:"message,omitempty"`
	DurationMs int64        `json:"duration_ms"`
}

// Health reports whether the fixture database answers a ping.
func (h *Handler) Health(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		start := time.Now()
		entry := CheckEntry{Status: HealthHealthy}

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		entry.DurationMs = time.Since(start).Milliseconds()
		if err != nil {
			entry.Status = HealthUnhealthy
			entry.Message = err.Error()
		}

		status := http.StatusOK
		if entry.Status == HealthUnhealthy {
			status = http.StatusServiceUnavailable
		}
		h.WriteJSON(w, status, HealthResponse{
			Status:     entry.Status,
			CheckedAt:  time.Now(),
			Components: map[string]CheckEntry{"database": entry},
		})
	}
}
