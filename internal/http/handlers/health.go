package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/safezone/server/internal/http/response"
)

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	logger *zap.Logger
}

func NewHealthHandler(db Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

type healthStatus struct {
	Database string `json:"database"`
}

// ServeHTTP handles GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		response.JSON(w, http.StatusServiceUnavailable, response.Envelope{
			Success: false,
			Message: "Service unavailable",
			Data:    healthStatus{Database: "unreachable"},
		})
		return
	}
	response.OK(w, "Service healthy", healthStatus{Database: "ok"})
}
