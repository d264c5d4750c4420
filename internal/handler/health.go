package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db       Pinger
	features map[string]bool
}

// NewHealthHandler reports the database state and which optional integrations are on
func NewHealthHandler(db Pinger, features map[string]bool) *HealthHandler {
	return &HealthHandler{db: db, features: features}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Health check: database unreachable")
		status, code = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   status,
		"service":  "talentpool-api",
		"features": h.features,
		"time":     time.Now().UTC(),
	})
}
