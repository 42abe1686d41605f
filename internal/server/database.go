package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const pingTimeout = 2 * time.Second

// Pinger checks that the database is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// ready pings the database to ensure it's responsive
func ready(db Pinger, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.HealthCheck(c.Request.Context(), pingTimeout); err != nil {
			logger.Error("http.ready.db_ping_failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
	}
}
