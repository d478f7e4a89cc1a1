package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/doozitravel/gateway/internal/health"
)

// readiness is satisfied by *health.Checker.
type readiness interface {
	Ready() bool
	Snapshot() health.Snapshot
}

// Readiness serves GET /readyz: 200 while the backend is reachable, 503
// once it has been degraded.
func Readiness(r readiness) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		if !r.Ready() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"backend": r.Snapshot()})
	}
}
