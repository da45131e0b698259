package handlers

import (
	"context"
	"net/http"

	"slotbook/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the latest dependency snapshot, refreshing it with check first.
func HealthHandler(check func(ctx context.Context) utils.HealthStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := check(c.Request.Context())
		code := http.StatusOK
		if !status.OK() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": statusText(status), "checks": status})
	}
}

func statusText(s utils.HealthStatus) string {
	if s.OK() {
		return "ok"
	}
	return "degraded"
}
