package controllers

import (
	"github.com/gin-gonic/gin"
)

// HealthController represents a controller for health check endpoints
type HealthController struct{}

func NewHealthController() *HealthController {
	return &HealthController{}
}

// Health reports liveness; the edge keeps this route open to
// unauthenticated callers
func (ctrl HealthController) Health(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "seen-auth",
	})
}
