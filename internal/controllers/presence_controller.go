package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartclass-id/classroom_core_v1/internal/presence"
)

type PresenceController struct {
	Tracker *presence.Tracker
}

// Snapshot returns every tracked device with its derived online/offline
// status.
func (pc *PresenceController) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"devices": pc.Tracker.Snapshot()})
}

func (pc *PresenceController) StatusOf(c *gin.Context) {
	code := c.Param("code")
	c.JSON(http.StatusOK, gin.H{
		"device_code": code,
		"status":      pc.Tracker.StatusOf(code),
	})
}
