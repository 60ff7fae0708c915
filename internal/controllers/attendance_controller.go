package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartclass-id/classroom_core_v1/internal/attendance"
)

// Notifier mirrors accepted marks to the dashboard feed.
type Notifier interface {
	Notify(event string, payload interface{})
}

// AttendanceController takes manual marks from operators and detections from
// the face-recognition callback; both converge on the same tracker.
type AttendanceController struct {
	Tracker *attendance.Tracker
	Hub     Notifier
}

type manualMarkRequest struct {
	NIM    string `json:"nim" binding:"required"`
	Status string `json:"status" binding:"required"`
}

type recognitionMarkRequest struct {
	NIM        string  `json:"nim" binding:"required"`
	Status     string  `json:"status" binding:"required"`
	Confidence float64 `json:"confidence"`
}

func (ac *AttendanceController) MarkManual(c *gin.Context) {
	var req manualMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := ac.Tracker.MarkManual(req.NIM, attendance.Status(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	ac.notify(rec)
	c.JSON(http.StatusOK, rec)
}

// MarkFromRecognition is the callback the face-recognition service posts to.
func (ac *AttendanceController) MarkFromRecognition(c *gin.Context) {
	var req recognitionMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := ac.Tracker.MarkFromRecognition(req.NIM, attendance.Status(req.Status), req.Confidence)
	if err != nil {
		respondError(c, err)
		return
	}
	ac.notify(rec)
	c.JSON(http.StatusOK, rec)
}

func (ac *AttendanceController) notify(rec attendance.Record) {
	if ac.Hub != nil {
		ac.Hub.Notify("attendance_updated", rec)
	}
}

func (ac *AttendanceController) StatusOf(c *gin.Context) {
	rec, err := ac.Tracker.StatusOf(c.Param("nim"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (ac *AttendanceController) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stats": ac.Tracker.Stats()})
}

func (ac *AttendanceController) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"records": ac.Tracker.Snapshot()})
}
