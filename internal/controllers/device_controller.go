package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartclass-id/classroom_core_v1/internal/registry"
)

// DeviceController exposes device claiming to the dashboard. The same
// operations also run unattended through the ingest layer when a device
// registers itself over the broker.
type DeviceController struct {
	Registry *registry.Registry
}

type assignRequest struct {
	StudentNIM string `json:"student_nim" binding:"required"`
	DeviceCode string `json:"device_code" binding:"required"`
}

type resetRequest struct {
	StudentNIM string `json:"student_nim" binding:"required"`
}

func (dc *DeviceController) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dev, err := dc.Registry.Assign(req.StudentNIM, req.DeviceCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dev)
}

func (dc *DeviceController) Reset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := dc.Registry.Reset(req.StudentNIM); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "released"})
}

func (dc *DeviceController) LookupOwner(c *gin.Context) {
	code := c.Param("code")
	owner, ok := dc.Registry.LookupOwner(code)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not claimed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"device_code": code, "student_nim": owner})
}

func (dc *DeviceController) LookupDevice(c *gin.Context) {
	nim := c.Param("nim")
	dev, ok := dc.Registry.LookupDevice(nim)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "student holds no device"})
		return
	}
	c.JSON(http.StatusOK, dev)
}
