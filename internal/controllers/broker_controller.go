package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartclass-id/classroom_core_v1/internal/bridge"
	"github.com/smartclass-id/classroom_core_v1/internal/ingest"
)

// BrokerController lets the operator manage the broker link. The bridge never
// reconnects on its own; after a drop the dashboard shows disconnected and
// the operator (or the UI's retry button) posts connect again.
type BrokerController struct {
	Bridge    *bridge.Bridge
	BrokerURL string
	Ingest    *ingest.Ingest
}

func (bc *BrokerController) Status(c *gin.Context) {
	state := bridge.StateDisconnected
	if bc.Bridge.Connected() {
		state = bridge.StateConnected
	}
	c.JSON(http.StatusOK, gin.H{"state": state, "endpoint": bc.BrokerURL})
}

func (bc *BrokerController) Connect(c *gin.Context) {
	if err := bc.Bridge.Connect(c.Request.Context(), bc.BrokerURL); err != nil {
		respondError(c, err)
		return
	}
	// An explicit disconnect dropped all subscriptions; re-attach ingest.
	if bc.Ingest != nil {
		bc.Ingest.Stop()
		bc.Ingest.Start()
	}
	c.JSON(http.StatusOK, gin.H{"state": bridge.StateConnected})
}

func (bc *BrokerController) Disconnect(c *gin.Context) {
	bc.Bridge.Disconnect()
	c.JSON(http.StatusOK, gin.H{"state": bridge.StateDisconnected})
}
