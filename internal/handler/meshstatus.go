package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hillshield/internal/mesh"
	"hillshield/internal/middleware"
)

// MeshHandler exposes the connectivity-mode signal. The client flips it
// when the device loses or regains its uplink (or the user toggles
// offline mode); the delivery simulator reacts to the change.
type MeshHandler struct {
	Monitor *mesh.Monitor
}

func (h *MeshHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": h.Monitor.Online()})
}

type setStatusBody struct {
	Online *bool `json:"online"`
}

func (h *MeshHandler) SetStatus(c *gin.Context) {
	if _, ok := middleware.AccountIDFromContext(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	var body setStatusBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Online == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Online flag is required"})
		return
	}

	h.Monitor.SetOnline(*body.Online)
	c.JSON(http.StatusOK, gin.H{"online": h.Monitor.Online()})
}
