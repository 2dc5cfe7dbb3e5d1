package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hillshield/internal/seed"
)

// ReferenceHandler serves the read-only seeded feeds: shelters for the map
// view, authority broadcasts, and the offline first-aid library.
type ReferenceHandler struct{}

func (h *ReferenceHandler) Shelters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"shelters": seed.Shelters()})
}

func (h *ReferenceHandler) Broadcasts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"broadcasts": seed.Broadcasts(time.Now().UnixMilli())})
}

func (h *ReferenceHandler) FirstAid(c *gin.Context) {
	guides := seed.FirstAidGuides()
	if category := c.Query("category"); category != "" {
		filtered := guides[:0]
		for _, g := range guides {
			if g.Category == category {
				filtered = append(filtered, g)
			}
		}
		guides = filtered
	}
	c.JSON(http.StatusOK, gin.H{"guides": guides})
}
