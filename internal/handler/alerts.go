package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hillshield/internal/ai"
	"hillshield/internal/kvstore"
	"hillshield/internal/middleware"
	"hillshield/internal/model"
	"hillshield/internal/store"
)

type AlertHandler struct {
	Store *store.Store
	AI    *ai.Client
}

type raiseAlertBody struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Details string  `json:"details"`
}

func alertJSON(a model.SOSAlert) gin.H {
	return gin.H{
		"id":             a.ID,
		"userId":         a.UserID,
		"userName":       a.UserName,
		"lat":            a.Lat,
		"lng":            a.Lng,
		"timestamp":      a.Timestamp,
		"priority":       a.Priority,
		"details":        a.Details,
		"assessment":     a.Assessment,
		"category":       a.Category,
		"signalStrength": a.SignalStrength,
		"status":         a.Status,
		"resolvedAt":     a.ResolvedAt,
	}
}

// Raise triages an SOS and appends it to the alert feed. The collaborator
// never blocks the flow: on failure the alert still goes out with the
// canned high-priority assessment.
func (h *AlertHandler) Raise(c *gin.Context) {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	var body raiseAlertBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	details := body.Details
	if details == "" {
		details = "Immediate assistance required"
	}

	userName := accountID
	if acc, err := h.Store.AccountByID(accountID); err == nil {
		userName = acc.Name
	}

	triage := h.AI.Prioritize(c.Request.Context(), details)
	reliability := h.AI.PredictReliability(c.Request.Context())

	alert, err := h.Store.RaiseAlert(model.SOSAlert{
		UserID:         accountID,
		UserName:       userName,
		Lat:            body.Lat,
		Lng:            body.Lng,
		Priority:       triage.Priority,
		Details:        details,
		Assessment:     triage.Reasoning,
		SignalStrength: reliability.Score,
	}, time.Now().UnixMilli())
	if err != nil {
		if errors.Is(err, kvstore.ErrStorageUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage unavailable, changes were not saved"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to raise alert"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alert": alertJSON(alert), "fallback": triage.Fallback})
}

func (h *AlertHandler) List(c *gin.Context) {
	if _, ok := middleware.AccountIDFromContext(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	alerts, err := h.Store.ListAlerts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load alerts"})
		return
	}

	resp := make([]gin.H, 0, len(alerts))
	for _, a := range alerts {
		resp = append(resp, alertJSON(a))
	}
	c.JSON(http.StatusOK, gin.H{"alerts": resp})
}

type resolveAlertBody struct {
	Status model.AlertStatus `json:"status"`
}

func (h *AlertHandler) Resolve(c *gin.Context) {
	if _, ok := middleware.AccountIDFromContext(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	alertID := c.Param("id")
	if alertID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
		return
	}

	var body resolveAlertBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	status := body.Status
	if status == "" {
		status = model.AlertResolved
	}

	alert, err := h.Store.ResolveAlert(alertID, status, time.Now().UnixMilli())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		case errors.Is(err, kvstore.ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage unavailable, changes were not saved"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": alertJSON(alert)})
}
