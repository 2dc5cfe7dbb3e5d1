package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"hillshield/internal/ai"
	"hillshield/internal/middleware"
)

// DoctorHandler fronts the AI collaborator. Responses always carry a
// usable value; collaborator failures surface only as fallback=true.
type DoctorHandler struct {
	AI *ai.Client
}

type adviceBody struct {
	Symptoms string `json:"symptoms"`
}

func (h *DoctorHandler) Advice(c *gin.Context) {
	if _, ok := middleware.AccountIDFromContext(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	var body adviceBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Symptoms == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Symptoms are required"})
		return
	}

	res := h.AI.AdviseSymptoms(c.Request.Context(), body.Symptoms)
	c.JSON(http.StatusOK, gin.H{"advice": res.Text, "fallback": res.Fallback})
}

type mentalBody struct {
	Input string `json:"input"`
}

func (h *DoctorHandler) MentalSupport(c *gin.Context) {
	if _, ok := middleware.AccountIDFromContext(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	var body mentalBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Input == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Input is required"})
		return
	}

	res := h.AI.MentalSupport(c.Request.Context(), body.Input)
	c.JSON(http.StatusOK, gin.H{"support": res.Text, "fallback": res.Fallback})
}

type medicineBody struct {
	Image    string `json:"image"` // base64
	MimeType string `json:"mimeType"`
}

func (h *DoctorHandler) IdentifyMedicine(c *gin.Context) {
	if _, ok := middleware.AccountIDFromContext(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	var body medicineBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image is required"})
		return
	}
	image, err := base64.StdEncoding.DecodeString(body.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image encoding"})
		return
	}
	mimeType := body.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	res := h.AI.IdentifyMedicine(c.Request.Context(), image, mimeType)
	c.JSON(http.StatusOK, gin.H{"medicine": res})
}

type voiceBody struct {
	Transcript string `json:"transcript"`
}

func (h *DoctorHandler) InterpretVoice(c *gin.Context) {
	if _, ok := middleware.AccountIDFromContext(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	var body voiceBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Transcript == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Transcript is required"})
		return
	}

	res := h.AI.InterpretVoiceCommand(c.Request.Context(), body.Transcript)
	c.JSON(http.StatusOK, gin.H{"intent": res})
}

func (h *DoctorHandler) Reliability(c *gin.Context) {
	if _, ok := middleware.AccountIDFromContext(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	res := h.AI.PredictReliability(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"reliability": res})
}
