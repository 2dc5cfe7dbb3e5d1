package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hillshield/internal/auth"
	"hillshield/internal/kvstore"
	"hillshield/internal/middleware"
	"hillshield/internal/store"
)

type AuthHandler struct {
	Store       *store.Store
	TokenConfig auth.TokenConfig
	Limiter     *middleware.RateLimiter
}

type signUpBody struct {
	Handle string `json:"handle"`
	Secret string `json:"secret"`
	Name   string `json:"name"`
}

type loginBody struct {
	Handle string `json:"handle"`
	Secret string `json:"secret"`
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var body signUpBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if body.Handle == "" || body.Secret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Handle and secret are required", "field": "handle"})
		return
	}
	if h.Limiter != nil && !h.Limiter.AllowAuth(c.ClientIP(), body.Handle) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
		return
	}

	now := time.Now().UnixMilli()
	acc, err := h.Store.SignUp(body.Handle, body.Secret, body.Name, now)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateHandle):
			c.JSON(http.StatusConflict, gin.H{"error": "Handle already registered", "field": "handle"})
		case errors.Is(err, store.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Handle and secret are required"})
		case errors.Is(err, kvstore.ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage unavailable, changes were not saved"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Sign-up failed"})
		}
		return
	}

	token, err := auth.CreateToken(acc.ID, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token creation failed"})
		return
	}
	if err := h.Store.SetSessionToken(token, now); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage unavailable, changes were not saved"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "account": accountJSON(acc)})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if h.Limiter != nil && !h.Limiter.AllowAuth(c.ClientIP(), body.Handle) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
		return
	}

	now := time.Now().UnixMilli()
	acc, err := h.Store.Login(body.Handle, body.Secret, now)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		case errors.Is(err, kvstore.ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage unavailable, changes were not saved"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		}
		return
	}

	token, err := auth.CreateToken(acc.ID, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token creation failed"})
		return
	}
	if err := h.Store.SetSessionToken(token, now); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage unavailable, changes were not saved"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "account": accountJSON(acc)})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Store.Logout(time.Now().UnixMilli()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage unavailable, changes were not saved"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
