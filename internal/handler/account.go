package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hillshield/internal/kvstore"
	"hillshield/internal/middleware"
	"hillshield/internal/model"
	"hillshield/internal/store"
)

type AccountHandler struct {
	Store *store.Store
}

// accountJSON renders an account without its secret hash.
func accountJSON(acc model.Account) gin.H {
	return gin.H{
		"id":        acc.ID,
		"handle":    acc.Handle,
		"name":      acc.Name,
		"role":      acc.Role,
		"contacts":  acc.Contacts,
		"medical":   acc.Medical,
		"settings":  acc.Settings,
		"privacy":   acc.Privacy,
		"createdAt": acc.CreatedAt,
		"updatedAt": acc.UpdatedAt,
	}
}

func (h *AccountHandler) Get(c *gin.Context) {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	acc, err := h.Store.AccountByID(accountID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": accountJSON(acc)})
}

type updateAccountBody struct {
	Name     *string               `json:"name"`
	Role     *string               `json:"role"`
	Contacts *[]model.Contact      `json:"contacts"`
	Medical  *model.MedicalProfile `json:"medical"`
	Settings *model.AppSettings    `json:"settings"`
	Privacy  *model.PrivacyFlags   `json:"privacy"`
}

func (h *AccountHandler) Update(c *gin.Context) {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	var body updateAccountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	sess, err := h.Store.Current()
	if err != nil || sess.Account.ID != accountID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No active session for this account"})
		return
	}

	acc, err := h.Store.UpdateAccount(store.AccountPatch{
		Name:     body.Name,
		Role:     body.Role,
		Contacts: body.Contacts,
		Medical:  body.Medical,
		Settings: body.Settings,
		Privacy:  body.Privacy,
	}, time.Now().UnixMilli())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNoSession):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No active session"})
		case errors.Is(err, kvstore.ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage unavailable, changes were not saved"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": accountJSON(acc)})
}
