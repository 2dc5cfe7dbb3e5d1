package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hillshield/internal/kvstore"
	"hillshield/internal/mesh"
	"hillshield/internal/middleware"
	"hillshield/internal/model"
	"hillshield/internal/store"
)

type ChatHandler struct {
	Store     *store.Store
	Monitor   *mesh.Monitor
	Transport mesh.Transport
}

func messageJSON(m model.Message) gin.H {
	return gin.H{
		"id":         m.ID,
		"senderId":   m.SenderID,
		"senderName": m.SenderName,
		"text":       m.Text,
		"timestamp":  m.Timestamp,
		"status":     m.Status,
	}
}

func (h *ChatHandler) List(c *gin.Context) {
	if _, ok := middleware.AccountIDFromContext(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	conversationID := c.Param("id")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation id"})
		return
	}

	msgs, err := h.Store.ListMessages(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}

	resp := make([]gin.H, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageJSON(m))
	}
	c.JSON(http.StatusOK, gin.H{"messages": resp, "online": h.Monitor.Online()})
}

type sendMessageBody struct {
	Text string `json:"text"`
}

func (h *ChatHandler) Send(c *gin.Context) {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	conversationID := c.Param("id")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation id"})
		return
	}

	var body sendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message text is required"})
		return
	}

	senderName := accountID
	if acc, err := h.Store.AccountByID(accountID); err == nil {
		senderName = acc.Name
	}

	online := h.Monitor.Online()
	msg, err := h.Store.AppendMessage(conversationID, accountID, senderName, body.Text, online, time.Now().UnixMilli())
	if err != nil {
		switch {
		case errors.Is(err, kvstore.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "Concurrent write, message was not saved"})
		case errors.Is(err, kvstore.ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage unavailable, changes were not saved"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to send message"})
		}
		return
	}

	if !online && h.Transport != nil {
		_ = h.Transport.Send(conversationID, msg)
	}
	c.JSON(http.StatusOK, gin.H{"message": messageJSON(msg)})
}
