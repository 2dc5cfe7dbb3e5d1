package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"hillshield/internal/auth"
	"hillshield/internal/kvstore"
	"hillshield/internal/mesh"
	"hillshield/internal/notify"
	"hillshield/internal/store"
)

// SyncHandler is the cross-context bridge: every open client (second
// browser tab, second device) holds one socket and receives every store
// commit as an update frame, in commit order. A client that attaches late
// gets nothing retroactively; the hello frame tells it to re-read.
type SyncHandler struct {
	Store       *store.Store
	Monitor     *mesh.Monitor
	TokenConfig auth.TokenConfig
}

type clientFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId,omitempty"`
	Text           string `json:"text,omitempty"`
}

type serverFrame struct {
	Type    string          `json:"type"`
	Key     string          `json:"key,omitempty"`
	Version int64           `json:"version,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	Body    interface{}     `json:"body,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsSink) write(frame serverFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsSink) Send(ev notify.Event) error {
	return w.write(serverFrame{Type: "update", Key: ev.Key, Version: ev.Version, Value: ev.Value})
}

func (w *wsSink) Close() error { return w.conn.Close() }

func (h *SyncHandler) Serve(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}
	claims, err := auth.VerifyToken(tokenString, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	sink := &wsSink{conn: ws}
	h.Store.Hub().Subscribe(sink)
	defer func() {
		h.Store.Hub().Unsubscribe(sink)
		_ = ws.Close()
	}()

	// No replay for late joiners; the client re-reads on attach.
	_ = sink.write(serverFrame{Type: "hello", Body: gin.H{"resync": true}})

	ws.SetReadLimit(1024 * 1024)
	const pongWait = 60 * time.Second
	const writeWait = 10 * time.Second
	pingPeriod := (pongWait * 9) / 10

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	var closeOnce sync.Once
	closeDone := func() {
		closeOnce.Do(func() {
			close(done)
		})
	}
	defer closeDone()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(writeWait)
				if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					_ = ws.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case "ping":
			_ = sink.write(serverFrame{Type: "pong"})
		case "message":
			if frame.ConversationID == "" || frame.Text == "" {
				_ = sink.write(serverFrame{Type: "error", Body: gin.H{"reason": "Conversation ID and text are required"}})
				continue
			}
			senderName := claims.AccountID
			if acc, err := h.Store.AccountByID(claims.AccountID); err == nil {
				senderName = acc.Name
			}
			// The append commit fans out to every subscribed client
			// through the hub; no separate broadcast is needed. A failed
			// append is reported back on this socket only.
			_, err := h.Store.AppendMessage(frame.ConversationID, claims.AccountID, senderName,
				frame.Text, h.Monitor.Online(), time.Now().UnixMilli())
			if err != nil {
				var reason string
				switch {
				case errors.Is(err, kvstore.ErrConflict):
					reason = "Concurrent write, message was not saved"
				case errors.Is(err, kvstore.ErrStorageUnavailable):
					reason = "Storage unavailable, changes were not saved"
				default:
					reason = "Failed to send message"
				}
				_ = sink.write(serverFrame{Type: "error", Body: gin.H{"reason": reason}})
			}
		}
	}
}
