package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"hillshield/internal/kvstore"
)

func dialSync(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return frame
}

func TestWebSocket_HelloAndPingPong(t *testing.T) {
	r, _, _ := newTestRouter(t)
	token := signUpFor(t, r, "rahim@example.com")

	srv := httptest.NewServer(r)
	defer srv.Close()

	conn := dialSync(t, srv, token)

	hello := readFrame(t, conn)
	if hello["type"] != "hello" {
		t.Fatalf("expected hello frame, got %v", hello)
	}

	if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if resp := readFrame(t, conn); resp["type"] != "pong" {
		t.Fatalf("expected pong, got %v", resp)
	}
}

func TestWebSocket_RejectsBadToken(t *testing.T) {
	r, _, _ := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws?token=garbage")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestWebSocket_FansOutCommittedWrites(t *testing.T) {
	r, _, _ := newTestRouter(t)
	token := signUpFor(t, r, "rahim@example.com")

	srv := httptest.NewServer(r)
	defer srv.Close()

	// Two attached contexts: the writer and an observer tab.
	writer := dialSync(t, srv, token)
	observer := dialSync(t, srv, token)
	readFrame(t, writer)   // hello
	readFrame(t, observer) // hello

	if err := writer.WriteJSON(map[string]any{
		"type": "message", "conversationId": "general", "text": "hello",
	}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	update := readFrame(t, observer)
	if update["type"] != "update" {
		t.Fatalf("expected update frame, got %v", update)
	}
	if update["key"] != "messages:general" {
		t.Fatalf("expected messages:general, got %v", update["key"])
	}

	raw, _ := json.Marshal(update["value"])
	var msgs []map[string]any
	if err := json.Unmarshal(raw, &msgs); err != nil {
		t.Fatalf("unmarshal update value: %v", err)
	}
	if len(msgs) != 1 || msgs[0]["text"] != "hello" {
		t.Fatalf("expected appended message in update, got %v", msgs)
	}
	if msgs[0]["senderName"] != "Rahim" {
		t.Fatalf("expected resolved sender name, got %v", msgs[0]["senderName"])
	}

	// The writer's own socket sees the same commit.
	echo := readFrame(t, writer)
	if echo["type"] != "update" || echo["key"] != "messages:general" {
		t.Fatalf("expected update echo on writer, got %v", echo)
	}
}

func TestWebSocket_UpdatesOmitCredentialMaterial(t *testing.T) {
	r, st, _ := newTestRouter(t)
	token := signUpFor(t, r, "rahim@example.com")

	srv := httptest.NewServer(r)
	defer srv.Close()

	conn := dialSync(t, srv, token)
	readFrame(t, conn) // hello

	// A second registration commits the roster; every attached socket
	// sees the update.
	signUpFor(t, r, "karim@example.com")

	var accountsFrame map[string]any
	for i := 0; i < 5; i++ {
		frame := readFrame(t, conn)
		if frame["type"] == "update" && frame["key"] == "accounts" {
			accountsFrame = frame
			break
		}
	}
	if accountsFrame == nil {
		t.Fatalf("expected an accounts update frame")
	}

	raw, err := json.Marshal(accountsFrame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if !strings.Contains(string(raw), "karim@example.com") {
		t.Fatalf("expected new account in update, got %s", raw)
	}
	if strings.Contains(string(raw), "secretHash") {
		t.Fatalf("expected no secret hash on the wire, got %s", raw)
	}

	roster, err := st.Roster()
	if err != nil {
		t.Fatalf("Roster: %v", err)
	}
	for _, acc := range roster {
		if acc.SecretHash == "" {
			t.Fatalf("expected persisted hash for %s", acc.Handle)
		}
	}
}

// conflictedKV refuses every CompareAndPut, so message appends fail while
// plain document writes still go through.
type conflictedKV struct {
	kvstore.Store
}

func (c *conflictedKV) CompareAndPut(string, json.RawMessage, int64, int64) (kvstore.Document, error) {
	return kvstore.Document{}, kvstore.ErrConflict
}

func TestWebSocket_AppendFailureReturnsErrorFrame(t *testing.T) {
	mem, err := kvstore.NewMemory("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	r, _, _ := newTestRouterWithKV(t, &conflictedKV{Store: mem})
	token := signUpFor(t, r, "rahim@example.com")

	srv := httptest.NewServer(r)
	defer srv.Close()

	conn := dialSync(t, srv, token)
	readFrame(t, conn) // hello

	if err := conn.WriteJSON(map[string]any{
		"type": "message", "conversationId": "general", "text": "hello",
	}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	frame := readFrame(t, conn)
	if frame["type"] != "error" {
		t.Fatalf("expected error frame, got %v", frame)
	}
	body := frame["body"].(map[string]any)
	reason, _ := body["reason"].(string)
	if !strings.Contains(reason, "Concurrent") {
		t.Fatalf("expected conflict reason, got %q", reason)
	}

	if err := conn.WriteJSON(map[string]any{"type": "message", "conversationId": "general"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	frame = readFrame(t, conn)
	if frame["type"] != "error" {
		t.Fatalf("expected error frame for empty text, got %v", frame)
	}
}
