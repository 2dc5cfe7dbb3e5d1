package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hillshield/internal/ai"
	"hillshield/internal/auth"
	"hillshield/internal/kvstore"
	"hillshield/internal/mesh"
	"hillshield/internal/middleware"
	"hillshield/internal/notify"
	"hillshield/internal/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store, *mesh.Monitor) {
	t.Helper()
	kv, err := kvstore.NewMemory("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return newTestRouterWithKV(t, kv)
}

func newTestRouterWithKV(t *testing.T, kv kvstore.Store) (*gin.Engine, *store.Store, *mesh.Monitor) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.New(kv, notify.New(), nil)
	monitor := mesh.NewMonitor(true)
	tokenCfg := auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}

	r := NewRouter(Deps{
		Store:       st,
		Monitor:     monitor,
		AI:          ai.New(ai.Config{}, zap.NewNop()),
		TokenConfig: tokenCfg,
	})
	return r, st, monitor
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal %s: %v", w.Body.String(), err)
	}
	return resp
}

func signUpFor(t *testing.T, r *gin.Engine, handle string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"handle": handle, "secret": "secret1", "name": "Rahim",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("signup: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatalf("expected token in signup response: %s", w.Body.String())
	}
	return token
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestSignUpLoginFlow(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"handle": "rahim@example.com", "secret": "secret1", "name": "Rahim",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	account := resp["account"].(map[string]any)
	if account["id"] != "rahim@example.com" {
		t.Fatalf("expected id to equal handle, got %v", account["id"])
	}
	if _, leaked := account["secretHash"]; leaked {
		t.Fatalf("secret hash must not be serialized: %s", w.Body.String())
	}

	// duplicate handle
	w = doJSON(t, r, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"handle": "rahim@example.com", "secret": "other", "name": "Imposter",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	// wrong secret
	w = doJSON(t, r, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"handle": "rahim@example.com", "secret": "wrongpass",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}

	// correct secret
	w = doJSON(t, r, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"handle": "rahim@example.com", "secret": "secret1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp = decode(t, w)
	if resp["account"].(map[string]any)["id"] != "rahim@example.com" {
		t.Fatalf("expected same account id after login: %s", w.Body.String())
	}
}

func TestAuthRateLimiting(t *testing.T) {
	gin.SetMode(gin.TestMode)
	kv, err := kvstore.NewMemory("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	clock := time.Unix(1000, 0)
	limiter := middleware.NewRateLimiterWithNow(2, time.Minute, nil, func() time.Time { return clock })
	r := NewRouter(Deps{
		Store:       store.New(kv, notify.New(), nil),
		Monitor:     mesh.NewMonitor(true),
		AI:          ai.New(ai.Config{}, zap.NewNop()),
		TokenConfig: auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"},
		Limiter:     limiter,
	})

	body := map[string]any{"handle": "rahim@example.com", "secret": "wrongpass"}
	for i := 0; i < 2; i++ {
		w := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", body)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d: %s", i, w.Code, w.Body.String())
		}
	}

	w := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d: %s", w.Code, w.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, _, _ := newTestRouter(t)

	for _, path := range []string{"/v1/account", "/v1/alerts", "/v1/conversations/general/messages"} {
		w := doJSON(t, r, http.MethodGet, path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", path, w.Code)
		}
	}
}

func TestAccountGetAndUpdate(t *testing.T) {
	r, _, _ := newTestRouter(t)
	token := signUpFor(t, r, "rahim@example.com")

	w := doJSON(t, r, http.MethodGet, "/v1/account", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPatch, "/v1/account", token, map[string]any{"name": "Rahim Uddin"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["account"].(map[string]any)["name"] != "Rahim Uddin" {
		t.Fatalf("expected patched name: %s", w.Body.String())
	}
}

func TestChatSendAndList(t *testing.T) {
	r, _, monitor := newTestRouter(t)
	token := signUpFor(t, r, "rahim@example.com")

	w := doJSON(t, r, http.MethodPost, "/v1/conversations/general/messages", token, map[string]any{"text": "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	msg := decode(t, w)["message"].(map[string]any)
	if msg["status"] != "sent" {
		t.Fatalf("expected sent while online, got %v", msg["status"])
	}
	if msg["senderName"] != "Rahim" {
		t.Fatalf("expected sender name resolved from roster, got %v", msg["senderName"])
	}

	monitor.SetOnline(false)
	w = doJSON(t, r, http.MethodPost, "/v1/conversations/general/messages", token, map[string]any{"text": "Help needed"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	msg = decode(t, w)["message"].(map[string]any)
	if msg["status"] != "mesh-queued" {
		t.Fatalf("expected mesh-queued while offline, got %v", msg["status"])
	}

	w = doJSON(t, r, http.MethodGet, "/v1/conversations/general/messages", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	msgs := resp["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if resp["online"] != false {
		t.Fatalf("expected online false in response")
	}
}

func TestAlertFlowWithCollaboratorDown(t *testing.T) {
	r, _, _ := newTestRouter(t)
	token := signUpFor(t, r, "rahim@example.com")

	w := doJSON(t, r, http.MethodPost, "/v1/alerts", token, map[string]any{
		"lat": 22.65, "lng": 92.17, "details": "Trapped by landslide",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["fallback"] != true {
		t.Fatalf("expected triage fallback without a collaborator: %s", w.Body.String())
	}
	alert := resp["alert"].(map[string]any)
	if alert["priority"] != "high" {
		t.Fatalf("expected fallback priority high, got %v", alert["priority"])
	}
	alertID := alert["id"].(string)

	w = doJSON(t, r, http.MethodGet, "/v1/alerts", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	alerts := decode(t, w)["alerts"].([]any)
	if len(alerts) != 1 {
		t.Fatalf("expected raised alert in feed, got %d", len(alerts))
	}

	w = doJSON(t, r, http.MethodPost, "/v1/alerts/"+alertID+"/resolve", token, map[string]any{"status": "resolved"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resolved := decode(t, w)["alert"].(map[string]any)
	if resolved["status"] != "resolved" {
		t.Fatalf("expected resolved, got %v", resolved["status"])
	}
}

func TestDoctorAdviceFallback(t *testing.T) {
	r, _, _ := newTestRouter(t)
	token := signUpFor(t, r, "rahim@example.com")

	w := doJSON(t, r, http.MethodPost, "/v1/doctor/advice", token, map[string]any{"symptoms": "fever"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["fallback"] != true {
		t.Fatalf("expected fallback advice without a collaborator: %s", w.Body.String())
	}
	if resp["advice"] == "" {
		t.Fatalf("expected usable advice text")
	}
}

func TestMeshStatusToggle(t *testing.T) {
	r, _, _ := newTestRouter(t)
	token := signUpFor(t, r, "rahim@example.com")

	w := doJSON(t, r, http.MethodGet, "/v1/mesh/status", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if decode(t, w)["online"] != true {
		t.Fatalf("expected online true initially")
	}

	w = doJSON(t, r, http.MethodPut, "/v1/mesh/status", token, map[string]any{"online": false})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/v1/mesh/status", "", nil)
	if decode(t, w)["online"] != false {
		t.Fatalf("expected online false after toggle")
	}

	// toggling requires auth
	w = doJSON(t, r, http.MethodPut, "/v1/mesh/status", "", map[string]any{"online": true})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestReferenceFeedsArePublic(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/v1/shelters", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	shelters := decode(t, w)["shelters"].([]any)
	if len(shelters) == 0 {
		t.Fatalf("expected seeded shelters")
	}

	w = doJSON(t, r, http.MethodGet, "/v1/firstaid?category=natural-disaster", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	guides := decode(t, w)["guides"].([]any)
	if len(guides) == 0 {
		t.Fatalf("expected natural-disaster guides")
	}
	for _, g := range guides {
		if g.(map[string]any)["category"] != "natural-disaster" {
			t.Fatalf("expected only natural-disaster guides, got %v", g)
		}
	}
}

func TestLogoutClearsSession(t *testing.T) {
	r, st, _ := newTestRouter(t)
	token := signUpFor(t, r, "rahim@example.com")

	w := doJSON(t, r, http.MethodPost, "/v1/auth/logout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if _, err := st.Current(); err == nil {
		t.Fatalf("expected no session after logout")
	}
}
