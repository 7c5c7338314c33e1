package bot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pysugar/telegram-zoho-bridge/internal/db"
	"github.com/pysugar/telegram-zoho-bridge/internal/db/models"
)

func TestWebhookHandler_AlwaysAnswersOK(t *testing.T) {
	env := newTestEnv(t, "")
	handler := WebhookHandler(env.bot)

	for _, body := range []string{"", "{not json", `{"update_id":1}`} {
		req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("body %q: status = %d, want 200", body, rec.Code)
		}
		if rec.Body.String() != "OK" {
			t.Errorf("body %q: response = %q", body, rec.Body.String())
		}
	}
}

func TestWebhookHandler_RoutesStatusCommand(t *testing.T) {
	env := newTestEnv(t, "")
	cred := models.Credential{
		TelegramUserID: 20,
		AccessToken:    "1000.abcdefabcdefabcdefabcdef.123456789012",
		RefreshToken:   "refresh",
		ExpiresAt:      time.Now().Add(time.Hour),
		ClientID:       "cid",
		ClientSecret:   "cs",
	}
	if err := db.SaveCredential(env.db, &cred); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	payload := `{"update_id":5,"message":{"message_id":1,"chat":{"id":20},"text":"/status"}}`
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	WebhookHandler(env.bot)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	reply := env.telegram.lastMessage(t)
	if !strings.Contains(reply, "Status") || !strings.Contains(reply, "...123456789012") {
		t.Fatalf("reply = %q", reply)
	}
	if !strings.Contains(reply, "Acme Corp") {
		t.Fatalf("org check missing from reply: %q", reply)
	}
}

func TestRootAndHealthHandlers(t *testing.T) {
	rec := httptest.NewRecorder()
	RootHandler()(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var rootBody map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &rootBody); err != nil {
		t.Fatalf("decode root response: %v", err)
	}
	if rootBody["status"] == "" || rootBody["timestamp"] == "" {
		t.Fatalf("root response = %v", rootBody)
	}

	rec = httptest.NewRecorder()
	HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var healthBody map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &healthBody); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if healthBody["status"] != "healthy" {
		t.Fatalf("health response = %v", healthBody)
	}
}
