package bot

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pysugar/telegram-zoho-bridge/internal/logging"
	"github.com/pysugar/telegram-zoho-bridge/internal/telegram"
	"github.com/pysugar/telegram-zoho-bridge/internal/version"
)

// WebhookHandler decodes Telegram updates and hands them to the router.
// It always answers 200 so Telegram does not re-deliver updates whose
// handling failed; failures are reported to the user in-chat instead.
func WebhookHandler(b *Bot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = "tg-" + uuid.New().String()
		}
		ctx := logging.WithRequestID(r.Context(), requestID)

		var update telegram.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			log.Printf("[%s] ⚠️ Ignoring undecodable webhook payload: %v", requestID, err)
			w.Write([]byte("OK"))
			return
		}

		b.HandleUpdate(ctx, &update)
		w.Write([]byte("OK"))
	}
}

// RootHandler reports that the bridge is up.
func RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "Bot is running!",
			"version":   version.Version,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// HealthHandler is the liveness probe.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"bot":    "telegram-zoho-bridge",
		})
	}
}
