package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pysugar/telegram-zoho-bridge/internal/auth/token"
	"github.com/pysugar/telegram-zoho-bridge/internal/bot"
	"github.com/pysugar/telegram-zoho-bridge/internal/config"
	"github.com/pysugar/telegram-zoho-bridge/internal/crm"
	"github.com/pysugar/telegram-zoho-bridge/internal/db"
	"github.com/pysugar/telegram-zoho-bridge/internal/telegram"
)

func main() {
	configPath := flag.String("config", "bridge.yaml", "path to optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize clients
	tgClient := telegram.NewClient(cfg.TelegramToken, "")
	crmClient := crm.NewCRMClient(cfg.CRMBaseURL)

	// Initialize token manager and background refresh
	tokenManager := token.NewManager(database, cfg.AccountsBaseURL)
	tokenManager.StartRefreshLoop(time.Duration(cfg.RefreshInterval))

	// Register the webhook so redeploys pick up the current URL
	if cfg.WebhookBaseURL != "" {
		webhookURL := cfg.WebhookBaseURL + "/telegram/webhook"
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := tgClient.SetWebhook(ctx, webhookURL); err != nil {
			log.Printf("⚠️ Failed to set Telegram webhook: %v", err)
		} else {
			log.Printf("🔗 Telegram webhook registered: %s", webhookURL)
		}
		cancel()
	} else {
		log.Println("⚠️ WEBHOOK_URL not set, skipping webhook registration")
	}

	commandBot := bot.New(database, tgClient, tokenManager, crmClient, cfg.AccountsBaseURL)

	// Create router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", bot.RootHandler())
	r.Get("/healthz", bot.HealthHandler())
	r.Post("/telegram/webhook", bot.WebhookHandler(commandBot))

	log.Printf("🚀 Telegram-Zoho bridge starting on http://%s", cfg.Addr())
	if err := http.ListenAndServe(cfg.Addr(), r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
