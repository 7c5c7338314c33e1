package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pysugar/telegram-zoho-bridge/internal/auth/token"
	authzoho "github.com/pysugar/telegram-zoho-bridge/internal/auth/zoho"
	"github.com/pysugar/telegram-zoho-bridge/internal/crm"
	"github.com/pysugar/telegram-zoho-bridge/internal/db"
	"github.com/pysugar/telegram-zoho-bridge/internal/db/models"
	"github.com/pysugar/telegram-zoho-bridge/internal/logging"
)

const transientErrorReply = "⚠️ Service trouble talking to storage, please try again in a moment."

// handleConnect opens the self-client setup flow for a chat.
func (b *Bot) handleConnect(ctx context.Context, chatID int64, _ string) {
	if err := db.SetSessionState(b.db, chatID, models.SessionStateAwaitingJSON); err != nil {
		log.Printf("[%s] ⚠️ Failed to open connect session for chat %d: %v", logging.GetRequestID(ctx), chatID, err)
		b.send(ctx, chatID, transientErrorReply)
		return
	}

	instructions := "🔗 *Connect Your Zoho CRM*\n\n" +
		"1️⃣ Go to the Zoho API Console: https://api-console.zoho.com/\n" +
		"2️⃣ Create a *Self Client*\n" +
		"3️⃣ Generate an authorization code with scope `ZohoCRM.modules.ALL` (10 minute duration)\n" +
		"4️⃣ Download the JSON file\n" +
		"5️⃣ Paste the entire content of `self_client.json` here\n\n" +
		fmt.Sprintf("⚡ *Your Chat ID:* `%d`", chatID)
	b.send(ctx, chatID, instructions)
}

// selfClientPayload is the JSON users paste from the Zoho API console.
type selfClientPayload struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
}

// handleAuthJSON completes the /connect flow: it exchanges the pasted
// self-client's authorization code for tokens and stores them.
func (b *Bot) handleAuthJSON(ctx context.Context, chatID int64, text string) {
	requestID := logging.GetRequestID(ctx)

	var payload selfClientPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		b.send(ctx, chatID, "❌ Invalid JSON format. Please paste the exact content of the self_client.json file.")
		return
	}
	if payload.ClientID == "" || payload.ClientSecret == "" || payload.Code == "" {
		b.send(ctx, chatID, "❌ Missing required fields. The JSON must contain client_id, client_secret and code.")
		return
	}

	log.Printf("[%s] 🔄 Exchanging authorization code for chat %d...", requestID, chatID)
	newToken, err := authzoho.ExchangeCode(ctx, b.accountsBaseURL, payload.ClientID, payload.ClientSecret, payload.Code)
	if err != nil {
		detail := authzoho.ErrorDetail(err)
		log.Printf("[%s] ❌ Token exchange failed for chat %d: %s", requestID, chatID, detail)
		if clearErr := db.ClearSession(b.db, chatID); clearErr != nil {
			log.Printf("[%s] ⚠️ Failed to clear session for chat %d: %v", requestID, chatID, clearErr)
		}
		b.send(ctx, chatID, fmt.Sprintf("❌ Failed to connect to Zoho.\n\n*Error:* %s\n\nPlease try /connect again with a fresh authorization code.", detail))
		return
	}

	cred := models.Credential{
		TelegramUserID: chatID,
		AccessToken:    newToken.AccessToken,
		RefreshToken:   newToken.RefreshToken,
		ExpiresAt:      newToken.Expiry,
		ClientID:       payload.ClientID,
		ClientSecret:   payload.ClientSecret,
	}
	if err := db.SaveCredential(b.db, &cred); err != nil {
		log.Printf("[%s] ❌ Failed to store credentials for chat %d: %v", requestID, chatID, err)
		b.send(ctx, chatID, transientErrorReply)
		return
	}
	if err := db.ClearSession(b.db, chatID); err != nil {
		log.Printf("[%s] ⚠️ Failed to clear session for chat %d: %v", requestID, chatID, err)
	}

	minutes := int(time.Until(newToken.Expiry).Minutes())
	log.Printf("[%s] ✅ Chat %d connected (token expires in %dm)", requestID, chatID, minutes)
	b.send(ctx, chatID, fmt.Sprintf("✅ *Connection Successful!*\n\n🔑 Access and refresh tokens stored\n⏰ Expires in: %d minutes\n\n🎉 Your Zoho CRM is now connected!", minutes))
}

// handleLeads fetches the latest leads using a valid access token.
func (b *Bot) handleLeads(ctx context.Context, chatID int64, _ string) {
	result, err := b.tokens.GetValid(ctx, chatID)
	if err != nil {
		log.Printf("[%s] ⚠️ Token lookup failed for chat %d: %v", logging.GetRequestID(ctx), chatID, err)
		b.send(ctx, chatID, transientErrorReply)
		return
	}
	if result.NeedsReconnect {
		b.send(ctx, chatID, "❌ No working Zoho connection for this chat.\n\n💡 Use /connect to set up your Zoho CRM connection.")
		return
	}

	leads, err := b.crm.ListLeads(ctx, result.AccessToken)
	if err != nil {
		b.send(ctx, chatID, crmErrorReply("fetch leads", err))
		return
	}
	if len(leads) == 0 {
		b.send(ctx, chatID, "📋 *Latest Leads*\n\n📭 No leads found in your CRM.")
		return
	}

	reply := "📋 *Latest Leads:*\n\n"
	for i, lead := range leads {
		phone := orDash(lead.Phone)
		email := orDash(lead.Email)
		company := orDash(lead.Company)
		reply += fmt.Sprintf("%d. 👤 %s | 📞 %s | ✉️ %s | 🏢 %s\n", i+1, lead.FullName(), phone, email, company)
	}
	if result.WasRefreshed {
		reply += "\n🔄 Access token was refreshed for this request"
	}
	b.send(ctx, chatID, reply)
}

// handleLeadCreation creates a lead from a /leadcreation_Name_email command.
func (b *Bot) handleLeadCreation(ctx context.Context, chatID int64, text string) {
	matches := leadCreationPattern.FindStringSubmatch(text)
	if matches == nil {
		b.send(ctx, chatID, "❌ Invalid command format. Use /leadcreation_Name_email")
		return
	}
	name, email := matches[1], matches[2]

	result, err := b.tokens.GetValid(ctx, chatID)
	if err != nil {
		log.Printf("[%s] ⚠️ Token lookup failed for chat %d: %v", logging.GetRequestID(ctx), chatID, err)
		b.send(ctx, chatID, transientErrorReply)
		return
	}
	if result.NeedsReconnect {
		b.send(ctx, chatID, "❌ No working Zoho connection for this chat.\n\n💡 Use /connect to set up your Zoho CRM connection.")
		return
	}

	if err := b.crm.CreateLead(ctx, result.AccessToken, name, email); err != nil {
		b.send(ctx, chatID, crmErrorReply("create lead", err))
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("✅ Lead created successfully!\nName: %s\nEmail: %s", name, email))
}

// handleStatus reports the stored credential's health without forcing a
// refresh, including a live org lookup with the stored token.
func (b *Bot) handleStatus(ctx context.Context, chatID int64, _ string) {
	cred, err := db.GetCredential(b.db, chatID)
	if errors.Is(err, db.ErrCredentialNotFound) {
		b.send(ctx, chatID, "🔍 *Status*\n\n❌ Not connected.\n\n💡 Use /connect to set up your Zoho CRM connection.")
		return
	}
	if err != nil {
		log.Printf("[%s] ⚠️ Credential lookup failed for chat %d: %v", logging.GetRequestID(ctx), chatID, err)
		b.send(ctx, chatID, transientErrorReply)
		return
	}

	reply := "🔍 *Status*\n\n"
	reply += fmt.Sprintf("🔑 Access token: `%s`\n", token.MaskToken(cred.AccessToken))
	reply += fmt.Sprintf("⏰ %s\n", formatTimeLeft(cred.ExpiresAt))

	if orgName, orgErr := b.crm.GetOrg(ctx, cred.AccessToken); orgErr == nil {
		if orgName == "" {
			orgName = "N/A"
		}
		reply += fmt.Sprintf("🏢 Organization: %s\n✅ Token works against the CRM API", orgName)
	} else {
		reply += fmt.Sprintf("❌ CRM API check failed: %v", orgErr)
	}
	b.send(ctx, chatID, reply)
}

// handleUnknown answers anything that is not a command and not part of a
// pending flow.
func (b *Bot) handleUnknown(ctx context.Context, chatID int64, text string) {
	b.send(ctx, chatID, fmt.Sprintf("❓ Unknown command: %q\n\nAvailable commands:\n• /connect - Set up Zoho CRM integration\n• /leads - Show your latest leads\n• /leadcreation_Name_email - Create a lead\n• /status - Check your connection", text))
}

// crmErrorReply words a CRM failure for the user by error class.
func crmErrorReply(action string, err error) string {
	var apiErr *crm.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return "🔐 Authentication failed with Zoho CRM. Your token may have expired or become invalid.\n\nPlease use /connect to reconnect your account."
		case http.StatusForbidden:
			return "🚫 Access denied by Zoho CRM. Please check your CRM permissions or use /connect to reconnect."
		case http.StatusTooManyRequests:
			return "⏳ Rate limit exceeded. Please wait a moment and try again."
		}
	}
	return fmt.Sprintf("❌ Failed to %s: %v\n\nPlease try again or use /connect if the issue persists.", action, err)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatTimeLeft renders remaining token lifetime, or how long ago it expired.
func formatTimeLeft(expiresAt time.Time) string {
	left := time.Until(expiresAt)
	if left <= 0 {
		return fmt.Sprintf("Expired %dm ago", int(-left.Minutes()))
	}
	hours := int(left.Hours())
	minutes := int(left.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("Valid for %dh %dm", hours, minutes)
	}
	if minutes > 0 {
		return fmt.Sprintf("Valid for %dm", minutes)
	}
	return "Valid for less than 1 minute"
}
