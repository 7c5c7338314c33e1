// Package bot routes incoming Telegram updates to command handlers.
package bot

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/pysugar/telegram-zoho-bridge/internal/auth/token"
	"github.com/pysugar/telegram-zoho-bridge/internal/crm"
	"github.com/pysugar/telegram-zoho-bridge/internal/db"
	"github.com/pysugar/telegram-zoho-bridge/internal/db/models"
	"github.com/pysugar/telegram-zoho-bridge/internal/logging"
	"github.com/pysugar/telegram-zoho-bridge/internal/telegram"
	"gorm.io/gorm"
)

// Command identifies a chat command the bot understands.
type Command int

const (
	CmdUnknown Command = iota
	CmdConnect
	CmdLeads
	CmdLeadCreation
	CmdStatus
)

// leadCreationPattern matches /leadcreation_<Name>_<email>.
var leadCreationPattern = regexp.MustCompile(`/leadcreation_(\w+)_(\S+@\S+\.\S+)`)

// ParseCommand maps a message text onto a command tag.
func ParseCommand(text string) Command {
	switch {
	case text == "/connect":
		return CmdConnect
	case text == "/leads":
		return CmdLeads
	case text == "/status":
		return CmdStatus
	case strings.HasPrefix(text, "/leadcreation_"):
		return CmdLeadCreation
	default:
		return CmdUnknown
	}
}

type handlerFunc func(ctx context.Context, chatID int64, text string)

// Bot wires the command handlers to their collaborators: the credential
// store, the token manager, the CRM client and the Telegram sender.
type Bot struct {
	db              *gorm.DB
	tg              *telegram.Client
	tokens          *token.Manager
	crm             *crm.CRMClient
	accountsBaseURL string

	handlers map[Command]handlerFunc
}

// New builds the bot and its static dispatch table.
func New(database *gorm.DB, tg *telegram.Client, tokens *token.Manager, crmClient *crm.CRMClient, accountsBaseURL string) *Bot {
	b := &Bot{
		db:              database,
		tg:              tg,
		tokens:          tokens,
		crm:             crmClient,
		accountsBaseURL: accountsBaseURL,
	}
	b.handlers = map[Command]handlerFunc{
		CmdConnect:      b.handleConnect,
		CmdLeads:        b.handleLeads,
		CmdLeadCreation: b.handleLeadCreation,
		CmdStatus:       b.handleStatus,
		CmdUnknown:      b.handleUnknown,
	}
	return b
}

// HandleUpdate processes one webhook update. Non-message updates are
// ignored. A message that is not a known command continues a pending
// /connect flow when one is open for the chat.
func (b *Bot) HandleUpdate(ctx context.Context, update *telegram.Update) {
	if update == nil || update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	requestID := logging.GetRequestID(ctx)
	log.Printf("[%s] 💬 Message from chat %d: %q", requestID, chatID, text)

	cmd := ParseCommand(text)
	if cmd == CmdUnknown {
		state, err := db.GetSessionState(b.db, chatID)
		if err != nil {
			log.Printf("[%s] ⚠️ Session lookup failed for chat %d: %v", requestID, chatID, err)
		}
		if state == models.SessionStateAwaitingJSON {
			b.handleAuthJSON(ctx, chatID, text)
			return
		}
	}

	b.handlers[cmd](ctx, chatID, text)
}

// send delivers a reply, logging instead of failing the update when
// Telegram is unreachable.
func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if err := b.tg.SendMessage(ctx, chatID, text); err != nil {
		log.Printf("[%s] ⚠️ Failed to send message to chat %d: %v", logging.GetRequestID(ctx), chatID, err)
	}
}
