package token

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/pysugar/telegram-zoho-bridge/internal/auth/zoho"
	"github.com/pysugar/telegram-zoho-bridge/internal/db"
	"github.com/pysugar/telegram-zoho-bridge/internal/db/models"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Manager keeps a usable Zoho access token available per chat, minting a
// new one through the refresh grant when the stored one is expiring.
type Manager struct {
	db              *gorm.DB
	accountsBaseURL string
	group           singleflight.Group

	// interCallDelay spaces out provider calls during a background sweep
	// so a burst of expiring rows does not hammer Zoho.
	interCallDelay time.Duration
}

// Result is what consumers of the token lifecycle get back. On failure,
// NeedsReconnect distinguishes "redo /connect" from transient trouble.
type Result struct {
	Success        bool
	AccessToken    string
	ExpiresAt      time.Time
	WasRefreshed   bool
	NeedsReconnect bool
	ErrorDetail    string
}

// ErrMissingCredentials signals a credential row that cannot be refreshed
// because the refresh token or client credentials are absent.
var ErrMissingCredentials = errors.New("missing required refresh credentials")

// NewManager creates a token manager backed by the credential store.
func NewManager(database *gorm.DB, accountsBaseURL string) *Manager {
	return &Manager{
		db:              database,
		accountsBaseURL: accountsBaseURL,
		interCallDelay:  time.Second,
	}
}

// GetValid is the single entry point for CRM callers. It returns the
// stored token while it has more than the safety margin remaining and
// refreshes otherwise. Storage errors come back as the error value;
// everything the user can fix by reconnecting comes back in the Result.
func (m *Manager) GetValid(ctx context.Context, chatID int64) (Result, error) {
	cred, err := db.GetCredential(m.db, chatID)
	if errors.Is(err, db.ErrCredentialNotFound) {
		return Result{NeedsReconnect: true, ErrorDetail: "no credentials stored for this chat"}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if !db.NeedsRefresh(cred) {
		return Result{
			Success:     true,
			AccessToken: cred.AccessToken,
			ExpiresAt:   cred.ExpiresAt,
		}, nil
	}

	log.Printf("⏰ Token expires soon for chat %d, refreshing...", chatID)
	return m.Refresh(ctx, chatID)
}

// Refresh mints a new access token for a chat via the refresh grant and
// persists it. Concurrent calls for the same chat are collapsed into one
// provider round trip; every caller gets that single call's result.
func (m *Manager) Refresh(ctx context.Context, chatID int64) (Result, error) {
	v, err, _ := m.group.Do(strconv.FormatInt(chatID, 10), func() (interface{}, error) {
		// The flight is shared by every concurrent caller, so it must not
		// die with whichever caller happened to start it.
		return m.refresh(context.WithoutCancel(ctx), chatID)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (m *Manager) refresh(ctx context.Context, chatID int64) (Result, error) {
	cred, err := db.GetCredential(m.db, chatID)
	if errors.Is(err, db.ErrCredentialNotFound) {
		return Result{NeedsReconnect: true, ErrorDetail: "no credentials stored for this chat"}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if cred.RefreshToken == "" || cred.ClientID == "" || cred.ClientSecret == "" {
		log.Printf("❌ Cannot refresh for chat %d: %v", chatID, ErrMissingCredentials)
		return Result{NeedsReconnect: true, ErrorDetail: ErrMissingCredentials.Error()}, nil
	}

	newToken, err := zoho.RefreshGrant(ctx, m.accountsBaseURL, cred.ClientID, cred.ClientSecret, cred.RefreshToken)
	if err != nil {
		detail := zoho.ErrorDetail(err)
		log.Printf("❌ Token refresh failed for chat %d: %s", chatID, detail)
		// Stored credentials stay untouched on provider failure.
		return Result{NeedsReconnect: true, ErrorDetail: detail}, nil
	}

	refreshToken := cred.RefreshToken
	if newToken.RefreshToken != "" && newToken.RefreshToken != cred.RefreshToken {
		log.Printf("🔄 Rotating refresh token for chat %d", chatID)
		refreshToken = newToken.RefreshToken
	}

	updated := models.Credential{
		TelegramUserID: chatID,
		AccessToken:    newToken.AccessToken,
		RefreshToken:   refreshToken,
		ExpiresAt:      newToken.Expiry,
		ClientID:       cred.ClientID,
		ClientSecret:   cred.ClientSecret,
	}
	if err := db.SaveCredential(m.db, &updated); err != nil {
		return Result{}, err
	}

	log.Printf("✅ Refreshed token for chat %d (expires: %s)", chatID, newToken.Expiry.Format(time.RFC3339))
	return Result{
		Success:      true,
		AccessToken:  newToken.AccessToken,
		ExpiresAt:    newToken.Expiry,
		WasRefreshed: true,
	}, nil
}

// StartRefreshLoop starts the background sweep that proactively refreshes
// credentials nearing expiry. Fire and forget; results land in the logs.
func (m *Manager) StartRefreshLoop(interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		// Short startup delay so the first sweep does not race server boot.
		time.Sleep(5 * time.Second)
		m.RefreshExpiring(context.Background())

		ticker := time.NewTicker(interval)
		for range ticker.C {
			m.RefreshExpiring(context.Background())
		}
	}()
	log.Printf("🔄 Background token refresh started (interval: %s)", interval)
}

// RefreshExpiring sweeps the credential store once, refreshing every row
// inside the expiry margin one chat at a time. Best effort: a failure for
// one chat never aborts the sweep and storage trouble just skips the tick.
func (m *Manager) RefreshExpiring(ctx context.Context) {
	var creds []models.Credential
	threshold := time.Now().Add(db.ExpiryMargin)
	if err := m.db.Where("expires_at <= ?", threshold).Find(&creds).Error; err != nil {
		log.Printf("⚠️ Background refresh skipped, credential store unavailable: %v", err)
		return
	}

	refreshed := 0
	for i, cred := range creds {
		if i > 0 && m.interCallDelay > 0 {
			time.Sleep(m.interCallDelay)
		}
		result, err := m.Refresh(ctx, cred.TelegramUserID)
		switch {
		case err != nil:
			log.Printf("❌ Auto-refresh failed for chat %d: %v", cred.TelegramUserID, err)
		case !result.Success:
			log.Printf("❌ Auto-refresh failed for chat %d: %s", cred.TelegramUserID, result.ErrorDetail)
		default:
			refreshed++
		}
	}

	if refreshed > 0 {
		log.Printf("✅ Background refresh completed: %d tokens refreshed", refreshed)
	}
}

// MaskToken shortens a token for log and status output.
func MaskToken(t string) string {
	if len(t) < 20 {
		return t
	}
	return "..." + t[len(t)-12:]
}
