package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/pysugar/telegram-zoho-bridge/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExpiryMargin is the safety window before expiry in which a token is
// already treated as expired, so a token never dies mid-request.
const ExpiryMargin = 5 * time.Minute

// ErrCredentialNotFound signals that no credential row exists for a chat.
// Callers treat it as "user needs to /connect", not as a storage failure.
var ErrCredentialNotFound = errors.New("credential not found")

// SaveCredential inserts the credential or, when a row for the chat
// already exists, overwrites tokens, expiry and client credentials in a
// single native upsert. updated_at is bumped by the same write.
func SaveCredential(db *gorm.DB, cred *models.Credential) error {
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "telegram_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "expires_at",
			"client_id", "client_secret", "updated_at",
		}),
	}).Create(cred).Error
	if err != nil {
		return fmt.Errorf("save credential for chat %d: %w", cred.TelegramUserID, err)
	}
	return nil
}

// GetCredential returns the credential for a chat, ErrCredentialNotFound
// when none exists, or the underlying storage error.
func GetCredential(db *gorm.DB, chatID int64) (*models.Credential, error) {
	var cred models.Credential
	err := db.Where("telegram_user_id = ?", chatID).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load credential for chat %d: %w", chatID, err)
	}
	return &cred, nil
}

// IsCredentialExpired reports whether the stored access token for a chat
// is expired or inside the safety margin. A missing row counts as expired.
// Storage errors propagate.
func IsCredentialExpired(db *gorm.DB, chatID int64) (bool, error) {
	cred, err := GetCredential(db, chatID)
	if errors.Is(err, ErrCredentialNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return NeedsRefresh(cred), nil
}

// NeedsRefresh reports whether a credential's access token is within the
// expiry margin of now. Exactly 5 minutes remaining counts as expiring.
func NeedsRefresh(cred *models.Credential) bool {
	if cred == nil || cred.ExpiresAt.IsZero() {
		return true
	}
	return time.Until(cred.ExpiresAt) <= ExpiryMargin
}
