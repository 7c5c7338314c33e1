package models

import "time"

// Credential stores one set of Zoho OAuth tokens per Telegram chat.
// Each user creates their own self-client in the Zoho API console, so the
// client id/secret pair is stored alongside the tokens.
type Credential struct {
	TelegramUserID int64 `gorm:"primaryKey;autoIncrement:false"`
	AccessToken    string
	RefreshToken   string
	ExpiresAt      time.Time
	ClientID       string
	ClientSecret   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName keeps the historical table name.
func (Credential) TableName() string {
	return "oauth_tokens"
}
