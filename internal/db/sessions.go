package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/pysugar/telegram-zoho-bridge/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionTimeout bounds how long a multi-step flow stays pending. Zoho
// authorization codes are short-lived anyway, so stale sessions are useless.
const SessionTimeout = 10 * time.Minute

// SetSessionState records the pending step for a chat, replacing any
// previous one and restarting the timeout.
func SetSessionState(db *gorm.DB, chatID int64, state string) error {
	session := models.ChatSession{
		ChatID:    chatID,
		State:     state,
		ExpiresAt: time.Now().Add(SessionTimeout),
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "expires_at", "updated_at"}),
	}).Create(&session).Error
	if err != nil {
		return fmt.Errorf("set session state for chat %d: %w", chatID, err)
	}
	return nil
}

// GetSessionState returns the pending step for a chat. Missing or timed
// out sessions read as SessionStateNone.
func GetSessionState(db *gorm.DB, chatID int64) (string, error) {
	var session models.ChatSession
	err := db.Where("chat_id = ?", chatID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.SessionStateNone, nil
	}
	if err != nil {
		return models.SessionStateNone, fmt.Errorf("load session for chat %d: %w", chatID, err)
	}
	if !session.ExpiresAt.After(time.Now()) {
		return models.SessionStateNone, nil
	}
	return session.State, nil
}

// ClearSession resets a chat back to no pending step.
func ClearSession(db *gorm.DB, chatID int64) error {
	err := db.Where("chat_id = ?", chatID).Delete(&models.ChatSession{}).Error
	if err != nil {
		return fmt.Errorf("clear session for chat %d: %w", chatID, err)
	}
	return nil
}
