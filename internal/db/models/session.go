package models

import "time"

// Chat session states for multi-step commands.
const (
	SessionStateNone         = "none"
	SessionStateAwaitingJSON = "awaiting_json"
)

// ChatSession tracks a pending multi-step conversation for a chat,
// currently only the "paste your self_client.json" step of /connect.
// Persisted so a restart does not strand users mid-flow.
type ChatSession struct {
	ChatID    int64  `gorm:"primaryKey;autoIncrement:false"`
	State     string `gorm:"default:none"`
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
