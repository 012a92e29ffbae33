package storage

import "time"

// User is a registered bot user. UserID is the Telegram identifier and the
// ownership key for mutes and message log rows. Token is the opaque
// invitation token embedded in the user's personal link.
type User struct {
	UserID    int64  `gorm:"primaryKey"`
	Username  string
	Name      string
	Token     string `gorm:"uniqueIndex"`
	IsAdmin   bool
	CreatedAt time.Time
}

func (User) TableName() string {
	return "users"
}

// MutedUser is an active mute. At most one row per user; SetMute replaces
// any previous one. A row past MutedUntil counts as not muted and is
// removed the next time it is consulted.
type MutedUser struct {
	UserID     int64 `gorm:"primaryKey"`
	MutedUntil time.Time
	Reason     string
	CreatedAt  time.Time
}

func (MutedUser) TableName() string {
	return "muted_users"
}

// MessageLogEntry is an append-only audit record of a relayed text message.
type MessageLogEntry struct {
	ID         uint `gorm:"primaryKey"`
	SenderID   int64
	ReceiverID int64
	Message    string
	SentAt     time.Time
}

func (MessageLogEntry) TableName() string {
	return "message_log"
}
