package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// civilTimezone anchors every "now" the bot computes. Timestamps are stored
// naive, so all comparisons have to come from the same clock.
const civilTimezone = "Asia/Tashkent"

var ErrNotFound = errors.New("record not found")

type Storage struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

func New(dbPath string) (*Storage, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		slog.Error("storage: Failed to connect to database", "error", err, "path", dbPath)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	loc, err := time.LoadLocation(civilTimezone)
	if err != nil {
		slog.Error("storage: Failed to load civil timezone", "error", err, "zone", civilTimezone)
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}

	s := &Storage{db: db, loc: loc}
	s.now = func() time.Time { return time.Now().In(loc) }
	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Storage) migrate() error {
	err := s.db.AutoMigrate(&User{}, &MutedUser{}, &MessageLogEntry{})
	if err != nil {
		slog.Error("storage: Failed to migrate database", "error", err)
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Now returns the current time in the bot's civil timezone.
func (s *Storage) Now() time.Time {
	return s.now()
}

// FindOrCreateUser returns the user row for userID, inserting one with a
// freshly generated invitation token when none exists. An existing row is
// returned unchanged: the token is allocated once and never rotated.
func (s *Storage) FindOrCreateUser(userID int64, username, name string) (*User, error) {
	var user User
	result := s.db.First(&user, "user_id = ?", userID)
	if result.Error == nil {
		return &user, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		slog.Error("storage: Failed to look up user", "error", result.Error, "user_id", userID)
		return nil, fmt.Errorf("failed to look up user: %w", result.Error)
	}

	user = User{
		UserID:    userID,
		Username:  username,
		Name:      name,
		Token:     generateToken(),
		CreatedAt: s.now(),
	}
	if result := s.db.Create(&user); result.Error != nil {
		slog.Error("storage: Failed to create user", "error", result.Error, "user_id", userID)
		return nil, fmt.Errorf("failed to create user: %w", result.Error)
	}

	slog.Info("storage: New user registered", "user_id", userID, "username", username)
	return &user, nil
}

// FindUserByToken resolves an invitation token to its owner. Exact match
// only; ErrNotFound when the token does not resolve.
func (s *Storage) FindUserByToken(token string) (*User, error) {
	var user User
	result := s.db.Where("token = ?", token).First(&user)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		slog.Error("storage: Failed to look up token", "error", result.Error)
		return nil, fmt.Errorf("failed to look up token: %w", result.Error)
	}
	return &user, nil
}

func (s *Storage) FindUserByID(userID int64) (*User, error) {
	var user User
	result := s.db.First(&user, "user_id = ?", userID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		slog.Error("storage: Failed to look up user", "error", result.Error, "user_id", userID)
		return nil, fmt.Errorf("failed to look up user: %w", result.Error)
	}
	return &user, nil
}

// IsMuted reports whether userID is currently muted and until when. Expiry
// is lazy: an expired record is deleted here, on the first check that sees
// it, and there is no background sweeper.
func (s *Storage) IsMuted(userID int64) (bool, time.Time, error) {
	var mute MutedUser
	result := s.db.First(&mute, "user_id = ?", userID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return false, time.Time{}, nil
	}
	if result.Error != nil {
		slog.Error("storage: Failed to check mute", "error", result.Error, "user_id", userID)
		return false, time.Time{}, fmt.Errorf("failed to check mute: %w", result.Error)
	}

	if mute.MutedUntil.After(s.now()) {
		return true, mute.MutedUntil, nil
	}

	if result := s.db.Delete(&MutedUser{}, "user_id = ?", userID); result.Error != nil {
		slog.Error("storage: Failed to delete expired mute", "error", result.Error, "user_id", userID)
		return false, time.Time{}, fmt.Errorf("failed to delete expired mute: %w", result.Error)
	}
	slog.Debug("storage: Expired mute removed", "user_id", userID)
	return false, time.Time{}, nil
}

// SetMute inserts or replaces the mute record for userID. No history is
// kept for prior mutes.
func (s *Storage) SetMute(userID int64, until time.Time, reason string) error {
	mute := MutedUser{
		UserID:     userID,
		MutedUntil: until,
		Reason:     reason,
		CreatedAt:  s.now(),
	}
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"muted_until", "reason", "created_at"}),
	}).Create(&mute)
	if result.Error != nil {
		slog.Error("storage: Failed to set mute", "error", result.Error, "user_id", userID)
		return fmt.Errorf("failed to set mute: %w", result.Error)
	}
	return nil
}

// ClearMute removes the mute record for userID, reporting whether one
// actually existed.
func (s *Storage) ClearMute(userID int64) (bool, error) {
	result := s.db.Delete(&MutedUser{}, "user_id = ?", userID)
	if result.Error != nil {
		slog.Error("storage: Failed to clear mute", "error", result.Error, "user_id", userID)
		return false, fmt.Errorf("failed to clear mute: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// LogMessage appends one audit row for a relayed text message. The log is
// write-only: nothing in the bot reads it back.
func (s *Storage) LogMessage(senderID, receiverID int64, text string) error {
	entry := MessageLogEntry{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Message:    text,
		SentAt:     s.now(),
	}
	if result := s.db.Create(&entry); result.Error != nil {
		slog.Error("storage: Failed to log message", "error", result.Error,
			"sender_id", senderID, "receiver_id", receiverID)
		return fmt.Errorf("failed to log message: %w", result.Error)
	}
	return nil
}

// AllUserIDs enumerates every registered user for a broadcast run.
func (s *Storage) AllUserIDs() ([]int64, error) {
	var ids []int64
	result := s.db.Model(&User{}).Pluck("user_id", &ids)
	if result.Error != nil {
		slog.Error("storage: Failed to enumerate users", "error", result.Error)
		return nil, fmt.Errorf("failed to enumerate users: %w", result.Error)
	}
	return ids, nil
}

func (s *Storage) CountUsers() (int64, error) {
	var count int64
	result := s.db.Model(&User{}).Count(&count)
	if result.Error != nil {
		slog.Error("storage: Failed to count users", "error", result.Error)
		return 0, fmt.Errorf("failed to count users: %w", result.Error)
	}
	return count, nil
}

func (s *Storage) CountUsersSince(t time.Time) (int64, error) {
	var count int64
	result := s.db.Model(&User{}).Where("created_at >= ?", t).Count(&count)
	if result.Error != nil {
		slog.Error("storage: Failed to count users", "error", result.Error, "since", t)
		return 0, fmt.Errorf("failed to count users: %w", result.Error)
	}
	return count, nil
}

// RecentUsers returns one newest-first page of registered users.
func (s *Storage) RecentUsers(limit, offset int) ([]User, error) {
	var users []User
	result := s.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users)
	if result.Error != nil {
		slog.Error("storage: Failed to list recent users", "error", result.Error,
			"limit", limit, "offset", offset)
		return nil, fmt.Errorf("failed to list recent users: %w", result.Error)
	}
	return users, nil
}
