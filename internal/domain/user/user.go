package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound            = errors.New("user not found")
	ErrDuplicateTelegramID = errors.New("user with this Telegram ID already exists")
)

// User is a member of the EV database community who can receive notifications.
type User struct {
	ID         int64
	TelegramID int64
	Name       string
	Role       string // e.g. admin, moderator, contributor, viewer
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
