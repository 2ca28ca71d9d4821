// internal/domain/notification/notification.go
package notification

import (
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("scheduled notification not found")
	// ErrConflict means the record is not in the status the operation requires.
	ErrConflict = errors.New("scheduled notification is not in a state that allows this operation")
)

// ScheduledNotification is a notification authored for later delivery to an audience.
// Corresponds to the 'scheduled_notifications' table.
type ScheduledNotification struct {
	ID              int64
	Title           string
	Content         string
	Type            Type
	TargetAudience  TargetAudience
	TargetRoles     []string // only for specific_roles
	TargetUserIDs   []int64  // only for individual_users, users.id values
	Metadata        Metadata
	ScheduledAt     time.Time
	ExpiresAt       sql.NullTime
	Status          Status
	SentCount       int
	FailureCount    int
	CreatedBy       int64         // Telegram ID of the author
	RescheduledFrom sql.NullInt64 // original record when this one is an explicit retry
	ProcessedAt     sql.NullTime
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsDue reports whether a pending notification may be processed at now.
func (n *ScheduledNotification) IsDue(now time.Time) bool {
	return n.Status == StatusPending && !n.ScheduledAt.After(now)
}

// IsExpiredAt reports whether the delivery window closed at or before now.
func (n *ScheduledNotification) IsExpiredAt(now time.Time) bool {
	return n.ExpiresAt.Valid && !n.ExpiresAt.Time.After(now)
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	Status Status
	Limit  int
}
