// internal/domain/notification/repository.go
package notification

import (
	"context"
	"time"
)

// Repository persists scheduled notifications. Status changes are conditional updates:
// implementations must apply them only when the stored status still matches.
type Repository interface {
	Create(ctx context.Context, n *ScheduledNotification) error
	GetByID(ctx context.Context, id int64) (*ScheduledNotification, error)
	List(ctx context.Context, filter ListFilter) ([]*ScheduledNotification, error)

	// ClaimDue moves up to limit pending notifications with scheduled_at <= now to processing
	// and returns them. Concurrent callers never receive the same notification.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*ScheduledNotification, error)
	// Complete records the delivery outcome of a processing notification.
	// Returns ErrConflict if it is not processing anymore.
	Complete(ctx context.Context, id int64, status Status, sentCount, failureCount int) error
	// Release moves a processing notification that was never attempted back to pending,
	// so the next run claims it again. Returns ErrConflict if it is not processing anymore.
	Release(ctx context.Context, id int64) error
	// Cancel moves a pending notification to cancelled and returns it.
	// Returns ErrNotFound if it does not exist and ErrConflict if it is not pending.
	Cancel(ctx context.Context, id int64) (*ScheduledNotification, error)
}
