// internal/infra/database/postgres_notification_repository.go
package database

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"evdb_notifier/internal/domain/notification"

	"github.com/lib/pq" // For pq.Array
)

const notificationColumns = `id, title, content, notification_type, target_audience, target_roles, target_user_ids,
       metadata, scheduled_at, expires_at, status, sent_count, failure_count, created_by,
       rescheduled_from, processed_at, created_at, updated_at`

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*notification.ScheduledNotification, error) {
	n := &notification.ScheduledNotification{}
	err := row.Scan(
		&n.ID, &n.Title, &n.Content, &n.Type, &n.TargetAudience,
		pq.Array(&n.TargetRoles), pq.Array(&n.TargetUserIDs), &n.Metadata,
		&n.ScheduledAt, &n.ExpiresAt, &n.Status, &n.SentCount, &n.FailureCount, &n.CreatedBy,
		&n.RescheduledFrom, &n.ProcessedAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func scanNotifications(rows *sql.Rows) ([]*notification.ScheduledNotification, error) {
	list := make([]*notification.ScheduledNotification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning scheduled notification row: %w", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scheduled notification rows: %w", err)
	}
	return list, nil
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *notification.ScheduledNotification) error {
	query := `INSERT INTO scheduled_notifications (title, content, notification_type, target_audience, target_roles,
               target_user_ids, metadata, scheduled_at, expires_at, status, created_by, rescheduled_from)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		n.Title, n.Content, n.Type, n.TargetAudience, pq.Array(n.TargetRoles),
		pq.Array(n.TargetUserIDs), n.Metadata, n.ScheduledAt, n.ExpiresAt, n.Status, n.CreatedBy, n.RescheduledFrom,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating scheduled notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) GetByID(ctx context.Context, id int64) (*notification.ScheduledNotification, error) {
	query := `SELECT ` + notificationColumns + ` FROM scheduled_notifications WHERE id = $1`
	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notification.ErrNotFound
		}
		return nil, fmt.Errorf("error getting scheduled notification by ID: %w", err)
	}
	return n, nil
}

// List returns notifications newest schedule first. LIMIT NULL is treated by Postgres as no limit.
func (r *PostgresNotificationRepository) List(ctx context.Context, filter notification.ListFilter) ([]*notification.ScheduledNotification, error) {
	query := `SELECT ` + notificationColumns + `
               FROM scheduled_notifications
               WHERE ($1::text = '' OR status = $1::text)
               ORDER BY scheduled_at DESC, id DESC
               LIMIT $2`
	limit := sql.NullInt64{Int64: int64(filter.Limit), Valid: filter.Limit > 0}

	rows, err := r.db.QueryContext(ctx, query, string(filter.Status), limit)
	if err != nil {
		return nil, fmt.Errorf("error querying scheduled notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// ClaimDue flips due pending rows to processing in one statement. SKIP LOCKED lets concurrent
// claimers pass over rows another transaction is already claiming.
func (r *PostgresNotificationRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*notification.ScheduledNotification, error) {
	query := `UPDATE scheduled_notifications
               SET status = $1, updated_at = NOW()
               WHERE id IN (
                   SELECT id FROM scheduled_notifications
                   WHERE status = $2 AND scheduled_at <= $3
                   ORDER BY scheduled_at, id
                   LIMIT $4
                   FOR UPDATE SKIP LOCKED
               ) AND status = $2
               RETURNING ` + notificationColumns

	rows, err := r.db.QueryContext(ctx, query, notification.StatusProcessing, notification.StatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("error claiming due notifications: %w", err)
	}
	defer rows.Close()

	claimed, err := scanNotifications(rows)
	if err != nil {
		return nil, err
	}
	// RETURNING carries no order guarantee.
	sortBySchedule(claimed)
	return claimed, nil
}

func (r *PostgresNotificationRepository) Complete(ctx context.Context, id int64, status notification.Status, sentCount, failureCount int) error {
	if !notification.IsOutcome(status) {
		return fmt.Errorf("cannot complete notification %d with status %s: %w", id, status, notification.ErrConflict)
	}

	query := `UPDATE scheduled_notifications
               SET status = $1, sent_count = $2, failure_count = $3, processed_at = NOW(), updated_at = NOW()
               WHERE id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, status, sentCount, failureCount, id, notification.StatusProcessing)
	if err != nil {
		return fmt.Errorf("error completing scheduled notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking completed rows: %w", err)
	}
	if affected == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *PostgresNotificationRepository) Release(ctx context.Context, id int64) error {
	query := `UPDATE scheduled_notifications
               SET status = $1, updated_at = NOW()
               WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, notification.StatusPending, id, notification.StatusProcessing)
	if err != nil {
		return fmt.Errorf("error releasing scheduled notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking released rows: %w", err)
	}
	if affected == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *PostgresNotificationRepository) Cancel(ctx context.Context, id int64) (*notification.ScheduledNotification, error) {
	query := `UPDATE scheduled_notifications
               SET status = $1, updated_at = NOW()
               WHERE id = $2 AND status = $3
               RETURNING ` + notificationColumns

	n, err := scanNotification(r.db.QueryRowContext(ctx, query, notification.StatusCancelled, id, notification.StatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.missOrConflict(ctx, id)
		}
		return nil, fmt.Errorf("error cancelling scheduled notification: %w", err)
	}
	return n, nil
}

// missOrConflict tells apart a missing row from one whose status did not match a conditional update.
func (r *PostgresNotificationRepository) missOrConflict(ctx context.Context, id int64) error {
	var status notification.Status
	err := r.db.QueryRowContext(ctx, `SELECT status FROM scheduled_notifications WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notification.ErrNotFound
		}
		return fmt.Errorf("error checking scheduled notification status: %w", err)
	}
	return fmt.Errorf("notification %d is %s: %w", id, status, notification.ErrConflict)
}

func sortBySchedule(list []*notification.ScheduledNotification) {
	slices.SortFunc(list, func(a, b *notification.ScheduledNotification) int {
		if c := a.ScheduledAt.Compare(b.ScheduledAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
