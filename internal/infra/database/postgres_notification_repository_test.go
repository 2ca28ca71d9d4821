package database

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"evdb_notifier/internal/domain/notification"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var notificationColumnNames = []string{
	"id", "title", "content", "notification_type", "target_audience", "target_roles", "target_user_ids",
	"metadata", "scheduled_at", "expires_at", "status", "sent_count", "failure_count", "created_by",
	"rescheduled_from", "processed_at", "created_at", "updated_at",
}

var repoNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func addNotificationRow(rows *sqlmock.Rows, id int64, status string, scheduledAt time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, "Charger map update", "New fast chargers were added.", "info", "specific_roles",
		"{moderator,contributor}", nil, nil, scheduledAt, nil, status, int64(0), int64(0), int64(1001),
		nil, nil, repoNow.Add(-time.Hour), repoNow.Add(-time.Hour),
	)
}

func TestPostgresNotificationRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresNotificationRepository(db)

	n := &notification.ScheduledNotification{
		Title:          "Maintenance",
		Content:        "Search is offline tonight.",
		Type:           notification.TypeWarning,
		TargetAudience: notification.AudienceAllUsers,
		ScheduledAt:    repoNow,
		Status:         notification.StatusPending,
		CreatedBy:      1001,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO scheduled_notifications")).
		WithArgs("Maintenance", "Search is offline tonight.", "warning", "all_users",
			sqlmock.AnyArg(), sqlmock.AnyArg(), nil, repoNow, sqlmock.AnyArg(), "pending", int64(1001), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(12), repoNow, repoNow))

	require.NoError(t, repo.Create(context.Background(), n))
	assert.Equal(t, int64(12), n.ID)
	assert.Equal(t, repoNow, n.CreatedAt)
}

func TestPostgresNotificationRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresNotificationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_notifications WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(addNotificationRow(sqlmock.NewRows(notificationColumnNames), 3, "pending", repoNow))
	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_notifications WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(notificationColumnNames))

	n, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusPending, n.Status)
	assert.Equal(t, notification.AudienceSpecificRoles, n.TargetAudience)
	assert.Equal(t, []string{"moderator", "contributor"}, n.TargetRoles)
	assert.Empty(t, n.TargetUserIDs)
	assert.Equal(t, notification.MetadataNone, n.Metadata.Kind)
	assert.False(t, n.ExpiresAt.Valid)

	_, err = repo.GetByID(context.Background(), 4)
	assert.ErrorIs(t, err, notification.ErrNotFound)
}

func TestPostgresNotificationRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresNotificationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_notifications")).
		WithArgs("pending", int64(10)).
		WillReturnRows(addNotificationRow(sqlmock.NewRows(notificationColumnNames), 8, "pending", repoNow))
	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_notifications")).
		WithArgs("", nil).
		WillReturnRows(sqlmock.NewRows(notificationColumnNames))

	list, err := repo.List(context.Background(), notification.ListFilter{Status: notification.StatusPending, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(8), list[0].ID)

	list, err = repo.List(context.Background(), notification.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPostgresNotificationRepository_ClaimDue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresNotificationRepository(db)

	rows := sqlmock.NewRows(notificationColumnNames)
	addNotificationRow(rows, 9, "processing", repoNow.Add(-time.Minute))
	addNotificationRow(rows, 4, "processing", repoNow.Add(-time.Hour))
	addNotificationRow(rows, 5, "processing", repoNow.Add(-time.Hour))

	mock.ExpectQuery(`UPDATE scheduled_notifications\s+SET status = \$1.*FOR UPDATE SKIP LOCKED`).
		WithArgs("processing", "pending", repoNow, int64(50)).
		WillReturnRows(rows)

	claimed, err := repo.ClaimDue(context.Background(), repoNow, 50)
	require.NoError(t, err)
	require.Len(t, claimed, 3)

	ids := []int64{claimed[0].ID, claimed[1].ID, claimed[2].ID}
	assert.Equal(t, []int64{4, 5, 9}, ids, "claimed rows are ordered by schedule then id")
	for _, n := range claimed {
		assert.Equal(t, notification.StatusProcessing, n.Status)
	}
}

func TestPostgresNotificationRepository_Complete(t *testing.T) {
	t.Run("processing row", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgresNotificationRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_notifications")).
			WithArgs("sent", int64(2), int64(1), int64(7), "processing").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Complete(context.Background(), 7, notification.StatusSent, 2, 1))
	})

	t.Run("row no longer processing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgresNotificationRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_notifications")).
			WithArgs("failed", int64(0), int64(3), int64(7), "processing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM scheduled_notifications WHERE id = $1")).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("cancelled"))

		err := repo.Complete(context.Background(), 7, notification.StatusFailed, 0, 3)
		assert.ErrorIs(t, err, notification.ErrConflict)
	})

	t.Run("missing row", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgresNotificationRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_notifications")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM scheduled_notifications")).
			WithArgs(int64(70)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}))

		err := repo.Complete(context.Background(), 70, notification.StatusSent, 1, 0)
		assert.ErrorIs(t, err, notification.ErrNotFound)
	})

	t.Run("non terminal status is rejected without a query", func(t *testing.T) {
		db, _ := newMockDB(t)
		repo := NewPostgresNotificationRepository(db)

		assert.ErrorIs(t, repo.Complete(context.Background(), 7, notification.StatusPending, 0, 0), notification.ErrConflict)
		assert.ErrorIs(t, repo.Complete(context.Background(), 7, notification.StatusCancelled, 0, 0), notification.ErrConflict)
	})
}

func TestPostgresNotificationRepository_Release(t *testing.T) {
	t.Run("processing row goes back to pending", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgresNotificationRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_notifications")).
			WithArgs("pending", int64(8), "processing").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Release(context.Background(), 8))
	})

	t.Run("row already completed", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgresNotificationRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_notifications")).
			WithArgs("pending", int64(8), "processing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM scheduled_notifications")).
			WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("sent"))

		assert.ErrorIs(t, repo.Release(context.Background(), 8), notification.ErrConflict)
	})
}

func TestPostgresNotificationRepository_Cancel(t *testing.T) {
	t.Run("pending row", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgresNotificationRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE scheduled_notifications")).
			WithArgs("cancelled", int64(3), "pending").
			WillReturnRows(addNotificationRow(sqlmock.NewRows(notificationColumnNames), 3, "cancelled", repoNow))

		n, err := repo.Cancel(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusCancelled, n.Status)
	})

	t.Run("already sent", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgresNotificationRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE scheduled_notifications")).
			WithArgs("cancelled", int64(3), "pending").
			WillReturnRows(sqlmock.NewRows(notificationColumnNames))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM scheduled_notifications")).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("sent"))

		_, err := repo.Cancel(context.Background(), 3)
		assert.ErrorIs(t, err, notification.ErrConflict)
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgresNotificationRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE scheduled_notifications")).
			WithArgs("cancelled", int64(404), "pending").
			WillReturnRows(sqlmock.NewRows(notificationColumnNames))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM scheduled_notifications")).
			WithArgs(int64(404)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}))

		_, err := repo.Cancel(context.Background(), 404)
		assert.ErrorIs(t, err, notification.ErrNotFound)
	})
}
