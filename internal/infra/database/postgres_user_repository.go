package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"evdb_notifier/internal/domain/user"

	"github.com/lib/pq" // For pq.Array
)

const userColumns = `id, telegram_id, name, role, is_active, created_at, updated_at`

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func scanUser(row rowScanner) (*user.User, error) {
	u := &user.User{}
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Name, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresUserRepository) Create(ctx context.Context, u *user.User) error {
	query := `INSERT INTO users (telegram_id, name, role, is_active)
               VALUES ($1, $2, $3, $4)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, u.TelegramID, u.Name, u.Role, u.IsActive).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "users_telegram_id_key") {
			return user.ErrDuplicateTelegramID
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresUserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
}

func (r *PostgresUserRepository) getOne(ctx context.Context, query string, arg int64) (*user.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, u *user.User) error {
	query := `UPDATE users
               SET name = $1, role = $2, is_active = $3, updated_at = NOW()
               WHERE id = $4
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, u.Name, u.Role, u.IsActive, u.ID).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.ErrNotFound
		}
		return fmt.Errorf("error updating user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) ListActive(ctx context.Context) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_active = TRUE ORDER BY id`
	return r.list(ctx, "active users", query)
}

func (r *PostgresUserRepository) ListActiveByRoles(ctx context.Context, roles []string) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_active = TRUE AND role = ANY($1) ORDER BY id`
	return r.list(ctx, "active users by role", query, pq.Array(roles))
}

func (r *PostgresUserRepository) ListActiveByIDs(ctx context.Context, ids []int64) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_active = TRUE AND id = ANY($1) ORDER BY id`
	return r.list(ctx, "active users by id", query, pq.Array(ids))
}

func (r *PostgresUserRepository) ListAll(ctx context.Context) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	return r.list(ctx, "all users", query)
}

func (r *PostgresUserRepository) list(ctx context.Context, what, query string, args ...any) ([]*user.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", what, err)
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", what, err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}
	return users, nil
}
