package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"evdb_notifier/internal/domain/changelog"

	"github.com/lib/pq" // For pq.Array
)

const changelogColumns = `id, version, title, description, release_type, changes, is_published, released_at, created_at`

type PostgresChangelogRepository struct {
	db *sql.DB
}

func NewPostgresChangelogRepository(db *sql.DB) *PostgresChangelogRepository {
	return &PostgresChangelogRepository{db: db}
}

func scanEntry(row rowScanner) (*changelog.Entry, error) {
	e := &changelog.Entry{}
	err := row.Scan(&e.ID, &e.Version, &e.Title, &e.Description, &e.ReleaseType,
		pq.Array(&e.Changes), &e.IsPublished, &e.ReleasedAt, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PostgresChangelogRepository) Create(ctx context.Context, e *changelog.Entry) error {
	query := `INSERT INTO changelog_entries (version, title, description, release_type, changes, is_published, released_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		e.Version, e.Title, e.Description, e.ReleaseType, pq.Array(e.Changes), e.IsPublished, e.ReleasedAt,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "changelog_entries_version_key") {
			return changelog.ErrDuplicateVersion
		}
		return fmt.Errorf("error creating changelog entry: %w", err)
	}
	return nil
}

func (r *PostgresChangelogRepository) GetByVersion(ctx context.Context, version string) (*changelog.Entry, error) {
	query := `SELECT ` + changelogColumns + ` FROM changelog_entries WHERE version = $1`
	e, err := scanEntry(r.db.QueryRowContext(ctx, query, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, changelog.ErrNotFound
		}
		return nil, fmt.Errorf("error getting changelog entry by version: %w", err)
	}
	return e, nil
}

// List returns entries in insertion order. Version strings do not sort correctly in SQL.
func (r *PostgresChangelogRepository) List(ctx context.Context) ([]*changelog.Entry, error) {
	query := `SELECT ` + changelogColumns + ` FROM changelog_entries ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing changelog entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*changelog.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning changelog entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating changelog entries: %w", err)
	}
	return entries, nil
}
