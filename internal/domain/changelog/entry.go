// internal/domain/changelog/entry.go
package changelog

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("changelog entry not found")
	ErrDuplicateVersion = errors.New("changelog entry for this version already exists")
)

// ReleaseType classifies what a changelog entry ships.
type ReleaseType string

const (
	ReleaseFeature  ReleaseType = "feature"
	ReleaseFix      ReleaseType = "fix"
	ReleaseSecurity ReleaseType = "security"
	ReleaseBreaking ReleaseType = "breaking"
)

func (r ReleaseType) Valid() bool {
	switch r {
	case ReleaseFeature, ReleaseFix, ReleaseSecurity, ReleaseBreaking:
		return true
	}
	return false
}

// Entry is one version's release notes. Version may be the unreleased token.
// Corresponds to the 'changelog_entries' table.
type Entry struct {
	ID          int64
	Version     string
	Title       string
	Description string
	ReleaseType ReleaseType
	Changes     []string
	IsPublished bool
	ReleasedAt  sql.NullTime
	CreatedAt   time.Time
}

// Repository persists changelog entries. List order is unspecified; callers sort by version.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByVersion(ctx context.Context, version string) (*Entry, error)
	List(ctx context.Context) ([]*Entry, error)
}
