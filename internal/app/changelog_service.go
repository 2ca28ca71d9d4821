package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"evdb_notifier/internal/domain/changelog"
	"evdb_notifier/internal/domain/notification"
	"evdb_notifier/internal/domain/version"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidChangelogEntry = errors.New("invalid changelog entry")
	ErrNoRelease             = errors.New("no released version in the changelog")
	ErrNotReleased           = errors.New("unreleased changes cannot be announced")
)

// Scheduler is the part of ScheduleService the changelog needs for release announcements.
type Scheduler interface {
	Schedule(ctx context.Context, req ScheduleRequest) (*notification.ScheduledNotification, error)
}

// AddEntryRequest is the input for a new changelog entry.
type AddEntryRequest struct {
	Version     string
	Title       string
	Description string
	ReleaseType changelog.ReleaseType
	Changes     []string
	Publish     bool
}

type ChangelogService struct {
	repo      changelog.Repository
	scheduler Scheduler
	logger    *logrus.Entry
	now       func() time.Time
}

func NewChangelogService(repo changelog.Repository, scheduler Scheduler, logger *logrus.Entry) *ChangelogService {
	return &ChangelogService{
		repo:      repo,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}

// CanonicalVersion returns the stored spelling of a version: v-prefixed, or "unreleased".
func CanonicalVersion(v string) string {
	return version.Parse(strings.TrimSpace(v)).String()
}

// AddEntry stores release notes for a version. Versions are canonicalised so "1.2.0" and
// "v1.2.0" are the same entry.
func (s *ChangelogService) AddEntry(ctx context.Context, req AddEntryRequest) (*changelog.Entry, error) {
	raw := strings.TrimSpace(req.Version)
	if !version.IsValidSemanticVersion(raw) {
		return nil, fmt.Errorf("%w: %q is not a semantic version", ErrInvalidChangelogEntry, req.Version)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidChangelogEntry)
	}
	if req.ReleaseType == "" {
		req.ReleaseType = changelog.ReleaseFeature
	}
	if !req.ReleaseType.Valid() {
		return nil, fmt.Errorf("%w: unknown release type %q", ErrInvalidChangelogEntry, req.ReleaseType)
	}

	e := &changelog.Entry{
		Version:     CanonicalVersion(raw),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		ReleaseType: req.ReleaseType,
		Changes:     req.Changes,
		IsPublished: req.Publish,
	}
	if req.Publish && !version.IsUnreleasedToken(e.Version) {
		e.ReleasedAt = sql.NullTime{Time: s.now(), Valid: true}
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create changelog entry %s: %w", e.Version, err)
	}
	s.logger.WithField("version", e.Version).Info("Changelog entry added")
	return e, nil
}

// ListEntries returns all entries newest first, unreleased on top.
func (s *ChangelogService) ListEntries(ctx context.Context) ([]*changelog.Entry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list changelog entries: %w", err)
	}
	return version.SortByVersionField(entries, func(e *changelog.Entry) string { return e.Version }), nil
}

// LatestRelease returns the newest entry with a concrete version.
func (s *ChangelogService) LatestRelease(ctx context.Context) (*changelog.Entry, error) {
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !version.IsUnreleasedToken(e.Version) {
			return e, nil
		}
	}
	return nil, ErrNoRelease
}

// SuggestNextVersion bumps the latest release. With no release yet the answer is v1.0.0.
func (s *ChangelogService) SuggestNextVersion(ctx context.Context, bump version.Bump) (string, error) {
	latest, err := s.LatestRelease(ctx)
	if errors.Is(err, ErrNoRelease) {
		return version.NextVersion(version.Unreleased, bump), nil
	}
	if err != nil {
		return "", err
	}
	return version.NextVersion(latest.Version, bump), nil
}

// AnnounceRelease schedules an announcement of a released version to all users.
func (s *ChangelogService) AnnounceRelease(ctx context.Context, ver string, at time.Time, createdBy int64) (*notification.ScheduledNotification, error) {
	canonical := CanonicalVersion(ver)
	if version.IsUnreleasedToken(canonical) {
		return nil, ErrNotReleased
	}

	entry, err := s.repo.GetByVersion(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to get changelog entry %s: %w", canonical, err)
	}

	var content strings.Builder
	content.WriteString(entry.Description)
	for _, c := range entry.Changes {
		if content.Len() > 0 {
			content.WriteString("\n")
		}
		content.WriteString("• ")
		content.WriteString(c)
	}
	if content.Len() == 0 {
		content.WriteString(entry.Title)
	}

	n, err := s.scheduler.Schedule(ctx, ScheduleRequest{
		Title:          fmt.Sprintf("Release %s: %s", entry.Version, entry.Title),
		Content:        content.String(),
		Type:           notification.TypeAnnouncement,
		TargetAudience: notification.AudienceAllUsers,
		Metadata: notification.Metadata{
			Kind:    notification.MetadataChangelogRelease,
			Release: &notification.ReleaseMetadata{Version: entry.Version, ChangelogEntryID: entry.ID},
		},
		ScheduledAt: at,
		CreatedBy:   createdBy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule release announcement for %s: %w", entry.Version, err)
	}
	return n, nil
}
