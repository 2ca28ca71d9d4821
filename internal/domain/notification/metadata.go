package notification

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"evdb_notifier/internal/domain/version"
)

// MetadataKind tags which payload a Metadata carries.
type MetadataKind string

const (
	MetadataNone             MetadataKind = ""
	MetadataChangelogRelease MetadataKind = "changelog_release"
	MetadataLink             MetadataKind = "link"
)

var ErrInvalidMetadata = errors.New("invalid notification metadata")

// ReleaseMetadata points a notification at a changelog release.
type ReleaseMetadata struct {
	Version          string `json:"version"`
	ChangelogEntryID int64  `json:"changelog_entry_id,omitempty"`
}

// LinkMetadata attaches a call-to-action link.
type LinkMetadata struct {
	URL   string `json:"url"`
	Label string `json:"label,omitempty"`
}

// Metadata is a tagged union: exactly the payload named by Kind is set.
type Metadata struct {
	Kind    MetadataKind     `json:"kind,omitempty"`
	Release *ReleaseMetadata `json:"release,omitempty"`
	Link    *LinkMetadata    `json:"link,omitempty"`
}

func (m Metadata) Validate() error {
	switch m.Kind {
	case MetadataNone:
		if m.Release != nil || m.Link != nil {
			return fmt.Errorf("%w: payload set without a kind", ErrInvalidMetadata)
		}
	case MetadataChangelogRelease:
		if m.Release == nil || m.Link != nil {
			return fmt.Errorf("%w: %s needs exactly a release payload", ErrInvalidMetadata, m.Kind)
		}
		if !version.IsValidSemanticVersion(m.Release.Version) {
			return fmt.Errorf("%w: release version %q is not a semantic version", ErrInvalidMetadata, m.Release.Version)
		}
	case MetadataLink:
		if m.Link == nil || m.Release != nil {
			return fmt.Errorf("%w: %s needs exactly a link payload", ErrInvalidMetadata, m.Kind)
		}
		u, err := url.Parse(m.Link.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: link url %q must be an absolute http(s) url", ErrInvalidMetadata, m.Link.URL)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMetadata, m.Kind)
	}
	return nil
}

// Value stores the metadata as a JSONB document; an empty union is stored as NULL.
func (m Metadata) Value() (driver.Value, error) {
	if m.Kind == MetadataNone {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("error encoding notification metadata: %w", err)
	}
	return b, nil
}

func (m *Metadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidMetadata, src)
	}

	var decoded Metadata
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	*m = decoded
	return nil
}
