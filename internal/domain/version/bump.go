package version

import (
	"errors"
	"fmt"
	"strings"
)

// Bump names the version field to increment.
type Bump string

const (
	BumpMajor Bump = "major"
	BumpMinor Bump = "minor"
	BumpPatch Bump = "patch"
)

var ErrUnknownBump = errors.New("unknown version bump, expected major, minor or patch")

// ParseBump reads a bump kind from user input.
func ParseBump(s string) (Bump, error) {
	switch b := Bump(strings.ToLower(strings.TrimSpace(s))); b {
	case BumpMajor, BumpMinor, BumpPatch:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBump, s)
	}
}

// NextVersion increments the bump field of current and zeroes the lower fields.
// The unreleased token always yields v1.0.0. Prerelease tags are dropped.
// An unknown bump is treated as a patch bump.
func NextVersion(current string, bump Bump) string {
	p := Parse(current)
	if p.IsUnreleased {
		return "v1.0.0"
	}

	next := ParsedVersion{Major: p.Major, Minor: p.Minor, Patch: p.Patch}
	switch bump {
	case BumpMajor:
		next.Major++
		next.Minor = 0
		next.Patch = 0
	case BumpMinor:
		next.Minor++
		next.Patch = 0
	default:
		next.Patch++
	}
	return next.String()
}
