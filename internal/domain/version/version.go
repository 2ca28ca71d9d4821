// internal/domain/version/version.go
package version

import (
	"regexp"
	"strconv"
	"strings"
)

// Unreleased is the sentinel version token for changes that are not tagged yet.
const Unreleased = "unreleased"

var semverPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-(.+))?$`)

// ParsedVersion is the sort key built from a version string.
// IsUnreleased ranks above every concrete version; Major is meaningless when it is set.
type ParsedVersion struct {
	Major        int
	Minor        int
	Patch        int
	Prerelease   string
	IsUnreleased bool
	Original     string
}

// IsUnreleasedToken reports whether s is the unreleased sentinel, ignoring case.
func IsUnreleasedToken(s string) bool {
	return strings.EqualFold(s, Unreleased)
}

// Parse never fails. Input that is not major.minor.patch[-prerelease] is split on dots
// and every segment contributes its leading digits, or 0.
func Parse(s string) ParsedVersion {
	if IsUnreleasedToken(s) {
		return ParsedVersion{IsUnreleased: true, Original: s}
	}

	cleaned := strings.TrimPrefix(s, "v")
	if m := semverPattern.FindStringSubmatch(cleaned); m != nil {
		return ParsedVersion{
			Major:      leadingInt(m[1]),
			Minor:      leadingInt(m[2]),
			Patch:      leadingInt(m[3]),
			Prerelease: m[4],
			Original:   s,
		}
	}

	parts := strings.Split(cleaned, ".")
	segment := func(i int) int {
		if i >= len(parts) {
			return 0
		}
		return leadingInt(parts[i])
	}
	return ParsedVersion{
		Major:    segment(0),
		Minor:    segment(1),
		Patch:    segment(2),
		Original: s,
	}
}

// leadingInt reads the decimal digits at the start of s. Overflowing values count as 0.
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// IsValidSemanticVersion accepts the unreleased token or an optionally v-prefixed
// major.minor.patch with an optional -prerelease suffix.
func IsValidSemanticVersion(s string) bool {
	if IsUnreleasedToken(s) {
		return true
	}
	return semverPattern.MatchString(strings.TrimPrefix(s, "v"))
}

// String renders a concrete version with the v prefix.
func (p ParsedVersion) String() string {
	if p.IsUnreleased {
		return Unreleased
	}
	out := "v" + strconv.Itoa(p.Major) + "." + strconv.Itoa(p.Minor) + "." + strconv.Itoa(p.Patch)
	if p.Prerelease != "" {
		out += "-" + p.Prerelease
	}
	return out
}
