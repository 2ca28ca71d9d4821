package version

import (
	"cmp"
	"slices"
	"strings"
)

// Compare orders version strings newest first. It returns -1 when a sorts before b,
// 1 when b sorts before a and 0 when they rank equal:
//   - unreleased sorts before any concrete version
//   - higher (major, minor, patch) sorts first
//   - a release sorts before its prereleases
//   - prerelease tags compare lexicographically, higher tag first
func Compare(a, b string) int {
	return compareParsed(Parse(a), Parse(b))
}

func compareParsed(a, b ParsedVersion) int {
	switch {
	case a.IsUnreleased && b.IsUnreleased:
		return 0
	case a.IsUnreleased:
		return -1
	case b.IsUnreleased:
		return 1
	}

	if c := cmp.Compare(b.Major, a.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Minor, a.Minor); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Patch, a.Patch); c != 0 {
		return c
	}

	switch {
	case a.Prerelease == "" && b.Prerelease == "":
		return 0
	case a.Prerelease == "":
		return -1
	case b.Prerelease == "":
		return 1
	}
	return strings.Compare(b.Prerelease, a.Prerelease)
}

// SortDescending returns a newest-first copy of versions. Equal versions keep their input order.
func SortDescending(versions []string) []string {
	out := slices.Clone(versions)
	slices.SortStableFunc(out, Compare)
	return out
}

// SortByVersionField returns a copy of items ordered newest first by the version that field reads.
func SortByVersionField[T any](items []T, field func(T) string) []T {
	type keyed struct {
		item T
		key  ParsedVersion
	}
	tmp := make([]keyed, len(items))
	for i, it := range items {
		tmp[i] = keyed{item: it, key: Parse(field(it))}
	}
	slices.SortStableFunc(tmp, func(x, y keyed) int {
		return compareParsed(x.key, y.key)
	})

	out := make([]T, len(tmp))
	for i, k := range tmp {
		out[i] = k.item
	}
	return out
}
