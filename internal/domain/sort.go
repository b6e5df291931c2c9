package domain

import "strings"

// SortMode selects the catalog ordering when no search score applies.
type SortMode string

const (
	SortLikes  SortMode = "likes"
	SortNewest SortMode = "new"
	SortTitle  SortMode = "title"
)

// ParseSortMode normalizes user-facing sort values. Unknown values fall back
// to likes, matching the default browse ordering.
func ParseSortMode(s string) SortMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new", "newest", "recent":
		return SortNewest
	case "title", "a_z", "az":
		return SortTitle
	default:
		return SortLikes
	}
}

// Valid reports whether the mode is one of the known sort modes.
func (m SortMode) Valid() bool {
	switch m {
	case SortLikes, SortNewest, SortTitle:
		return true
	}
	return false
}
