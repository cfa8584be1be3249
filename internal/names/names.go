// Package names normalizes champion, player and team identifiers so that
// lookups are insensitive to case and surrounding whitespace.
package names

import (
	"strings"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Key returns the lookup key for a display name.
func Key(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// Equal reports whether two display names refer to the same entity.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}

// Clean trims the display form without folding it.
func Clean(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
