// Package slug derives machine-stable codes for chart-of-accounts
// entities: ledger codes are slugified from display names, and group
// names are slugified before uniqueness checks so "Fixed  Assets" and
// "fixed_assets" collide.
package slug

import (
	"regexp"
	"strings"
)

var reSlug = regexp.MustCompile(`^[a-z0-9_]{2,40}$`)

// IsSlug reports whether s is already a valid account code:
// 2-40 chars of [a-z0-9_].
func IsSlug(s string) bool {
	return reSlug.MatchString(s)
}

// Slugify turns a display name like "Cash in Hand" into an account
// code like "cash_in_hand": lowercase, anything outside [a-z0-9_]
// becomes '_', runs of '_' collapse, capped at 40 runes, edge '_'
// trimmed.
func Slugify(s string) string {
	if s == "" {
		return s
	}
	out := make([]rune, 0, len(s))
	prevUnderscore := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			if r == '_' {
				if prevUnderscore {
					continue
				}
				prevUnderscore = true
			} else {
				prevUnderscore = false
			}
			out = append(out, r)
		} else {
			if !prevUnderscore {
				out = append(out, '_')
				prevUnderscore = true
			}
		}
		if len(out) >= 40 {
			break
		}
	}
	return strings.Trim(string(out), "_")
}
