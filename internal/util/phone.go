// Package util provides small helpers shared across components.
package util

import "strings"

// Digits strips every non-digit rune from s. Chat identities arrive in forms
// like "972549762201@c.us"; comparing phones digits-only makes the
// authorization check insensitive to gateway formatting.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
