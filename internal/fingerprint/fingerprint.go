// Package fingerprint derives a stable content identity for a card so
// re-syncing a source can tell new cards from ones it has already seen.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize lowercases, trims and joins the card's faces with a newline so
// trailing whitespace or line-ending churn in a source file does not change
// the identity. The newline keeps "ab"+"c" distinct from "a"+"bc".
func Normalize(front, back string) string {
	clean := func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimSpace(s)
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return s
	}
	return clean(front) + "\n" + clean(back)
}

// Of returns the SHA-256 of the normalized card content as a hex string.
func Of(front, back string) string {
	sum := sha256.Sum256([]byte(Normalize(front, back)))
	return fmt.Sprintf("%x", sum)
}
