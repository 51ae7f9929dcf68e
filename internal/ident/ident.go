// Package ident derives safe, bounded, collision-resistant identifiers
// from the free-form names found in API collection exports.
package ident

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

// MaxLen is the hard cap on identifier length. Tool hosts reject names
// longer than this.
const MaxLen = 64

// fingerprintLen is the number of hex characters appended when an
// identifier has to be truncated.
const fingerprintLen = 6

var (
	nonIdent     = regexp.MustCompile(`[^a-z0-9]+`)
	nonToolIdent = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)
	underscores  = regexp.MustCompile(`_+`)
)

// Safe lower-cases the input and collapses every run of characters outside
// [a-z0-9] into a single underscore. The result is never empty: inputs
// that sanitize to nothing become "x".
func Safe(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = nonIdent.ReplaceAllString(s, "_")
	s = underscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "x"
	}
	return s
}

// ToolName sanitizes a tool identifier. Unlike Safe it preserves dots, so
// dotted canonical keys such as "employee.details.update" survive intact.
// The result is bounded to MaxLen.
func ToolName(raw string) string {
	s := nonToolIdent.ReplaceAllString(raw, "_")
	s = underscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	s = strings.ToLower(s)
	if s == "" {
		return "x"
	}
	return Bound(s)
}

// Bound enforces MaxLen. Identifiers at or under the limit pass through
// unchanged; longer ones are truncated and suffixed with a deterministic
// fingerprint of the full pre-truncation string, separated by an
// underscore, so that distinct long names remain distinguishable.
func Bound(s string) string {
	if len(s) <= MaxLen {
		return s
	}
	allowed := MaxLen - fingerprintLen - 1
	return s[:allowed] + "_" + Fingerprint(s)
}

// Fingerprint returns a short non-cryptographic hash of s, used to
// disambiguate truncated or colliding identifiers.
func Fingerprint(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())[:fingerprintLen]
}
