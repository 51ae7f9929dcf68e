// Package validator reconciles caller-supplied payloads against an
// endpoint's expected-field template. It is a best-effort normalizer, not
// a strict validator: malformed values pass through rather than being
// rejected, and it never fails for structurally valid input.
package validator

import (
	"sort"
	"strconv"
	"strings"
)

// Report describes what Validate changed: payload fields it dropped,
// expected fields it defaulted in, and values whose type it coerced.
// Recomputed per call, never persisted.
type Report struct {
	Removed   []string       `json:"removed"`
	Added     []string       `json:"added"`
	TypeFixed map[string]any `json:"type_fixed"`
}

func newReport() Report {
	return Report{
		Removed:   []string{},
		Added:     []string{},
		TypeFixed: map[string]any{},
	}
}

// Validate reconciles payload against the expected-field template.
//
// With an empty template every payload value is passed through type
// coercion and nothing else changes. With a non-empty template the clean
// payload contains exactly the expected keys: present values are coerced,
// absent ones default to null and are reported as added, and payload keys
// outside the template are dropped and reported as removed. Key order in
// the report is sorted, which keeps repeated calls deterministic.
func Validate(payload, expected map[string]any) (map[string]any, Report) {
	report := newReport()

	if len(expected) == 0 {
		clean := make(map[string]any, len(payload))
		for k, v := range payload {
			clean[k] = Coerce(v)
		}
		return clean, report
	}

	clean := make(map[string]any, len(expected))
	for _, k := range sortedKeys(expected) {
		v, present := payload[k]
		if !present {
			clean[k] = nil
			report.Added = append(report.Added, k)
			continue
		}
		coerced := Coerce(v)
		clean[k] = coerced
		if changed(v, coerced) {
			report.TypeFixed[k] = coerced
		}
	}

	for _, k := range sortedKeys(payload) {
		if _, ok := expected[k]; !ok {
			report.Removed = append(report.Removed, k)
		}
	}

	return clean, report
}

// Coerce normalizes a scalar value. Nulls, booleans, and numbers pass
// through. Strings are interpreted: empty or whitespace-only becomes
// null, "true"/"false" (any casing) becomes a boolean, numeric text
// becomes a float when it carries a decimal point and an integer
// otherwise, and anything else is returned unchanged with its original
// casing and whitespace. Objects and arrays pass through uncoerced.
func Coerce(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}

	trimmed := strings.TrimSpace(s)
	lowered := strings.ToLower(trimmed)
	switch lowered {
	case "":
		return nil
	case "true":
		return true
	case "false":
		return false
	}

	if strings.Contains(lowered, ".") {
		if f, err := strconv.ParseFloat(lowered, 64); err == nil {
			return f
		}
		return s
	}
	if n, err := strconv.ParseInt(lowered, 10, 64); err == nil {
		return n
	}
	return s
}

// changed reports whether coercion altered the value's identity. Only
// scalars are compared: non-scalars pass through Coerce untouched.
func changed(orig, coerced any) bool {
	switch orig.(type) {
	case nil, bool, string, float64, int, int64:
		return orig != coerced
	default:
		return false
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
