package canonical

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// allowedMethods is the whitelist of HTTP methods a mapping entry may use.
var allowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// Entry is one canonical endpoint: the absolute host-rewritten URL plus
// everything the runtime needs to shape a call to it.
type Entry struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	// Query holds default query parameters captured from the collection,
	// merged at call time when the caller does not override them.
	Query map[string]string `json:"query,omitempty"`
	// BodySchema and BodyExample are present only for mutating endpoints
	// whose collection template declared a parseable body.
	BodySchema  *Schema `json:"body_schema,omitempty"`
	BodyExample any     `json:"body_example,omitempty"`
}

// ExpectedFields returns the expected body field template: the members of
// the example body's "data" object. An empty result means the endpoint
// accepts arbitrary payloads (schema-less passthrough).
func (e *Entry) ExpectedFields() map[string]any {
	if e == nil {
		return nil
	}
	example, ok := e.BodyExample.(map[string]any)
	if !ok {
		return nil
	}
	data, ok := example["data"].(map[string]any)
	if !ok {
		return nil
	}
	return data
}

// Mapping is the canonical key to entry table. Loaded once per process
// and treated as read-only for the process lifetime.
type Mapping map[string]*Entry

// Keys returns the canonical keys in sorted order.
func (m Mapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads and validates a mapping file. Failures here are fatal at
// startup: a missing file, a top-level value that is not a JSON object,
// or an entry without a usable method and URL all return errors.
func Load(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}

	var top json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("failed to parse mapping file %s: %w", path, err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(top)), "{") {
		return nil, fmt.Errorf("mapping file %s must contain a JSON object", path)
	}

	var mapping Mapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("failed to parse mapping file %s: %w", path, err)
	}

	for key, entry := range mapping {
		if err := validateEntry(key, entry); err != nil {
			return nil, fmt.Errorf("mapping file %s: %w", path, err)
		}
	}
	return mapping, nil
}

// Save writes the mapping as indented JSON.
func Save(path string, m Mapping) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write mapping file %s: %w", path, err)
	}
	return nil
}

func validateEntry(key string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry %q is null", key)
	}
	if entry.URL == "" {
		return fmt.Errorf("entry %q has empty url", key)
	}
	if entry.Method == "" {
		return fmt.Errorf("entry %q has empty method", key)
	}
	if !allowedMethods[strings.ToUpper(entry.Method)] {
		return fmt.Errorf("entry %q has unsupported method %q", key, entry.Method)
	}
	return nil
}
