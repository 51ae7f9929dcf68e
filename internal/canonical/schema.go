package canonical

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/htssuite/erp-mcp/internal/collection"
)

// Schema is a minimal structural type tree over the JSON primitives.
// It is not a general JSON Schema engine: just enough structure to
// remember an endpoint's expected body shape and derive defaults.
type Schema struct {
	// Type is one of object, array, string, number, boolean. Empty means
	// "any" (used for items of empty arrays).
	Type string
	// Nullable marks a value observed as null; serialized as
	// ["<type>", "null"].
	Nullable bool
	// Properties holds object members. Keys are unique by construction.
	Properties map[string]*Schema
	// Additional reports whether unknown object members are tolerated.
	Additional bool
	// Items is the element schema of an array, inferred from its first
	// observed element. Nil for empty arrays.
	Items *Schema
}

// Infer derives a Schema from a decoded JSON value.
func Infer(v any) *Schema {
	switch val := v.(type) {
	case nil:
		return &Schema{Type: "string", Nullable: true}
	case bool:
		return &Schema{Type: "boolean"}
	case float64:
		return &Schema{Type: "number"}
	case json.Number:
		return &Schema{Type: "number"}
	case string:
		return &Schema{Type: "string"}
	case map[string]any:
		props := make(map[string]*Schema, len(val))
		for k, member := range val {
			props[k] = Infer(member)
		}
		return &Schema{Type: "object", Properties: props, Additional: true}
	case []any:
		if len(val) == 0 {
			return &Schema{Type: "array"}
		}
		return &Schema{Type: "array", Items: Infer(val[0])}
	default:
		return &Schema{Type: "string"}
	}
}

// ParseRawBody converts a raw JSON body template into a Schema. A parsed
// object that already carries a top-level "data" member is used as-is;
// anything else is wrapped under a synthetic "data" member with unknown
// fields rejected. Malformed JSON is the caller's policy decision: the
// error is returned, not swallowed.
func ParseRawBody(raw string) (*Schema, error) {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("malformed raw body template: %w", err)
	}
	if obj, ok := parsed.(map[string]any); ok {
		if _, hasData := obj["data"]; hasData {
			return Infer(parsed), nil
		}
	}
	return &Schema{
		Type:       "object",
		Properties: map[string]*Schema{"data": Infer(parsed)},
		Additional: false,
	}, nil
}

// FormSchema derives a flat object schema from declared form fields, one
// string-typed property per field name, nested under "data". Returns nil
// when the template declares no named fields.
func FormSchema(fields []collection.FormField) *Schema {
	props := make(map[string]*Schema)
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		props[f.Key] = &Schema{Type: "string"}
	}
	if len(props) == 0 {
		return nil
	}
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"data": {Type: "object", Properties: props, Additional: true},
		},
		Additional: false,
	}
}

// Default produces a structurally-valid default instance of the schema:
// recursive per-property defaults for objects, empty arrays, zero
// numbers, false booleans, empty strings, and null for nullable types.
func (s *Schema) Default() any {
	if s == nil {
		return nil
	}
	if s.Nullable {
		return nil
	}
	switch s.Type {
	case "object":
		out := make(map[string]any, len(s.Properties))
		for k, prop := range s.Properties {
			out[k] = prop.Default()
		}
		return out
	case "array":
		return []any{}
	case "number":
		return 0
	case "boolean":
		return false
	case "string":
		return ""
	default:
		return nil
	}
}

// schemaJSON is the wire form of Schema in the mapping file.
type schemaJSON struct {
	Type       json.RawMessage            `json:"type,omitempty"`
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
	Additional *bool                      `json:"additionalProperties,omitempty"`
	Items      json.RawMessage            `json:"items,omitempty"`
}

// MarshalJSON emits the mapping-file schema form. The "any" schema
// (empty Type) serializes as an empty object.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s.Type == "" {
		return []byte("{}"), nil
	}

	out := schemaJSON{}
	if s.Nullable {
		t, err := json.Marshal([]string{s.Type, "null"})
		if err != nil {
			return nil, err
		}
		out.Type = t
	} else {
		t, err := json.Marshal(s.Type)
		if err != nil {
			return nil, err
		}
		out.Type = t
	}

	switch s.Type {
	case "object":
		props := make(map[string]json.RawMessage, len(s.Properties))
		keys := make([]string, 0, len(s.Properties))
		for k := range s.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pv, err := json.Marshal(s.Properties[k])
			if err != nil {
				return nil, err
			}
			props[k] = pv
		}
		out.Properties = props
		additional := s.Additional
		out.Additional = &additional
	case "array":
		items := s.Items
		if items == nil {
			items = &Schema{}
		}
		iv, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		out.Items = iv
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes the mapping-file schema form, tolerating both the
// plain "type" string and the ["<type>","null"] nullable array.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw schemaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Schema{}
	if len(raw.Type) > 0 {
		var single string
		if err := json.Unmarshal(raw.Type, &single); err == nil {
			s.Type = single
		} else {
			var multi []string
			if err := json.Unmarshal(raw.Type, &multi); err != nil {
				return fmt.Errorf("invalid schema type: %s", string(raw.Type))
			}
			for _, t := range multi {
				if t == "null" {
					s.Nullable = true
				} else {
					s.Type = t
				}
			}
		}
	}

	if raw.Additional != nil {
		s.Additional = *raw.Additional
	}
	if len(raw.Properties) > 0 {
		s.Properties = make(map[string]*Schema, len(raw.Properties))
		for k, pv := range raw.Properties {
			var prop Schema
			if err := json.Unmarshal(pv, &prop); err != nil {
				return fmt.Errorf("invalid schema property %q: %w", k, err)
			}
			s.Properties[k] = &prop
		}
	}
	if len(raw.Items) > 0 {
		var items Schema
		if err := json.Unmarshal(raw.Items, &items); err != nil {
			return fmt.Errorf("invalid schema items: %w", err)
		}
		if items.Type != "" || items.Nullable {
			s.Items = &items
		}
	}
	return nil
}
