// Package collection parses exported API-collection documents and
// flattens their folder tree into a list of endpoint descriptors.
package collection

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Document is the root of a collection export.
type Document struct {
	Info  Info   `json:"info"`
	Items []Node `json:"item"`
}

// Info carries collection metadata.
type Info struct {
	Name string `json:"name"`
}

// Node is one entry in the collection tree. A node with a Request is a
// leaf endpoint; a node with Items is a folder. Some exports attach both.
type Node struct {
	Name    string   `json:"name"`
	Request *Request `json:"request,omitempty"`
	Items   []Node   `json:"item,omitempty"`
}

// Request is one HTTP request template.
type Request struct {
	Method string `json:"method"`
	URL    URL    `json:"url"`
	Body   *Body  `json:"body,omitempty"`
}

// URL is a tagged variant over the two wire forms a collection uses: a
// plain string, or a structured object with host/path/query arrays.
type URL struct {
	Raw        string
	Structured *StructuredURL
}

// StructuredURL is the object form of a request URL.
type StructuredURL struct {
	Raw      string       `json:"raw,omitempty"`
	Protocol string       `json:"protocol,omitempty"`
	Host     HostList     `json:"host,omitempty"`
	Path     []string     `json:"path,omitempty"`
	Query    []QueryParam `json:"query,omitempty"`
}

// HostList accepts both the array form ["api","example","com"] and a
// single host string, which some exports emit.
type HostList []string

// QueryParam is one declared query parameter with its example value.
type QueryParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FormField is one declared formdata/urlencoded field.
type FormField struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Body is a request body template. Mode selects which of the remaining
// fields is meaningful: "raw" JSON text, "formdata", or "urlencoded".
type Body struct {
	Mode       string      `json:"mode,omitempty"`
	Raw        string      `json:"raw,omitempty"`
	FormData   []FormField `json:"formdata,omitempty"`
	URLEncoded []FormField `json:"urlencoded,omitempty"`
}

// Fields returns the declared form fields regardless of which form mode
// the template uses.
func (b *Body) Fields() []FormField {
	if b == nil {
		return nil
	}
	if len(b.FormData) > 0 {
		return b.FormData
	}
	return b.URLEncoded
}

// Endpoint is one discovered endpoint descriptor. Immutable once produced.
type Endpoint struct {
	Name     string
	FullName string
	Method   string
	URL      URL
	Body     *Body
}

// Parse decodes a collection document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse collection document: %w", err)
	}
	return &doc, nil
}

// Catalog flattens the collection tree into endpoint descriptors in
// document order (folder-then-children, depth-first). Document order is
// what makes downstream collision suffixing deterministic.
func Catalog(doc *Document) []Endpoint {
	var out []Endpoint
	walk(doc.Items, "", &out)
	return out
}

func walk(items []Node, parent string, out *[]Endpoint) {
	for _, item := range items {
		full := item.Name
		if parent != "" {
			full = parent + "/" + item.Name
		}
		if item.Request != nil {
			method := strings.ToUpper(item.Request.Method)
			if method == "" {
				method = "GET"
			}
			*out = append(*out, Endpoint{
				Name:     item.Name,
				FullName: full,
				Method:   method,
				URL:      item.Request.URL,
				Body:     item.Request.Body,
			})
		}
		if len(item.Items) > 0 {
			walk(item.Items, full, out)
		}
	}
}

// UnmarshalJSON decodes either URL wire form into the tagged variant.
func (u *URL) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		return json.Unmarshal(data, &u.Raw)
	}
	u.Structured = &StructuredURL{}
	return json.Unmarshal(data, u.Structured)
}

// MarshalJSON re-emits the variant in its original wire form.
func (u URL) MarshalJSON() ([]byte, error) {
	if u.Structured != nil {
		return json.Marshal(u.Structured)
	}
	return json.Marshal(u.Raw)
}

// String reassembles the URL into one canonical string form. For
// structured URLs the raw field, when present, wins outright; otherwise
// the URL is rebuilt as scheme://joined-host/joined-path?query with query
// keys and values percent-escaped.
func (u URL) String() string {
	if u.Structured == nil {
		return u.Raw
	}
	s := u.Structured
	if s.Raw != "" {
		return s.Raw
	}

	protocol := s.Protocol
	if protocol == "" {
		protocol = "https"
	}
	host := strings.Join(s.Host, ".")
	path := strings.Join(s.Path, "/")

	var pairs []string
	for _, q := range s.Query {
		if q.Key == "" {
			continue
		}
		pairs = append(pairs, url.QueryEscape(q.Key)+"="+url.QueryEscape(q.Value))
	}

	full := protocol + "://" + host + "/" + path
	if len(pairs) > 0 {
		full += "?" + strings.Join(pairs, "&")
	}
	return full
}

// QueryDefaults returns the declared query parameters of a structured
// URL, verbatim. These become the endpoint's default query values merged
// at call time when the caller does not override them.
func (u URL) QueryDefaults() map[string]string {
	if u.Structured == nil || len(u.Structured.Query) == 0 {
		return nil
	}
	out := make(map[string]string, len(u.Structured.Query))
	for _, q := range u.Structured.Query {
		if q.Key == "" {
			continue
		}
		out[q.Key] = q.Value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// UnmarshalJSON accepts a JSON array of host segments or a bare string.
func (h *HostList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*h = HostList{s}
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	*h = HostList(arr)
	return nil
}
