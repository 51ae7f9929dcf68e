// Package canonical assigns every discovered endpoint a stable
// module.resource.action key and builds the mapping file the MCP server
// depends on at runtime.
package canonical

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/htssuite/erp-mcp/internal/collection"
	"github.com/htssuite/erp-mcp/internal/ident"
)

// defaultModule is used for endpoints with no folder ancestry.
const defaultModule = "hr"

// Options controls mapping generation.
type Options struct {
	// TargetHost is the scheme://host every endpoint URL is rewritten to.
	TargetHost string
	// StrictSchemas aborts generation on a malformed raw JSON body
	// template. When false such endpoints degrade to schema-less
	// passthrough and the issue is reported in the result.
	StrictSchemas bool
}

// SchemaIssue records one endpoint whose body template could not be
// parsed during a non-strict generation run.
type SchemaIssue struct {
	Key string
	Err error
}

// DetectAction classifies an endpoint into its canonical action via
// case-insensitive token matches against the URL and display name, with
// method fallbacks. First match wins.
func DetectAction(method, rawURL, name string) string {
	u := strings.ToLower(rawURL)
	n := strings.ToLower(name)
	method = strings.ToUpper(method)

	switch {
	case strings.Contains(u, "approve") || strings.Contains(n, "approve"):
		return "approve"
	case strings.Contains(u, "reject") || strings.Contains(n, "reject"):
		return "reject"
	case strings.Contains(u, "get_records_by_id") || strings.Contains(n, "get_records_by_id"):
		return "get_by_id"
	case method == "GET" && strings.Contains(u, "name="):
		return "get_by_id"
	case strings.Contains(u, "create") || strings.Contains(n, "create") || method == "POST":
		return "create"
	case strings.Contains(u, "update") || strings.Contains(n, "update") || method == "PUT" || method == "PATCH":
		return "update"
	case method == "DELETE":
		return "delete"
	case method == "GET":
		return "get"
	default:
		return strings.ToLower(method)
	}
}

// RewriteHost replaces the scheme and host of rawURL with those of
// target, preserving path and query exactly. A relative rawURL (no
// scheme) is joined under the target instead.
func RewriteHost(rawURL, target string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" {
		return strings.TrimRight(target, "/") + "/" + strings.TrimLeft(rawURL, "/")
	}
	tgt, err := url.Parse(target)
	if err != nil {
		return rawURL
	}
	parsed.Scheme = tgt.Scheme
	parsed.Host = tgt.Host
	return parsed.String()
}

// BuildMapping assigns each endpoint a canonical entry keyed by its
// module.resource.action identity. Keys are guaranteed pairwise distinct:
// collisions get a short fingerprint of URL+name appended, then a counter
// if the fingerprint itself collides. Given order-stable input the output
// keys are deterministic.
func BuildMapping(endpoints []collection.Endpoint, opts Options) (Mapping, []SchemaIssue, error) {
	mapping := make(Mapping, len(endpoints))
	var issues []SchemaIssue

	for _, ep := range endpoints {
		key := assignKey(mapping, ep)

		rawURL := ep.URL.String()
		entry := &Entry{
			Method: ep.Method,
			URL:    RewriteHost(rawURL, opts.TargetHost),
			Query:  ep.URL.QueryDefaults(),
		}

		if ep.Method == "POST" || ep.Method == "PUT" {
			schema, err := bodySchema(ep.Body)
			if err != nil {
				if opts.StrictSchemas {
					return nil, nil, fmt.Errorf("endpoint %s: %w", key, err)
				}
				issues = append(issues, SchemaIssue{Key: key, Err: err})
			}
			if schema != nil {
				entry.BodySchema = schema
				entry.BodyExample = schema.Default()
			}
		}

		mapping[key] = entry
	}

	return mapping, issues, nil
}

// assignKey derives the canonical key for one endpoint and resolves
// collisions against already-assigned keys.
func assignKey(mapping Mapping, ep collection.Endpoint) string {
	var parts []string
	for _, p := range strings.Split(ep.FullName, "/") {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}

	module := defaultModule
	if len(parts) > 0 {
		module = ident.Safe(parts[0])
	}
	resource := ident.Safe(ep.Name)
	if len(parts) >= 2 {
		resource = ident.Safe(parts[1])
	}
	action := DetectAction(ep.Method, ep.URL.String(), ep.Name)

	key := ident.ToolName(module + "." + resource + "." + action)
	if _, taken := mapping[key]; !taken {
		return key
	}

	// Disambiguate with a content fingerprint, then a counter.
	base := key
	key = ident.ToolName(base + "_" + ident.Fingerprint(ep.URL.String()+ep.Name))
	for i := 1; ; i++ {
		if _, taken := mapping[key]; !taken {
			return key
		}
		key = ident.ToolName(fmt.Sprintf("%s_%d", base, i))
	}
}

// bodySchema derives a schema from a body template, or nil when the
// template declares nothing usable.
func bodySchema(body *collection.Body) (*Schema, error) {
	if body == nil {
		return nil, nil
	}
	switch body.Mode {
	case "raw":
		if strings.TrimSpace(body.Raw) == "" {
			return nil, nil
		}
		return ParseRawBody(body.Raw)
	case "formdata", "urlencoded":
		return FormSchema(body.Fields()), nil
	default:
		return nil, nil
	}
}
