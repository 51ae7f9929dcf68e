// Package mcp binds the canonical mapping to an MCP server: one tool per
// canonical entry, hybrid update tools for composite resources, and a few
// utility tools for inspection and health checks.
package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/htssuite/erp-mcp/internal/canonical"
	"github.com/htssuite/erp-mcp/internal/client"
	"github.com/htssuite/erp-mcp/internal/common"
)

// mutatingMethods are the methods that carry a JSON body.
var mutatingMethods = map[string]bool{
	"POST": true, "PUT": true, "PATCH": true,
}

// ToolSet holds everything tool handlers need. The mapping is read-only
// for the process lifetime, so handlers are safe to run concurrently.
type ToolSet struct {
	mapping canonical.Mapping
	client  *client.Client
	logger  *common.Logger
}

// NewToolSet creates a ToolSet over a loaded canonical mapping.
func NewToolSet(mapping canonical.Mapping, c *client.Client, logger *common.Logger) *ToolSet {
	return &ToolSet{mapping: mapping, client: c, logger: logger}
}

// Register adds one tool per canonical entry plus the hybrid update tools
// and utility tools. Returns the number of tools registered.
func (t *ToolSet) Register(s *server.MCPServer) int {
	count := 0
	for _, key := range t.mapping.Keys() {
		entry := t.mapping[key]
		s.AddTool(buildTool(key, entry), t.makeHandler(key, entry))
		count++
	}
	for _, key := range t.hybridKeys() {
		s.AddTool(buildHybridTool(key), t.makeHandler(key, nil))
		count++
	}

	s.AddTool(listToolsTool(), t.handleListTools)
	s.AddTool(healthCheckTool(), t.handleHealthCheck)
	s.AddTool(showMappingTool(), t.handleShowMapping)
	s.AddTool(rawCallTool(), t.handleRawCall)
	return count + 4
}

// hybridKeys finds composite resources that have sub-resource update
// endpoints but no generic "<resource>.update" entry. Each gets a hybrid
// tool whose real endpoint is resolved per call from the payload shape.
func (t *ToolSet) hybridKeys() []string {
	seen := make(map[string]bool)
	var out []string
	for key := range t.mapping {
		parts := strings.Split(key, ".")
		if len(parts) != 3 || parts[2] != "update" {
			continue
		}
		generic := parts[0] + ".update"
		if _, ok := t.mapping[generic]; ok {
			continue
		}
		if !seen[generic] {
			seen[generic] = true
			out = append(out, generic)
		}
	}
	sort.Strings(out)
	return out
}

// buildTool converts a canonical entry into an mcp.Tool. Mutating tools
// advertise one property per expected body field plus a "data" object
// escape hatch; GET tools advertise pagination parameters.
func buildTool(key string, entry *canonical.Entry) mcp.Tool {
	method := strings.ToUpper(entry.Method)
	opts := []mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("Backend endpoint %s (%s)", entry.URL, method)),
	}

	if method == "GET" {
		opts = append(opts,
			mcp.WithNumber("page", mcp.Description("Page number query parameter")),
			mcp.WithNumber("page_length", mcp.Description("Page size query parameter")),
		)
	}

	if mutatingMethods[method] {
		for _, name := range expectedFieldNames(entry) {
			opts = append(opts, fieldOption(name, dataProperty(entry, name)))
		}
		opts = append(opts, mcp.WithObject("data",
			mcp.Description("Body object; fields are merged with any individually supplied fields")))
	}

	return mcp.NewTool(key, opts...)
}

// buildHybridTool builds the tool for an update key with no fixed
// endpoint. The backend endpoint is chosen at call time.
func buildHybridTool(key string) mcp.Tool {
	resource := strings.SplitN(key, ".", 2)[0]
	return mcp.NewTool(key,
		mcp.WithDescription(fmt.Sprintf(
			"Update a %s record. The backend endpoint is chosen from the supplied fields (hybrid routing).",
			resource)),
		mcp.WithObject("data",
			mcp.Description("Body object; fields are merged with any individually supplied fields")),
	)
}

// expectedFieldNames lists the entry's expected body fields in sorted
// order so tool schemas are deterministic.
func expectedFieldNames(entry *canonical.Entry) []string {
	expected := entry.ExpectedFields()
	names := make([]string, 0, len(expected))
	for name := range expected {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// dataProperty resolves the schema of one expected body field, or nil for
// schema-less entries.
func dataProperty(entry *canonical.Entry, name string) *canonical.Schema {
	if entry.BodySchema == nil {
		return nil
	}
	data, ok := entry.BodySchema.Properties["data"]
	if !ok || data == nil {
		return nil
	}
	return data.Properties[name]
}

// fieldOption maps a body field schema to the matching mcp-go property
// option. Unknown or missing schemas fall back to string.
func fieldOption(name string, s *canonical.Schema) mcp.ToolOption {
	desc := mcp.Description(fmt.Sprintf("Body field %q", name))
	if s == nil {
		return mcp.WithString(name, desc)
	}
	switch s.Type {
	case "number":
		return mcp.WithNumber(name, desc)
	case "boolean":
		return mcp.WithBoolean(name, desc)
	case "array":
		return mcp.WithArray(name, desc)
	case "object":
		return mcp.WithObject(name, desc)
	default:
		return mcp.WithString(name, desc)
	}
}

// --- Utility tool definitions ---

func listToolsTool() mcp.Tool {
	return mcp.NewTool("list_tools",
		mcp.WithDescription("List the canonical tools and their mapped backend endpoints."),
	)
}

func healthCheckTool() mcp.Tool {
	return mcp.NewTool("api_health_check",
		mcp.WithDescription("Quick health check of the ERP backend using a lightweight list endpoint."),
	)
}

func showMappingTool() mcp.Tool {
	return mcp.NewTool("debug_show_mapping",
		mcp.WithDescription("Dump the loaded canonical mapping."),
	)
}

func rawCallTool() mcp.Tool {
	return mcp.NewTool("debug_raw_call",
		mcp.WithDescription("Issue an arbitrary backend call through the configured client."),
		mcp.WithString("method", mcp.Required(), mcp.Description("HTTP method")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Absolute URL or path relative to the base URL")),
		mcp.WithObject("data", mcp.Description("JSON body, sent wrapped under a top-level data field")),
		mcp.WithObject("params", mcp.Description("Query parameters")),
	)
}
