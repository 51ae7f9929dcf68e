package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/htssuite/erp-mcp/internal/canonical"
	"github.com/htssuite/erp-mcp/internal/client"
	"github.com/htssuite/erp-mcp/internal/router"
	"github.com/htssuite/erp-mcp/internal/validator"
)

// queryPrefix marks tool arguments that map into query parameters with
// the prefix stripped.
const queryPrefix = "query_"

// Envelope is the normalized result of every tool invocation: which
// endpoint was ultimately used, what the validator changed, and the
// backend response.
type Envelope struct {
	Endpoint string           `json:"endpoint"`
	URL      string           `json:"url,omitempty"`
	Notes    validator.Report `json:"notes"`
	Response client.Result    `json:"response"`
}

// makeHandler binds one canonical entry (or, for hybrid update tools, a
// nil entry resolved per call) to a tool handler. Every invocation is an
// independent, stateless unit of work; only the outbound call suspends.
func (t *ToolSet) makeHandler(key string, entry *canonical.Entry) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log := t.logger.WithCorrelationId(uuid.New().String())

		params, body := partitionArgs(request.GetArguments())

		usedKey := key
		resolved := entry
		if resolved == nil && strings.HasSuffix(key, ".update") {
			resource := strings.SplitN(key, ".", 2)[0]
			routedKey, ok := router.ChooseUpdateEndpoint(resource, body, t.mapping)
			if !ok {
				log.Warn().Str("tool", key).Msg("no backend endpoint for update payload")
				return errorResult(fmt.Sprintf(
					"No backend endpoint mapped for %s with the provided payload", key)), nil
			}
			usedKey = routedKey
			resolved = t.mapping[routedKey]
			log.Debug().Str("tool", key).Str("routed", routedKey).Msg("hybrid route resolved")
		}
		if resolved == nil {
			return errorResult(fmt.Sprintf("No canonical endpoint defined for %s", key)), nil
		}

		clean, report := validator.Validate(body, resolved.ExpectedFields())

		method := strings.ToUpper(resolved.Method)
		if method == "" {
			method = "GET"
		}
		var jsonBody any
		if mutatingMethods[method] {
			jsonBody = map[string]any{"data": clean}
		}

		// Default query parameters from the collection apply only where
		// the caller did not override them.
		for k, v := range resolved.Query {
			if _, ok := params[k]; !ok {
				params[k] = v
			}
		}

		log.Debug().Str("tool", key).Str("endpoint", usedKey).Str("method", method).Msg("tool invocation")
		res := t.client.Call(ctx, method, resolved.URL, jsonBody, params)

		return envelopeResult(Envelope{
			Endpoint: usedKey,
			URL:      resolved.URL,
			Notes:    report,
			Response: res,
		}), nil
	}
}

// partitionArgs separates tool arguments into query parameters and body
// fields. Keys with the query prefix become query parameters with the
// prefix stripped, as do page/page_length; a "data" object is merged
// wholesale into the body; everything else is a body field.
func partitionArgs(args map[string]any) (map[string]string, map[string]any) {
	params := make(map[string]string)
	body := make(map[string]any)
	for k, v := range args {
		switch {
		case strings.HasPrefix(k, queryPrefix):
			params[strings.TrimPrefix(k, queryPrefix)] = stringify(v)
		case k == "page" || k == "page_length":
			params[k] = stringify(v)
		case k == "data":
			if m, ok := v.(map[string]any); ok {
				for kk, vv := range m {
					body[kk] = vv
				}
			} else {
				body[k] = v
			}
		default:
			body[k] = v
		}
	}
	return params, body
}

// stringify renders a query value. JSON numbers arrive as float64; whole
// values print without a decimal point.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// --- Utility tool handlers ---

func (t *ToolSet) handleListTools(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type item struct {
		Tool   string `json:"tool"`
		Method string `json:"method"`
		URL    string `json:"url"`
	}
	items := make([]item, 0, len(t.mapping))
	for _, key := range t.mapping.Keys() {
		entry := t.mapping[key]
		items = append(items, item{Tool: key, Method: entry.Method, URL: entry.URL})
	}
	return jsonResult(map[string]any{"total": len(items), "tools": items})
}

func (t *ToolSet) handleHealthCheck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var probe *canonical.Entry
	for _, key := range t.mapping.Keys() {
		if strings.HasSuffix(key, ".get") {
			probe = t.mapping[key]
			break
		}
	}
	if probe == nil {
		return errorResult("No GET endpoint available for a health check"), nil
	}
	res := t.client.Call(ctx, "GET", probe.URL, nil, map[string]string{"page": "1", "page_length": "1"})
	return jsonResult(map[string]any{
		"base_url": t.client.BaseURL(),
		"health":   res,
	})
}

func (t *ToolSet) handleShowMapping(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.mapping)
}

func (t *ToolSet) handleRawCall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	method, err := request.RequireString("method")
	if err != nil {
		return errorResult("method parameter is required"), nil
	}
	target, err := request.RequireString("url")
	if err != nil {
		return errorResult("url parameter is required"), nil
	}

	args := request.GetArguments()
	var body any
	if data, ok := args["data"].(map[string]any); ok {
		body = map[string]any{"data": data}
	}
	params := make(map[string]string)
	if raw, ok := args["params"].(map[string]any); ok {
		for k, v := range raw {
			params[k] = stringify(v)
		}
	}

	res := t.client.Call(ctx, strings.ToUpper(method), target, body, params)
	return jsonResult(res)
}

// --- Result helpers ---

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return textResult(string(data)), nil
}

// envelopeResult renders the invocation envelope. Upstream failures stay
// inline in the envelope but mark the tool result as an error so hosting
// frameworks can surface them.
func envelopeResult(env Envelope) *mcp.CallToolResult {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to encode result envelope: %v", err))
	}
	result := textResult(string(data))
	result.IsError = env.Response.Error
	return result
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
