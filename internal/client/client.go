// Package client performs the outbound HTTP calls to the ERP backend and
// normalizes every outcome, including transport failures, into a Result
// envelope. Callers never see an error value from Call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/htssuite/erp-mcp/internal/common"
)

// Result is the normalized outcome of one backend call. Status is zero
// when the request never reached the backend.
type Result struct {
	Status int  `json:"status"`
	Body   any  `json:"body"`
	Error  bool `json:"error"`
}

// Client calls the ERP backend API with a fixed bearer credential.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	logger     *common.Logger
}

// New creates a backend client. The timeout bounds every outbound call;
// its expiry surfaces as an error Result, not a fatal failure.
func New(baseURL, token string, timeout time.Duration, logger *common.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: BearerHeader(token),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BearerHeader normalizes a configured credential into an Authorization
// header value. Tokens already carrying a "Bearer " prefix pass through.
func BearerHeader(token string) string {
	t := strings.TrimSpace(token)
	if t == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(t), "bearer ") {
		return t
	}
	return "Bearer " + t
}

// Call issues one HTTP request and normalizes the response. A relative
// target is joined under the base URL; params override any query values
// already present on the target. Non-JSON response bodies are wrapped as
// {"raw": <text>}; statuses of 400 and above and transport errors mark
// the Result as an error.
func (c *Client) Call(ctx context.Context, method, target string, body any, params map[string]string) Result {
	full := target
	if !strings.HasPrefix(full, "http") {
		full = c.baseURL + "/" + strings.TrimLeft(full, "/")
	}
	full, err := mergeQuery(full, params)
	if err != nil {
		return Result{Error: true, Body: fmt.Sprintf("invalid request url: %v", err)}
	}

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return Result{Error: true, Body: fmt.Sprintf("failed to marshal request body: %v", err)}
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, full, bodyReader)
	if err != nil {
		return Result{Error: true, Body: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", full).
		Msg("Backend Request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error().Err(err).Str("url", full).Dur("duration", duration).Msg("Backend Request Failed")
		return Result{Error: true, Body: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: resp.StatusCode, Error: true, Body: fmt.Sprintf("failed to read response: %v", err)}
	}

	c.logger.Debug().
		Int("status_code", resp.StatusCode).
		Dur("duration", duration).
		Msg("Backend Response")

	return Result{
		Status: resp.StatusCode,
		Body:   decodeBody(raw),
		Error:  resp.StatusCode >= 400,
	}
}

// decodeBody parses a JSON response body, wrapping non-JSON text.
func decodeBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return map[string]any{"raw": string(raw)}
	}
	return parsed
}

// mergeQuery sets params on the target URL's query string. Caller-supplied
// values win over values the URL already carries.
func mergeQuery(target string, params map[string]string) (string, error) {
	if len(params) == 0 {
		return target, nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
