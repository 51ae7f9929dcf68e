package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/htssuite/erp-mcp/internal/common"
)

func testClient(url string) *Client {
	return New(url, "secret-token", 5*time.Second, common.NewSilentLogger())
}

func TestBearerHeader(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"abc123", "Bearer abc123"},
		{"  abc123  ", "Bearer abc123"},
		{"Bearer abc123", "Bearer abc123"},
		{"bearer abc123", "bearer abc123"},
	}
	for _, tc := range cases {
		if got := BearerHeader(tc.input); got != tc.expected {
			t.Errorf("BearerHeader(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestCallSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("Expected bearer header, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Expected Accept application/json, got %q", got)
		}
		if r.Header.Get("Content-Type") != "" {
			t.Error("GET request should not carry Content-Type")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"message": "ok"})
	}))
	defer server.Close()

	res := testClient(server.URL).Call(context.Background(), "GET", server.URL+"/api/x", nil, nil)
	if res.Error {
		t.Fatalf("Expected success, got error: %v", res.Body)
	}
	if res.Status != http.StatusOK {
		t.Errorf("Expected 200, got %d", res.Status)
	}
	body, ok := res.Body.(map[string]any)
	if !ok || body["message"] != "ok" {
		t.Errorf("Unexpected body: %v", res.Body)
	}
}

func TestCallRelativeTarget(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	testClient(server.URL).Call(context.Background(), "GET", "/api/method/get_records", nil, nil)
	if gotPath != "/api/method/get_records" {
		t.Errorf("Expected joined path, got %q", gotPath)
	}
}

func TestCallSendsJSONBody(t *testing.T) {
	var gotBody map[string]any
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	payload := map[string]any{"data": map[string]any{"name": "Bob"}}
	res := testClient(server.URL).Call(context.Background(), "POST", "/api/create", payload, nil)
	if res.Error {
		t.Fatalf("Expected success, got error: %v", res.Body)
	}
	if gotContentType != "application/json" {
		t.Errorf("Expected JSON content type, got %q", gotContentType)
	}
	data, _ := gotBody["data"].(map[string]any)
	if data["name"] != "Bob" {
		t.Errorf("Unexpected request body: %v", gotBody)
	}
}

func TestCallQueryParamsOverrideURL(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	testClient(server.URL).Call(context.Background(), "GET",
		server.URL+"/api/x?page=1&keep=yes", nil,
		map[string]string{"page": "3", "page_length": "10"})

	if got := gotQuery["page"]; len(got) != 1 || got[0] != "3" {
		t.Errorf("Expected caller page=3 to win, got %v", got)
	}
	if got := gotQuery["keep"]; len(got) != 1 || got[0] != "yes" {
		t.Errorf("Expected URL query preserved, got %v", got)
	}
	if got := gotQuery["page_length"]; len(got) != 1 || got[0] != "10" {
		t.Errorf("Expected page_length merged, got %v", got)
	}
}

func TestCallNonJSONResponseWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway</html>"))
	}))
	defer server.Close()

	res := testClient(server.URL).Call(context.Background(), "GET", "/x", nil, nil)
	body, ok := res.Body.(map[string]any)
	if !ok || body["raw"] != "<html>gateway</html>" {
		t.Errorf("Expected raw-wrapped body, got %v", res.Body)
	}
}

func TestCallUpstreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "bad input"}`))
	}))
	defer server.Close()

	res := testClient(server.URL).Call(context.Background(), "POST", "/x", map[string]any{"data": map[string]any{}}, nil)
	if !res.Error {
		t.Error("Expected error flag for 400 response")
	}
	if res.Status != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", res.Status)
	}
}

func TestCallTransportFailure(t *testing.T) {
	c := New("http://127.0.0.1:1", "tok", 500*time.Millisecond, common.NewSilentLogger())
	res := c.Call(context.Background(), "GET", "/x", nil, nil)
	if !res.Error {
		t.Error("Expected error flag for transport failure")
	}
	if res.Status != 0 {
		t.Errorf("Expected zero status, got %d", res.Status)
	}
	if _, ok := res.Body.(string); !ok {
		t.Errorf("Expected message body, got %T", res.Body)
	}
}

func TestCallCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := testClient(server.URL).Call(ctx, "GET", "/x", nil, nil)
	if !res.Error {
		t.Error("Expected error envelope for cancelled context")
	}
}
