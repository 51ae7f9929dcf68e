package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htssuite/erp-mcp/internal/collection"
)

func TestDetectAction(t *testing.T) {
	cases := []struct {
		method   string
		url      string
		name     string
		expected string
	}{
		{"POST", "/x/create_record", "Create Employee", "create"},
		{"GET", "/x/get_records_by_id?name=E001", "Get By Id", "get_by_id"},
		{"PUT", "/x/anything", "Approve Leave", "approve"},
		{"POST", "/x/rejection", "Reject Request", "reject"},
		{"GET", "/x/get_records?name=E001", "Get Record", "get_by_id"},
		{"POST", "/x/get_records?name=E001", "Submit", "create"},
		{"GET", "/x/get_records", "List Records", "get"},
		{"PUT", "/x/update_record", "Update", "update"},
		{"PATCH", "/x/anything", "Patch Record", "update"},
		{"DELETE", "/x/remove", "Remove Record", "delete"},
		{"POST", "/x/anything", "Submit Form", "create"},
		{"OPTIONS", "/x/anything", "Probe", "options"},
		{"get", "/x/records", "List", "get"},
	}
	for _, tc := range cases {
		t.Run(tc.expected+"_"+tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DetectAction(tc.method, tc.url, tc.name))
		})
	}
}

func TestRewriteHost(t *testing.T) {
	cases := []struct {
		name     string
		url      string
		target   string
		expected string
	}{
		{
			"absolute url rewritten",
			"https://apis.dev.example.in/api/method/get_records?page=1",
			"https://erp.example.com",
			"https://erp.example.com/api/method/get_records?page=1",
		},
		{
			"scheme swap preserved path",
			"http://old-host:8080/api/x",
			"https://erp.example.com",
			"https://erp.example.com/api/x",
		},
		{
			"relative path joined",
			"/api/method/get_records",
			"https://erp.example.com",
			"https://erp.example.com/api/method/get_records",
		},
		{
			"relative path without slash",
			"api/method/get_records",
			"https://erp.example.com/",
			"https://erp.example.com/api/method/get_records",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, RewriteHost(tc.url, tc.target))
		})
	}
}

func rawURL(s string) collection.URL {
	return collection.URL{Raw: s}
}

func TestBuildMappingKeys(t *testing.T) {
	endpoints := []collection.Endpoint{
		{
			Name:     "Get Records",
			FullName: "HRMS/States/Get Records",
			Method:   "GET",
			URL:      rawURL("https://apis.dev.example.in/api/method/states.get_records"),
		},
		{
			Name:     "Create Record",
			FullName: "HRMS/States/Create Record",
			Method:   "POST",
			URL:      rawURL("https://apis.dev.example.in/api/method/states.create_record"),
		},
	}

	mapping, issues, err := BuildMapping(endpoints, Options{TargetHost: "https://erp.example.com"})
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, mapping, 2)

	get, ok := mapping["hrms.states.get"]
	require.True(t, ok, "keys: %v", mapping.Keys())
	assert.Equal(t, "GET", get.Method)
	assert.Equal(t, "https://erp.example.com/api/method/states.get_records", get.URL)

	_, ok = mapping["hrms.states.create"]
	assert.True(t, ok)
}

func TestBuildMappingCollisionSuffix(t *testing.T) {
	endpoints := []collection.Endpoint{
		{Name: "Get A", FullName: "HR/Employee/Get A", Method: "GET", URL: rawURL("https://x/a")},
		{Name: "Get B", FullName: "HR/Employee/Get B", Method: "GET", URL: rawURL("https://x/b")},
		{Name: "Get C", FullName: "HR/Employee/Get C", Method: "GET", URL: rawURL("https://x/c")},
	}

	mapping, _, err := BuildMapping(endpoints, Options{TargetHost: "https://erp.example.com"})
	require.NoError(t, err)

	// All three collide on hr.employee.get; every key must still be unique.
	assert.Len(t, mapping, 3)
	_, ok := mapping["hr.employee.get"]
	assert.True(t, ok, "first endpoint keeps the base key")
}

func TestBuildMappingDeterministic(t *testing.T) {
	endpoints := []collection.Endpoint{
		{Name: "Get A", FullName: "HR/Employee/Get A", Method: "GET", URL: rawURL("https://x/a")},
		{Name: "Get B", FullName: "HR/Employee/Get B", Method: "GET", URL: rawURL("https://x/b")},
	}

	first, _, err := BuildMapping(endpoints, Options{TargetHost: "https://erp.example.com"})
	require.NoError(t, err)
	second, _, err := BuildMapping(endpoints, Options{TargetHost: "https://erp.example.com"})
	require.NoError(t, err)

	assert.Equal(t, first.Keys(), second.Keys())
}

func TestBuildMappingNoAncestryDefaults(t *testing.T) {
	endpoints := []collection.Endpoint{
		{Name: "Ping", FullName: "Ping", Method: "GET", URL: rawURL("https://x/ping")},
	}
	mapping, _, err := BuildMapping(endpoints, Options{TargetHost: "https://erp.example.com"})
	require.NoError(t, err)

	_, ok := mapping["ping.ping.get"]
	assert.True(t, ok, "single-segment ancestry uses the endpoint name as resource, keys: %v", mapping.Keys())
}

func TestBuildMappingBodySchema(t *testing.T) {
	endpoints := []collection.Endpoint{
		{
			Name:     "Create Record",
			FullName: "HR/State/Create Record",
			Method:   "POST",
			URL:      rawURL("https://x/create_record"),
			Body: &collection.Body{
				Mode: "raw",
				Raw:  `{"data": {"state_name": "Tamil Nadu", "active": true, "priority": 2}}`,
			},
		},
	}

	mapping, issues, err := BuildMapping(endpoints, Options{TargetHost: "https://erp.example.com"})
	require.NoError(t, err)
	assert.Empty(t, issues)

	entry := mapping["hr.state.create"]
	require.NotNil(t, entry)
	require.NotNil(t, entry.BodySchema)

	expected := entry.ExpectedFields()
	assert.Equal(t, map[string]any{"state_name": "", "active": false, "priority": 0}, expected)
}

func TestBuildMappingWrapsBareBody(t *testing.T) {
	endpoints := []collection.Endpoint{
		{
			Name:     "Create Record",
			FullName: "HR/State/Create Record",
			Method:   "POST",
			URL:      rawURL("https://x/create_record"),
			Body:     &collection.Body{Mode: "raw", Raw: `{"state_name": "TN"}`},
		},
	}

	mapping, _, err := BuildMapping(endpoints, Options{TargetHost: "https://erp.example.com"})
	require.NoError(t, err)

	entry := mapping["hr.state.create"]
	require.NotNil(t, entry.BodySchema)
	assert.False(t, entry.BodySchema.Additional)
	assert.Equal(t, map[string]any{"state_name": ""}, entry.ExpectedFields())
}

func TestBuildMappingFormData(t *testing.T) {
	endpoints := []collection.Endpoint{
		{
			Name:     "Upload Document",
			FullName: "HR/Employee/Upload Document",
			Method:   "POST",
			URL:      rawURL("https://x/upload"),
			Body: &collection.Body{
				Mode: "formdata",
				FormData: []collection.FormField{
					{Key: "doc_type", Value: "aadhar"},
					{Key: "file", Value: ""},
					{Key: "", Value: "ignored"},
				},
			},
		},
	}

	mapping, _, err := BuildMapping(endpoints, Options{TargetHost: "https://erp.example.com"})
	require.NoError(t, err)

	entry := mapping["hr.employee.create"]
	require.NotNil(t, entry.BodySchema)
	assert.Equal(t, map[string]any{"doc_type": "", "file": ""}, entry.ExpectedFields())
}

func TestBuildMappingMalformedBody(t *testing.T) {
	endpoints := []collection.Endpoint{
		{
			Name:     "Create Record",
			FullName: "HR/State/Create Record",
			Method:   "POST",
			URL:      rawURL("https://x/create_record"),
			Body:     &collection.Body{Mode: "raw", Raw: `{"data": not json`},
		},
	}

	// Default policy: degrade to schema-less passthrough, report the issue.
	mapping, issues, err := BuildMapping(endpoints, Options{TargetHost: "https://erp.example.com"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "hr.state.create", issues[0].Key)

	entry := mapping["hr.state.create"]
	require.NotNil(t, entry)
	assert.Nil(t, entry.BodySchema)
	assert.Nil(t, entry.BodyExample)

	// Strict policy: abort generation.
	_, _, err = BuildMapping(endpoints, Options{TargetHost: "https://erp.example.com", StrictSchemas: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hr.state.create")
}

func TestBuildMappingCapturesQueryDefaults(t *testing.T) {
	endpoints := []collection.Endpoint{
		{
			Name:     "Get Records",
			FullName: "HR/State/Get Records",
			Method:   "GET",
			URL: collection.URL{Structured: &collection.StructuredURL{
				Protocol: "https",
				Host:     collection.HostList{"apis", "dev", "example", "in"},
				Path:     []string{"api", "method", "get_records"},
				Query: []collection.QueryParam{
					{Key: "page", Value: "1"},
					{Key: "page_length", Value: "10"},
				},
			}},
		},
	}

	mapping, _, err := BuildMapping(endpoints, Options{TargetHost: "https://erp.example.com"})
	require.NoError(t, err)

	entry := mapping["hr.state.get"]
	require.NotNil(t, entry)
	assert.Equal(t, map[string]string{"page": "1", "page_length": "10"}, entry.Query)
	assert.Equal(t, "https://erp.example.com/api/method/get_records?page=1&page_length=10", entry.URL)
}
