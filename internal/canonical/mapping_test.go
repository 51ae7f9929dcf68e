package canonical

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMappingFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "canonical_mapping.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeMappingFile(t, `{
		"employee.get": {
			"method": "GET",
			"url": "https://erp.example.com/api/method/get_records"
		},
		"employee.create": {
			"method": "POST",
			"url": "https://erp.example.com/api/method/create_record",
			"body_schema": {
				"type": "object",
				"properties": {
					"data": {"type": "object", "properties": {"name": {"type": "string"}}}
				},
				"additionalProperties": false
			},
			"body_example": {"data": {"name": ""}}
		}
	}`)

	mapping, err := Load(path)
	require.NoError(t, err)
	require.Len(t, mapping, 2)

	get := mapping["employee.get"]
	require.NotNil(t, get)
	assert.Equal(t, "GET", get.Method)
	assert.Nil(t, get.ExpectedFields())

	create := mapping["employee.create"]
	require.NotNil(t, create)
	assert.Equal(t, map[string]any{"name": ""}, create.ExpectedFields())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read mapping file")
}

func TestLoadRejectsNonObject(t *testing.T) {
	path := writeMappingFile(t, `["not", "an", "object"]`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must contain a JSON object")
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := writeMappingFile(t, `{"a": `)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadValidatesEntries(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing url", `{"k": {"method": "GET", "url": ""}}`},
		{"missing method", `{"k": {"method": "", "url": "https://x/a"}}`},
		{"bad method", `{"k": {"method": "FETCH", "url": "https://x/a"}}`},
		{"null entry", `{"k": null}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeMappingFile(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	mapping := Mapping{
		"hr.state.create": &Entry{
			Method: "POST",
			URL:    "https://erp.example.com/api/method/create_record",
			Query:  map[string]string{"page": "1"},
			BodySchema: &Schema{
				Type: "object",
				Properties: map[string]*Schema{
					"data": {
						Type: "object",
						Properties: map[string]*Schema{
							"state_name": {Type: "string"},
							"priority":   {Type: "number"},
						},
						Additional: true,
					},
				},
				Additional: false,
			},
		},
	}
	mapping["hr.state.create"].BodyExample = mapping["hr.state.create"].BodySchema.Default()

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, Save(path, mapping))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	entry := loaded["hr.state.create"]
	require.NotNil(t, entry)
	assert.Equal(t, "POST", entry.Method)
	assert.Equal(t, map[string]string{"page": "1"}, entry.Query)
	assert.Equal(t, map[string]any{"priority": float64(0), "state_name": ""}, entry.ExpectedFields())
}

func TestKeysSorted(t *testing.T) {
	mapping := Mapping{
		"b.x.get": &Entry{Method: "GET", URL: "https://x/b"},
		"a.x.get": &Entry{Method: "GET", URL: "https://x/a"},
		"c.x.get": &Entry{Method: "GET", URL: "https://x/c"},
	}
	assert.Equal(t, []string{"a.x.get", "b.x.get", "c.x.get"}, mapping.Keys())
}
