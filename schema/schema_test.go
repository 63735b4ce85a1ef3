package schema

import (
	"encoding/json"
	"io/fs"
	"strings"
	"testing"
)

// TestEmbeddedSchemasAreValidJSON verifies that all embedded schema files are valid JSON.
func TestEmbeddedSchemasAreValidJSON(t *testing.T) {
	t.Parallel()

	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		t.Fatalf("failed to read embedded FS: %v", err)
	}

	schemaCount := 0
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".schema.json") {
			continue
		}
		schemaCount++

		t.Run(entry.Name(), func(t *testing.T) {
			t.Parallel()

			data, err := FS.ReadFile(entry.Name())
			if err != nil {
				t.Fatalf("failed to read %s: %v", entry.Name(), err)
			}

			var v interface{}
			if err := json.Unmarshal(data, &v); err != nil {
				t.Errorf("%s is not valid JSON: %v", entry.Name(), err)
			}
			if _, ok := v.(map[string]interface{}); !ok {
				t.Errorf("%s root is not an object", entry.Name())
			}
		})
	}

	if schemaCount == 0 {
		t.Error("no schema files found in embedded FS")
	}
}

// TestOptionsSchemaCoversAllOptions guards against an option being added to
// the Go types without a schema entry (the schema rejects unknown keys).
func TestOptionsSchemaCoversAllOptions(t *testing.T) {
	t.Parallel()

	data, err := FS.ReadFile("options.schema.json")
	if err != nil {
		t.Fatalf("failed to read options schema: %v", err)
	}

	var doc struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid schema: %v", err)
	}

	expected := []string{
		"enableTsc", "useTsx", "enableJestCompat", "imports", "reporter",
		"testFiles", "tsConfig", "useAlias", "ignoreBuildErrors", "verbose",
		"coverage", "additionalArgs", "outputDir", "experimental",
		"updateSnapshot", "testTimeout", "bail", "testNamePattern",
		"testPathPattern", "maxWorkers", "parallel",
	}
	for _, name := range expected {
		if _, ok := doc.Properties[name]; !ok {
			t.Errorf("options schema missing property %q", name)
		}
	}
	if len(doc.Properties) != len(expected) {
		t.Errorf("options schema has %d properties, want %d", len(doc.Properties), len(expected))
	}
}
