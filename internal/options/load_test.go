package options

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AndreyAkinshin/nodetest/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadProject_NoFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	p, src, err := LoadProject(dir, "")
	if err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}
	if src.Found() {
		t.Errorf("Source = %+v, want not found", src)
	}
	if got := Normalize(p, "pkg"); got.Reporter != DefaultReporter {
		t.Errorf("expected defaults, got reporter %q", got.Reporter)
	}
}

func TestLoadProject_ProjectJSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, ProjectJSONFile, `{
  "name": "pkg",
  "targets": {
    "build": {"options": {"main": "src/index.ts"}},
    "test": {
      "executor": "nodetest:run",
      "options": {"reporter": "tap", "coverage": true, "imports": ["./setup.js"]}
    }
  }
}`)

	p, src, err := LoadProject(dir, "")
	if err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}
	if src.Path != filepath.Join(dir, ProjectJSONFile) || src.Target != "test" {
		t.Errorf("Source = %+v", src)
	}
	opts := Normalize(p, "pkg")
	if opts.Reporter != "tap" || !opts.Coverage {
		t.Errorf("options not loaded: %+v", opts)
	}
	if len(opts.Imports) != 1 || opts.Imports[0] != "./setup.js" {
		t.Errorf("Imports = %v", opts.Imports)
	}
}

func TestLoadProject_ProjectJSONCustomTarget(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, ProjectJSONFile, `{"targets": {"unit": {"options": {"bail": true}}}}`)

	p, src, err := LoadProject(dir, "unit")
	if err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}
	if src.Target != "unit" {
		t.Errorf("Target = %q, want unit", src.Target)
	}
	if !Normalize(p, "x").Bail {
		t.Error("Bail not loaded from custom target")
	}
}

func TestLoadProject_ProjectJSONWithoutTargetFallsThrough(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, ProjectJSONFile, `{"name": "pkg", "targets": {"build": {}}}`)
	writeFile(t, dir, YAMLFile, "reporter: spec\nmaxWorkers: 2\n")

	p, src, err := LoadProject(dir, "")
	if err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}
	if filepath.Base(src.Path) != YAMLFile {
		t.Errorf("Source = %+v, want %s", src, YAMLFile)
	}
	opts := Normalize(p, "pkg")
	if opts.Reporter != "spec" || opts.MaxWorkers != 2 {
		t.Errorf("YAML options not loaded: %+v", opts)
	}
}

func TestLoadProject_YMLAndJSON(t *testing.T) {
	t.Parallel()

	t.Run("yml", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, YMLFile, "parallel: false\n")
		p, src, err := LoadProject(dir, "")
		if err != nil {
			t.Fatalf("LoadProject() error = %v", err)
		}
		if filepath.Base(src.Path) != YMLFile || Normalize(p, "x").Parallel {
			t.Errorf("unexpected result: %+v %+v", src, p)
		}
	})

	t.Run("json", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, JSONFile, `{"testTimeout": 250}`)
		p, src, err := LoadProject(dir, "")
		if err != nil {
			t.Fatalf("LoadProject() error = %v", err)
		}
		if filepath.Base(src.Path) != JSONFile || Normalize(p, "x").TestTimeout != 250 {
			t.Errorf("unexpected result: %+v %+v", src, p)
		}
	})
}

func TestLoadProject_InvalidDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"project.json syntax", ProjectJSONFile, `{`, "failed to parse"},
		{"project.json unknown option", ProjectJSONFile, `{"targets": {"test": {"options": {"watch": true}}}}`, "targets.test.options"},
		{"yaml syntax", YAMLFile, "reporter: [unclosed\n", "invalid YAML"},
		{"yaml wrong type", YAMLFile, "coverage: sometimes\n", "options validation failed"},
		{"json wrong type", JSONFile, `{"imports": "./setup.js"}`, "options validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			writeFile(t, dir, tt.file, tt.content)

			_, _, err := LoadProject(dir, "")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
			if !errors.IsKind(err, errors.KindConfig) {
				t.Errorf("error kind should be config: %v", err)
			}
		})
	}
}

func TestDecodeYAML_Empty(t *testing.T) {
	t.Parallel()

	p, err := DecodeYAML([]byte("# nothing configured\n"))
	if err != nil {
		t.Fatalf("DecodeYAML() error = %v", err)
	}
	if p.Reporter != nil {
		t.Errorf("expected empty Partial, got %+v", p)
	}
}

func TestPartial_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		p       Partial
		wantErr bool
	}{
		{"empty", Partial{}, false},
		{"valid values", Partial{Reporter: String("tap"), MaxWorkers: Int(2), TestTimeout: Int(0)}, false},
		{"empty reporter", Partial{Reporter: String("")}, true},
		{"negative workers", Partial{MaxWorkers: Int(-1)}, true},
		{"zero workers", Partial{MaxWorkers: Int(0)}, true},
		{"negative timeout", Partial{TestTimeout: Int(-5)}, true},
		{"empty import", Partial{Imports: []string{""}}, true},
		{"empty output dir", Partial{OutputDir: String("")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
