package options

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/AndreyAkinshin/nodetest/internal/errors"
	"github.com/AndreyAkinshin/nodetest/internal/schema"
)

// Option source file names, searched in this order inside a project root.
const (
	ProjectJSONFile = "project.json"
	YAMLFile        = "nodetest.yaml"
	YMLFile         = "nodetest.yml"
	JSONFile        = "nodetest.json"
)

// DefaultTarget is the project.json target whose options are read.
const DefaultTarget = "test"

// Source describes where a project's options were loaded from.
type Source struct {
	Path   string // Absolute path of the file; empty when no file was found
	Target string // project.json target name; empty for nodetest.* files
}

// Found reports whether an options file was found.
func (s Source) Found() bool {
	return s.Path != ""
}

// projectJSON is the subset of an Nx project.json we read.
type projectJSON struct {
	Name    string `json:"name"`
	Targets map[string]struct {
		Options json.RawMessage `json:"options"`
	} `json:"targets"`
}

// LoadProject reads the options for a project from the first option file
// present in projectDir. A project without any option file yields an empty
// Partial and a zero Source. Every document is validated against the
// embedded options schema before it is decoded.
func LoadProject(projectDir, target string) (Partial, Source, error) {
	if target == "" {
		target = DefaultTarget
	}

	path := filepath.Join(projectDir, ProjectJSONFile)
	if data, err := os.ReadFile(path); err == nil {
		p, found, err := decodeProjectJSON(path, data, target)
		if err != nil {
			return Partial{}, Source{}, err
		}
		if found {
			return p, Source{Path: path, Target: target}, nil
		}
	} else if !os.IsNotExist(err) {
		return Partial{}, Source{}, errors.Wrap(err, fmt.Sprintf("failed to read %s", path))
	}

	for _, name := range []string{YAMLFile, YMLFile} {
		path := filepath.Join(projectDir, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return Partial{}, Source{}, errors.Wrap(err, fmt.Sprintf("failed to read %s", path))
		}
		p, err := DecodeYAML(data)
		if err != nil {
			return Partial{}, Source{}, errors.Configf("%s: %v", path, err)
		}
		return p, Source{Path: path}, nil
	}

	path = filepath.Join(projectDir, JSONFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Partial{}, Source{}, nil
	}
	if err != nil {
		return Partial{}, Source{}, errors.Wrap(err, fmt.Sprintf("failed to read %s", path))
	}
	p, err := DecodeJSON(data)
	if err != nil {
		return Partial{}, Source{}, errors.Configf("%s: %v", path, err)
	}
	return p, Source{Path: path}, nil
}

// decodeProjectJSON extracts targets.<target>.options from project.json.
// found is false when the target or its options are absent, so the caller
// can fall through to the next source.
func decodeProjectJSON(path string, data []byte, target string) (Partial, bool, error) {
	var proj projectJSON
	if err := json.Unmarshal(data, &proj); err != nil {
		return Partial{}, false, errors.Configf("%s: failed to parse: %v", path, err)
	}
	t, ok := proj.Targets[target]
	if !ok || len(t.Options) == 0 || string(t.Options) == "null" {
		return Partial{}, false, nil
	}
	p, err := DecodeJSON(t.Options)
	if err != nil {
		return Partial{}, false, errors.Configf("%s: targets.%s.options: %v", path, target, err)
	}
	return p, true, nil
}

// Validate checks p against the options schema, the same rules option files
// follow. It is used for values that do not come from a file, such as flags.
func (p Partial) Validate() error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	return schema.ValidateOptionsJSON(data)
}

// DecodeJSON validates and decodes a JSON options object.
func DecodeJSON(data []byte) (Partial, error) {
	if err := schema.ValidateOptionsJSON(data); err != nil {
		return Partial{}, err
	}
	var p Partial
	if err := json.Unmarshal(data, &p); err != nil {
		return Partial{}, fmt.Errorf("failed to decode options: %w", err)
	}
	return p, nil
}

// DecodeYAML validates and decodes a YAML options mapping.
// An empty document is treated as an empty mapping.
func DecodeYAML(data []byte) (Partial, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Partial{}, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc == nil {
		return Partial{}, nil
	}
	if err := schema.ValidateOptions(doc); err != nil {
		return Partial{}, err
	}
	var p Partial
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Partial{}, fmt.Errorf("failed to decode options: %w", err)
	}
	return p, nil
}
