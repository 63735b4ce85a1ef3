// Package schema provides JSON schema validation for nodetest option documents.
package schema

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	schemafs "github.com/AndreyAkinshin/nodetest/schema"
)

// OptionsSchemaFile is the embedded file name of the options schema.
const OptionsSchemaFile = "options.schema.json"

var (
	optionsSchema *jsonschema.Schema
	compileOnce   sync.Once
	compileErr    error
)

// compileSchemas compiles all embedded schemas once.
func compileSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		data, err := schemafs.FS.ReadFile(OptionsSchemaFile)
		if err != nil {
			compileErr = fmt.Errorf("read options schema: %w", err)
			return
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal options schema: %w", err)
			return
		}

		if err := compiler.AddResource(OptionsSchemaFile, doc); err != nil {
			compileErr = fmt.Errorf("add options schema resource: %w", err)
			return
		}

		optionsSchema, err = compiler.Compile(OptionsSchemaFile)
		if err != nil {
			compileErr = fmt.Errorf("compile options schema: %w", err)
			return
		}
	})

	return compileErr
}

// ValidateOptions validates a decoded options document. The document may come
// from JSON (decoded with UnmarshalJSON) or YAML (decoded into interface{}).
func ValidateOptions(doc any) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	if err := optionsSchema.Validate(doc); err != nil {
		return fmt.Errorf("options validation failed: %w", err)
	}

	return nil
}

// ValidateOptionsJSON validates raw JSON data against the options schema.
func ValidateOptionsJSON(data []byte) error {
	doc, err := UnmarshalJSON(data)
	if err != nil {
		return err
	}
	return ValidateOptions(doc)
}

// UnmarshalJSON decodes JSON into the generic form the validator expects
// (numbers are kept as json.Number).
func UnmarshalJSON(data []byte) (any, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return doc, nil
}
