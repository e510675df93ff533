package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// configSchema describes the accepted shape of the YAML document
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "show_on_empty": {"type": "boolean"},
    "logging": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "env": {"enum": ["prod", "dev", "local"]},
        "level": {"enum": ["", "debug", "info", "warn", "error"]}
      }
    },
    "transport": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "socket": {"type": "string"}
      }
    },
    "limits": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "max_frame": {"type": "integer", "minimum": 64, "maximum": 16777216}
      }
    },
    "directory": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "paths": {"type": "array", "items": {"type": "string"}},
        "workers": {"type": "integer", "minimum": 1, "maximum": 256},
        "watch": {"type": "boolean"},
        "terminal": {"type": "array", "items": {"type": "string"}, "minItems": 1},
        "locale": {"type": "string"}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(configSchema)

// SchemaValidationError lists every schema violation of a config document
type SchemaValidationError struct {
	Details []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation failed:\n  - %s", strings.Join(e.Details, "\n  - "))
}

// validateSchema checks a decoded YAML document against configSchema
func validateSchema(doc map[string]interface{}) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to validate schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return &SchemaValidationError{Details: details}
}
