package config

import (
	_ "embed"
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schema json.RawMessage
var schemaLoader = gojsonschema.NewBytesLoader(schema)

// NewSchema returns the JSON schema of configuration files.
func NewSchema() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(schemaLoader)
}
