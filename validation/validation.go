// Package validation compiles and applies Draft-07 JSON Schemas to decoded
// JSON documents.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const resourceBase = "https://nildb.schemas.local/"

// Compile builds a validator from a decoded schema document. Formats such as
// uuid and date-time are asserted. Unknown keywords like coerce are ignored.
func Compile(name string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	c.AssertFormat = true

	url := resourceBase + name + ".schema.json"
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("schema load failed: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema compile failed: %w", err)
	}
	return compiled, nil
}

// Validate checks value against schema. The value is normalized through JSON
// first, so Go-typed input (ints, typed slices) validates like decoded JSON.
func Validate(schema *jsonschema.Schema, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return schema.Validate(doc)
}
