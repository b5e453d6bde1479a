package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/ruteri/nildb-agentkit/validation"
)

var nonUUIDChars = regexp.MustCompile(`[^0-9a-fA-F-]`)

// SanitizeUUID drops every character that cannot appear in a UUID.
func SanitizeUUID(s string) string {
	return nonUUIDChars.ReplaceAllString(s, "")
}

const lookupPrompt = `
1. I'll provide you with a description of the schema I want to use
2. I'll provide you with a list of available schemas
3. You will select the best match and return the associated UUID from the outermost ` + "`_id`" + ` field
4. Do not include explanation or comments. Only a valid UUID string
5. Based on the provided description, select a schema from the provided schemas.

DESIRED SCHEMA DESCRIPTION:
%s

AVAILABLE SCHEMAS:
%s
`

const createPrompt = `
1. I'll provide you with a description of the schema I want to implement
2. For any fields that could be considered financial, secret, currency, value holding, political, family values, sexual, criminal, risky, personal, private or personally
   identifying (PII), I want you to replace that type and value, instead, with an object that has a key named ` + "`$share`" + ` and the value of string as shown in this example:

    ORIGINAL ATTRIBUTE:
    "password": {
      "type": "string"
    }

    REPLACED WITH UPDATED ATTRIBUTE PRESERVING NAME:
    "password": {
        "type": "object",
        "properties": {
            "$share": {
              "type": "string"
            }
        }
    }

3. The JSON document should follow the patterns shown in these examples contained herein where the final result is ready to be included in the POST JSON payload
4. Do not include explanation or comments. Only a valid JSON payload document.

START OF JSON SCHEMA DESCRIPTION

a JSON Schema following these requirements:

- Use JSON Schema draft-07, type "array"
- Each record needs a unique _id (UUID format, coerce: true)
- Use "date-time" format for dates (coerce: true)
- Mark required fields (_id is always required)
- Set additionalProperties to false
- Avoid "$" prefix in field names to prevent query conflicts
- The schema to create is embedded in the "schema" attribute
- "_id" should be the only "keys"
- Note: System adds _created and _updated fields automatically

Example ` + "`POST /schema`" + ` Payload

{
  "name": "My services",
  "keys": ["_id"],
  "schema": {
    "$schema": "http://json-schema.org/draft-07/schema#",
    "type": "array",
    "items": {
      "type": "object",
      "properties": {
        "_id": {
          "type": "string",
          "format": "uuid",
          "coerce": true
        },
        "username": {
          "type": "string"
        },
        "password": {
          "type": "string"
        }
      },
      "required": ["_id", "username", "password"],
      "additionalProperties": false
    }
  }
}

Based on this description, create a JSON schema:
%s
`

// LookupSchemaPrompt renders the prompt asking the model to pick a schema id
// from catalog for description.
func LookupSchemaPrompt(description string, catalog []interfaces.SchemaEntry) (string, error) {
	raw, err := json.Marshal(catalog)
	if err != nil {
		return "", fmt.Errorf("failed to encode catalog: %w", err)
	}
	return fmt.Sprintf(lookupPrompt, description, raw), nil
}

// CreateSchemaPrompt renders the prompt asking the model for a schema payload.
func CreateSchemaPrompt(description string) string {
	return fmt.Sprintf(createPrompt, description)
}

// LookupSchema asks the text model to pick the catalog entry best matching
// description and returns its id and JSON Schema.
func (v *VaultClient) LookupSchema(ctx context.Context, description string) (string, map[string]any, error) {
	if v.synth == nil {
		return "", nil, fmt.Errorf("%w: no text model configured", interfaces.ErrConfiguration)
	}

	catalog, err := v.FetchSchemas(ctx)
	if err != nil {
		return "", nil, err
	}
	prompt, err := LookupSchemaPrompt(description, catalog)
	if err != nil {
		return "", nil, err
	}

	answer, err := v.synth.Infer(ctx, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("text model failed: %w", err)
	}
	schemaID := SanitizeUUID(answer)
	if schemaID == "" {
		return "", nil, fmt.Errorf("%w: text model returned no schema id", interfaces.ErrNotFound)
	}

	schema, err := v.FindSchema(ctx, schemaID, catalog)
	if err != nil {
		return "", nil, err
	}
	v.log.Info("schema found", slog.String("schema", schemaID))
	return schemaID, schema, nil
}

// CreateSchema asks the text model for a schema payload matching description,
// assigns a fresh _id and the organization as owner, and registers it on
// every node. Nodes registered before a failure keep the schema.
func (v *VaultClient) CreateSchema(ctx context.Context, description string) (string, map[string]any, error) {
	if v.synth == nil {
		return "", nil, fmt.Errorf("%w: no text model configured", interfaces.ErrConfiguration)
	}

	answer, err := v.synth.Infer(ctx, CreateSchemaPrompt(description))
	if err != nil {
		return "", nil, fmt.Errorf("text model failed: %w", err)
	}

	document, err := ParseSchemaPayload(answer)
	if err != nil {
		return "", nil, err
	}
	schemaID := uuid.NewString()
	document[interfaces.IDKey] = schemaID
	document["owner"] = v.nodes.OrgDID

	for i, api := range v.apis {
		if err := api.CreateSchema(ctx, document); err != nil {
			v.nodeLog(i).Error("schema creation failed", slog.String("schema", schemaID), slog.Any("err", err))
			return "", nil, err
		}
	}
	v.log.Info("schema created", slog.String("schema", schemaID), slog.Int("nodes", len(v.apis)))
	return schemaID, document, nil
}

// ParseSchemaPayload turns model output into a schema document. Markdown
// code fences are stripped, the result must be a JSON object whose schema
// attribute compiles as Draft-07.
func ParseSchemaPayload(text string) (map[string]any, error) {
	body := stripCodeFence(strings.TrimSpace(text))

	var document map[string]any
	if err := json.Unmarshal([]byte(body), &document); err != nil {
		return nil, fmt.Errorf("%w: schema payload is not a JSON object: %v", interfaces.ErrValidation, err)
	}
	schema, ok := document["schema"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: schema payload has no schema object", interfaces.ErrValidation)
	}
	if _, err := validation.Compile("candidate", schema); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrValidation, err)
	}
	return document, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the info string, e.g. ```json
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
