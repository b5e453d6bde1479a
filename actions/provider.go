package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/ruteri/nildb-agentkit/validation"
)

// Action names.
const (
	LookupSchema = "lookup_schema"
	CreateSchema = "create_schema"
	DataUpload   = "data_upload"
	DataDownload = "data_download"
)

// Vault is the workflow the actions drive. *vault.VaultClient implements it.
type Vault interface {
	LookupSchema(ctx context.Context, description string) (string, map[string]any, error)
	CreateSchema(ctx context.Context, description string) (string, map[string]any, error)
	Upload(ctx context.Context, schemaID string, records []interfaces.Record) ([]string, error)
	Download(ctx context.Context, schemaID string) ([]interfaces.Record, error)
}

// Provider holds the vault actions.
type Provider struct {
	vault   Vault
	log     *slog.Logger
	actions []Action
	byName  map[string]Action
}

// New builds the provider and compiles every action's input schema.
func New(v Vault, log *slog.Logger) (*Provider, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: vault is not initialized", interfaces.ErrConfiguration)
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Provider{vault: v, log: log, byName: make(map[string]Action)}

	defs := []struct {
		name        string
		description string
		schema      string
		invoke      func(context.Context, json.RawMessage) Output
	}{
		{LookupSchema, lookupSchemaDescription, schemaDescriptionInput, p.lookupSchema},
		{CreateSchema, createSchemaDescription, schemaDescriptionInput, p.createSchema},
		{DataUpload, dataUploadDescription, dataUploadInput, p.dataUpload},
		{DataDownload, dataDownloadDescription, dataDownloadInput, p.dataDownload},
	}

	for _, d := range defs {
		var schema map[string]any
		if err := json.Unmarshal([]byte(d.schema), &schema); err != nil {
			return nil, fmt.Errorf("input schema of %s: %w", d.name, err)
		}
		validator, err := validation.Compile("action-"+d.name, schema)
		if err != nil {
			return nil, fmt.Errorf("input schema of %s: %w", d.name, err)
		}
		a := Action{
			Name:        d.name,
			Description: d.description,
			InputSchema: json.RawMessage(d.schema),
			validator:   validator,
			invoke:      d.invoke,
		}
		p.actions = append(p.actions, a)
		p.byName[a.Name] = a
	}
	return p, nil
}

// Actions returns the actions in a stable order.
func (p *Provider) Actions() []Action {
	return append([]Action(nil), p.actions...)
}

// Invoke runs the named action.
func (p *Provider) Invoke(ctx context.Context, name string, args json.RawMessage) (Output, error) {
	a, ok := p.byName[name]
	if !ok {
		return Output{}, fmt.Errorf("%w: %s", ErrActionNotFound, name)
	}
	return a.Invoke(ctx, args), nil
}

type schemaDescriptionArgs struct {
	SchemaDescription string `json:"schema_description"`
}

type dataUploadArgs struct {
	SchemaUUID  string              `json:"schema_uuid"`
	DataToStore []interfaces.Record `json:"data_to_store"`
}

type dataDownloadArgs struct {
	SchemaUUID string `json:"schema_uuid"`
}

// SchemaResult is the payload of lookup_schema and create_schema. Both fields
// are null when the operation failed.
type SchemaResult struct {
	SchemaUUID *string        `json:"schema_uuid"`
	Schema     map[string]any `json:"schema"`
}

func (p *Provider) lookupSchema(ctx context.Context, raw json.RawMessage) Output {
	var args schemaDescriptionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorOutput("invalid arguments for %s: %v", LookupSchema, err)
	}
	id, schema, err := p.vault.LookupSchema(ctx, args.SchemaDescription)
	if err != nil {
		p.log.Warn("Error looking up schema", "err", err)
		return jsonOutput(SchemaResult{})
	}
	return jsonOutput(SchemaResult{SchemaUUID: &id, Schema: schema})
}

func (p *Provider) createSchema(ctx context.Context, raw json.RawMessage) Output {
	var args schemaDescriptionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorOutput("invalid arguments for %s: %v", CreateSchema, err)
	}
	id, document, err := p.vault.CreateSchema(ctx, args.SchemaDescription)
	if err != nil {
		p.log.Warn("Error creating schema", "err", err)
		return jsonOutput(SchemaResult{})
	}
	return jsonOutput(SchemaResult{SchemaUUID: &id, Schema: document})
}

func (p *Provider) dataUpload(ctx context.Context, raw json.RawMessage) Output {
	var args dataUploadArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorOutput("invalid arguments for %s: %v", DataUpload, err)
	}
	ids, err := p.vault.Upload(ctx, args.SchemaUUID, args.DataToStore)
	if err != nil {
		p.log.Warn("Error creating records in node", slog.String("schema", args.SchemaUUID), "err", err)
		var partial *interfaces.PartialWriteError
		if errors.As(err, &partial) {
			return errorOutput("upload partially failed, nodes %v hold orphaned shards for %d records: %v",
				partial.Succeeded, len(partial.RecordIDs), partial.Err)
		}
		return errorOutput("Error creating records in node: %v", err)
	}
	return jsonOutput(ids)
}

func (p *Provider) dataDownload(ctx context.Context, raw json.RawMessage) Output {
	var args dataDownloadArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorOutput("invalid arguments for %s: %v", DataDownload, err)
	}
	records, err := p.vault.Download(ctx, args.SchemaUUID)
	if err != nil {
		p.log.Warn("Error retrieving records in node", slog.String("schema", args.SchemaUUID), "err", err)
		return errorOutput("Error retrieving records in node: %v", err)
	}
	if records == nil {
		records = []interfaces.Record{}
	}
	return jsonOutput(records)
}

func jsonOutput(v any) Output {
	raw, err := json.Marshal(v)
	if err != nil {
		return errorOutput("failed to encode result: %v", err)
	}
	return Output{Content: string(raw)}
}

func errorOutput(format string, args ...any) Output {
	return Output{Content: fmt.Sprintf(format, args...), IsError: true}
}
