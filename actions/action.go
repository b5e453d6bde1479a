// Package actions exposes the vault workflow as agent-invocable actions:
// lookup_schema, create_schema, data_upload and data_download.
//
// Actions are the error boundary of the module. They never return Go errors
// for workflow failures: schema lookup and creation answer with null fields,
// uploads and downloads answer with an error text and IsError set.
package actions

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ruteri/nildb-agentkit/validation"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrActionNotFound is returned when no action has the requested name.
	ErrActionNotFound = errors.New("action not found")
)

// Output is the result of an action invocation.
type Output struct {
	// Content is the text handed back to the agent, JSON on success.
	Content string

	// IsError indicates whether the output represents an error condition.
	IsError bool
}

// Action is one agent-invocable operation.
type Action struct {
	Name        string
	Description string

	// InputSchema is the JSON Schema of the arguments object.
	InputSchema json.RawMessage

	validator *jsonschema.Schema
	invoke    func(ctx context.Context, args json.RawMessage) Output
}

// Invoke validates args against the input schema and runs the action.
func (a Action) Invoke(ctx context.Context, args json.RawMessage) Output {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	var decoded any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return errorOutput("invalid arguments for %s: %v", a.Name, err)
	}
	if a.validator != nil {
		if err := validation.Validate(a.validator, decoded); err != nil {
			return errorOutput("invalid arguments for %s: %v", a.Name, err)
		}
	}
	return a.invoke(ctx, args)
}
