package interfaces

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrConfiguration is returned when required credentials or settings are missing.
	ErrConfiguration = errors.New("configuration error")

	// ErrRegistration is returned when the registration service does not yield a usable node list.
	ErrRegistration = errors.New("registration error")

	// ErrCatalog is returned when the schema catalog cannot be fetched or is empty.
	ErrCatalog = errors.New("schema catalog error")

	// ErrNotFound is returned when a schema or record lookup misses.
	ErrNotFound = errors.New("not found")

	// ErrReconstruction is returned when shares cannot be reassembled.
	ErrReconstruction = errors.New("reconstruction error")

	// ErrValidation is returned when a shard fails its JSON Schema.
	ErrValidation = errors.New("validation error")

	// ErrUnsupportedValue is returned when a secret value has a type that cannot be shared.
	ErrUnsupportedValue = errors.New("unsupported secret value")

	// ErrAllotment is returned when a lifted record does not carry exactly one share per node.
	ErrAllotment = errors.New("allotment error")
)

// NodeError describes a protocol-level failure of one node: a transport error,
// a non-200 status or a non-empty errors array.
type NodeError struct {
	Node       int
	URL        string
	Endpoint   string
	StatusCode int
	Body       string
	Errors     []any
	Err        error
}

func (e *NodeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "node %d (%s) %s", e.Node, e.URL, e.Endpoint)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if len(e.Errors) > 0 {
		fmt.Fprintf(&b, ": errors %v", e.Errors)
	} else if e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	return b.String()
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Unauthorized reports whether the node rejected the bearer token.
func (e *NodeError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// ValidationError wraps a JSON Schema failure of the shard bound for Node.
type ValidationError struct {
	Node int
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("shard for node %d does not match schema: %v", e.Node, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PartialWriteError is returned when a fan-out write failed after at least one
// node accepted its shard. Nothing is rolled back; Succeeded lists the node
// indices that now hold orphaned shards for RecordIDs.
type PartialWriteError struct {
	SchemaID  string
	RecordIDs []string
	Succeeded []int
	Failed    int
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write to schema %s: nodes %v hold shards, node %d failed: %v",
		e.SchemaID, e.Succeeded, e.Failed, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
