package interfaces

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeError_Unauthorized(t *testing.T) {
	assert.True(t, (&NodeError{StatusCode: http.StatusUnauthorized}).Unauthorized())
	assert.True(t, (&NodeError{StatusCode: http.StatusForbidden}).Unauthorized())
	assert.False(t, (&NodeError{StatusCode: http.StatusBadRequest}).Unauthorized())
}

func TestNodeError_Message(t *testing.T) {
	err := &NodeError{Node: 2, URL: "http://n2", Endpoint: "/api/v1/data/read", StatusCode: 500, Body: "boom"}
	assert.Equal(t, "node 2 (http://n2) /api/v1/data/read: status 500: boom", err.Error())
}

func TestValidationError_Is(t *testing.T) {
	err := fmt.Errorf("upload: %w", &ValidationError{Node: 0, Err: errors.New("missing username")})
	assert.ErrorIs(t, err, ErrValidation)

	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.Equal(t, 0, vErr.Node)
}

func TestPartialWriteError_Unwrap(t *testing.T) {
	nodeErr := &NodeError{Node: 1, StatusCode: 500}
	err := &PartialWriteError{SchemaID: "s", Succeeded: []int{0}, Failed: 1, Err: nodeErr}

	var target *NodeError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, 1, target.Node)
}
