package textmodel

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSynthesizer mocks the SchemaSynthesizer interface
type MockSynthesizer struct {
	mock.Mock
}

// Infer mocks the Infer method
func (m *MockSynthesizer) Infer(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// StaticSynthesizer always answers with the same text.
type StaticSynthesizer string

func (s StaticSynthesizer) Infer(_ context.Context, _ string) (string, error) {
	return string(s), nil
}
