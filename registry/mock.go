package registry

import (
	"context"

	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistrationService mocks the RegistrationService interface
type MockRegistrationService struct {
	mock.Mock
}

// FetchNodes mocks the FetchNodes method
func (m *MockRegistrationService) FetchNodes(ctx context.Context, orgDID string) ([]interfaces.NodeConfig, error) {
	args := m.Called(ctx, orgDID)
	nodes, _ := args.Get(0).([]interfaces.NodeConfig)
	return nodes, args.Error(1)
}

// StaticRegistrationService returns a fixed node list regardless of the organization.
type StaticRegistrationService []interfaces.NodeConfig

func (s StaticRegistrationService) FetchNodes(_ context.Context, _ string) ([]interfaces.NodeConfig, error) {
	return append([]interfaces.NodeConfig(nil), s...), nil
}
