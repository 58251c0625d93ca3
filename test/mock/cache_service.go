// test/mock/cache_service.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/hasflow/gatekeeper/model"
)

// MockCacheService is a mock implementation of util.ICacheService
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetDecision(ctx context.Context, userID, requestedRole string) (*model.AuthDecision, error) {
	args := m.Called(ctx, userID, requestedRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthDecision), args.Error(1)
}

func (m *MockCacheService) SetDecision(ctx context.Context, userID, requestedRole string, decision *model.AuthDecision, ttl time.Duration) error {
	args := m.Called(ctx, userID, requestedRole, decision, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteUserDecisions(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
