// test/mock/queue.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEnqueuer is a mock implementation of queue.Enqueuer
type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(ctx context.Context, kind string, payload interface{}) error {
	args := m.Called(ctx, kind, payload)
	return args.Error(0)
}
