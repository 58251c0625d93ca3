// test/mock/auth_service.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/hasflow/gatekeeper/model"
	"github.com/hasflow/gatekeeper/service"
)

// MockAuthService is a mock implementation of service.IAuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Resolve(ctx context.Context, req service.ResolveRequest) (*model.AuthDecision, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthDecision), args.Error(1)
}

// MockAccountService is a mock implementation of service.IAccountService
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAccountService) Register(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAccountService) Whoami(ctx context.Context, credential string) (*model.User, error) {
	args := m.Called(ctx, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAccountService) ChangePassword(ctx context.Context, credential, oldPassword, newPassword string) (time.Time, error) {
	args := m.Called(ctx, credential, oldPassword, newPassword)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockAccountService) DestroyUser(ctx context.Context, credential, password string) error {
	args := m.Called(ctx, credential, password)
	return args.Error(0)
}

func (m *MockAccountService) RequestPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockAccountService) CompletePasswordReset(ctx context.Context, resetToken, newPassword string) (string, error) {
	args := m.Called(ctx, resetToken, newPassword)
	return args.String(0), args.Error(1)
}
