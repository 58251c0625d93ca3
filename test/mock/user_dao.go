// test/mock/user_dao.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/hasflow/gatekeeper/model"
)

// MockUserDAO is a mock implementation of dao.IUserDAO
type MockUserDAO struct {
	mock.Mock
}

func (m *MockUserDAO) GetAuthInfo(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserDAO) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserDAO) GetUserWithPassword(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserDAO) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserDAO) GetUserByPasswordResetToken(ctx context.Context, resetToken string) (*model.User, error) {
	args := m.Called(ctx, resetToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserDAO) CreateUser(ctx context.Context, email, passwordHash, verificationToken string) (*model.User, error) {
	args := m.Called(ctx, email, passwordHash, verificationToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserDAO) UpdateUserPassword(ctx context.Context, userID, passwordHash string) (time.Time, error) {
	args := m.Called(ctx, userID, passwordHash)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockUserDAO) SetPasswordResetToken(ctx context.Context, userID, resetToken string) error {
	args := m.Called(ctx, userID, resetToken)
	return args.Error(0)
}

func (m *MockUserDAO) DeleteUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
