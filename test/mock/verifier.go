// test/mock/verifier.go
package mock

import (
	"github.com/stretchr/testify/mock"

	"github.com/hasflow/gatekeeper/model"
)

// MockVerifier is a mock implementation of token.Verifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(tokenString string) (*model.VerifiedClaims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VerifiedClaims), args.Error(1)
}
