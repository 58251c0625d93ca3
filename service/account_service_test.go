// service/account_service_test.go
package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	test_mock "github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	gk_errors "github.com/hasflow/gatekeeper/errors"
	logger "github.com/hasflow/gatekeeper/logging"
	"github.com/hasflow/gatekeeper/model"
	"github.com/hasflow/gatekeeper/queue"
	"github.com/hasflow/gatekeeper/service"
	"github.com/hasflow/gatekeeper/test/mock"
	"github.com/hasflow/gatekeeper/token"
	"github.com/hasflow/gatekeeper/util"
)

type accountFixture struct {
	dao      *mock.MockUserDAO
	cache    *mock.MockCacheService
	verifier *mock.MockVerifier
	enqueuer *mock.MockEnqueuer
	svc      *service.AccountService
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	issuer, err := token.NewIssuer("test-secret")
	assert.NoError(t, err)

	f := &accountFixture{
		dao:      new(mock.MockUserDAO),
		cache:    new(mock.MockCacheService),
		verifier: new(mock.MockVerifier),
		enqueuer: new(mock.MockEnqueuer),
	}
	f.svc = service.NewAccountService(
		f.dao,
		f.cache,
		f.verifier,
		issuer,
		util.NewValidationUtil(),
		f.enqueuer,
		util.NewNotificationService(),
		util.NewEventBus(),
	)
	return f
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return string(hash)
}

func TestAccountServiceLogin(t *testing.T) {
	logger.InitLogger()
	defer logger.Sync()

	t.Run("Success_ReturnsSignedToken", func(t *testing.T) {
		f := newAccountFixture(t)
		f.dao.On("GetUserByEmail", test_mock.Anything, "ada@example.com").Return(&model.User{
			ID:       "7",
			Email:    "ada@example.com",
			Password: hashOf(t, "correct horse"),
		}, nil)

		signedToken, err := f.svc.Login(context.Background(), "ada@example.com", "correct horse")

		assert.NoError(t, err)
		assert.NotEmpty(t, signedToken)
	})

	t.Run("WrongPassword_InvalidCredentials", func(t *testing.T) {
		f := newAccountFixture(t)
		f.dao.On("GetUserByEmail", test_mock.Anything, "ada@example.com").Return(&model.User{
			ID:       "7",
			Email:    "ada@example.com",
			Password: hashOf(t, "correct horse"),
		}, nil)

		_, err := f.svc.Login(context.Background(), "ada@example.com", "wrong horse")

		assert.ErrorIs(t, err, gk_errors.ErrInvalidCredentials)
	})

	t.Run("UnknownEmail_InvalidCredentials", func(t *testing.T) {
		// The same error as a wrong password, so login cannot be used to
		// probe which addresses have accounts.
		f := newAccountFixture(t)
		f.dao.On("GetUserByEmail", test_mock.Anything, "ghost@example.com").Return(nil, gk_errors.ErrUserNotFound)

		_, err := f.svc.Login(context.Background(), "ghost@example.com", "whatever")

		assert.ErrorIs(t, err, gk_errors.ErrInvalidCredentials)
	})
}

func TestAccountServiceRegister(t *testing.T) {
	logger.InitLogger()
	defer logger.Sync()

	t.Run("Success_CreatesUserAndQueuesVerification", func(t *testing.T) {
		f := newAccountFixture(t)
		f.dao.On("GetUserByEmail", test_mock.Anything, "new@example.com").Return(nil, gk_errors.ErrUserNotFound)
		f.dao.On("CreateUser", test_mock.Anything, "new@example.com", test_mock.Anything, test_mock.Anything).
			Return(&model.User{ID: "11", Email: "new@example.com"}, nil)
		f.enqueuer.On("Enqueue", test_mock.Anything, queue.JobSendVerificationEmail, test_mock.Anything).Return(nil)

		signedToken, err := f.svc.Register(context.Background(), "new@example.com", "a fine password")

		assert.NoError(t, err)
		assert.NotEmpty(t, signedToken)
		f.dao.AssertCalled(t, "CreateUser", test_mock.Anything, "new@example.com", test_mock.Anything, test_mock.Anything)
		f.enqueuer.AssertCalled(t, "Enqueue", test_mock.Anything, queue.JobSendVerificationEmail, test_mock.Anything)
	})

	t.Run("DuplicateEmail_Rejected", func(t *testing.T) {
		f := newAccountFixture(t)
		f.dao.On("GetUserByEmail", test_mock.Anything, "taken@example.com").Return(&model.User{ID: "7"}, nil)

		_, err := f.svc.Register(context.Background(), "taken@example.com", "a fine password")

		assert.ErrorIs(t, err, gk_errors.ErrEmailTaken)
		f.dao.AssertNotCalled(t, "CreateUser", test_mock.Anything, test_mock.Anything, test_mock.Anything, test_mock.Anything)
	})

	t.Run("BadEmail_Rejected", func(t *testing.T) {
		f := newAccountFixture(t)

		_, err := f.svc.Register(context.Background(), "not-an-email", "a fine password")

		assert.ErrorIs(t, err, gk_errors.ErrInvalidEmail)
	})
}

func TestAccountServiceChangePassword(t *testing.T) {
	logger.InitLogger()
	defer logger.Sync()

	t.Run("Success_PurgesCacheAroundStoreWrite", func(t *testing.T) {
		f := newAccountFixture(t)
		changedAt := time.Unix(5000, 0)

		var order []string
		f.verifier.On("Verify", "credential").Return(&model.VerifiedClaims{UserID: "7", IssuedAt: time.Unix(4000, 0)}, nil)
		f.dao.On("GetUserWithPassword", test_mock.Anything, "7").Return(&model.User{
			ID:       "7",
			Password: hashOf(t, "old password"),
		}, nil)
		f.cache.On("DeleteUserDecisions", test_mock.Anything, "7").Run(func(test_mock.Arguments) {
			order = append(order, "purge")
		}).Return(nil)
		f.dao.On("UpdateUserPassword", test_mock.Anything, "7", test_mock.Anything).Run(func(test_mock.Arguments) {
			order = append(order, "write")
		}).Return(changedAt, nil)

		passwordAt, err := f.svc.ChangePassword(context.Background(), "credential", "old password", "new password")

		assert.NoError(t, err)
		assert.Equal(t, changedAt, passwordAt)
		// Purge before the write, and again after, so no concurrently
		// re-cached decision survives the rotation.
		assert.Equal(t, []string{"purge", "write", "purge"}, order)
	})

	t.Run("WrongOldPassword_NoStoreWrite", func(t *testing.T) {
		f := newAccountFixture(t)
		f.verifier.On("Verify", "credential").Return(&model.VerifiedClaims{UserID: "7", IssuedAt: time.Unix(4000, 0)}, nil)
		f.dao.On("GetUserWithPassword", test_mock.Anything, "7").Return(&model.User{
			ID:       "7",
			Password: hashOf(t, "old password"),
		}, nil)

		_, err := f.svc.ChangePassword(context.Background(), "credential", "not the old password", "new password")

		assert.ErrorIs(t, err, gk_errors.ErrInvalidCredentials)
		f.dao.AssertNotCalled(t, "UpdateUserPassword", test_mock.Anything, test_mock.Anything, test_mock.Anything)
		f.cache.AssertNotCalled(t, "DeleteUserDecisions", test_mock.Anything, test_mock.Anything)
	})

	t.Run("PurgeFailure_FailsBeforeStoreWrite", func(t *testing.T) {
		f := newAccountFixture(t)
		f.verifier.On("Verify", "credential").Return(&model.VerifiedClaims{UserID: "7", IssuedAt: time.Unix(4000, 0)}, nil)
		f.dao.On("GetUserWithPassword", test_mock.Anything, "7").Return(&model.User{
			ID:       "7",
			Password: hashOf(t, "old password"),
		}, nil)
		f.cache.On("DeleteUserDecisions", test_mock.Anything, "7").Return(context.DeadlineExceeded)

		_, err := f.svc.ChangePassword(context.Background(), "credential", "old password", "new password")

		assert.Error(t, err)
		f.dao.AssertNotCalled(t, "UpdateUserPassword", test_mock.Anything, test_mock.Anything, test_mock.Anything)
	})

	t.Run("NoCredential_Rejected", func(t *testing.T) {
		f := newAccountFixture(t)

		_, err := f.svc.ChangePassword(context.Background(), "", "old password", "new password")

		assert.ErrorIs(t, err, gk_errors.ErrTokenMalformed)
	})
}

func TestAccountServiceDestroyUser(t *testing.T) {
	logger.InitLogger()
	defer logger.Sync()

	t.Run("Success_DeletesAndQueuesTeardown", func(t *testing.T) {
		f := newAccountFixture(t)
		f.verifier.On("Verify", "credential").Return(&model.VerifiedClaims{UserID: "7", IssuedAt: time.Unix(4000, 0)}, nil)
		f.dao.On("GetUserWithPassword", test_mock.Anything, "7").Return(&model.User{
			ID:       "7",
			Password: hashOf(t, "password"),
		}, nil)
		f.cache.On("DeleteUserDecisions", test_mock.Anything, "7").Return(nil)
		f.dao.On("DeleteUser", test_mock.Anything, "7").Return(nil)
		f.enqueuer.On("Enqueue", test_mock.Anything, queue.JobDestroyUserProfile, test_mock.Anything).Return(nil)

		err := f.svc.DestroyUser(context.Background(), "credential", "password")

		assert.NoError(t, err)
		f.dao.AssertCalled(t, "DeleteUser", test_mock.Anything, "7")
		f.cache.AssertNumberOfCalls(t, "DeleteUserDecisions", 2)
	})

	t.Run("WrongPassword_NothingDeleted", func(t *testing.T) {
		f := newAccountFixture(t)
		f.verifier.On("Verify", "credential").Return(&model.VerifiedClaims{UserID: "7", IssuedAt: time.Unix(4000, 0)}, nil)
		f.dao.On("GetUserWithPassword", test_mock.Anything, "7").Return(&model.User{
			ID:       "7",
			Password: hashOf(t, "password"),
		}, nil)

		err := f.svc.DestroyUser(context.Background(), "credential", "wrong")

		assert.ErrorIs(t, err, gk_errors.ErrInvalidCredentials)
		f.dao.AssertNotCalled(t, "DeleteUser", test_mock.Anything, test_mock.Anything)
	})
}

func TestAccountServicePasswordReset(t *testing.T) {
	logger.InitLogger()
	defer logger.Sync()

	t.Run("Request_UnknownEmailSucceedsSilently", func(t *testing.T) {
		f := newAccountFixture(t)
		f.dao.On("GetUserByEmail", test_mock.Anything, "ghost@example.com").Return(nil, gk_errors.ErrUserNotFound)

		err := f.svc.RequestPasswordReset(context.Background(), "ghost@example.com")

		assert.NoError(t, err)
		f.dao.AssertNotCalled(t, "SetPasswordResetToken", test_mock.Anything, test_mock.Anything, test_mock.Anything)
		f.enqueuer.AssertNotCalled(t, "Enqueue", test_mock.Anything, test_mock.Anything, test_mock.Anything)
	})

	t.Run("Request_StoresTokenAndQueuesEmail", func(t *testing.T) {
		f := newAccountFixture(t)
		f.dao.On("GetUserByEmail", test_mock.Anything, "ada@example.com").Return(&model.User{ID: "7", Email: "ada@example.com"}, nil)
		f.dao.On("SetPasswordResetToken", test_mock.Anything, "7", test_mock.Anything).Return(nil)
		f.enqueuer.On("Enqueue", test_mock.Anything, queue.JobSendPasswordResetEmail, test_mock.Anything).Return(nil)

		err := f.svc.RequestPasswordReset(context.Background(), "ada@example.com")

		assert.NoError(t, err)
		f.dao.AssertCalled(t, "SetPasswordResetToken", test_mock.Anything, "7", test_mock.Anything)
	})

	t.Run("Complete_UnknownToken_Rejected", func(t *testing.T) {
		f := newAccountFixture(t)
		f.dao.On("GetUserByPasswordResetToken", test_mock.Anything, "nope").Return(nil, gk_errors.ErrUserNotFound)

		_, err := f.svc.CompletePasswordReset(context.Background(), "nope", "new password")

		assert.ErrorIs(t, err, gk_errors.ErrInvalidResetToken)
	})

	t.Run("Complete_RotatesPasswordAndIssuesToken", func(t *testing.T) {
		f := newAccountFixture(t)
		f.dao.On("GetUserByPasswordResetToken", test_mock.Anything, "reset-token").Return(&model.User{ID: "7"}, nil)
		f.cache.On("DeleteUserDecisions", test_mock.Anything, "7").Return(nil)
		f.dao.On("UpdateUserPassword", test_mock.Anything, "7", test_mock.Anything).Return(time.Unix(5000, 0), nil)

		signedToken, err := f.svc.CompletePasswordReset(context.Background(), "reset-token", "new password")

		assert.NoError(t, err)
		assert.NotEmpty(t, signedToken)
		f.cache.AssertNumberOfCalls(t, "DeleteUserDecisions", 2)
	})
}
