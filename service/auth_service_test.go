// service/auth_service_test.go
package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	test_mock "github.com/stretchr/testify/mock"

	"github.com/hasflow/gatekeeper/config"
	gk_errors "github.com/hasflow/gatekeeper/errors"
	logger "github.com/hasflow/gatekeeper/logging"
	"github.com/hasflow/gatekeeper/model"
	"github.com/hasflow/gatekeeper/service"
	"github.com/hasflow/gatekeeper/test/mock"
	"github.com/hasflow/gatekeeper/util"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:     "test-secret",
		JWTAlgorithm:  "HS256",
		CacheTTL:      30 * time.Minute,
		SkewTolerance: 10 * time.Second,
	}
}

// fakeCache is an in-memory stand-in for the Redis-backed decision cache,
// used where tests need real get/set/delete semantics across calls.
type fakeCache struct {
	mu        sync.Mutex
	decisions map[string]*model.AuthDecision
}

func newFakeCache() *fakeCache {
	return &fakeCache{decisions: make(map[string]*model.AuthDecision)}
}

func (f *fakeCache) key(userID, requestedRole string) string {
	if requestedRole != "" {
		return userID + ":" + requestedRole
	}
	return userID
}

func (f *fakeCache) GetDecision(ctx context.Context, userID, requestedRole string) (*model.AuthDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decisions[f.key(userID, requestedRole)], nil
}

func (f *fakeCache) SetDecision(ctx context.Context, userID, requestedRole string, decision *model.AuthDecision, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions[f.key(userID, requestedRole)] = decision
	return nil
}

func (f *fakeCache) DeleteUserDecisions(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.decisions {
		if key == userID || len(key) > len(userID) && key[:len(userID)+1] == userID+":" {
			delete(f.decisions, key)
		}
	}
	return nil
}

func TestAuthServiceResolve(t *testing.T) {
	logger.InitLogger()
	defer logger.Sync()

	t.Run("NoCredential_ReturnsPublicWithoutAnyLookup", func(t *testing.T) {
		mockVerifier := new(mock.MockVerifier)
		mockDAO := new(mock.MockUserDAO)
		mockCache := new(mock.MockCacheService)
		authService := service.NewAuthService(mockVerifier, mockDAO, mockCache, util.NewValidationUtil(), util.NewEventBus(), testAuthConfig())

		decision, err := authService.Resolve(context.Background(), service.ResolveRequest{})

		assert.NoError(t, err)
		assert.Equal(t, model.PublicDecision(), decision)
		assert.Empty(t, decision.UserID)
		mockVerifier.AssertNotCalled(t, "Verify", test_mock.Anything)
		mockCache.AssertNotCalled(t, "GetDecision", test_mock.Anything, test_mock.Anything, test_mock.Anything)
		mockDAO.AssertNotCalled(t, "GetAuthInfo", test_mock.Anything, test_mock.Anything)
	})

	t.Run("InvalidSignature_ReturnsMalformedNotPublic", func(t *testing.T) {
		mockVerifier := new(mock.MockVerifier)
		mockDAO := new(mock.MockUserDAO)
		mockCache := new(mock.MockCacheService)
		authService := service.NewAuthService(mockVerifier, mockDAO, mockCache, util.NewValidationUtil(), util.NewEventBus(), testAuthConfig())

		mockVerifier.On("Verify", "bad-token").Return(nil, gk_errors.ErrTokenMalformed)

		decision, err := authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "bad-token"})

		assert.Nil(t, decision)
		assert.ErrorIs(t, err, gk_errors.ErrTokenMalformed)
		mockDAO.AssertNotCalled(t, "GetAuthInfo", test_mock.Anything, test_mock.Anything)
	})

	t.Run("MalformedSubjectClaim_Rejected", func(t *testing.T) {
		mockVerifier := new(mock.MockVerifier)
		mockDAO := new(mock.MockUserDAO)
		mockCache := new(mock.MockCacheService)
		authService := service.NewAuthService(mockVerifier, mockDAO, mockCache, util.NewValidationUtil(), util.NewEventBus(), testAuthConfig())

		mockVerifier.On("Verify", "crafted").Return(&model.VerifiedClaims{
			UserID:   "1 OR substring-of-an-injection-attempt",
			IssuedAt: time.Now(),
		}, nil)

		decision, err := authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "crafted"})

		assert.Nil(t, decision)
		assert.ErrorIs(t, err, gk_errors.ErrInvalidUserID)
		mockDAO.AssertNotCalled(t, "GetAuthInfo", test_mock.Anything, test_mock.Anything)
	})

	t.Run("TokenIssuedBeforePasswordChange_Invalidated", func(t *testing.T) {
		mockVerifier := new(mock.MockVerifier)
		mockDAO := new(mock.MockUserDAO)
		authService := service.NewAuthService(mockVerifier, mockDAO, newFakeCache(), util.NewValidationUtil(), util.NewEventBus(), testAuthConfig())

		// Token minted at t=1000, password changed at t=1200, skew 10s.
		mockVerifier.On("Verify", "stale").Return(&model.VerifiedClaims{UserID: "42", IssuedAt: time.Unix(1000, 0)}, nil)
		mockDAO.On("GetAuthInfo", test_mock.Anything, "42").Return(&model.User{ID: "42", PasswordAt: time.Unix(1200, 0)}, nil)

		decision, err := authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "stale"})

		assert.Nil(t, decision)
		assert.ErrorIs(t, err, gk_errors.ErrTokenInvalidated)
	})

	t.Run("RegistrationRace_InsideSkewTolerance_Allowed", func(t *testing.T) {
		mockVerifier := new(mock.MockVerifier)
		mockDAO := new(mock.MockUserDAO)
		authService := service.NewAuthService(mockVerifier, mockDAO, newFakeCache(), util.NewValidationUtil(), util.NewEventBus(), testAuthConfig())

		// Token minted at t=1195 while password_at landed at t=1200:
		// 1195 >= 1200-10, so the first token survives its own signup.
		mockVerifier.On("Verify", "fresh").Return(&model.VerifiedClaims{UserID: "42", IssuedAt: time.Unix(1195, 0)}, nil)
		mockDAO.On("GetAuthInfo", test_mock.Anything, "42").Return(&model.User{ID: "42", PasswordAt: time.Unix(1200, 0)}, nil)

		decision, err := authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "fresh"})

		assert.NoError(t, err)
		assert.Equal(t, model.RoleUser, decision.Role)
		assert.Equal(t, "42", decision.UserID)
	})

	t.Run("ExactSkewBoundary_Allowed", func(t *testing.T) {
		mockVerifier := new(mock.MockVerifier)
		mockDAO := new(mock.MockUserDAO)
		authService := service.NewAuthService(mockVerifier, mockDAO, newFakeCache(), util.NewValidationUtil(), util.NewEventBus(), testAuthConfig())

		mockVerifier.On("Verify", "boundary").Return(&model.VerifiedClaims{UserID: "42", IssuedAt: time.Unix(1190, 0)}, nil)
		mockDAO.On("GetAuthInfo", test_mock.Anything, "42").Return(&model.User{ID: "42", PasswordAt: time.Unix(1200, 0)}, nil)

		decision, err := authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "boundary"})

		assert.NoError(t, err)
		assert.Equal(t, model.RoleUser, decision.Role)
	})

	t.Run("SecondResolve_ServedFromCache", func(t *testing.T) {
		mockVerifier := new(mock.MockVerifier)
		mockDAO := new(mock.MockUserDAO)
		authService := service.NewAuthService(mockVerifier, mockDAO, newFakeCache(), util.NewValidationUtil(), util.NewEventBus(), testAuthConfig())

		mockVerifier.On("Verify", "valid").Return(&model.VerifiedClaims{UserID: "7", IssuedAt: time.Unix(2000, 0)}, nil)
		mockDAO.On("GetAuthInfo", test_mock.Anything, "7").Return(&model.User{ID: "7", PasswordAt: time.Unix(1500, 0)}, nil).Once()

		first, err := authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "valid"})
		assert.NoError(t, err)

		second, err := authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "valid"})
		assert.NoError(t, err)

		assert.Equal(t, first, second)
		// Only the first call may touch the user store.
		mockDAO.AssertNumberOfCalls(t, "GetAuthInfo", 1)
	})

	t.Run("CacheBypass_AlwaysHitsUserStore", func(t *testing.T) {
		cfg := testAuthConfig()
		cfg.CacheBypass = true

		mockVerifier := new(mock.MockVerifier)
		mockDAO := new(mock.MockUserDAO)
		cache := newFakeCache()
		// A primed cache entry must be ignored with the bypass on.
		cache.SetDecision(context.Background(), "7", "", model.UserDecision("7"), time.Minute)
		authService := service.NewAuthService(mockVerifier, mockDAO, cache, util.NewValidationUtil(), util.NewEventBus(), cfg)

		mockVerifier.On("Verify", "valid").Return(&model.VerifiedClaims{UserID: "7", IssuedAt: time.Unix(2000, 0)}, nil)
		mockDAO.On("GetAuthInfo", test_mock.Anything, "7").Return(&model.User{ID: "7", PasswordAt: time.Unix(1500, 0)}, nil)

		_, err := authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "valid"})
		assert.NoError(t, err)
		_, err = authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "valid"})
		assert.NoError(t, err)

		mockDAO.AssertNumberOfCalls(t, "GetAuthInfo", 2)
	})

	t.Run("CacheReadError_FallsBackToUserStore", func(t *testing.T) {
		mockVerifier := new(mock.MockVerifier)
		mockDAO := new(mock.MockUserDAO)
		mockCache := new(mock.MockCacheService)
		authService := service.NewAuthService(mockVerifier, mockDAO, mockCache, util.NewValidationUtil(), util.NewEventBus(), testAuthConfig())

		mockVerifier.On("Verify", "valid").Return(&model.VerifiedClaims{UserID: "7", IssuedAt: time.Unix(2000, 0)}, nil)
		mockCache.On("GetDecision", test_mock.Anything, "7", "").Return(nil, context.DeadlineExceeded)
		mockCache.On("SetDecision", test_mock.Anything, "7", "", test_mock.Anything, test_mock.Anything).Return(nil)
		mockDAO.On("GetAuthInfo", test_mock.Anything, "7").Return(&model.User{ID: "7", PasswordAt: time.Unix(1500, 0)}, nil)

		decision, err := authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "valid"})

		assert.NoError(t, err)
		assert.Equal(t, model.RoleUser, decision.Role)
	})

	t.Run("UserStoreError_FailsClosed", func(t *testing.T) {
		mockVerifier := new(mock.MockVerifier)
		mockDAO := new(mock.MockUserDAO)
		authService := service.NewAuthService(mockVerifier, mockDAO, newFakeCache(), util.NewValidationUtil(), util.NewEventBus(), testAuthConfig())

		mockVerifier.On("Verify", "valid").Return(&model.VerifiedClaims{UserID: "7", IssuedAt: time.Unix(2000, 0)}, nil)
		mockDAO.On("GetAuthInfo", test_mock.Anything, "7").Return(nil, gk_errors.ErrUserStoreUnavailable)

		decision, err := authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "valid"})

		assert.Nil(t, decision)
		assert.ErrorIs(t, err, gk_errors.ErrUserStoreUnavailable)
	})

	t.Run("UnknownSubject_DegradesToPublic", func(t *testing.T) {
		mockVerifier := new(mock.MockVerifier)
		mockDAO := new(mock.MockUserDAO)
		cache := newFakeCache()
		authService := service.NewAuthService(mockVerifier, mockDAO, cache, util.NewValidationUtil(), util.NewEventBus(), testAuthConfig())

		mockVerifier.On("Verify", "orphan").Return(&model.VerifiedClaims{UserID: "9", IssuedAt: time.Unix(2000, 0)}, nil)
		mockDAO.On("GetAuthInfo", test_mock.Anything, "9").Return(nil, gk_errors.ErrUserNotFound)

		decision, err := authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "orphan"})

		assert.NoError(t, err)
		assert.Equal(t, model.PublicDecision(), decision)
		// Not cached: the subject may be recreated at any moment.
		cached, _ := cache.GetDecision(context.Background(), "9", "")
		assert.Nil(t, cached)
	})

	t.Run("InvalidatedDecision_NotCached", func(t *testing.T) {
		mockVerifier := new(mock.MockVerifier)
		mockDAO := new(mock.MockUserDAO)
		cache := newFakeCache()
		authService := service.NewAuthService(mockVerifier, mockDAO, cache, util.NewValidationUtil(), util.NewEventBus(), testAuthConfig())

		mockVerifier.On("Verify", "stale").Return(&model.VerifiedClaims{UserID: "42", IssuedAt: time.Unix(1000, 0)}, nil)
		mockDAO.On("GetAuthInfo", test_mock.Anything, "42").Return(&model.User{ID: "42", PasswordAt: time.Unix(1200, 0)}, nil)

		_, err := authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "stale"})
		assert.ErrorIs(t, err, gk_errors.ErrTokenInvalidated)

		cached, _ := cache.GetDecision(context.Background(), "42", "")
		assert.Nil(t, cached)
	})

	t.Run("RoleScoping_KeysCacheByRequestedRole", func(t *testing.T) {
		cfg := testAuthConfig()
		cfg.RoleScoping = true

		mockVerifier := new(mock.MockVerifier)
		mockDAO := new(mock.MockUserDAO)
		cache := newFakeCache()
		authService := service.NewAuthService(mockVerifier, mockDAO, cache, util.NewValidationUtil(), util.NewEventBus(), cfg)

		mockVerifier.On("Verify", "valid").Return(&model.VerifiedClaims{UserID: "7", IssuedAt: time.Unix(2000, 0)}, nil)
		mockDAO.On("GetAuthInfo", test_mock.Anything, "7").Return(&model.User{ID: "7", PasswordAt: time.Unix(1500, 0)}, nil)

		_, err := authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "valid", RequestedRole: "user"})
		assert.NoError(t, err)

		scoped, _ := cache.GetDecision(context.Background(), "7", "user")
		assert.NotNil(t, scoped)
		unscoped, _ := cache.GetDecision(context.Background(), "7", "")
		assert.Nil(t, unscoped)
	})

	t.Run("StaleCacheGoneAfterPasswordChangePurge", func(t *testing.T) {
		// Once the subject's entries are purged, the next resolve must
		// consult the store and reject the superseded token.
		mockVerifier := new(mock.MockVerifier)
		mockDAO := new(mock.MockUserDAO)
		cache := newFakeCache()
		authService := service.NewAuthService(mockVerifier, mockDAO, cache, util.NewValidationUtil(), util.NewEventBus(), testAuthConfig())

		mockVerifier.On("Verify", "old-token").Return(&model.VerifiedClaims{UserID: "42", IssuedAt: time.Unix(1000, 0)}, nil)
		mockDAO.On("GetAuthInfo", test_mock.Anything, "42").Return(&model.User{ID: "42", PasswordAt: time.Unix(1200, 0)}, nil)

		// Decision cached while the old password was still current.
		cache.SetDecision(context.Background(), "42", "", model.UserDecision("42"), time.Minute)
		// Password change purges synchronously.
		assert.NoError(t, cache.DeleteUserDecisions(context.Background(), "42"))

		decision, err := authService.Resolve(context.Background(), service.ResolveRequest{BodyToken: "old-token"})

		assert.Nil(t, decision)
		assert.ErrorIs(t, err, gk_errors.ErrTokenInvalidated)
	})
}
