// service/auth_service.go
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hasflow/gatekeeper/audit"
	"github.com/hasflow/gatekeeper/config"
	"github.com/hasflow/gatekeeper/dao"
	gk_errors "github.com/hasflow/gatekeeper/errors"
	logger "github.com/hasflow/gatekeeper/logging"
	"github.com/hasflow/gatekeeper/model"
	"github.com/hasflow/gatekeeper/token"
	"github.com/hasflow/gatekeeper/util"
)

// ResolveRequest carries the three locations a caller may present a
// credential in, plus the optional requested role.
type ResolveRequest struct {
	BodyToken           string
	QueryToken          string
	AuthorizationHeader string
	RequestedRole       string
}

// IAuthService is the only surface the gateway-facing webhook talks to.
type IAuthService interface {
	Resolve(ctx context.Context, req ResolveRequest) (*model.AuthDecision, error)
}

// AuthService resolves a request to an authorization decision:
// extract credential, verify it, consult the decision cache, and on a
// miss check the token's issuance time against the subject's last
// password change before caching the fresh decision.
type AuthService struct {
	verifier   token.Verifier
	userDAO    dao.IUserDAO
	cache      util.ICacheService
	validation *util.ValidationUtil
	eventBus   *util.EventBus
	cfg        config.AuthConfig
}

var _ IAuthService = &AuthService{}

// NewAuthService creates a new instance of AuthService. Every collaborator
// is handed in explicitly so the engine can run against substitutes.
func NewAuthService(
	verifier token.Verifier,
	userDAO dao.IUserDAO,
	cache util.ICacheService,
	validation *util.ValidationUtil,
	eventBus *util.EventBus,
	cfg config.AuthConfig,
) *AuthService {
	return &AuthService{
		verifier:   verifier,
		userDAO:    userDAO,
		cache:      cache,
		validation: validation,
		eventBus:   eventBus,
		cfg:        cfg,
	}
}

func (s *AuthService) Resolve(ctx context.Context, req ResolveRequest) (*model.AuthDecision, error) {
	credential := util.ExtractCredential(req.BodyToken, req.QueryToken, req.AuthorizationHeader)

	// No credential is not an error: the request proceeds as public and
	// neither the cache nor the user store is contacted.
	if credential == "" {
		return model.PublicDecision(), nil
	}

	claims, err := s.verifier.Verify(credential)
	if err != nil {
		s.publishRejection(ctx, "", err)
		return nil, err
	}

	// Guard against injection through a forged subject claim before the
	// id is used anywhere.
	if err := s.validation.ValidateUserID(claims.UserID); err != nil {
		s.publishRejection(ctx, claims.UserID, err)
		return nil, err
	}

	requestedRole := ""
	if s.cfg.RoleScoping {
		requestedRole = req.RequestedRole
	}

	if !s.cfg.CacheBypass {
		if cached := s.cachedDecision(ctx, claims.UserID, requestedRole); cached != nil {
			s.publishDecision(ctx, cached, true)
			return cached, nil
		}
	}

	user, err := s.userDAO.GetAuthInfo(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gk_errors.ErrUserNotFound) {
			// A verified token for a subject that no longer exists
			// degrades to public; nothing is cached.
			logger.Debug("Token subject not found, serving public decision",
				zap.String("userID", claims.UserID))
			return model.PublicDecision(), nil
		}
		if errors.Is(err, gk_errors.ErrInvalidUserID) {
			return nil, err
		}
		// Fail closed: never default to a user decision when the store
		// cannot answer.
		logger.Error("User store lookup failed", zap.Error(err), zap.String("userID", claims.UserID))
		return nil, gk_errors.ErrUserStoreUnavailable
	}

	if !s.stillValid(claims.IssuedAt, user.PasswordAt) {
		s.publishRejection(ctx, claims.UserID, gk_errors.ErrTokenInvalidated)
		// Deliberately not cached: a re-login right after a password
		// change must succeed immediately.
		return nil, gk_errors.ErrTokenInvalidated
	}

	decision := model.UserDecision(user.ID)

	if !s.cfg.CacheBypass {
		if err := s.cache.SetDecision(ctx, claims.UserID, requestedRole, decision, s.cfg.CacheTTL); err != nil {
			logger.Warn("Failed to cache decision", zap.Error(err), zap.String("userID", claims.UserID))
		}
	}

	s.publishDecision(ctx, decision, false)
	return decision, nil
}

// cachedDecision returns the cached decision for the subject, or nil on a
// miss. Cache failures are logged and treated as misses so the slower but
// correct path takes over.
func (s *AuthService) cachedDecision(ctx context.Context, userID, requestedRole string) *model.AuthDecision {
	cached, err := s.cache.GetDecision(ctx, userID, requestedRole)
	if err != nil {
		logger.Warn("Decision cache read failed, falling back to user store",
			zap.Error(err),
			zap.String("userID", userID))
		return nil
	}
	return cached
}

// stillValid reports whether a token issued at issuedAt survives the
// subject's last password change. The boundary is inclusive with a skew
// allowance: a token minted in the same transaction as the initial
// password write must not come out pre-invalidated.
func (s *AuthService) stillValid(issuedAt, changedAt time.Time) bool {
	if changedAt.IsZero() {
		return true
	}
	if issuedAt.IsZero() {
		return false
	}
	return !issuedAt.Before(changedAt.Add(-s.cfg.SkewTolerance))
}

func (s *AuthService) publishDecision(ctx context.Context, decision *model.AuthDecision, fromCache bool) {
	s.eventBus.Publish(ctx, util.EventDecisionServed, audit.AuthEvent{
		Timestamp: time.Now().UTC(),
		UserID:    decision.UserID,
		Action:    audit.ActionDecisionServed,
		Role:      decision.Role,
		FromCache: fromCache,
	})
}

func (s *AuthService) publishRejection(ctx context.Context, userID string, reason error) {
	s.eventBus.Publish(ctx, util.EventTokenRejected, audit.AuthEvent{
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Action:    audit.ActionTokenRejected,
		Reason:    reason.Error(),
	})
}
