// util/cache_service.go

package util

import (
	"context"
	"time"

	"github.com/hasflow/gatekeeper/config"
	"github.com/hasflow/gatekeeper/db"
	"github.com/hasflow/gatekeeper/model"
)

// ICacheService is the decision cache the resolver talks to. The cache is
// an optimization only: every method call is bounded by the configured
// Redis operation timeout, and callers treat any error as a miss.
type ICacheService interface {
	GetDecision(ctx context.Context, userID, requestedRole string) (*model.AuthDecision, error)
	SetDecision(ctx context.Context, userID, requestedRole string, decision *model.AuthDecision, ttl time.Duration) error
	DeleteUserDecisions(ctx context.Context, userID string) error
}

type CacheService struct{}

var _ ICacheService = &CacheService{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) GetDecision(ctx context.Context, userID, requestedRole string) (*model.AuthDecision, error) {
	ctx, cancel := c.boundedCtx(ctx)
	defer cancel()
	return db.GetCachedDecision(ctx, db.DecisionCacheKey(userID, requestedRole))
}

func (c *CacheService) SetDecision(ctx context.Context, userID, requestedRole string, decision *model.AuthDecision, ttl time.Duration) error {
	ctx, cancel := c.boundedCtx(ctx)
	defer cancel()
	return db.CacheDecision(ctx, db.DecisionCacheKey(userID, requestedRole), decision, ttl)
}

func (c *CacheService) DeleteUserDecisions(ctx context.Context, userID string) error {
	ctx, cancel := c.boundedCtx(ctx)
	defer cancel()
	return db.DeleteCachedDecisions(ctx, userID)
}

func (c *CacheService) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := config.GetDuration("redis.opTimeout")
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
