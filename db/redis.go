// db/redis.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/hasflow/gatekeeper/logging"
	"github.com/hasflow/gatekeeper/model"
)

var RedisClient *redis.Client

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

const decisionKeyPrefix = "auth/user/"

// DecisionCacheKey derives the cache key for a subject's authorization
// decision. With role scoping enabled the requested role becomes part of
// the key so different roles cache independently.
func DecisionCacheKey(userID, requestedRole string) string {
	key := decisionKeyPrefix + userID
	if requestedRole != "" {
		key = key + ":" + requestedRole
	}
	return key
}

func CacheDecision(ctx context.Context, key string, decision *model.AuthDecision, ttl time.Duration) error {
	decisionJSON, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}

	err = RedisClient.Set(ctx, key, decisionJSON, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to cache decision: %w", err)
	}

	logger.Debug("Decision cached successfully", zap.String("key", key))
	return nil
}

func GetCachedDecision(ctx context.Context, key string) (*model.AuthDecision, error) {
	decisionJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Decision not found in cache", zap.String("key", key))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get decision from cache: %w", err)
	}

	var decision model.AuthDecision
	err = json.Unmarshal([]byte(decisionJSON), &decision)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal decision: %w", err)
	}

	logger.Debug("Decision retrieved from cache", zap.String("key", key))
	return &decision, nil
}

// DeleteCachedDecisions removes the subject's base decision entry plus
// every role-scoped variant. Called synchronously whenever the subject's
// credentials change.
func DeleteCachedDecisions(ctx context.Context, userID string) error {
	keys := []string{DecisionCacheKey(userID, "")}

	iter := RedisClient.Scan(ctx, 0, decisionKeyPrefix+userID+":*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan decision keys: %w", err)
	}

	if err := RedisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete decisions from cache: %w", err)
	}

	logger.Debug("Decisions deleted from cache",
		zap.String("userID", userID),
		zap.Int("keys", len(keys)))
	return nil
}
