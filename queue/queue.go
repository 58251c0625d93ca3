// queue/queue.go
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/hasflow/gatekeeper/logging"
)

// Job kinds consumed by the external worker fleet.
const (
	JobSendVerificationEmail  = "send_verification_email"
	JobSendPasswordResetEmail = "send_password_reset_email"
	JobDestroyUserProfile     = "destroy_user_profile"
)

// Enqueuer is the durable job queue collaborator. This service only
// enqueues; processing, retry and delivery all happen in the workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, payload interface{}) error
}

type job struct {
	Kind       string      `json:"kind"`
	Payload    interface{} `json:"payload"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
}

// RedisQueue pushes jobs onto per-kind Redis lists, the transport the
// workers consume from.
type RedisQueue struct {
	client *redis.Client
}

var _ Enqueuer = &RedisQueue{}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Enqueue(ctx context.Context, kind string, payload interface{}) error {
	data, err := json.Marshal(job{
		Kind:       kind,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	key := "jobs:v1:" + kind
	if err := q.client.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	logger.Debug("Job enqueued", zap.String("kind", kind))
	return nil
}
