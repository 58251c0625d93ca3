// util/notification_service.go

package util

import (
	"context"

	"go.uber.org/zap"

	logger "github.com/hasflow/gatekeeper/logging"
)

// NotificationService surfaces account lifecycle changes to operators.
// Actual delivery to users goes through the job queue; this is the
// in-process trail.
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

func (n *NotificationService) NotifyUserRegistered(ctx context.Context, userID string) error {
	logger.Info("NOTIFICATION: New user registered",
		zap.String("userID", userID))
	return nil
}

func (n *NotificationService) NotifyPasswordChanged(ctx context.Context, userID string) error {
	logger.Info("NOTIFICATION: User password changed",
		zap.String("userID", userID))
	return nil
}

func (n *NotificationService) NotifyUserDeleted(ctx context.Context, userID string) error {
	logger.Info("NOTIFICATION: User account destroyed",
		zap.String("userID", userID))
	return nil
}
