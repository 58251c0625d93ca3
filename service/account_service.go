// service/account_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hasflow/gatekeeper/audit"
	"github.com/hasflow/gatekeeper/dao"
	gk_errors "github.com/hasflow/gatekeeper/errors"
	logger "github.com/hasflow/gatekeeper/logging"
	"github.com/hasflow/gatekeeper/model"
	"github.com/hasflow/gatekeeper/queue"
	"github.com/hasflow/gatekeeper/token"
	"github.com/hasflow/gatekeeper/util"
)

const bcryptCost = 10

// IAccountService defines the account lifecycle operations behind the
// Hasura action endpoints.
type IAccountService interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, email, password string) (string, error)
	Whoami(ctx context.Context, credential string) (*model.User, error)
	ChangePassword(ctx context.Context, credential, oldPassword, newPassword string) (time.Time, error)
	DestroyUser(ctx context.Context, credential, password string) error
	RequestPasswordReset(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, resetToken, newPassword string) (string, error)
}

// AccountService handles business logic for account operations. Any
// operation that supersedes existing credentials purges the subject's
// cached decisions before it reports success.
type AccountService struct {
	userDAO         dao.IUserDAO
	cache           util.ICacheService
	verifier        token.Verifier
	issuer          *token.Issuer
	validation      *util.ValidationUtil
	enqueuer        queue.Enqueuer
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IAccountService = &AccountService{}

// NewAccountService creates a new instance of AccountService
func NewAccountService(
	userDAO dao.IUserDAO,
	cache util.ICacheService,
	verifier token.Verifier,
	issuer *token.Issuer,
	validation *util.ValidationUtil,
	enqueuer queue.Enqueuer,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) *AccountService {
	service := &AccountService{
		userDAO:         userDAO,
		cache:           cache,
		verifier:        verifier,
		issuer:          issuer,
		validation:      validation,
		enqueuer:        enqueuer,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe(util.EventUserRegistered, service.handleUserRegistered)
	eventBus.Subscribe(util.EventPasswordChanged, service.handlePasswordChanged)
	eventBus.Subscribe(util.EventUserDeleted, service.handleUserDeleted)

	return service
}

func (s *AccountService) handleUserRegistered(ctx context.Context, event util.Event) error {
	authEvent, ok := event.Payload.(audit.AuthEvent)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", event.Payload)
	}
	return s.notificationSvc.NotifyUserRegistered(ctx, authEvent.UserID)
}

func (s *AccountService) handlePasswordChanged(ctx context.Context, event util.Event) error {
	authEvent, ok := event.Payload.(audit.AuthEvent)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", event.Payload)
	}
	return s.notificationSvc.NotifyPasswordChanged(ctx, authEvent.UserID)
}

func (s *AccountService) handleUserDeleted(ctx context.Context, event util.Event) error {
	authEvent, ok := event.Payload.(audit.AuthEvent)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", event.Payload)
	}
	return s.notificationSvc.NotifyUserDeleted(ctx, authEvent.UserID)
}

// Login verifies an email/password pair and mints a token for the user.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	if err := s.validation.ValidateEmail(email); err != nil {
		return "", err
	}

	user, err := s.userDAO.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gk_errors.ErrUserNotFound) {
			return "", gk_errors.ErrInvalidCredentials
		}
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", gk_errors.ErrInvalidCredentials
	}

	signedToken, err := s.issuer.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	logger.Info("User logged in", zap.String("userID", user.ID))
	return signedToken, nil
}

// Register creates a user, queues the verification email and mints the
// user's first token.
func (s *AccountService) Register(ctx context.Context, email, password string) (string, error) {
	if err := s.validation.ValidateEmail(email); err != nil {
		return "", err
	}
	if err := s.validation.ValidatePassword(password); err != nil {
		return "", err
	}

	_, err := s.userDAO.GetUserByEmail(ctx, email)
	if err == nil {
		return "", gk_errors.ErrEmailTaken
	}
	if !errors.Is(err, gk_errors.ErrUserNotFound) {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	verificationToken := uuid.NewString()
	user, err := s.userDAO.CreateUser(ctx, email, string(hash), verificationToken)
	if err != nil {
		return "", err
	}

	if err := s.enqueuer.Enqueue(ctx, queue.JobSendVerificationEmail, map[string]string{
		"user_id": user.ID,
		"email":   email,
		"token":   verificationToken,
	}); err != nil {
		logger.Error("Failed to enqueue verification email", zap.Error(err), zap.String("userID", user.ID))
	}

	s.eventBus.Publish(ctx, util.EventUserRegistered, audit.AuthEvent{
		Timestamp: time.Now().UTC(),
		UserID:    user.ID,
		Action:    audit.ActionUserRegistered,
	})

	signedToken, err := s.issuer.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	logger.Info("User registered", zap.String("userID", user.ID))
	return signedToken, nil
}

// Whoami resolves a credential to the user record behind it.
func (s *AccountService) Whoami(ctx context.Context, credential string) (*model.User, error) {
	user, err := s.subjectFromCredential(ctx, credential, false)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword swaps the subject's password after verifying the old
// one. The subject's cached decisions are purged synchronously before and
// after the store write, so no caller ever gets a stale user decision for
// the superseded password; only then does the call return.
func (s *AccountService) ChangePassword(ctx context.Context, credential, oldPassword, newPassword string) (time.Time, error) {
	if err := s.validation.ValidatePassword(newPassword); err != nil {
		return time.Time{}, err
	}

	user, err := s.subjectFromCredential(ctx, credential, true)
	if err != nil {
		return time.Time{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return time.Time{}, gk_errors.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to hash password: %w", err)
	}

	passwordAt, err := s.rotatePassword(ctx, user.ID, string(hash))
	if err != nil {
		return time.Time{}, err
	}

	logger.Info("User password changed", zap.String("userID", user.ID))
	return passwordAt, nil
}

// DestroyUser deletes the account after re-verifying the password, purges
// its cached decisions and queues the profile teardown job.
func (s *AccountService) DestroyUser(ctx context.Context, credential, password string) error {
	user, err := s.subjectFromCredential(ctx, credential, true)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return gk_errors.ErrInvalidCredentials
	}

	if err := s.cache.DeleteUserDecisions(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to purge cached decisions: %w", err)
	}

	if err := s.userDAO.DeleteUser(ctx, user.ID); err != nil {
		return err
	}

	if err := s.cache.DeleteUserDecisions(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to purge cached decisions: %w", err)
	}

	if err := s.enqueuer.Enqueue(ctx, queue.JobDestroyUserProfile, map[string]string{
		"user_id": user.ID,
	}); err != nil {
		logger.Error("Failed to enqueue profile teardown", zap.Error(err), zap.String("userID", user.ID))
	}

	s.eventBus.Publish(ctx, util.EventUserDeleted, audit.AuthEvent{
		Timestamp: time.Now().UTC(),
		UserID:    user.ID,
		Action:    audit.ActionUserDestroyed,
	})

	logger.Info("User destroyed", zap.String("userID", user.ID))
	return nil
}

// RequestPasswordReset stores a reset token and queues the reset email.
// Unknown emails succeed silently so the endpoint cannot be used to probe
// which addresses have accounts.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := s.validation.ValidateEmail(email); err != nil {
		return err
	}

	user, err := s.userDAO.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gk_errors.ErrUserNotFound) {
			logger.Debug("Password reset requested for unknown email")
			return nil
		}
		return err
	}

	resetToken := uuid.NewString()
	if err := s.userDAO.SetPasswordResetToken(ctx, user.ID, resetToken); err != nil {
		return err
	}

	if err := s.enqueuer.Enqueue(ctx, queue.JobSendPasswordResetEmail, map[string]string{
		"user_id": user.ID,
		"email":   email,
		"token":   resetToken,
	}); err != nil {
		logger.Error("Failed to enqueue password reset email", zap.Error(err), zap.String("userID", user.ID))
	}

	return nil
}

// CompletePasswordReset consumes a reset token, rotates the password and
// hands back a fresh login token.
func (s *AccountService) CompletePasswordReset(ctx context.Context, resetToken, newPassword string) (string, error) {
	if resetToken == "" {
		return "", gk_errors.ErrInvalidResetToken
	}
	if err := s.validation.ValidatePassword(newPassword); err != nil {
		return "", err
	}

	user, err := s.userDAO.GetUserByPasswordResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, gk_errors.ErrUserNotFound) {
			return "", gk_errors.ErrInvalidResetToken
		}
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	if _, err := s.rotatePassword(ctx, user.ID, string(hash)); err != nil {
		return "", err
	}

	signedToken, err := s.issuer.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	logger.Info("Password reset completed", zap.String("userID", user.ID))
	return signedToken, nil
}

// rotatePassword writes a new hash with the cache purge ordering the
// decision engine relies on: purge, write, purge again. The second purge
// evicts any stale decision a concurrent resolve may have re-cached
// between the first purge and the store write. Either purge failing fails
// the whole operation, so success always means the cache is clean.
func (s *AccountService) rotatePassword(ctx context.Context, userID, passwordHash string) (time.Time, error) {
	if err := s.cache.DeleteUserDecisions(ctx, userID); err != nil {
		return time.Time{}, fmt.Errorf("failed to purge cached decisions: %w", err)
	}

	passwordAt, err := s.userDAO.UpdateUserPassword(ctx, userID, passwordHash)
	if err != nil {
		return time.Time{}, err
	}

	if err := s.cache.DeleteUserDecisions(ctx, userID); err != nil {
		return time.Time{}, fmt.Errorf("failed to purge cached decisions: %w", err)
	}

	s.eventBus.Publish(ctx, util.EventPasswordChanged, audit.AuthEvent{
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Action:    audit.ActionPasswordChanged,
	})

	return passwordAt, nil
}

// subjectFromCredential verifies a bearer credential and loads its
// subject from the store.
func (s *AccountService) subjectFromCredential(ctx context.Context, credential string, withPassword bool) (*model.User, error) {
	if credential == "" {
		return nil, gk_errors.ErrTokenMalformed
	}

	claims, err := s.verifier.Verify(credential)
	if err != nil {
		return nil, err
	}

	if err := s.validation.ValidateUserID(claims.UserID); err != nil {
		return nil, err
	}

	if withPassword {
		return s.userDAO.GetUserWithPassword(ctx, claims.UserID)
	}
	return s.userDAO.GetUserByID(ctx, claims.UserID)
}
