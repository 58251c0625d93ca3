// dao/user_dao.go
package dao

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	gk_errors "github.com/hasflow/gatekeeper/errors"
	logger "github.com/hasflow/gatekeeper/logging"
	"github.com/hasflow/gatekeeper/model"
	helper_util "github.com/hasflow/gatekeeper/util/helper"
)

// IUserDAO is the narrow view of the external user store this service
// needs. The store itself is a Hasura GraphQL engine; every method costs
// one round trip.
type IUserDAO interface {
	// GetAuthInfo fetches only what the invalidation check needs: the
	// subject's id and last password-change timestamp.
	GetAuthInfo(ctx context.Context, userID string) (*model.User, error)
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	GetUserWithPassword(ctx context.Context, userID string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByPasswordResetToken(ctx context.Context, resetToken string) (*model.User, error)
	CreateUser(ctx context.Context, email, passwordHash, verificationToken string) (*model.User, error)
	// UpdateUserPassword writes the new hash, clears any pending reset
	// token and stamps password_at, returning the new timestamp.
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) (time.Time, error)
	SetPasswordResetToken(ctx context.Context, userID, resetToken string) error
	DeleteUser(ctx context.Context, userID string) error
}

// UserDAO talks to the Hasura GraphQL endpoint with admin rights. All
// query arguments travel as GraphQL variables, never interpolated into
// the query string.
type UserDAO struct {
	baseURL     string
	adminSecret string
	httpClient  *http.Client
}

var _ IUserDAO = &UserDAO{}

func NewUserDAO(baseURL, adminSecret string, timeout time.Duration) *UserDAO {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &UserDAO{
		baseURL:     baseURL,
		adminSecret: adminSecret,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// userRecord mirrors the users table columns as Hasura serializes them.
type userRecord struct {
	ID            json.Number `json:"id"`
	Email         string      `json:"email"`
	Password      string      `json:"password"`
	PasswordAt    string      `json:"password_at"`
	EmailVerified bool        `json:"email_verified"`
}

func (r *userRecord) toModel() (*model.User, error) {
	user := &model.User{
		ID:            r.ID.String(),
		Email:         r.Email,
		Password:      r.Password,
		EmailVerified: r.EmailVerified,
	}
	if r.PasswordAt != "" {
		passwordAt, err := helper_util.ParseTime(r.PasswordAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse password_at: %w", err)
		}
		user.PasswordAt = passwordAt
	}
	return user, nil
}

// execute posts a GraphQL document to the user store. Transport failures
// and non-200 responses surface as ErrUserStoreUnavailable so callers
// fail closed; GraphQL-level errors are reported verbatim.
func (d *UserDAO) execute(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v1/graphql", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-hasura-admin-secret", d.adminSecret)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		logger.Error("User store request failed", zap.Error(err))
		return fmt.Errorf("%w: %v", gk_errors.ErrUserStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Error("User store returned unexpected status", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", gk_errors.ErrUserStoreUnavailable, resp.StatusCode)
	}

	var gqlResp graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return fmt.Errorf("%w: %v", gk_errors.ErrUserStoreUnavailable, err)
	}
	if len(gqlResp.Errors) > 0 {
		return fmt.Errorf("user store query failed: %s", gqlResp.Errors[0].Message)
	}

	if out != nil {
		if err := json.Unmarshal(gqlResp.Data, out); err != nil {
			return fmt.Errorf("failed to decode user store response: %w", err)
		}
	}
	return nil
}

// numericID converts a validated subject id into the integer primary key
// the users table uses.
func numericID(userID string) (int64, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return 0, gk_errors.ErrInvalidUserID
	}
	return id, nil
}

func (d *UserDAO) GetAuthInfo(ctx context.Context, userID string) (*model.User, error) {
	return d.getByPK(ctx, userID, `
	query GetUser($id: Int!) {
		users_by_pk(id: $id) {
			id
			password_at
		}
	}`)
}

func (d *UserDAO) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	return d.getByPK(ctx, userID, `
	query GetUser($id: Int!) {
		users_by_pk(id: $id) {
			id
			email
			email_verified
			password_at
		}
	}`)
}

func (d *UserDAO) GetUserWithPassword(ctx context.Context, userID string) (*model.User, error) {
	return d.getByPK(ctx, userID, `
	query GetUser($id: Int!) {
		users_by_pk(id: $id) {
			id
			email
			password
			password_at
		}
	}`)
}

func (d *UserDAO) getByPK(ctx context.Context, userID, query string) (*model.User, error) {
	id, err := numericID(userID)
	if err != nil {
		return nil, err
	}

	var result struct {
		User *userRecord `json:"users_by_pk"`
	}
	if err := d.execute(ctx, query, map[string]interface{}{"id": id}, &result); err != nil {
		return nil, err
	}
	if result.User == nil {
		return nil, gk_errors.ErrUserNotFound
	}
	return result.User.toModel()
}

func (d *UserDAO) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
	query GetUser($email: String!) {
		users(where: {email: {_eq: $email}}, limit: 1) {
			id
			email
			password
			password_at
		}
	}`

	return d.getOne(ctx, query, map[string]interface{}{"email": email})
}

func (d *UserDAO) GetUserByPasswordResetToken(ctx context.Context, resetToken string) (*model.User, error) {
	query := `
	query GetUser($token: String!) {
		users(where: {password_reset_token: {_eq: $token}}, limit: 1) {
			id
			email
			password_at
		}
	}`

	return d.getOne(ctx, query, map[string]interface{}{"token": resetToken})
}

func (d *UserDAO) getOne(ctx context.Context, query string, variables map[string]interface{}) (*model.User, error) {
	var result struct {
		Users []userRecord `json:"users"`
	}
	if err := d.execute(ctx, query, variables, &result); err != nil {
		return nil, err
	}
	if len(result.Users) == 0 {
		return nil, gk_errors.ErrUserNotFound
	}
	return result.Users[0].toModel()
}

func (d *UserDAO) CreateUser(ctx context.Context, email, passwordHash, verificationToken string) (*model.User, error) {
	query := `
	mutation CreateUser($email: String!, $password: String!, $verificationToken: String!) {
		insert_users_one(object: {email: $email, password: $password, email_verification_token: $verificationToken}) {
			id
			email
			password_at
		}
	}`

	var result struct {
		User *userRecord `json:"insert_users_one"`
	}
	err := d.execute(ctx, query, map[string]interface{}{
		"email":             email,
		"password":          passwordHash,
		"verificationToken": verificationToken,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.User == nil {
		return nil, fmt.Errorf("user store returned no row for created user")
	}

	logger.Debug("User created in store", zap.String("email", email))
	return result.User.toModel()
}

func (d *UserDAO) UpdateUserPassword(ctx context.Context, userID, passwordHash string) (time.Time, error) {
	id, err := numericID(userID)
	if err != nil {
		return time.Time{}, err
	}

	query := `
	mutation UpdatePassword($id: Int!, $password: String!) {
		update_users_by_pk(pk_columns: {id: $id}, _set: {password: $password, password_reset_token: null, password_at: "now()"}) {
			password_at
		}
	}`

	var result struct {
		User *userRecord `json:"update_users_by_pk"`
	}
	err = d.execute(ctx, query, map[string]interface{}{"id": id, "password": passwordHash}, &result)
	if err != nil {
		return time.Time{}, err
	}
	if result.User == nil {
		return time.Time{}, gk_errors.ErrUserNotFound
	}

	passwordAt, err := helper_util.ParseTime(result.User.PasswordAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse password_at: %w", err)
	}

	logger.Debug("User password updated", zap.String("userID", userID))
	return passwordAt, nil
}

func (d *UserDAO) SetPasswordResetToken(ctx context.Context, userID, resetToken string) error {
	id, err := numericID(userID)
	if err != nil {
		return err
	}

	query := `
	mutation SetResetToken($id: Int!, $token: String!) {
		update_users_by_pk(pk_columns: {id: $id}, _set: {password_reset_token: $token}) {
			id
		}
	}`

	var result struct {
		User *userRecord `json:"update_users_by_pk"`
	}
	err = d.execute(ctx, query, map[string]interface{}{"id": id, "token": resetToken}, &result)
	if err != nil {
		return err
	}
	if result.User == nil {
		return gk_errors.ErrUserNotFound
	}
	return nil
}

func (d *UserDAO) DeleteUser(ctx context.Context, userID string) error {
	id, err := numericID(userID)
	if err != nil {
		return err
	}

	query := `
	mutation DeleteUser($id: Int!) {
		delete_users_by_pk(id: $id) {
			id
		}
	}`

	var result struct {
		User *userRecord `json:"delete_users_by_pk"`
	}
	err = d.execute(ctx, query, map[string]interface{}{"id": id}, &result)
	if err != nil {
		return err
	}
	if result.User == nil {
		return gk_errors.ErrUserNotFound
	}

	logger.Debug("User deleted from store", zap.String("userID", userID))
	return nil
}
