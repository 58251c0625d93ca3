// controller/action_controller.go
package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	gk_errors "github.com/hasflow/gatekeeper/errors"
	"github.com/hasflow/gatekeeper/model"
	"github.com/hasflow/gatekeeper/service"
	"github.com/hasflow/gatekeeper/util"
)

// ActionController exposes the Hasura action handlers for the account
// lifecycle: login, register, password changes and teardown.
type ActionController struct {
	accountService service.IAccountService
}

func NewActionController(accountService service.IAccountService) *ActionController {
	return &ActionController{
		accountService: accountService,
	}
}

// RegisterRoutes registers the API routes
func (ac *ActionController) RegisterRoutes(r *gin.RouterGroup) {
	actions := r.Group("/hasura/actions")
	{
		actions.POST("/login", ac.Login)
		actions.POST("/register", ac.Register)
		actions.POST("/whoami", ac.Whoami)
		actions.POST("/changePassword", ac.ChangePassword)
		actions.POST("/destroyUser", ac.DestroyUser)
		actions.POST("/resetPassword", ac.ResetPassword)
		actions.POST("/completePasswordReset", ac.CompletePasswordReset)
	}
}

// Login endpoint
func (ac *ActionController) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Input.Email == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Email is required.", gk_errors.ErrInvalidEmail)
		return
	}
	if req.Input.Password == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Password is required.", gk_errors.ErrInvalidPassword)
		return
	}

	signedToken, err := ac.accountService.Login(c.Request.Context(), req.Input.Email, req.Input.Password)
	if err != nil {
		ac.respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.LoginResponse{Token: signedToken})
}

// Register endpoint
func (ac *ActionController) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Input.Email == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Email is required.", gk_errors.ErrInvalidEmail)
		return
	}
	if req.Input.Password == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Password is required.", gk_errors.ErrInvalidPassword)
		return
	}

	signedToken, err := ac.accountService.Register(c.Request.Context(), req.Input.Email, req.Input.Password)
	if err != nil {
		ac.respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.LoginResponse{Token: signedToken})
}

// Whoami endpoint
func (ac *ActionController) Whoami(c *gin.Context) {
	user, err := ac.accountService.Whoami(c.Request.Context(), bearerToken(c))
	if err != nil {
		ac.respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.WhoamiResponse{
		ID:            user.ID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
	})
}

// ChangePassword endpoint
func (ac *ActionController) ChangePassword(c *gin.Context) {
	var req model.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Input.OldPassword == "" {
		util.RespondWithError(c, http.StatusBadRequest, "oldPassword is required.", gk_errors.ErrInvalidPassword)
		return
	}
	if req.Input.NewPassword == "" {
		util.RespondWithError(c, http.StatusBadRequest, "newPassword is required.", gk_errors.ErrInvalidPassword)
		return
	}

	passwordAt, err := ac.accountService.ChangePassword(c.Request.Context(), bearerToken(c), req.Input.OldPassword, req.Input.NewPassword)
	if err != nil {
		ac.respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.ChangePasswordResponse{PasswordAt: passwordAt.Format(time.RFC3339)})
}

// DestroyUser endpoint
func (ac *ActionController) DestroyUser(c *gin.Context) {
	var req model.DestroyUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Input.Password == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Password is required.", gk_errors.ErrInvalidPassword)
		return
	}

	if err := ac.accountService.DestroyUser(c.Request.Context(), bearerToken(c), req.Input.Password); err != nil {
		ac.respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResetPassword endpoint. Always succeeds for well-formed emails so the
// endpoint cannot be used to probe which addresses have accounts.
func (ac *ActionController) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Input.Email == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Email is required.", gk_errors.ErrInvalidEmail)
		return
	}

	if err := ac.accountService.RequestPasswordReset(c.Request.Context(), req.Input.Email); err != nil {
		ac.respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CompletePasswordReset endpoint
func (ac *ActionController) CompletePasswordReset(c *gin.Context) {
	var req model.CompletePasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Input.ResetToken == "" {
		util.RespondWithError(c, http.StatusBadRequest, "resetToken is required.", gk_errors.ErrInvalidResetToken)
		return
	}
	if req.Input.NewPassword == "" {
		util.RespondWithError(c, http.StatusBadRequest, "newPassword is required.", gk_errors.ErrInvalidPassword)
		return
	}

	signedToken, err := ac.accountService.CompletePasswordReset(c.Request.Context(), req.Input.ResetToken, req.Input.NewPassword)
	if err != nil {
		ac.respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.LoginResponse{Token: signedToken})
}

func (ac *ActionController) respondWithServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gk_errors.ErrInvalidEmail):
		util.RespondWithError(c, http.StatusBadRequest, "Email is invalid!", err)
	case errors.Is(err, gk_errors.ErrInvalidPassword):
		util.RespondWithError(c, http.StatusBadRequest, "Password is invalid!", err)
	case errors.Is(err, gk_errors.ErrEmailTaken):
		util.RespondWithError(c, http.StatusBadRequest, "Email is already registered!", err)
	case errors.Is(err, gk_errors.ErrInvalidCredentials):
		util.RespondWithError(c, http.StatusUnauthorized, "Invalid email or password!", err)
	case errors.Is(err, gk_errors.ErrInvalidResetToken):
		util.RespondWithError(c, http.StatusBadRequest, "Invalid or expired reset token!", err)
	case errors.Is(err, gk_errors.ErrInvalidUserID):
		util.RespondWithError(c, http.StatusBadRequest, "Bad token!", err)
	case errors.Is(err, gk_errors.ErrTokenExpired),
		errors.Is(err, gk_errors.ErrTokenInvalidated),
		errors.Is(err, gk_errors.ErrTokenMalformed):
		util.RespondWithError(c, http.StatusUnauthorized, "You must be logged in to perform this action.", err)
	case errors.Is(err, gk_errors.ErrUserNotFound):
		util.RespondWithError(c, http.StatusNotFound, "User not found", err)
	case errors.Is(err, gk_errors.ErrUserStoreUnavailable):
		util.RespondWithError(c, http.StatusServiceUnavailable, "User store is unavailable", err)
	default:
		util.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

// bearerToken pulls the credential for action endpoints, which only
// accept the Authorization header.
func bearerToken(c *gin.Context) string {
	return util.ExtractCredential("", "", c.GetHeader("Authorization"))
}
