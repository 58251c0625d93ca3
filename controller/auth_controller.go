// controller/auth_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	gk_errors "github.com/hasflow/gatekeeper/errors"
	"github.com/hasflow/gatekeeper/model"
	"github.com/hasflow/gatekeeper/service"
	"github.com/hasflow/gatekeeper/util"
)

// AuthController exposes the webhook the GraphQL gateway calls on every
// request to decide which role and identity to attach.
type AuthController struct {
	authService service.IAuthService
}

func NewAuthController(authService service.IAuthService) *AuthController {
	return &AuthController{
		authService: authService,
	}
}

// RegisterRoutes registers the API routes
func (ac *AuthController) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/hasura/auth")
	{
		auth.GET("", ac.Authenticate)
		auth.POST("", ac.Authenticate)
	}
}

// Authenticate endpoint. The credential may arrive in the JSON body, the
// query string or the Authorization header; a missing or empty body is
// allowed.
func (ac *AuthController) Authenticate(c *gin.Context) {
	var body model.AuthRequest
	if c.Request.Method == http.MethodPost {
		// An empty or non-JSON body simply means no body credential.
		_ = c.ShouldBindJSON(&body)
	}

	decision, err := ac.authService.Resolve(c.Request.Context(), service.ResolveRequest{
		BodyToken:           body.Token,
		QueryToken:          c.Query("token"),
		AuthorizationHeader: c.GetHeader("Authorization"),
		RequestedRole:       c.GetHeader("x-requested-role"),
	})
	if err != nil {
		switch {
		case errors.Is(err, gk_errors.ErrInvalidUserID):
			util.RespondWithError(c, http.StatusBadRequest, "Bad token!", err)
		case errors.Is(err, gk_errors.ErrTokenInvalidated):
			util.RespondWithError(c, http.StatusUnauthorized, "Token has been invalidated!", err)
		case errors.Is(err, gk_errors.ErrTokenExpired):
			util.RespondWithError(c, http.StatusUnauthorized, "Token has expired!", err)
		case errors.Is(err, gk_errors.ErrTokenMalformed):
			util.RespondWithError(c, http.StatusUnauthorized, "Invalid authentication token!", err)
		case errors.Is(err, gk_errors.ErrUserStoreUnavailable):
			util.RespondWithError(c, http.StatusUnauthorized, "Unable to verify credentials!", err)
		default:
			util.RespondWithError(c, http.StatusUnauthorized, "Authentication failed", err)
		}
		return
	}

	c.JSON(http.StatusOK, decision)
}
