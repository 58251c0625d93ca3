// model/actions.go
package model

// Hasura action handlers receive their arguments wrapped in an "input"
// object; these types mirror that envelope.

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Input LoginInput `json:"input"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Input RegisterInput `json:"input"`
}

type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type ChangePasswordRequest struct {
	Input ChangePasswordInput `json:"input"`
}

type ChangePasswordResponse struct {
	PasswordAt string `json:"password_at"`
}

type DestroyUserInput struct {
	Password string `json:"password"`
}

type DestroyUserRequest struct {
	Input DestroyUserInput `json:"input"`
}

type ResetPasswordInput struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Input ResetPasswordInput `json:"input"`
}

type CompletePasswordResetInput struct {
	ResetToken  string `json:"resetToken"`
	NewPassword string `json:"newPassword"`
}

type CompletePasswordResetRequest struct {
	Input CompletePasswordResetInput `json:"input"`
}

type WhoamiResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}
