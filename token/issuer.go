// token/issuer.go
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hasflow/gatekeeper/model"
)

// Issuer mints HS256 tokens for the login and register flows. Tokens carry
// no expiry: the password-change timestamp check is what bounds their
// lifetime.
type Issuer struct {
	secret []byte
}

func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required for token issuance")
	}
	return &Issuer{secret: []byte(secret)}, nil
}

func (i *Issuer) Issue(userID string) (string, error) {
	claims := jwt.MapClaims{
		ClaimAllowedRoles: []string{model.RoleUser},
		ClaimDefaultRole:  model.RoleUser,
		ClaimUserID:       userID,
		"iat":             time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}
