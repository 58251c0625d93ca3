// token/hs256.go
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hasflow/gatekeeper/model"
)

// HS256Verifier validates tokens signed with a shared symmetric secret.
type HS256Verifier struct {
	secret []byte
}

func NewHS256Verifier(secret string) (*HS256Verifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required for HS256 verification")
	}
	return &HS256Verifier{secret: []byte(secret)}, nil
}

func (v *HS256Verifier) Verify(tokenString string) (*model.VerifiedClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{AlgorithmHS256}))
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, mapParseError(errors.New("unexpected claims type"))
	}

	return claimsFromPayload(claims)
}
