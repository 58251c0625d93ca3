// token/verifier.go
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hasflow/gatekeeper/config"
	gk_errors "github.com/hasflow/gatekeeper/errors"
	"github.com/hasflow/gatekeeper/model"
)

// Supported signing schemes.
const (
	AlgorithmHS256 = "HS256"
	AlgorithmRS256 = "RS256"
)

// Claim names Hasura expects inside the token payload.
const (
	ClaimUserID       = "x-hasura-user-id"
	ClaimDefaultRole  = "x-hasura-default-role"
	ClaimAllowedRoles = "x-hasura-allowed-roles"
)

// Verifier validates a credential's signature and expiry and extracts the
// subject and issuance time. Implementations must be safe for concurrent
// use; which one is active is a configuration choice, not a code path in
// the resolver.
type Verifier interface {
	Verify(tokenString string) (*model.VerifiedClaims, error)
}

// NewVerifier selects the verifier strategy for the configured signing
// scheme.
func NewVerifier(cfg config.AuthConfig) (Verifier, error) {
	switch cfg.JWTAlgorithm {
	case AlgorithmHS256:
		return NewHS256Verifier(cfg.JWTSecret)
	case AlgorithmRS256:
		return NewJWKSVerifier(cfg.JWKSUrl, time.Hour, nil)
	default:
		return nil, fmt.Errorf("unsupported JWT algorithm: %s", cfg.JWTAlgorithm)
	}
}

// claimsFromPayload pulls the subject id and issuance time out of an
// already-verified payload. A payload without a subject claim is treated
// the same as a bad signature.
func claimsFromPayload(claims jwt.MapClaims) (*model.VerifiedClaims, error) {
	userID, ok := claims[ClaimUserID].(string)
	if !ok || userID == "" {
		return nil, gk_errors.ErrTokenMalformed
	}

	verified := &model.VerifiedClaims{UserID: userID}

	issuedAt, err := claims.GetIssuedAt()
	if err != nil {
		return nil, gk_errors.ErrTokenMalformed
	}
	if issuedAt != nil {
		verified.IssuedAt = issuedAt.Time
	}

	return verified, nil
}

// mapParseError folds the jwt library's error taxonomy into the engine's
// error kinds. Expiry is the only failure callers distinguish from a bad
// signature.
func mapParseError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return gk_errors.ErrTokenExpired
	}
	return gk_errors.ErrTokenMalformed
}
