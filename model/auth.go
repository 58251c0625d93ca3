// model/auth.go
package model

import "time"

// Roles the gateway understands.
const (
	RolePublic = "public"
	RoleUser   = "user"
)

// AuthDecision is the role/identity tuple returned to the GraphQL gateway
// and the unit stored in the decision cache. A public decision never
// carries a user id.
type AuthDecision struct {
	Role   string `json:"x-hasura-role"`
	UserID string `json:"x-hasura-user-id,omitempty"`
}

func PublicDecision() *AuthDecision {
	return &AuthDecision{Role: RolePublic}
}

func UserDecision(userID string) *AuthDecision {
	return &AuthDecision{Role: RoleUser, UserID: userID}
}

// VerifiedClaims is what a verifier extracts from a credential after the
// signature and expiry checks passed. It lives only for the request that
// produced it.
type VerifiedClaims struct {
	UserID   string
	IssuedAt time.Time
}

// AuthRequest is the optional JSON body the gateway may send to the
// webhook endpoint.
type AuthRequest struct {
	Token string `json:"token"`
}
