// audit/model.go
package audit

import "time"

// Actions recorded in the trail.
const (
	ActionDecisionServed  = "decision_served"
	ActionTokenRejected   = "token_rejected"
	ActionUserRegistered  = "user_registered"
	ActionPasswordChanged = "password_changed"
	ActionUserDestroyed   = "user_destroyed"
)

type AuthEvent struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Role      string    `json:"role,omitempty"`
	FromCache bool      `json:"from_cache,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}
