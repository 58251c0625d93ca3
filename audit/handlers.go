// audit/handlers.go
package audit

import (
	"context"
	"fmt"

	"github.com/hasflow/gatekeeper/util"
)

// RegisterEventHandlers subscribes the audit trail to the auth events the
// services publish. Writes happen off the request path; a failed write is
// reported through the bus's error channel, never to the caller.
func RegisterEventHandlers(bus *util.EventBus, svc Service) {
	handler := func(ctx context.Context, event util.Event) error {
		authEvent, ok := event.Payload.(AuthEvent)
		if !ok {
			return fmt.Errorf("unexpected audit payload type %T for event %s", event.Payload, event.Type)
		}
		return svc.LogEvent(ctx, authEvent)
	}

	for _, eventType := range []string{
		util.EventDecisionServed,
		util.EventTokenRejected,
		util.EventUserRegistered,
		util.EventPasswordChanged,
		util.EventUserDeleted,
	} {
		bus.Subscribe(eventType, handler)
	}
}
