package push

import (
	"context"

	"github.com/hazardwatch/go-hazard-zones/internal/models"
)

// Sender delivers a push payload to all of a user's registered clients.
// Delivery is fire-and-forget with respect to refresh passes: a failure is
// reported but never rolls back ledger state.
type Sender interface {
	Send(ctx context.Context, userID string, payload models.PushPayload) error
}
