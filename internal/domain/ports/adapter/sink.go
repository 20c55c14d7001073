package adapter

import (
	"context"

	"telegram-tempmail-relay/internal/domain/model"
)

// DispatchSink delivers a relay notification to whatever transport the
// user is currently attached to. Undeliverable (no live transport) is
// reported as domain.ErrUndeliverable and is never a relay failure; the
// relay drops it with a log and moves on.
type DispatchSink interface {
	Deliver(ctx context.Context, n model.Notification) error
}
