package push

import (
	"context"
	"fmt"
	"time"

	"telegram-tempmail-relay/internal/domain"
	"telegram-tempmail-relay/internal/domain/model"
	"telegram-tempmail-relay/internal/domain/ports/adapter"
	"telegram-tempmail-relay/internal/infra/metrics"
)

var _ adapter.DispatchSink = (*Sink)(nil)

// Sink delivers notifications over the hub's WebSocket connections.
// A user with no live socket is undeliverable on this transport.
type Sink struct {
	hub *Hub
}

func NewSink(hub *Hub) *Sink {
	return &Sink{hub: hub}
}

func (s *Sink) Deliver(ctx context.Context, n model.Notification) error {
	if s.hub.ActiveConnections(n.UserID) == 0 {
		metrics.IncNotification("push", "undeliverable")
		return fmt.Errorf("push to %s: %w", n.UserID, domain.ErrUndeliverable)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(5 * time.Second)
	}
	if !s.hub.Push(n, deadline) {
		metrics.IncNotification("push", "failed")
		return fmt.Errorf("push to %s: all sockets failed: %w", n.UserID, domain.ErrUndeliverable)
	}
	metrics.IncNotification("push", "delivered")
	return nil
}
