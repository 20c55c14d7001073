package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"telegram-tempmail-relay/internal/domain"
	"telegram-tempmail-relay/internal/domain/model"
	"telegram-tempmail-relay/internal/domain/ports/adapter"
)

// Fanout broadcasts each notification across every configured transport.
// Delivery counts as a success when at least one leg accepts it; a leg
// that merely has nobody listening does not fail the whole dispatch.
type Fanout struct {
	legs []adapter.DispatchSink
	log  *zerolog.Logger
}

var _ adapter.DispatchSink = (*Fanout)(nil)

func NewFanout(logger *zerolog.Logger, legs ...adapter.DispatchSink) *Fanout {
	l := logger.With().Str("component", "fanout-sink").Logger()
	return &Fanout{legs: legs, log: &l}
}

func (f *Fanout) Deliver(ctx context.Context, n model.Notification) error {
	if len(f.legs) == 0 {
		return fmt.Errorf("no dispatch legs configured: %w", domain.ErrUndeliverable)
	}

	delivered := 0
	var firstErr error
	for _, leg := range f.legs {
		err := leg.Deliver(ctx, n)
		if err == nil {
			delivered++
			continue
		}
		if errors.Is(err, domain.ErrUndeliverable) {
			f.log.Debug().Str("notification_id", n.ID).Err(err).Msg("leg undeliverable")
			continue
		}
		f.log.Warn().Str("notification_id", n.ID).Err(err).Msg("leg delivery failed")
		if firstErr == nil {
			firstErr = err
		}
	}

	if delivered > 0 {
		return nil
	}
	if firstErr != nil {
		return firstErr
	}
	return fmt.Errorf("notification %s: all legs undeliverable: %w", n.ID, domain.ErrUndeliverable)
}
