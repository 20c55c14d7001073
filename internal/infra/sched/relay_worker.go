package sched

import (
	"context"
	"sync"
	"time"

	"telegram-tempmail-relay/internal/domain/model"
	"telegram-tempmail-relay/internal/infra/logging"
	"telegram-tempmail-relay/internal/infra/metrics"
	"telegram-tempmail-relay/internal/infra/worker"
	"telegram-tempmail-relay/internal/usecase"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RelayWorker drives the relay loop: one ticker, one tick per interval,
// per-session work fanned out to the pool. A tick never aborts on a
// single session's failure, and a slow tick never polls the same session
// twice thanks to the relay's in-flight guard.
type RelayWorker struct {
	interval time.Duration
	relayUC  usecase.RelayUseCase
	pool     *worker.Pool
	log      *zerolog.Logger
}

func NewRelayWorker(interval time.Duration, relayUC usecase.RelayUseCase, pool *worker.Pool, logger *zerolog.Logger) *RelayWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	compLog := logger.With().Str("component", "RelayWorker").Logger()
	return &RelayWorker{
		interval: interval,
		relayUC:  relayUC,
		pool:     pool,
		log:      &compLog,
	}
}

func (w *RelayWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting relay worker")
	// Run once on startup, then on every tick
	w.runTick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping relay worker")
			return ctx.Err()
		case <-ticker.C:
			w.runTick(ctx)
		}
	}
}

func (w *RelayWorker) runTick(ctx context.Context) {
	start := time.Now()
	ctx = logging.WithTickID(ctx, uuid.NewString())
	log := logging.With(ctx, w.log)
	metrics.IncRelayTick()

	sessions, err := w.relayUC.ActiveSessions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to enumerate active sessions")
		return
	}
	metrics.SetActiveSessions(len(sessions))
	if len(sessions) == 0 {
		return
	}

	stats := w.processAll(ctx, sessions, log)

	metrics.ObserveTickDuration(float64(time.Since(start).Milliseconds()))
	if stats.Dispatched > 0 || stats.Failed > 0 {
		log.Info().
			Int("sessions", stats.Sessions).
			Int("polled", stats.Polled).
			Int("dispatched", stats.Dispatched).
			Int("failed", stats.Failed).
			Msg("relay tick finished")
	}
}

// processAll fans the sessions out to the pool and waits for the tick's
// tasks to finish. Pool saturation degrades to skipping the session; it
// will be re-enumerated next tick.
func (w *RelayWorker) processAll(ctx context.Context, sessions []*model.Session, log *zerolog.Logger) usecase.TickStats {
	stats := usecase.TickStats{Sessions: len(sessions)}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, s := range sessions {
		s := s
		wg.Add(1)
		task := func(ctx context.Context) error {
			defer wg.Done()
			n, err := w.relayUC.ProcessSession(ctx, s)
			mu.Lock()
			defer mu.Unlock()
			stats.Polled++
			stats.Dispatched += n
			if err != nil {
				stats.Failed++
				log.Warn().Err(err).Str("mailbox", s.MailboxAddress).Msg("session poll failed")
			}
			return nil
		}
		if err := w.pool.Submit(task); err != nil {
			wg.Done()
			log.Warn().Err(err).Str("mailbox", s.MailboxAddress).Msg("pool saturated; session deferred to next tick")
		}
	}

	// A cancelled context must not leave the tick blocked: the pool drains
	// its queue on shutdown, and the sessions it never reached stay
	// unpolled until a restart.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Debug().Msg("tick cancelled before all sessions finished")
	}

	mu.Lock()
	defer mu.Unlock()
	return stats
}
