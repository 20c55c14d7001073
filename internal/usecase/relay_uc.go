package usecase

import (
	"context"
	"errors"
	"time"

	"telegram-tempmail-relay/internal/domain"
	"telegram-tempmail-relay/internal/domain/model"
	"telegram-tempmail-relay/internal/domain/ports/adapter"
	"telegram-tempmail-relay/internal/domain/ports/repository"
	"telegram-tempmail-relay/internal/infra/logging"
	"telegram-tempmail-relay/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// SessionGuard is the per-session in-flight lock. TryLock must be
// non-blocking: a held lock means the previous poll of that session is
// still outstanding and the caller skips the session for this tick.
// Extend resets the TTL of a lock the caller still holds.
type SessionGuard interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Extend(ctx context.Context, key, token string, ttl time.Duration) error
	Unlock(ctx context.Context, key, token string) error
}

// TickStats summarizes one relay tick.
type TickStats struct {
	Sessions   int // active sessions enumerated
	Polled     int // sessions actually polled (lock acquired)
	Dispatched int // notifications handed to the sink
	Failed     int // sessions whose poll errored
}

var _ RelayUseCase = (*relayUC)(nil)

// RelayUseCase owns the inbox synchronization core: enumerate active
// sessions, compute the unseen-message delta per session, and fan out
// notification events to the dispatch sink. Per-session failures are
// isolated; nothing escapes to abort a tick.
type RelayUseCase interface {
	// ProcessSession polls one session and dispatches its delta. Returns
	// the number of notifications dispatched.
	ProcessSession(ctx context.Context, s *model.Session) (int, error)
	// ActiveSessions enumerates sessions eligible for polling this tick.
	ActiveSessions(ctx context.Context) ([]*model.Session, error)
}

type relayUC struct {
	sessions  repository.SessionRepository
	refresher TokenRefresher
	provider  adapter.MailProviderAdapter
	sink      adapter.DispatchSink
	guard     SessionGuard

	window          time.Duration
	dispatchTimeout time.Duration
	log             *zerolog.Logger
}

func NewRelayUseCase(
	sessions repository.SessionRepository,
	refresher TokenRefresher,
	provider adapter.MailProviderAdapter,
	sink adapter.DispatchSink,
	guard SessionGuard,
	window time.Duration,
	dispatchTimeout time.Duration,
	logger *zerolog.Logger,
) *relayUC {
	if window <= 0 {
		window = 30 * time.Minute
	}
	if dispatchTimeout <= 0 {
		dispatchTimeout = 5 * time.Second
	}
	return &relayUC{
		sessions:        sessions,
		refresher:       refresher,
		provider:        provider,
		sink:            sink,
		guard:           guard,
		window:          window,
		dispatchTimeout: dispatchTimeout,
		log:             logger,
	}
}

func (r *relayUC) ActiveSessions(ctx context.Context) ([]*model.Session, error) {
	return r.sessions.FindActive(ctx, repository.NoTX, r.window)
}

// guardTTL bounds how long an in-flight lock can outlive a wedged poll.
func (r *relayUC) guardTTL() time.Duration {
	return 2 * (r.dispatchTimeout + 30*time.Second)
}

func (r *relayUC) ProcessSession(ctx context.Context, s *model.Session) (int, error) {
	ctx = logging.WithMailbox(logging.WithUserID(ctx, s.UserID), s.MailboxAddress)
	log := logging.With(ctx, r.log)

	lockKey := "relay:inflight:" + s.MailboxAddress
	lockToken, err := r.guard.TryLock(ctx, lockKey, r.guardTTL())
	if err != nil {
		if errors.Is(err, domain.ErrSessionBusy) {
			metrics.IncSessionPoll("busy")
			log.Debug().Msg("previous poll still in flight; skipping")
			return 0, nil
		}
		metrics.IncSessionPoll("transient")
		return 0, err
	}
	defer func() {
		if err := r.guard.Unlock(context.WithoutCancel(ctx), lockKey, lockToken); err != nil {
			log.Warn().Err(err).Msg("failed to release in-flight guard")
		}
	}()

	var listing []model.MessageSummary
	err = r.refresher.WithValidToken(ctx, s, func(token string) error {
		msgs, err := r.provider.ListMessages(ctx, token)
		if err != nil {
			return err
		}
		listing = msgs
		return nil
	})
	if err != nil {
		metrics.IncSessionPoll(pollResult(err))
		return 0, err
	}

	dispatched := r.dispatchDelta(ctx, s, listing, lockKey, lockToken, log)

	// Persist observed ids and advance last_access even when the delta was
	// empty: the fetch itself succeeded.
	s.Touch()
	if err := r.sessions.UpdateObserved(ctx, repository.NoTX, s.MailboxAddress, s.ObservedIDs, s.LastAccess); err != nil {
		metrics.IncSessionPoll("transient")
		return dispatched, err
	}
	metrics.IncSessionPoll("ok")
	return dispatched, nil
}

// dispatchDelta emits one notification per unseen message, newest first
// (the provider's natural order). A message id is marked observed only
// when its dispatch attempt lands (delivered or undeliverable); a hard
// failure leaves the id unmarked so the next tick retries it. Each
// dispatch renews the in-flight guard so a large delta, which serializes
// one dispatch timeout per message, cannot outlive the lock.
func (r *relayUC) dispatchDelta(ctx context.Context, s *model.Session, listing []model.MessageSummary, lockKey, lockToken string, log *zerolog.Logger) int {
	dispatched := 0
	for _, msg := range listing {
		if s.Observed(msg.ID) {
			continue
		}
		if err := r.guard.Extend(ctx, lockKey, lockToken, r.guardTTL()); err != nil {
			log.Warn().Err(err).Msg("failed to renew in-flight guard")
		}
		n := model.NewNotification(s, msg)

		dctx, cancel := context.WithTimeout(ctx, r.dispatchTimeout)
		err := r.sink.Deliver(dctx, n)
		cancel()

		switch {
		case err == nil:
			dispatched++
			s.MarkObserved(msg.ID)
		case errors.Is(err, domain.ErrUndeliverable):
			// Dropped, not retried: the user has no live transport and the
			// next mailbox event will surface through a fresh check.
			log.Info().Str("message_id", msg.ID).Msg("notification undeliverable; dropping")
			s.MarkObserved(msg.ID)
		default:
			log.Error().Err(err).Str("message_id", msg.ID).Msg("dispatch failed; will retry next tick")
		}
	}
	return dispatched
}

func pollResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAuthExpired):
		return "auth_expired"
	case errors.Is(err, domain.ErrMailboxGone):
		return "mailbox_gone"
	default:
		return "transient"
	}
}
