package usecase

import (
	"context"
	"errors"
	"fmt"

	"telegram-tempmail-relay/internal/domain"
	"telegram-tempmail-relay/internal/domain/model"
	"telegram-tempmail-relay/internal/domain/ports/adapter"
	"telegram-tempmail-relay/internal/domain/ports/repository"
	"telegram-tempmail-relay/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

var _ TokenRefresher = (*tokenRefresher)(nil)

// TokenRefresher wraps provider operations with the one-shot token
// refresh policy: on ErrAuthExpired the stored credentials are exchanged
// for a fresh token, the token is persisted, and the operation is retried
// exactly once. A second failure propagates; an expired credential either
// recovers on the first refresh or is genuinely broken.
type TokenRefresher interface {
	WithValidToken(ctx context.Context, s *model.Session, op func(token string) error) error
}

type tokenRefresher struct {
	sessions repository.SessionRepository
	tm       repository.TransactionManager
	provider adapter.MailProviderAdapter
	log      *zerolog.Logger
}

func NewTokenRefresher(sessions repository.SessionRepository, tm repository.TransactionManager, provider adapter.MailProviderAdapter, logger *zerolog.Logger) *tokenRefresher {
	return &tokenRefresher{
		sessions: sessions,
		tm:       tm,
		provider: provider,
		log:      logger,
	}
}

func (t *tokenRefresher) WithValidToken(ctx context.Context, s *model.Session, op func(token string) error) error {
	err := op(s.AuthToken)
	if !errors.Is(err, domain.ErrAuthExpired) {
		return err
	}

	token, err := t.refresh(ctx, s)
	if err != nil {
		return err
	}
	return op(token)
}

// refresh re-authenticates and atomically replaces the stored token
// before the caller's retry runs. The read-modify-write is serialized
// through a transaction; a refresh racing for the same session cannot
// interleave its write.
func (t *tokenRefresher) refresh(ctx context.Context, s *model.Session) (string, error) {
	token, err := t.provider.Authenticate(ctx, s.MailboxAddress, s.CredentialSecret)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			metrics.IncTokenRefresh("invalid_credentials")
		default:
			metrics.IncTokenRefresh("transient")
		}
		return "", fmt.Errorf("refresh token for %s: %w", s.MailboxAddress, err)
	}

	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err = t.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		return t.sessions.UpdateAuthToken(ctx, tx, s.MailboxAddress, token)
	})
	if err != nil {
		metrics.IncTokenRefresh("transient")
		return "", fmt.Errorf("persist refreshed token for %s: %w", s.MailboxAddress, err)
	}

	s.AuthToken = token
	metrics.IncTokenRefresh("ok")
	t.log.Debug().Str("mailbox", s.MailboxAddress).Msg("auth token refreshed")
	return token, nil
}
