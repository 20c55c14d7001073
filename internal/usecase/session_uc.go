package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram-tempmail-relay/internal/domain"
	"telegram-tempmail-relay/internal/domain/model"
	"telegram-tempmail-relay/internal/domain/ports/adapter"
	"telegram-tempmail-relay/internal/domain/ports/repository"
	"telegram-tempmail-relay/internal/infra/logging"

	"github.com/rs/zerolog"
)

var _ SessionUseCase = (*sessionUC)(nil)

// SessionUseCase is the surface the provisioning layer drives: it
// registers already-provisioned mailboxes for relay tracking and keeps
// sessions warm. How addresses and secrets are generated is not this
// package's concern.
type SessionUseCase interface {
	// Register authenticates the mailbox credentials and persists a
	// session for (userID, address). Re-registering an existing mailbox
	// refreshes its token and reactivates it.
	Register(ctx context.Context, userID string, chatID int64, address, secret string) (*model.Session, error)
	GetByUserID(ctx context.Context, userID string) (*model.Session, error)
	// Touch advances last_access, keeping the session eligible for polling.
	Touch(ctx context.Context, address string) error
	Count(ctx context.Context) (int, error)
}

type sessionUC struct {
	sessions repository.SessionRepository
	provider adapter.MailProviderAdapter
	log      *zerolog.Logger
}

func NewSessionUseCase(sessions repository.SessionRepository, provider adapter.MailProviderAdapter, logger *zerolog.Logger) *sessionUC {
	return &sessionUC{sessions: sessions, provider: provider, log: logger}
}

func (u *sessionUC) Register(ctx context.Context, userID string, chatID int64, address, secret string) (*model.Session, error) {
	defer logging.TraceDuration(u.log, "SessionUC.Register")()

	// Freshly issued tokens are valid; authenticating up front means the
	// first relay poll never starts on an expired token.
	token, err := u.provider.Authenticate(ctx, address, secret)
	if err != nil {
		return nil, fmt.Errorf("authenticate %s: %w", address, err)
	}

	s, err := u.sessions.FindByMailbox(ctx, repository.NoTX, address)
	switch {
	case err == nil && !s.IsZero():
		s.UserID = userID
		s.ChatID = chatID
		s.CredentialSecret = secret
		s.AuthToken = token
		s.Touch()
	case err == nil || errors.Is(err, domain.ErrNotFound):
		s, err = model.NewSession("", userID, chatID, address, secret)
		if err != nil {
			return nil, err
		}
		s.AuthToken = token
	default:
		return nil, fmt.Errorf("lookup session %s: %w", address, err)
	}

	if err := u.sessions.Save(ctx, repository.NoTX, s); err != nil {
		return nil, fmt.Errorf("save session %s: %w", address, err)
	}
	u.log.Info().Str("mailbox", address).Str("user_id", userID).Msg("session registered")
	return s, nil
}

func (u *sessionUC) GetByUserID(ctx context.Context, userID string) (*model.Session, error) {
	return u.sessions.FindByUserID(ctx, repository.NoTX, userID)
}

func (u *sessionUC) Touch(ctx context.Context, address string) error {
	return u.sessions.TouchLastAccess(ctx, repository.NoTX, address, time.Now())
}

func (u *sessionUC) Count(ctx context.Context) (int, error) {
	return u.sessions.CountSessions(ctx, repository.NoTX)
}
