package usecase

import (
	"context"
	"time"

	"telegram-tempmail-relay/internal/domain/model"
	"telegram-tempmail-relay/internal/domain/ports/adapter"
	"telegram-tempmail-relay/internal/domain/ports/repository"
	"telegram-tempmail-relay/internal/infra/logging"

	"github.com/rs/zerolog"
)

var _ InboxUseCase = (*inboxUC)(nil)

// InboxUseCase serves user-initiated inbox operations. Every call goes
// through the token refresh policy and advances the session's
// last_access, which is what keeps a session inside the relay's active
// window.
type InboxUseCase interface {
	ListMessages(ctx context.Context, userID string) ([]model.MessageSummary, error)
	FetchMessage(ctx context.Context, userID, messageID string) (*model.MessageDetail, error)
	DeleteMessage(ctx context.Context, userID, messageID string) error
}

type inboxUC struct {
	sessions  repository.SessionRepository
	refresher TokenRefresher
	provider  adapter.MailProviderAdapter
	log       *zerolog.Logger
}

func NewInboxUseCase(sessions repository.SessionRepository, refresher TokenRefresher, provider adapter.MailProviderAdapter, logger *zerolog.Logger) *inboxUC {
	return &inboxUC{
		sessions:  sessions,
		refresher: refresher,
		provider:  provider,
		log:       logger,
	}
}

func (u *inboxUC) ListMessages(ctx context.Context, userID string) ([]model.MessageSummary, error) {
	defer logging.TraceDuration(u.log, "InboxUC.ListMessages")()

	s, err := u.sessions.FindByUserID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}

	var listing []model.MessageSummary
	err = u.refresher.WithValidToken(ctx, s, func(token string) error {
		msgs, err := u.provider.ListMessages(ctx, token)
		if err != nil {
			return err
		}
		listing = msgs
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.touch(ctx, s)
	return listing, nil
}

func (u *inboxUC) FetchMessage(ctx context.Context, userID, messageID string) (*model.MessageDetail, error) {
	defer logging.TraceDuration(u.log, "InboxUC.FetchMessage")()

	s, err := u.sessions.FindByUserID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}

	var detail *model.MessageDetail
	err = u.refresher.WithValidToken(ctx, s, func(token string) error {
		d, err := u.provider.FetchMessage(ctx, token, messageID)
		if err != nil {
			return err
		}
		detail = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.touch(ctx, s)
	return detail, nil
}

func (u *inboxUC) DeleteMessage(ctx context.Context, userID, messageID string) error {
	defer logging.TraceDuration(u.log, "InboxUC.DeleteMessage")()

	s, err := u.sessions.FindByUserID(ctx, repository.NoTX, userID)
	if err != nil {
		return err
	}

	err = u.refresher.WithValidToken(ctx, s, func(token string) error {
		return u.provider.DeleteMessage(ctx, token, messageID)
	})
	if err != nil {
		return err
	}

	u.touch(ctx, s)
	return nil
}

func (u *inboxUC) touch(ctx context.Context, s *model.Session) {
	if err := u.sessions.TouchLastAccess(ctx, repository.NoTX, s.MailboxAddress, time.Now()); err != nil {
		u.log.Warn().Err(err).Str("mailbox", s.MailboxAddress).Msg("failed to touch last_access")
	}
}
