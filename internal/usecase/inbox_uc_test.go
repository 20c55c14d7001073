//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-tempmail-relay/internal/domain"
	"telegram-tempmail-relay/internal/domain/model"
	"telegram-tempmail-relay/internal/usecase"
)

func newInbox(repo *memSessionRepo, provider *fakeProvider) usecase.InboxUseCase {
	testLogger := newTestLogger()
	refresher := usecase.NewTokenRefresher(repo, noopTxManager{}, provider, testLogger)
	return usecase.NewInboxUseCase(repo, refresher, provider, testLogger)
}

func TestInboxUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("lists messages and touches last_access", func(t *testing.T) {
		repo := newMemSessionRepo()
		provider := &fakeProvider{
			ListMessagesFunc: func(ctx context.Context, token string) ([]model.MessageSummary, error) {
				return []model.MessageSummary{{ID: "m1", Subject: "hello"}}, nil
			},
		}
		s := seedSession(t, repo, "valid")
		stale := time.Now().Add(-20 * time.Minute)
		_ = repo.TouchLastAccess(ctx, nil, s.MailboxAddress, stale)

		uc := newInbox(repo, provider)
		msgs, err := uc.ListMessages(ctx, "user-1")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(msgs) != 1 || msgs[0].Subject != "hello" {
			t.Errorf("unexpected listing: %+v", msgs)
		}
		got, _ := repo.FindByMailbox(ctx, nil, "a@x.test")
		if !got.LastAccess.After(stale) {
			t.Error("expected a user-initiated check to advance last_access")
		}
	})

	t.Run("recovers from an expired token mid-check", func(t *testing.T) {
		repo := newMemSessionRepo()
		provider := &fakeProvider{
			AuthenticateFunc: func(ctx context.Context, address, secret string) (string, error) {
				return "new-token", nil
			},
			ListMessagesFunc: func(ctx context.Context, token string) ([]model.MessageSummary, error) {
				if token != "new-token" {
					return nil, domain.ErrAuthExpired
				}
				return []model.MessageSummary{{ID: "m1"}}, nil
			},
		}
		seedSession(t, repo, "stale")

		uc := newInbox(repo, provider)
		msgs, err := uc.ListMessages(ctx, "user-1")
		if err != nil {
			t.Fatalf("expected transparent recovery, got: %v", err)
		}
		if len(msgs) != 1 {
			t.Errorf("expected the retried listing, got %d messages", len(msgs))
		}
		if provider.AuthCalls() != 1 {
			t.Errorf("expected one refresh, got %d", provider.AuthCalls())
		}
	})

	t.Run("fetches a single message", func(t *testing.T) {
		repo := newMemSessionRepo()
		provider := &fakeProvider{
			FetchMessageFunc: func(ctx context.Context, token, id string) (*model.MessageDetail, error) {
				return &model.MessageDetail{
					MessageSummary: model.MessageSummary{ID: id, Subject: "full"},
					Text:           "body",
				}, nil
			},
		}
		seedSession(t, repo, "valid")

		uc := newInbox(repo, provider)
		d, err := uc.FetchMessage(ctx, "user-1", "m9")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if d.ID != "m9" || d.Text != "body" {
			t.Errorf("unexpected detail: %+v", d)
		}
	})

	t.Run("delete propagates provider errors", func(t *testing.T) {
		repo := newMemSessionRepo()
		provider := &fakeProvider{
			DeleteMessageFunc: func(ctx context.Context, token, id string) error {
				return domain.ErrTransient
			},
		}
		seedSession(t, repo, "valid")

		uc := newInbox(repo, provider)
		if err := uc.DeleteMessage(ctx, "user-1", "m1"); !errors.Is(err, domain.ErrTransient) {
			t.Fatalf("expected ErrTransient, got: %v", err)
		}
	})

	t.Run("unknown user yields ErrNotFound", func(t *testing.T) {
		uc := newInbox(newMemSessionRepo(), &fakeProvider{})
		if _, err := uc.ListMessages(ctx, "nobody"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got: %v", err)
		}
	})
}
