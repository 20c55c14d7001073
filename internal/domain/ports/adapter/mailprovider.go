package adapter

import (
	"context"

	"telegram-tempmail-relay/internal/domain/model"
)

// MailProviderAdapter is the hex port for the external disposable-mail
// REST API. Implementations are stateless; every call is independently
// retryable by the caller.
//
// Error contract (matched with errors.Is against internal/domain):
//   - ErrAuthExpired: the provider rejected the bearer token.
//   - ErrInvalidCredentials: Authenticate was rejected.
//   - ErrMailboxGone: the mailbox was deleted provider-side.
//   - ErrTransient: network failure, timeout, or a 5xx response.
type MailProviderAdapter interface {
	// Authenticate exchanges mailbox credentials for a fresh bearer token.
	Authenticate(ctx context.Context, address, secret string) (token string, err error)
	// ListMessages returns the mailbox listing in the provider's natural
	// order (newest first).
	ListMessages(ctx context.Context, token string) ([]model.MessageSummary, error)
	FetchMessage(ctx context.Context, token, id string) (*model.MessageDetail, error)
	// DeleteMessage is idempotent: deleting an already-deleted id succeeds.
	DeleteMessage(ctx context.Context, token, id string) error
	// CreateAccount provisions a mailbox at the provider.
	CreateAccount(ctx context.Context, address, secret string) (accountID string, err error)
	// Domains lists the provider's available mailbox domains.
	Domains(ctx context.Context) ([]string, error)
}
