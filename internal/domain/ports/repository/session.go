package repository

import (
	"context"
	"time"

	"telegram-tempmail-relay/internal/domain/model"
)

// SessionRepository is the port for the durable session store. It is the
// single source of truth for mailbox credentials and the observed set.
type SessionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Session) error
	FindByMailbox(ctx context.Context, tx Tx, address string) (*model.Session, error)
	FindByUserID(ctx context.Context, tx Tx, userID string) (*model.Session, error)
	// FindActive returns sessions with last_access inside the trailing window.
	FindActive(ctx context.Context, tx Tx, window time.Duration) ([]*model.Session, error)
	// UpdateAuthToken replaces the stored token for a mailbox. Callers that
	// need refresh atomicity run this inside TransactionManager.WithTx.
	UpdateAuthToken(ctx context.Context, tx Tx, address, token string) error
	// UpdateObserved persists the observed set and last_access after a poll.
	UpdateObserved(ctx context.Context, tx Tx, address string, observed []string, lastAccess time.Time) error
	TouchLastAccess(ctx context.Context, tx Tx, address string, at time.Time) error
	CountSessions(ctx context.Context, tx Tx) (int, error)
}
