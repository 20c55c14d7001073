package model

import (
	"time"

	"telegram-tempmail-relay/internal/domain"

	"github.com/google/uuid"
)

// MaxObservedIDs bounds the per-session observed set. When the bound is
// hit the oldest ids are evicted; the provider expires messages on its
// own timeline long before this, so eviction cannot resurface a live
// message.
const MaxObservedIDs = 500

// Session is a domain entity tracking one (user, mailbox) pair for
// notification relay. CredentialSecret is only ever used to re-derive
// AuthToken and must not leave the process.
type Session struct {
	ID               string
	UserID           string
	ChatID           int64
	MailboxAddress   string
	CredentialSecret string
	AuthToken        string
	ObservedIDs      []string // oldest first
	LastAccess       time.Time
	CreatedAt        time.Time
}

func NewSession(id, userID string, chatID int64, address, secret string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if userID == "" || address == "" || secret == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Session{
		ID:               id,
		UserID:           userID,
		ChatID:           chatID,
		MailboxAddress:   address,
		CredentialSecret: secret,
		ObservedIDs:      nil,
		LastAccess:       now,
		CreatedAt:        now,
	}, nil
}

func (s *Session) IsZero() bool { return s == nil || s.MailboxAddress == "" }

// Touch advances LastAccess, keeping the session inside the active window.
func (s *Session) Touch() { s.LastAccess = time.Now() }

// Active reports whether the session is eligible for relay polling.
func (s *Session) Active(now time.Time, window time.Duration) bool {
	return now.Sub(s.LastAccess) <= window
}

// Observed reports whether a message id has already been relayed.
func (s *Session) Observed(id string) bool {
	for _, o := range s.ObservedIDs {
		if o == id {
			return true
		}
	}
	return false
}

// MarkObserved appends ids to the observed set, skipping duplicates and
// evicting the oldest entries past MaxObservedIDs.
func (s *Session) MarkObserved(ids ...string) {
	for _, id := range ids {
		if id == "" || s.Observed(id) {
			continue
		}
		s.ObservedIDs = append(s.ObservedIDs, id)
	}
	if n := len(s.ObservedIDs); n > MaxObservedIDs {
		s.ObservedIDs = s.ObservedIDs[n-MaxObservedIDs:]
	}
}
