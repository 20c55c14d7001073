package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Notification is one new-mail event produced by the relay for delivery
// through a dispatch sink.
type Notification struct {
	ID             string
	UserID         string
	ChatID         int64
	MailboxAddress string
	Message        MessageSummary
	ObservedAt     time.Time
}

// NewNotification stamps the event with a sortable ULID so downstream
// consumers can order events without trusting clocks across transports.
func NewNotification(s *Session, msg MessageSummary) Notification {
	return Notification{
		ID:             ulid.Make().String(),
		UserID:         s.UserID,
		ChatID:         s.ChatID,
		MailboxAddress: s.MailboxAddress,
		Message:        msg,
		ObservedAt:     time.Now(),
	}
}
