package telegram

import (
	"context"
	"fmt"
	"strings"

	"telegram-tempmail-relay/internal/domain"
	"telegram-tempmail-relay/internal/domain/model"
	"telegram-tempmail-relay/internal/domain/ports/adapter"
	"telegram-tempmail-relay/internal/infra/i18n"
	"telegram-tempmail-relay/internal/infra/metrics"
)

// ChatSink delivers notifications to the session owner's Telegram chat.
type ChatSink struct {
	bot adapter.TelegramBotAdapter
	tr  *i18n.Translator
}

var _ adapter.DispatchSink = (*ChatSink)(nil)

func NewChatSink(bot adapter.TelegramBotAdapter, tr *i18n.Translator) *ChatSink {
	return &ChatSink{bot: bot, tr: tr}
}

// Deliver sends a formatted new-mail alert. A session with no chat bound
// (web-only registration) is undeliverable on this transport.
func (s *ChatSink) Deliver(ctx context.Context, n model.Notification) error {
	if n.ChatID == 0 {
		metrics.IncNotification("chat", "undeliverable")
		return fmt.Errorf("no chat bound for %s: %w", n.MailboxAddress, domain.ErrUndeliverable)
	}
	if err := s.bot.SendMessage(ctx, n.ChatID, s.formatNotification(n)); err != nil {
		metrics.IncNotification("chat", "failed")
		return err
	}
	metrics.IncNotification("chat", "delivered")
	return nil
}

func (s *ChatSink) formatNotification(n model.Notification) string {
	var sb strings.Builder
	sb.WriteString(s.tr.T("new_mail_header", n.MailboxAddress))
	sb.WriteString("\n\n")
	sb.WriteString(s.tr.T("new_mail_from", n.Message.From))
	sb.WriteString("\n")
	subject := n.Message.Subject
	if subject == "" {
		subject = s.tr.T("no_subject")
	}
	sb.WriteString(s.tr.T("new_mail_subject", subject))
	sb.WriteString("\n")
	if intro := strings.TrimSpace(n.Message.Intro); intro != "" {
		sb.WriteString("\n")
		sb.WriteString(intro)
	}
	return sb.String()
}
