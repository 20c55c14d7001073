package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-tempmail-relay/internal/config"
	"telegram-tempmail-relay/internal/domain"
)

// Bot implements adapter.TelegramBotAdapter on top of tgbotapi.
type Bot struct {
	api *tgbotapi.BotAPI
	log *zerolog.Logger
}

// NewBot authenticates against the Bot API with the configured token.
func NewBot(cfg *config.BotConfig, logger *zerolog.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "telegram").Logger()
	l.Info().Str("username", api.Self.UserName).Msg("bot authorized")
	return &Bot{api: api, log: &l}, nil
}

// SendMessage delivers a plain-text message to the given chat.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
		return fmt.Errorf("send to chat %d: %v: %w", chatID, err, domain.ErrTransient)
	}
	return nil
}
