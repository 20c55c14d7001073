package adapter

import "context"

type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}
