package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// TelegramSender pushes notification texts to a fixed Telegram chat. It is
// an optional out-of-band channel for deployments where the list owner
// wants a ping outside the in-app feed.
type TelegramSender struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *logrus.Logger
}

// NewTelegramSender creates a sender for the given bot token and chat.
func NewTelegramSender(token string, chatID int64, logger *logrus.Logger) (*TelegramSender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Infof("Notification bot authorized on account %s", api.Self.UserName)

	return &TelegramSender{api: api, chatID: chatID, logger: logger}, nil
}

// Send delivers one notification text to the configured chat.
func (t *TelegramSender) Send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}
