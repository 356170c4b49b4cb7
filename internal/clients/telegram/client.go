package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client posts notes to the family Telegram chat.
type Client struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewClient creates a Telegram notifier for one chat.
func NewClient(token string, chatID int64) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Client{api: api, chatID: chatID}, nil
}

// Notify sends a plain text message to the configured chat.
func (c *Client) Notify(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
