// internal/infra/telegram/client.go
package telegram

import (
	"fmt"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the domain telegram.Client on top of gopkg.in/telebot.v3.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to a private chat. For users the chat ID equals the Telegram user ID.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	if _, err := tba.bot.Send(telebot.ChatID(recipientChatID), text, options); err != nil {
		return fmt.Errorf("send to chat %d: %w", recipientChatID, err)
	}
	return nil
}
