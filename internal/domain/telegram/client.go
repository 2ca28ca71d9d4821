package telegram

import "gopkg.in/telebot.v3"

// Client sends direct messages through the bot. It is the delivery transport for
// scheduled notifications and admin replies.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
