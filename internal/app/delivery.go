// internal/app/delivery.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"evdb_notifier/internal/domain/notification"
	domainTelegram "evdb_notifier/internal/domain/telegram"
	"evdb_notifier/internal/domain/user"

	"gopkg.in/telebot.v3"
)

var ErrRecipientUnreachable = errors.New("recipient has no Telegram chat")

// ChatDeliverer delivers notifications as Telegram direct messages.
type ChatDeliverer struct {
	client domainTelegram.Client
}

func NewChatDeliverer(client domainTelegram.Client) *ChatDeliverer {
	return &ChatDeliverer{client: client}
}

func (d *ChatDeliverer) Deliver(ctx context.Context, recipient *user.User, n *notification.ScheduledNotification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if recipient.TelegramID == 0 {
		return fmt.Errorf("user %d: %w", recipient.ID, ErrRecipientUnreachable)
	}

	opts := &telebot.SendOptions{DisableWebPagePreview: n.Metadata.Kind != notification.MetadataLink}
	if err := d.client.SendMessage(recipient.TelegramID, FormatNotification(n), opts); err != nil {
		return fmt.Errorf("failed to send notification %d to user %d: %w", n.ID, recipient.ID, err)
	}
	return nil
}

var typeMarkers = map[notification.Type]string{
	notification.TypeInfo:         "ℹ️",
	notification.TypeSuccess:      "✅",
	notification.TypeWarning:      "⚠️",
	notification.TypeError:        "❗",
	notification.TypeAnnouncement: "📣",
}

// FormatNotification renders the plain-text message body sent to recipients.
func FormatNotification(n *notification.ScheduledNotification) string {
	var b strings.Builder
	if marker, ok := typeMarkers[n.Type]; ok {
		b.WriteString(marker)
		b.WriteString(" ")
	}
	b.WriteString(n.Title)
	b.WriteString("\n\n")
	b.WriteString(n.Content)

	switch m := n.Metadata; {
	case m.Kind == notification.MetadataChangelogRelease && m.Release != nil:
		fmt.Fprintf(&b, "\n\nRelease: %s", m.Release.Version)
	case m.Kind == notification.MetadataLink && m.Link != nil:
		label := m.Link.Label
		if label == "" {
			label = "More"
		}
		fmt.Fprintf(&b, "\n\n%s: %s", label, m.Link.URL)
	}
	return b.String()
}
