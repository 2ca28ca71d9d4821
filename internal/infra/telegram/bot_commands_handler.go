// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"errors"
	"fmt"
	"strings"

	"evdb_notifier/internal/domain/user"

	"gopkg.in/telebot.v3"
)

var adminHelp = strings.Join([]string{
	"Administrator commands:",
	"",
	"Users",
	usageAddUser,
	usageRemoveUser,
	"/list_users [active|all]",
	"",
	"Notifications",
	usageSchedule,
	"   when: now, +30m, +2h or 2026-11-01T09:00:00Z; ttl: 24h",
	"   type: info, success, warning, error, announcement",
	"   audience: all, roles:moderator,admin or users:3,7",
	usageCancel,
	usageReschedule,
	"/list_scheduled [status]",
	"/process_due",
	"",
	"Changelog",
	"/changelog",
	usageAddChangelog,
	"/next_version [major|minor|patch]",
	usageAnnounce,
}, "\n")

// start handles /start for the admin, known users and strangers.
func (h *Handlers) start(c telebot.Context) error {
	senderID := c.Sender().ID
	logCtx := h.commandLogger(c, "/start")
	logCtx.Info("Processing /start command")

	if h.admin.IsAdmin(senderID) {
		return c.Send(fmt.Sprintf("Hello, %s! The notifier is running. Use /help for the command list.", c.Sender().FirstName))
	}

	u, err := h.users.GetByTelegramID(h.ctx, senderID)
	switch {
	case err == nil && u.IsActive:
		logCtx.WithField("user_id", u.ID).Info("User identified as active recipient")
		return c.Send(fmt.Sprintf("Hello, %s! You will receive EV database announcements here.", u.Name))
	case err == nil:
		logCtx.WithField("user_id", u.ID).Info("User identified as inactive recipient")
		return c.Send("Your account is inactive. Please contact the administrator.")
	case !errors.Is(err, user.ErrNotFound):
		logCtx.WithError(err).Error("Error checking user status for /start command")
		return c.Send("Something went wrong while checking your status. Please try again later.")
	}

	logCtx.Info("User is unknown")
	return c.Send(fmt.Sprintf("Hello! This bot sends EV database announcements. Ask the administrator to add you, your Telegram ID is %d.", senderID))
}

// help handles /help.
func (h *Handlers) help(c telebot.Context) error {
	senderID := c.Sender().ID
	logCtx := h.commandLogger(c, "/help")

	if h.admin.IsAdmin(senderID) {
		return c.Send(adminHelp)
	}

	u, err := h.users.GetByTelegramID(h.ctx, senderID)
	switch {
	case err == nil && u.IsActive:
		return c.Send("I will message you about releases, maintenance and other announcements. There is nothing you need to do.\n\n/help - show this message.")
	case err == nil:
		return c.Send("Your account is inactive. Please contact the administrator to reactivate it.")
	case !errors.Is(err, user.ErrNotFound):
		logCtx.WithError(err).Error("Error checking user status for /help command")
		return c.Send("Something went wrong while checking your status. Please try again later.")
	}
	return c.Send("There are no commands for you. Ask the administrator to add you to the recipients.")
}
