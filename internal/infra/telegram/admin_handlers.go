package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"evdb_notifier/internal/app"
	"evdb_notifier/internal/domain/user"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// addUser handles /add_user <TelegramID> <role> <name>.
func (h *Handlers) addUser(c telebot.Context) error {
	handlerLogger := h.commandLogger(c, "/add_user")
	handlerLogger.Info("Command received")

	args := c.Args()
	if len(args) < 3 {
		handlerLogger.WithField("args_count", len(args)).Warn("Invalid command format")
		return c.Send("Invalid command format. Use: " + usageAddUser)
	}

	telegramID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Send("Error: Telegram ID must be a number.")
	}
	role := args[1]
	name := strings.Join(args[2:], " ")

	handlerLogger = handlerLogger.WithFields(logrus.Fields{
		"user_telegram_id": telegramID,
		"role":             role,
	})

	newUser, err := h.admin.AddUser(h.ctx, c.Sender().ID, telegramID, name, role)
	if err != nil {
		logWithError := handlerLogger.WithError(err)
		switch {
		case errors.Is(err, app.ErrAdminNotAuthorized):
			logWithError.Warn("Admin not authorized (service level)")
			return c.Send(msgNotAuthorized)
		case errors.Is(err, app.ErrUserAlreadyExists):
			logWithError.Warn("User already exists")
			return c.Send(fmt.Sprintf("Error: a user with Telegram ID %d already exists.", telegramID))
		case errors.Is(err, app.ErrInvalidUser):
			return c.Send("Error: name and role must not be empty.")
		default:
			logWithError.Error("Failed to add user")
			return c.Send("Something went wrong while adding the user. Please try again later.")
		}
	}

	handlerLogger.WithField("new_user_id", newUser.ID).Info("User added successfully")
	return c.Send(fmt.Sprintf("User %s (ID: %d, Telegram ID: %d, role: %s) added.", newUser.Name, newUser.ID, newUser.TelegramID, newUser.Role))
}

// removeUser handles /remove_user <TelegramID>. Users are deactivated, never deleted.
func (h *Handlers) removeUser(c telebot.Context) error {
	handlerLogger := h.commandLogger(c, "/remove_user")
	handlerLogger.Info("Command received")

	args := c.Args()
	if len(args) != 1 {
		return c.Send("Invalid command format. Use: " + usageRemoveUser)
	}
	telegramID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		handlerLogger.WithField("arg", args[0]).Warn("Invalid Telegram ID format")
		return c.Send("Error: Telegram ID must be a number.")
	}
	handlerLogger = handlerLogger.WithField("user_telegram_id", telegramID)

	removed, err := h.admin.DeactivateUser(h.ctx, c.Sender().ID, telegramID)
	if err != nil {
		logWithError := handlerLogger.WithError(err)
		switch {
		case errors.Is(err, app.ErrAdminNotAuthorized):
			logWithError.Warn("Admin not authorized (service level)")
			return c.Send(msgNotAuthorized)
		case errors.Is(err, user.ErrNotFound):
			logWithError.Warn("User to remove not found")
			return c.Send(fmt.Sprintf("No user with Telegram ID %d.", telegramID))
		case errors.Is(err, app.ErrUserAlreadyInactive):
			logWithError.Warn("User already inactive")
			return c.Send(fmt.Sprintf("User %s (Telegram ID: %d) is already inactive.", removed.Name, removed.TelegramID))
		default:
			logWithError.Error("Failed to remove user")
			return c.Send("Something went wrong while removing the user. Please try again later.")
		}
	}

	handlerLogger.WithField("removed_user_id", removed.ID).Info("User deactivated successfully")
	return c.Send(fmt.Sprintf("User %s (Telegram ID: %d) deactivated. They will not receive notifications anymore.", removed.Name, removed.TelegramID))
}

// listUsers handles /list_users [active|all].
func (h *Handlers) listUsers(c telebot.Context) error {
	handlerLogger := h.commandLogger(c, "/list_users")

	listType := "active"
	if args := c.Args(); len(args) > 0 {
		listType = strings.ToLower(args[0])
	}
	handlerLogger = handlerLogger.WithField("list_type", listType)

	var (
		users []*user.User
		err   error
		title string
	)
	switch listType {
	case "active":
		title = "Active users"
		users, err = h.admin.ListActiveUsers(h.ctx, c.Sender().ID)
	case "all":
		title = "All users"
		users, err = h.admin.ListAllUsers(h.ctx, c.Sender().ID)
	default:
		handlerLogger.Warn("Invalid list type argument")
		return c.Send("Invalid argument. Use 'active' or 'all', or leave it empty for active users.")
	}
	if err != nil {
		if errors.Is(err, app.ErrAdminNotAuthorized) {
			return c.Send(msgNotAuthorized)
		}
		handlerLogger.WithError(err).Error("Failed to get list of users")
		return c.Send("Something went wrong while listing users. Please try again later.")
	}

	if len(users) == 0 {
		if listType == "active" {
			return c.Send("No active users found.")
		}
		return c.Send("The user list is empty.")
	}
	handlerLogger.WithField("users_count", len(users)).Info("Successfully retrieved user list")

	var response strings.Builder
	fmt.Fprintf(&response, "--- %s ---", title)
	for _, u := range users {
		status := "inactive"
		if u.IsActive {
			status = "active"
		}
		fmt.Fprintf(&response, "\nID: %d, Telegram ID: %d, %s, role: %s, %s", u.ID, u.TelegramID, u.Name, u.Role, status)
	}
	return c.Send(response.String())
}
