// internal/infra/telegram/handlers.go
package telegram

import (
	"context"
	"time"

	"evdb_notifier/internal/app"
	"evdb_notifier/internal/domain/user"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const msgNotAuthorized = "Error: you are not allowed to use this command."

// DueRunner runs one "process due" pass on demand.
type DueRunner interface {
	RunOnce(ctx context.Context) (*app.ProcessReport, error)
}

// Handlers holds the bot command handlers and the services behind them.
type Handlers struct {
	ctx       context.Context
	admin     *app.AdminService
	schedule  *app.ScheduleService
	changelog *app.ChangelogService
	runner    DueRunner
	users     user.Repository
	logger    *logrus.Entry
	now       func() time.Time
}

func NewHandlers(
	ctx context.Context,
	admin *app.AdminService,
	schedule *app.ScheduleService,
	changelog *app.ChangelogService,
	runner DueRunner,
	users user.Repository,
	logger *logrus.Entry,
) *Handlers {
	return &Handlers{
		ctx:       ctx,
		admin:     admin,
		schedule:  schedule,
		changelog: changelog,
		runner:    runner,
		users:     users,
		logger:    logger,
		now:       time.Now,
	}
}

// Register wires all commands into the bot. Everything except /start and /help is admin only.
func (h *Handlers) Register(b *telebot.Bot) {
	b.Handle("/start", h.start)
	b.Handle("/help", h.help)

	admin := b.Group()
	admin.Use(h.adminOnly)

	admin.Handle("/add_user", h.addUser)
	admin.Handle("/remove_user", h.removeUser)
	admin.Handle("/list_users", h.listUsers)

	admin.Handle("/schedule", h.scheduleNotification)
	admin.Handle("/cancel", h.cancelNotification)
	admin.Handle("/reschedule", h.rescheduleNotification)
	admin.Handle("/list_scheduled", h.listScheduled)
	admin.Handle("/process_due", h.processDue)

	admin.Handle("/changelog", h.showChangelog)
	admin.Handle("/add_changelog", h.addChangelogEntry)
	admin.Handle("/next_version", h.nextVersion)
	admin.Handle("/announce", h.announceRelease)

	admin.Handle(telebot.OnCallback, h.onCallback)
}

// adminOnly rejects updates from anyone but the configured administrator.
func (h *Handlers) adminOnly(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender != nil && h.admin.IsAdmin(sender.ID) {
			return next(c)
		}

		entry := h.logger.WithField("text", c.Text())
		if sender != nil {
			entry = entry.WithField("sender_id", sender.ID)
		}
		entry.Warn("Unauthorized access attempt")

		if c.Callback() != nil {
			return c.Respond(&telebot.CallbackResponse{Text: msgNotAuthorized})
		}
		return c.Send(msgNotAuthorized)
	}
}

func (h *Handlers) commandLogger(c telebot.Context, command string) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"handler":   command,
		"sender_id": c.Sender().ID,
	})
}
