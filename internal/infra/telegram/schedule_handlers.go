package telegram

import (
	"errors"
	"fmt"
	"strings"

	"evdb_notifier/internal/app"
	"evdb_notifier/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	listScheduledLimit   = 20
	cancelCallbackPrefix = "cancel_"
)

// scheduleNotification handles /schedule.
func (h *Handlers) scheduleNotification(c telebot.Context) error {
	handlerLogger := h.commandLogger(c, "/schedule")
	handlerLogger.Info("Command received")

	req, err := parseScheduleCommand(c.Message().Payload, h.now(), c.Sender().ID)
	if err != nil {
		handlerLogger.WithError(err).Warn("Invalid command format")
		return c.Send(fmt.Sprintf("%v\nUse: %s", err, usageSchedule))
	}

	n, err := h.schedule.Schedule(h.ctx, req)
	if err != nil {
		if errors.Is(err, app.ErrInvalidScheduleRequest) || errors.Is(err, notification.ErrInvalidMetadata) {
			return c.Send(fmt.Sprintf("Rejected: %v", err))
		}
		handlerLogger.WithError(err).Error("Failed to schedule notification")
		return c.Send("Something went wrong while scheduling. Please try again later.")
	}
	return c.Send("Scheduled:\n" + formatScheduled(n))
}

// cancelNotification handles /cancel <id>.
func (h *Handlers) cancelNotification(c telebot.Context) error {
	handlerLogger := h.commandLogger(c, "/cancel")

	args := c.Args()
	if len(args) != 1 {
		return c.Send("Invalid command format. Use: " + usageCancel)
	}
	id, err := parseID(args[0])
	if err != nil {
		return c.Send(fmt.Sprintf("%v\nUse: %s", err, usageCancel))
	}
	return c.Send(h.cancel(handlerLogger, id))
}

// cancel is shared by /cancel and the inline cancel button. It returns the reply text.
func (h *Handlers) cancel(log *logrus.Entry, id int64) string {
	n, err := h.schedule.Cancel(h.ctx, id)
	switch {
	case err == nil:
		return "Cancelled:\n" + formatScheduled(n)
	case errors.Is(err, notification.ErrNotFound):
		return fmt.Sprintf("Notification #%d not found.", id)
	case errors.Is(err, notification.ErrConflict):
		return fmt.Sprintf("Notification #%d can no longer be cancelled, only pending notifications can.", id)
	default:
		log.WithError(err).WithField("notification_id", id).Error("Failed to cancel notification")
		return "Something went wrong while cancelling. Please try again later."
	}
}

// rescheduleNotification handles /reschedule <id> <when>.
func (h *Handlers) rescheduleNotification(c telebot.Context) error {
	handlerLogger := h.commandLogger(c, "/reschedule")

	args := c.Args()
	if len(args) != 2 {
		return c.Send("Invalid command format. Use: " + usageReschedule)
	}
	id, err := parseID(args[0])
	if err != nil {
		return c.Send(fmt.Sprintf("%v\nUse: %s", err, usageReschedule))
	}
	at, _, err := parseWhen(args[1], h.now())
	if err != nil {
		return c.Send(fmt.Sprintf("%v\nUse: %s", err, usageReschedule))
	}

	n, err := h.schedule.Reschedule(h.ctx, id, at, c.Sender().ID)
	switch {
	case err == nil:
		return c.Send("Rescheduled:\n" + formatScheduled(n))
	case errors.Is(err, notification.ErrNotFound):
		return c.Send(fmt.Sprintf("Notification #%d not found.", id))
	case errors.Is(err, notification.ErrConflict):
		return c.Send(fmt.Sprintf("Notification #%d cannot be rescheduled, only failed or cancelled notifications can.", id))
	default:
		handlerLogger.WithError(err).WithField("notification_id", id).Error("Failed to reschedule notification")
		return c.Send("Something went wrong while rescheduling. Please try again later.")
	}
}

// listScheduled handles /list_scheduled [status]. Pending entries get an inline cancel button.
func (h *Handlers) listScheduled(c telebot.Context) error {
	handlerLogger := h.commandLogger(c, "/list_scheduled")

	filter := notification.ListFilter{Limit: listScheduledLimit}
	if args := c.Args(); len(args) > 0 {
		filter.Status = notification.Status(strings.ToLower(args[0]))
		if !filter.Status.Valid() {
			return c.Send("Unknown status. Use pending, processing, sent, failed or cancelled.")
		}
	}

	list, err := h.schedule.List(h.ctx, filter)
	if err != nil {
		handlerLogger.WithError(err).Error("Failed to list scheduled notifications")
		return c.Send("Something went wrong while listing notifications. Please try again later.")
	}
	if len(list) == 0 {
		return c.Send("No scheduled notifications found.")
	}

	var (
		b       strings.Builder
		buttons [][]telebot.InlineButton
	)
	b.WriteString("--- Scheduled notifications ---")
	for _, n := range list {
		b.WriteString("\n")
		b.WriteString(formatScheduled(n))
		if notification.Cancellable(n.Status) {
			buttons = append(buttons, []telebot.InlineButton{{
				Text: fmt.Sprintf("Cancel #%d", n.ID),
				Data: fmt.Sprintf("%s%d", cancelCallbackPrefix, n.ID),
			}})
		}
	}

	if len(buttons) == 0 {
		return c.Send(b.String())
	}
	return c.Send(b.String(), &telebot.ReplyMarkup{InlineKeyboard: buttons})
}

// processDue handles /process_due, the manual trigger for the same pass the cron job runs.
func (h *Handlers) processDue(c telebot.Context) error {
	handlerLogger := h.commandLogger(c, "/process_due")
	handlerLogger.Info("Manual processing requested")

	report, err := h.runner.RunOnce(h.ctx)
	if err != nil {
		handlerLogger.WithError(err).Error("Processing finished with errors")
		if report == nil {
			return c.Send("Processing failed. Check the logs for details.")
		}
		return c.Send(formatReport(report) + "\nSome outcomes could not be recorded. Check the logs for details.")
	}
	return c.Send(formatReport(report))
}
