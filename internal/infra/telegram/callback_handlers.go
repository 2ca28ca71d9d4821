// internal/infra/telegram/callback_handlers.go
package telegram

import (
	"fmt"
	"strings"

	"gopkg.in/telebot.v3"
)

// onCallback handles inline button presses. The only button today is cancel_<id> from /list_scheduled.
func (h *Handlers) onCallback(c telebot.Context) error {
	data := c.Callback().Data
	handlerLogger := h.commandLogger(c, "callback").WithField("data", data)

	raw, ok := strings.CutPrefix(data, cancelCallbackPrefix)
	if !ok {
		handlerLogger.Warn("Unhandled callback data")
		return c.Respond(&telebot.CallbackResponse{Text: "Unknown action."})
	}

	id, err := parseID(raw)
	if err != nil {
		handlerLogger.WithError(err).Warn("Invalid notification id in callback")
		return c.Respond(&telebot.CallbackResponse{Text: "Invalid notification id."})
	}

	reply := h.cancel(handlerLogger, id)
	if err := c.Send(reply); err != nil {
		handlerLogger.WithError(err).Warn("Failed to send cancel result")
	}
	return c.Respond(&telebot.CallbackResponse{Text: fmt.Sprintf("Notification #%d handled.", id)})
}
