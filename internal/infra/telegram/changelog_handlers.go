package telegram

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"evdb_notifier/internal/app"
	"evdb_notifier/internal/domain/changelog"
	"evdb_notifier/internal/domain/version"

	"gopkg.in/telebot.v3"
)

// showChangelog handles /changelog. Entries come newest first with unreleased work on top.
func (h *Handlers) showChangelog(c telebot.Context) error {
	entries, err := h.changelog.ListEntries(h.ctx)
	if err != nil {
		h.commandLogger(c, "/changelog").WithError(err).Error("Failed to list changelog")
		return c.Send("Something went wrong while reading the changelog. Please try again later.")
	}
	return c.Send(formatChangelog(entries))
}

// addChangelogEntry handles /add_changelog.
func (h *Handlers) addChangelogEntry(c telebot.Context) error {
	handlerLogger := h.commandLogger(c, "/add_changelog")

	req, err := parseChangelogCommand(c.Message().Payload)
	if err != nil {
		return c.Send(fmt.Sprintf("%v\nUse: %s", err, usageAddChangelog))
	}

	e, err := h.changelog.AddEntry(h.ctx, req)
	switch {
	case err == nil:
		return c.Send(fmt.Sprintf("Changelog entry %s added.", e.Version))
	case errors.Is(err, app.ErrInvalidChangelogEntry):
		return c.Send(fmt.Sprintf("Rejected: %v", err))
	case errors.Is(err, changelog.ErrDuplicateVersion):
		return c.Send(fmt.Sprintf("An entry for %s already exists.", app.CanonicalVersion(req.Version)))
	default:
		handlerLogger.WithError(err).Error("Failed to add changelog entry")
		return c.Send("Something went wrong while adding the entry. Please try again later.")
	}
}

// nextVersion handles /next_version [major|minor|patch]. Patch is the default bump.
func (h *Handlers) nextVersion(c telebot.Context) error {
	bump := version.BumpPatch
	if args := c.Args(); len(args) > 0 {
		parsed, err := version.ParseBump(args[0])
		if err != nil {
			return c.Send("Unknown bump. Use major, minor or patch.")
		}
		bump = parsed
	}

	next, err := h.changelog.SuggestNextVersion(h.ctx, bump)
	if err != nil {
		h.commandLogger(c, "/next_version").WithError(err).Error("Failed to suggest next version")
		return c.Send("Something went wrong while reading the changelog. Please try again later.")
	}
	return c.Send(fmt.Sprintf("Next %s version: %s", bump, next))
}

// announceRelease handles /announce <version> [when]. Without a time the announcement is due immediately.
func (h *Handlers) announceRelease(c telebot.Context) error {
	handlerLogger := h.commandLogger(c, "/announce")

	args := c.Args()
	if len(args) < 1 || len(args) > 2 {
		return c.Send("Invalid command format. Use: " + usageAnnounce)
	}
	at := h.now()
	if len(args) == 2 {
		var err error
		if at, _, err = parseWhen(args[1], at); err != nil {
			return c.Send(fmt.Sprintf("%v\nUse: %s", err, usageAnnounce))
		}
	}

	n, err := h.changelog.AnnounceRelease(h.ctx, args[0], at, c.Sender().ID)
	switch {
	case err == nil:
		return c.Send(fmt.Sprintf("Release announcement scheduled for %s:\n%s", at.UTC().Format(time.RFC3339), formatScheduled(n)))
	case errors.Is(err, app.ErrNotReleased):
		return c.Send("Unreleased changes cannot be announced. Add the entry under a version first.")
	case errors.Is(err, changelog.ErrNotFound):
		return c.Send(fmt.Sprintf("No changelog entry for %s.", strings.TrimSpace(args[0])))
	default:
		handlerLogger.WithError(err).Error("Failed to announce release")
		return c.Send("Something went wrong while scheduling the announcement. Please try again later.")
	}
}
