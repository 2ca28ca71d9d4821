// internal/infra/telegram/commands.go
package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"evdb_notifier/internal/app"
	"evdb_notifier/internal/domain/changelog"
	"evdb_notifier/internal/domain/notification"
)

const (
	usageSchedule     = "/schedule <when>[,<ttl>] <type> <audience> [link=<url>] <title> | <content>"
	usageReschedule   = "/reschedule <id> <when>"
	usageCancel       = "/cancel <id>"
	usageAddChangelog = "/add_changelog <version> <type> [publish] <title> | <change>; <change>"
	usageAnnounce     = "/announce <version> [when]"
	usageAddUser      = "/add_user <TelegramID> <role> <name>"
	usageRemoveUser   = "/remove_user <TelegramID>"

	displayTimeFormat = "2006-01-02 15:04 MST"
)

var errUsage = errors.New("invalid command format")

// parseWhen reads "now", "+<duration>" or an RFC3339 timestamp, optionally followed by ",<ttl>".
// The ttl is a duration after the scheduled time and becomes the expiry.
func parseWhen(token string, now time.Time) (time.Time, *time.Time, error) {
	whenTok, ttlTok, hasTTL := strings.Cut(token, ",")

	var at time.Time
	switch {
	case strings.EqualFold(whenTok, "now"):
		at = now
	case strings.HasPrefix(whenTok, "+"):
		d, err := time.ParseDuration(whenTok[1:])
		if err != nil || d < 0 {
			return time.Time{}, nil, fmt.Errorf("%w: bad delay %q", errUsage, whenTok)
		}
		at = now.Add(d)
	default:
		t, err := time.Parse(time.RFC3339, whenTok)
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("%w: %q is neither now, +<duration> nor an RFC3339 time", errUsage, whenTok)
		}
		at = t
	}

	if !hasTTL {
		return at, nil, nil
	}
	ttl, err := time.ParseDuration(ttlTok)
	if err != nil || ttl <= 0 {
		return time.Time{}, nil, fmt.Errorf("%w: bad ttl %q", errUsage, ttlTok)
	}
	expires := at.Add(ttl)
	return at, &expires, nil
}

// parseAudience reads "all", "roles:<r1>,<r2>" or "users:<id1>,<id2>".
func parseAudience(token string) (notification.TargetAudience, []string, []int64, error) {
	kind, targets, _ := strings.Cut(token, ":")
	switch strings.ToLower(kind) {
	case "all":
		if targets != "" {
			return "", nil, nil, fmt.Errorf("%w: audience all takes no targets", errUsage)
		}
		return notification.AudienceAllUsers, nil, nil, nil
	case "roles":
		var roles []string
		for _, r := range strings.Split(targets, ",") {
			if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
				roles = append(roles, r)
			}
		}
		if len(roles) == 0 {
			return "", nil, nil, fmt.Errorf("%w: roles audience needs at least one role", errUsage)
		}
		return notification.AudienceSpecificRoles, roles, nil, nil
	case "users":
		var ids []int64
		for _, raw := range strings.Split(targets, ",") {
			if raw = strings.TrimSpace(raw); raw == "" {
				continue
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return "", nil, nil, fmt.Errorf("%w: user id %q is not a number", errUsage, raw)
			}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return "", nil, nil, fmt.Errorf("%w: users audience needs at least one id", errUsage)
		}
		return notification.AudienceIndividualUsers, nil, ids, nil
	}
	return "", nil, nil, fmt.Errorf("%w: unknown audience %q", errUsage, kind)
}

// parseScheduleCommand turns a /schedule payload into a request. Content rules are checked by ScheduleService.
func parseScheduleCommand(payload string, now time.Time, createdBy int64) (app.ScheduleRequest, error) {
	head, content, ok := strings.Cut(payload, "|")
	fields := strings.Fields(head)
	if !ok || len(fields) < 4 {
		return app.ScheduleRequest{}, errUsage
	}

	at, expires, err := parseWhen(fields[0], now)
	if err != nil {
		return app.ScheduleRequest{}, err
	}
	kind := notification.Type(strings.ToLower(fields[1]))
	if !kind.Valid() {
		return app.ScheduleRequest{}, fmt.Errorf("%w: unknown type %q, use info, success, warning, error or announcement", errUsage, fields[1])
	}
	audience, roles, ids, err := parseAudience(fields[2])
	if err != nil {
		return app.ScheduleRequest{}, err
	}

	var meta notification.Metadata
	rest := fields[3:]
	if link, found := strings.CutPrefix(rest[0], "link="); found {
		meta = notification.Metadata{Kind: notification.MetadataLink, Link: &notification.LinkMetadata{URL: link}}
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return app.ScheduleRequest{}, fmt.Errorf("%w: title is missing", errUsage)
	}

	return app.ScheduleRequest{
		Title:          strings.Join(rest, " "),
		Content:        strings.TrimSpace(content),
		Type:           kind,
		TargetAudience: audience,
		TargetRoles:    roles,
		TargetUserIDs:  ids,
		Metadata:       meta,
		ScheduledAt:    at,
		ExpiresAt:      expires,
		CreatedBy:      createdBy,
	}, nil
}

// parseChangelogCommand turns an /add_changelog payload into a request.
func parseChangelogCommand(payload string) (app.AddEntryRequest, error) {
	head, body, _ := strings.Cut(payload, "|")
	fields := strings.Fields(head)
	if len(fields) < 3 {
		return app.AddEntryRequest{}, errUsage
	}

	req := app.AddEntryRequest{
		Version:     fields[0],
		ReleaseType: changelog.ReleaseType(strings.ToLower(fields[1])),
	}
	rest := fields[2:]
	if strings.EqualFold(rest[0], "publish") {
		req.Publish = true
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return app.AddEntryRequest{}, fmt.Errorf("%w: title is missing", errUsage)
	}
	req.Title = strings.Join(rest, " ")

	for _, change := range strings.Split(body, ";") {
		if change = strings.TrimSpace(change); change != "" {
			req.Changes = append(req.Changes, change)
		}
	}
	return req, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not an id", errUsage, raw)
	}
	return id, nil
}

func audienceLabel(n *notification.ScheduledNotification) string {
	switch n.TargetAudience {
	case notification.AudienceSpecificRoles:
		return "roles: " + strings.Join(n.TargetRoles, ",")
	case notification.AudienceIndividualUsers:
		ids := make([]string, len(n.TargetUserIDs))
		for i, id := range n.TargetUserIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		return "users: " + strings.Join(ids, ",")
	}
	return "all users"
}

func formatScheduled(n *notification.ScheduledNotification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d [%s] %s, %s, %s", n.ID, n.Status, n.ScheduledAt.UTC().Format(displayTimeFormat), n.Type, audienceLabel(n))
	if n.ExpiresAt.Valid {
		fmt.Fprintf(&b, ", expires %s", n.ExpiresAt.Time.UTC().Format(displayTimeFormat))
	}
	if n.Status == notification.StatusSent || n.Status == notification.StatusFailed {
		fmt.Fprintf(&b, ", delivered %d, failed %d", n.SentCount, n.FailureCount)
	}
	if n.RescheduledFrom.Valid {
		fmt.Fprintf(&b, ", retry of #%d", n.RescheduledFrom.Int64)
	}
	b.WriteString("\n   ")
	b.WriteString(n.Title)
	return b.String()
}

func formatReport(r *app.ProcessReport) string {
	if r == nil || r.Claimed == 0 {
		return "No notifications were due."
	}
	msg := fmt.Sprintf("Processed %d due notification(s): %d sent, %d failed, %d expired.\nDeliveries: %d ok, %d failed.",
		r.Claimed, r.Sent, r.Failed, r.Expired, r.Deliveries, r.DeliveryFailures)
	if r.Released > 0 {
		msg += fmt.Sprintf("\n%d notification(s) were not started in time and stay pending.", r.Released)
	}
	return msg
}

func formatChangelog(entries []*changelog.Entry) string {
	if len(entries) == 0 {
		return "The changelog is empty."
	}
	var b strings.Builder
	b.WriteString("--- Changelog ---")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%s (%s) %s", e.Version, e.ReleaseType, e.Title)
		if !e.IsPublished {
			b.WriteString(" [draft]")
		}
		for _, c := range e.Changes {
			fmt.Fprintf(&b, "\n  • %s", c)
		}
	}
	return b.String()
}
