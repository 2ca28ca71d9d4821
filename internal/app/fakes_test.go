package app

import (
	"context"
	"errors"
	"io"
	"slices"
	"sort"
	"sync"
	"time"

	"evdb_notifier/internal/domain/changelog"
	"evdb_notifier/internal/domain/notification"
	"evdb_notifier/internal/domain/user"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// memoryNotificationRepo mimics the conditional updates of the Postgres repository.
type memoryNotificationRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*notification.ScheduledNotification

	completeErr error
}

func newMemoryNotificationRepo() *memoryNotificationRepo {
	return &memoryNotificationRepo{rows: make(map[int64]*notification.ScheduledNotification)}
}

func clone(n *notification.ScheduledNotification) *notification.ScheduledNotification {
	c := *n
	c.TargetRoles = slices.Clone(n.TargetRoles)
	c.TargetUserIDs = slices.Clone(n.TargetUserIDs)
	return &c
}

func (r *memoryNotificationRepo) Create(_ context.Context, n *notification.ScheduledNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	r.rows[n.ID] = clone(n)
	return nil
}

func (r *memoryNotificationRepo) put(n *notification.ScheduledNotification) *notification.ScheduledNotification {
	_ = r.Create(context.Background(), n)
	return n
}

func (r *memoryNotificationRepo) get(id int64) *notification.ScheduledNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.rows[id])
}

func (r *memoryNotificationRepo) GetByID(_ context.Context, id int64) (*notification.ScheduledNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return nil, notification.ErrNotFound
	}
	return clone(n), nil
}

func (r *memoryNotificationRepo) List(_ context.Context, filter notification.ListFilter) ([]*notification.ScheduledNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*notification.ScheduledNotification, 0)
	for _, n := range r.rows {
		if filter.Status != "" && n.Status != filter.Status {
			continue
		}
		out = append(out, clone(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memoryNotificationRepo) ClaimDue(_ context.Context, now time.Time, limit int) ([]*notification.ScheduledNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0)
	for id, n := range r.rows {
		if n.IsDue(now) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*notification.ScheduledNotification, 0, len(ids))
	for _, id := range ids {
		r.rows[id].Status = notification.StatusProcessing
		out = append(out, clone(r.rows[id]))
	}
	return out, nil
}

func (r *memoryNotificationRepo) Complete(_ context.Context, id int64, status notification.Status, sent, failed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completeErr != nil {
		return r.completeErr
	}
	n, ok := r.rows[id]
	if !ok {
		return notification.ErrNotFound
	}
	if n.Status != notification.StatusProcessing || !notification.IsOutcome(status) {
		return notification.ErrConflict
	}
	n.Status = status
	n.SentCount = sent
	n.FailureCount = failed
	return nil
}

func (r *memoryNotificationRepo) Release(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return notification.ErrNotFound
	}
	if n.Status != notification.StatusProcessing {
		return notification.ErrConflict
	}
	n.Status = notification.StatusPending
	return nil
}

func (r *memoryNotificationRepo) Cancel(_ context.Context, id int64) (*notification.ScheduledNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return nil, notification.ErrNotFound
	}
	if !notification.Cancellable(n.Status) {
		return nil, notification.ErrConflict
	}
	n.Status = notification.StatusCancelled
	return clone(n), nil
}

type memoryUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  []*user.User

	listErr error
}

func (r *memoryUserRepo) add(telegramID int64, name, role string, active bool) *user.User {
	u := &user.User{TelegramID: telegramID, Name: name, Role: role, IsActive: active}
	_ = r.Create(context.Background(), u)
	return u
}

func (r *memoryUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.TelegramID == u.TelegramID {
			return user.ErrDuplicateTelegramID
		}
	}
	r.nextID++
	u.ID = r.nextID
	r.users = append(r.users, u)
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *memoryUserRepo) GetByTelegramID(_ context.Context, telegramID int64) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.TelegramID == telegramID {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *memoryUserRepo) Update(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.users {
		if existing.ID == u.ID {
			r.users[i] = u
			return nil
		}
	}
	return user.ErrNotFound
}

func (r *memoryUserRepo) filter(keep func(*user.User) bool) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]*user.User, 0)
	for _, u := range r.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryUserRepo) ListActive(context.Context) ([]*user.User, error) {
	return r.filter(func(u *user.User) bool { return u.IsActive })
}

func (r *memoryUserRepo) ListActiveByRoles(_ context.Context, roles []string) ([]*user.User, error) {
	return r.filter(func(u *user.User) bool { return u.IsActive && slices.Contains(roles, u.Role) })
}

func (r *memoryUserRepo) ListActiveByIDs(_ context.Context, ids []int64) ([]*user.User, error) {
	return r.filter(func(u *user.User) bool { return u.IsActive && slices.Contains(ids, u.ID) })
}

func (r *memoryUserRepo) ListAll(context.Context) ([]*user.User, error) {
	return r.filter(func(*user.User) bool { return true })
}

type memoryChangelogRepo struct {
	nextID  int64
	entries []*changelog.Entry
}

func (r *memoryChangelogRepo) Create(_ context.Context, e *changelog.Entry) error {
	for _, existing := range r.entries {
		if existing.Version == e.Version {
			return changelog.ErrDuplicateVersion
		}
	}
	r.nextID++
	e.ID = r.nextID
	r.entries = append(r.entries, e)
	return nil
}

func (r *memoryChangelogRepo) GetByVersion(_ context.Context, v string) (*changelog.Entry, error) {
	for _, e := range r.entries {
		if e.Version == v {
			return e, nil
		}
	}
	return nil, changelog.ErrNotFound
}

func (r *memoryChangelogRepo) List(context.Context) ([]*changelog.Entry, error) {
	return slices.Clone(r.entries), nil
}

// scriptedDeliverer fails for the Telegram IDs listed in failFor.
type scriptedDeliverer struct {
	mu        sync.Mutex
	failFor   map[int64]bool
	delivered map[int64][]int64 // notification id -> telegram ids
}

func newScriptedDeliverer(failFor ...int64) *scriptedDeliverer {
	d := &scriptedDeliverer{failFor: make(map[int64]bool), delivered: make(map[int64][]int64)}
	for _, id := range failFor {
		d.failFor[id] = true
	}
	return d
}

func (d *scriptedDeliverer) Deliver(_ context.Context, recipient *user.User, n *notification.ScheduledNotification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor[recipient.TelegramID] {
		return errors.New("chat not found")
	}
	d.delivered[n.ID] = append(d.delivered[n.ID], recipient.TelegramID)
	return nil
}

type sentMessage struct {
	chatID int64
	text   string
	opts   *telebot.SendOptions
}

type fakeChatClient struct {
	sent []sentMessage
	err  error
}

func (c *fakeChatClient) SendMessage(chatID int64, text string, opts *telebot.SendOptions) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sentMessage{chatID: chatID, text: text, opts: opts})
	return nil
}
