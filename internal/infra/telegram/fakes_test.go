package telegram

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"evdb_notifier/internal/app"
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

// fakeContext implements the parts of telebot.Context the handlers use.
type fakeContext struct {
	telebot.Context

	sender    *telebot.User
	args      []string
	payload   string
	callback  *telebot.Callback
	sent      []string
	markups   []*telebot.ReplyMarkup
	responses []*telebot.CallbackResponse
}

func (c *fakeContext) Sender() *telebot.User { return c.sender }
func (c *fakeContext) Args() []string { return c.args }
func (c *fakeContext) Text() string { return c.payload }
func (c *fakeContext) Callback() *telebot.Callback { return c.callback }

func (c *fakeContext) Message() *telebot.Message {
	return &telebot.Message{Sender: c.sender, Payload: c.payload}
}

func (c *fakeContext) Send(what interface{}, opts ...interface{}) error {
	c.sent = append(c.sent, fmt.Sprint(what))
	for _, o := range opts {
		if m, ok := o.(*telebot.ReplyMarkup); ok {
			c.markups = append(c.markups, m)
		}
	}
	return nil
}

func (c *fakeContext) Respond(resp ...*telebot.CallbackResponse) error {
	c.responses = append(c.responses, resp...)
	return nil
}

func (c *fakeContext) lastSent() string {
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1]
}

type memoryUsers struct {
	mu    sync.Mutex
	users []*user.User
}

func (r *memoryUsers) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = int64(len(r.users) + 1)
	r.users = append(r.users, u)
	return nil
}

func (r *memoryUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	return r.find(func(u *user.User) bool { return u.ID == id })
}

func (r *memoryUsers) GetByTelegramID(_ context.Context, telegramID int64) (*user.User, error) {
	return r.find(func(u *user.User) bool { return u.TelegramID == telegramID })
}

func (r *memoryUsers) find(match func(*user.User) bool) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *memoryUsers) Update(context.Context, *user.User) error { return nil }

func (r *memoryUsers) filter(keep func(*user.User) bool) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*user.User, 0)
	for _, u := range r.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryUsers) ListActive(context.Context) ([]*user.User, error) {
	return r.filter(func(u *user.User) bool { return u.IsActive })
}

func (r *memoryUsers) ListActiveByRoles(_ context.Context, roles []string) ([]*user.User, error) {
	return r.filter(func(u *user.User) bool { return u.IsActive && slices.Contains(roles, u.Role) })
}

func (r *memoryUsers) ListActiveByIDs(_ context.Context, ids []int64) ([]*user.User, error) {
	return r.filter(func(u *user.User) bool { return u.IsActive && slices.Contains(ids, u.ID) })
}

func (r *memoryUsers) ListAll(context.Context) ([]*user.User, error) {
	return r.filter(func(*user.User) bool { return true })
}

type memoryNotifications struct {
	mu   sync.Mutex
	rows []*notification.ScheduledNotification
}

func (r *memoryNotifications) Create(_ context.Context, n *notification.ScheduledNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = int64(len(r.rows) + 1)
	c := *n
	r.rows = append(r.rows, &c)
	return nil
}

func (r *memoryNotifications) GetByID(_ context.Context, id int64) (*notification.ScheduledNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 1 || int(id) > len(r.rows) {
		return nil, notification.ErrNotFound
	}
	c := *r.rows[id-1]
	return &c, nil
}

func (r *memoryNotifications) List(_ context.Context, filter notification.ListFilter) ([]*notification.ScheduledNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*notification.ScheduledNotification, 0)
	for _, n := range r.rows {
		if filter.Status == "" || n.Status == filter.Status {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memoryNotifications) ClaimDue(context.Context, time.Time, int) ([]*notification.ScheduledNotification, error) {
	return nil, nil
}

func (r *memoryNotifications) Complete(context.Context, int64, notification.Status, int, int) error {
	return nil
}

func (r *memoryNotifications) Release(context.Context, int64) error {
	return nil
}

func (r *memoryNotifications) Cancel(_ context.Context, id int64) (*notification.ScheduledNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 1 || int(id) > len(r.rows) {
		return nil, notification.ErrNotFound
	}
	n := r.rows[id-1]
	if !notification.Cancellable(n.Status) {
		return nil, notification.ErrConflict
	}
	n.Status = notification.StatusCancelled
	c := *n
	return &c, nil
}

type noopDeliverer struct{}

func (noopDeliverer) Deliver(context.Context, *user.User, *notification.ScheduledNotification) error {
	return nil
}

type fakeRunner struct {
	report *app.ProcessReport
	err    error
	calls  int
}

func (r *fakeRunner) RunOnce(context.Context) (*app.ProcessReport, error) {
	r.calls++
	return r.report, r.err
}
