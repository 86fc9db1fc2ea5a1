package usecase

import (
	"context"
	"errors"
	"slices"
	"sync"
	"taskremind/internal/domain"
	"taskremind/internal/ports"
	"time"
)

var errDown = errors.New("connection refused")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeTasks struct {
	mu      sync.Mutex
	tasks   []domain.Task
	listErr error
	// unfiltered returns every task, deadline or not.
	unfiltered bool
}

func (f *fakeTasks) ListDueBetween(_ context.Context, from, to time.Time) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Task
	for _, t := range f.tasks {
		if !f.unfiltered && (t.Deadline == nil || t.Deadline.Before(from) || t.Deadline.After(to)) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTasks) MarkReminderSent(_ context.Context, taskID, stage string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			st, ts := stage, at
			f.tasks[i].LastReminderStage = &st
			f.tasks[i].LastReminderSentAt = &ts
			return nil
		}
	}
	return ports.ErrNotFound
}

type fakeMarkers struct {
	mu    sync.Mutex
	clock *fakeClock
	keys  map[string]time.Time
	down  bool
}

func newFakeMarkers(c *fakeClock) *fakeMarkers {
	return &fakeMarkers{clock: c, keys: make(map[string]time.Time)}
}

func (f *fakeMarkers) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return false, errDown
	}
	exp, ok := f.keys[key]
	return ok && f.clock.Now().Before(exp), nil
}

func (f *fakeMarkers) Set(_ context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errDown
	}
	f.keys[key] = f.clock.Now().Add(ttl)
	return nil
}

func (f *fakeMarkers) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = make(map[string]time.Time)
}

type fakeNotifications struct {
	mu      sync.Mutex
	rows    []domain.Notification
	failAll bool
}

func (f *fakeNotifications) CreateNotification(_ context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errDown
	}
	f.rows = append(f.rows, n)
	return nil
}

func (f *fakeNotifications) ListPendingDigest(_ context.Context, flt ports.PendingFilter) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for _, n := range f.rows {
		if n.Emailed || slices.Contains(flt.ExcludedTypes, n.Type) {
			continue
		}
		if flt.RecipientID != "" && n.RecipientID != flt.RecipientID {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeNotifications) MarkEmailed(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if slices.Contains(ids, f.rows[i].ID) {
			f.rows[i].Emailed = true
		}
	}
	return nil
}

func (f *fakeNotifications) ListForRecipient(_ context.Context, recipientID string, unreadOnly bool, _ int) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for _, n := range f.rows {
		if n.RecipientID == recipientID && (!unreadOnly || n.Status == domain.StatusUnread) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Status = domain.StatusRead
			return nil
		}
	}
	return ports.ErrNotFound
}

func (f *fakeNotifications) count(recipientID string, emailed bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := 0
	for _, n := range f.rows {
		if n.RecipientID == recipientID && n.Emailed == emailed {
			c++
		}
	}
	return c
}

type fakePublisher struct {
	mu       sync.Mutex
	sent     []domain.Payload
	to       []string
	failFor  map[string]bool
	attempts int
}

func (f *fakePublisher) Publish(_ context.Context, recipientID string, p domain.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failFor[recipientID] {
		return errors.New("recipient not connected")
	}
	f.sent = append(f.sent, p)
	f.to = append(f.to, recipientID)
	return nil
}

type fakeUsers map[string]*domain.User

func (f fakeUsers) GetUser(_ context.Context, id string) (*domain.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return u, nil
}

type sentMail struct {
	to      string
	subject string
	body    domain.Digest
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	failFor map[string]bool
	calls   int
}

func (f *fakeMailer) Send(_ context.Context, to, subject string, body domain.Digest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failFor[to] {
		return errors.New("smtp: 451 try again later")
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}
