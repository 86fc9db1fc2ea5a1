package app

import (
	"context"
	"errors"
	"taskremind/internal/config"
	"taskremind/internal/domain"
	"taskremind/internal/infra/mail"
	"taskremind/internal/infra/memory"
	"taskremind/internal/infra/redisx"
	"taskremind/internal/infra/sqlstore"
	"taskremind/internal/ports"
	"taskremind/internal/realtime"
	"taskremind/internal/usecase"
	"taskremind/pkg/backoff"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		DB: config.DB{Driver: sqlstore.DriverSQLite, DSN: ":memory:"},
		Reminder: config.Reminder{
			Stages:          "24h:24h:30m:1h,1h:1h:10m:30m",
			ScanPeriod:      time.Minute,
			Cooldown:        24 * time.Hour,
			MarkerBackend:   MarkerMemory,
			MarkerCacheSize: 1000,
		},
		Digest: config.Digest{Period: 2 * time.Hour, ExcludedTypes: []string{"DEADLINE_REMINDER", "CHAT_MESSAGE"}},
		App:    config.App{BaseURL: "http://app.local", SenderName: "Deadline Reminder"},
	}
}

func newTestApp(t *testing.T, opts Options) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

type captureMailer struct {
	to      []string
	digests []domain.Digest
}

func (m *captureMailer) Send(_ context.Context, to, _ string, d domain.Digest) error {
	m.to = append(m.to, to)
	m.digests = append(m.digests, d)
	return nil
}

func TestNew_LocalWiring(t *testing.T) {
	a := newTestApp(t, Options{Realtime: RealtimeLocal, Markers: true})

	assert.Nil(t, a.Redis)
	require.NotNil(t, a.Hub)
	assert.IsType(t, &realtime.Hub{}, a.Publisher)
	assert.IsType(t, &memory.MarkerStore{}, a.Markers)
	assert.IsType(t, mail.LogMailer{}, a.Mailer)
	assert.NoError(t, a.Ping(context.Background()))

	_, err := a.Relay()
	assert.Error(t, err)
}

func TestNew_SMTPMailerWhenHostSet(t *testing.T) {
	cfg := testConfig()
	cfg.Mail = config.Mail{Host: "smtp.example.com", Port: 587, From: "no-reply@example.com"}

	a, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	defer a.Close()
	assert.IsType(t, &mail.SMTPMailer{}, a.Mailer)
	assert.Nil(t, a.Publisher)
	assert.Nil(t, a.Markers)
}

func TestNew_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Reminder.MarkerBackend = "memcached"
	_, err := New(context.Background(), cfg, Options{Markers: true})
	assert.ErrorContains(t, err, "unknown marker backend")

	cfg = testConfig()
	cfg.Reminder.Stages = "1h:1h:0s:30m"
	_, err = New(context.Background(), cfg, Options{})
	assert.Error(t, err)

	cfg = testConfig()
	cfg.DB.Driver = "mysql"
	_, err = New(context.Background(), cfg, Options{ConnectAttempts: 1})
	assert.ErrorContains(t, err, "connecting to database")
}

func TestScanAndDigestEndToEnd(t *testing.T) {
	a := newTestApp(t, Options{Realtime: RealtimeLocal, Markers: true})
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	require.NoError(t, a.Store.UpsertUser(ctx, domain.User{ID: "u-alice", Name: "Alice", Email: "alice@example.com"}))
	require.NoError(t, a.Store.UpsertUser(ctx, domain.User{ID: "u-bob", Name: "Bob", Email: "bob@example.com"}))
	require.NoError(t, a.Store.UpsertProject(ctx, domain.Project{ID: "p-1", Name: "Launch"}))
	deadline := now.Add(time.Hour)
	require.NoError(t, a.Store.UpsertTask(ctx, sqlstore.NewTask{
		ID: "t-1", ProjectID: "p-1", Title: "Ship it", Deadline: &deadline, AssigneeID: "u-alice", CreatorID: "u-bob",
	}))

	scanner := a.Scanner()
	res, err := scanner.RunOnce(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fired)

	res, err = scanner.RunOnce(ctx, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Zero(t, res.Fired)

	for _, u := range []string{"u-alice", "u-bob"} {
		ns, err := a.Store.ListForRecipient(ctx, u, true, 10)
		require.NoError(t, err)
		require.Len(t, ns, 1, u)
		assert.Equal(t, domain.TypeDeadlineReminder, ns[0].Type)
		assert.Equal(t, `Task "Ship it" is due in 1 hour. Time to wrap it up!`, ns[0].Message)
		assert.Equal(t, "http://app.local/projects/p-1/board?task=t-1", ns[0].Link)
		assert.Equal(t, "Deadline Reminder", ns[0].SenderName)
	}

	_, err = a.Notifier().Create(ctx, usecase.NewNotification{
		RecipientID: "u-alice", Type: domain.TypeTaskComment, Message: "Bob commented on Ship it",
	})
	require.NoError(t, err)

	mailer := &captureMailer{}
	a.Mailer = mailer
	dres, err := a.Aggregator().RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dres.Sent)
	require.Equal(t, []string{"alice@example.com"}, mailer.to)
	require.Len(t, mailer.digests[0].Entries, 1)
	assert.Equal(t, "bi-chat-left-text", mailer.digests[0].Entries[0].Icon)

	pending, err := a.Store.ListPendingDigest(ctx, ports.PendingFilter{ExcludedTypes: a.Cfg.Digest.Excluded()})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestNew_RedisDownStillFiresOnDurableMarker(t *testing.T) {
	cfg := testConfig()
	cfg.Reminder.MarkerBackend = MarkerRedis
	cfg.Redis = config.Redis{Addr: "127.0.0.1:1", ChannelPrefix: "notifications:user:"}

	ctx := context.Background()
	a, err := New(ctx, cfg, Options{Realtime: RealtimeRedis, Markers: true, ConnectAttempts: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.IsType(t, &redisx.MarkerStore{}, a.Markers)
	assert.Error(t, a.Ping(ctx))

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, a.Store.UpsertUser(ctx, domain.User{ID: "u-alice", Name: "Alice", Email: "alice@example.com"}))
	require.NoError(t, a.Store.UpsertProject(ctx, domain.Project{ID: "p-1", Name: "Launch"}))
	deadline := now.Add(time.Hour)
	require.NoError(t, a.Store.UpsertTask(ctx, sqlstore.NewTask{
		ID: "t-1", ProjectID: "p-1", Title: "Ship it", Deadline: &deadline, AssigneeID: "u-alice",
	}))

	scanner := a.Scanner()
	res, err := scanner.RunOnce(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fired)

	res, err = scanner.RunOnce(ctx, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Zero(t, res.Fired)

	ns, err := a.Store.ListForRecipient(ctx, "u-alice", false, 10)
	require.NoError(t, err)
	assert.Len(t, ns, 1)
}

func TestRetry(t *testing.T) {
	fast := backoff.Policy{Base: time.Millisecond, Max: time.Millisecond}
	calls := 0
	err := retry(context.Background(), "thing", 3, fast, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	boom := errors.New("down")
	calls = 0
	err = retry(context.Background(), "thing", 2, fast, func(context.Context) error { calls++; return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = retry(ctx, "thing", 5, backoff.Policy{Base: time.Hour, Max: time.Hour}, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, context.Canceled)
}
