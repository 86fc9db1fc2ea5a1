package sqlstore

import (
	"context"
	"os"
	"taskremind/internal/domain"
	"taskremind/internal/ports"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates an in-memory SQLite store with all migrations applied.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})
	return s
}

func seed(t *testing.T, s *Store) time.Time {
	t.Helper()
	ctx := context.Background()

	for _, u := range []domain.User{
		{ID: "u-alice", Name: "Alice", Email: "alice@example.com"},
		{ID: "u-bob", Name: "Bob", Email: "bob@example.com", AvatarURL: "https://cdn.example.com/bob.png"},
		{ID: "u-carol", Name: "Carol", Email: "carol@example.com"},
	} {
		require.NoError(t, s.UpsertUser(ctx, u))
	}
	require.NoError(t, s.UpsertProject(ctx, domain.Project{ID: "p-1", Name: "Launch"}))

	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	soon, later, past := base.Add(time.Hour), base.Add(48*time.Hour), base.Add(-time.Hour)
	require.NoError(t, s.UpsertTask(ctx, NewTask{ID: "t-soon", ProjectID: "p-1", Title: "Soon", Deadline: &soon, AssigneeID: "u-alice", CreatorID: "u-bob"}))
	require.NoError(t, s.UpsertTask(ctx, NewTask{ID: "t-later", ProjectID: "p-1", Title: "Later", Deadline: &later, CreatorID: "u-bob"}))
	require.NoError(t, s.UpsertTask(ctx, NewTask{ID: "t-past", ProjectID: "p-1", Title: "Past", Deadline: &past, CreatorID: "u-bob"}))
	require.NoError(t, s.UpsertTask(ctx, NewTask{ID: "t-none", ProjectID: "p-1", Title: "No deadline", CreatorID: "u-bob"}))
	require.NoError(t, s.AddFollower(ctx, "t-soon", "u-carol"))
	require.NoError(t, s.AddFollower(ctx, "t-soon", "u-alice"))
	require.NoError(t, s.AddFollower(ctx, "t-soon", "u-alice"))
	return base
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.migrate(context.Background()))

	var n int
	require.NoError(t, s.db.Get(&n, "SELECT COUNT(*) FROM schema_version"))
	assert.Equal(t, len(migrations), n)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	assert.Error(t, err)
}

func TestListDueBetween(t *testing.T) {
	s := newTestStore(t)
	now := seed(t, s)

	tasks, err := s.ListDueBetween(context.Background(), now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	task := tasks[0]
	assert.Equal(t, "t-soon", task.ID)
	assert.Equal(t, "Soon", task.Title)
	assert.Equal(t, "p-1", task.ProjectID)
	require.NotNil(t, task.Deadline)
	assert.True(t, task.Deadline.Equal(now.Add(time.Hour)))
	require.NotNil(t, task.Assignee)
	assert.Equal(t, "alice@example.com", task.Assignee.Email)
	require.NotNil(t, task.Creator)
	assert.Equal(t, "https://cdn.example.com/bob.png", task.Creator.AvatarURL)
	require.Len(t, task.Followers, 2)
	assert.Equal(t, "u-alice", task.Followers[0].User.ID)
	assert.Equal(t, "u-carol", task.Followers[1].User.ID)
	assert.Nil(t, task.LastReminderStage)

	tasks, err = s.ListDueBetween(context.Background(), now, now.Add(72*time.Hour))
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "t-later", tasks[1].ID)
	assert.Nil(t, tasks[1].Assignee)
	assert.Empty(t, tasks[1].Followers)
}

func TestListDueBetween_Empty(t *testing.T) {
	s := newTestStore(t)

	tasks, err := s.ListDueBetween(context.Background(), time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestMarkReminderSent(t *testing.T) {
	s := newTestStore(t)
	now := seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.MarkReminderSent(ctx, "t-soon", "1h", now))
	task, err := s.GetTask(ctx, "t-soon")
	require.NoError(t, err)
	require.NotNil(t, task.LastReminderStage)
	assert.Equal(t, "1h", *task.LastReminderStage)
	require.NotNil(t, task.LastReminderSentAt)
	assert.True(t, task.LastReminderSentAt.Equal(now))
	assert.True(t, task.RemindedWithin("1h", now.Add(time.Minute), 24*time.Hour))

	assert.ErrorIs(t, s.MarkReminderSent(ctx, "t-missing", "1h", now), ports.ErrNotFound)
	_, err = s.GetTask(ctx, "t-missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestGetUser(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	u, err := s.GetUser(context.Background(), "u-bob")
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: "u-bob", Name: "Bob", Email: "bob@example.com", AvatarURL: "https://cdn.example.com/bob.png"}, *u)

	_, err = s.GetUser(context.Background(), "u-nobody")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func notification(id, recipient string, typ domain.NotificationType, at time.Time) domain.Notification {
	return domain.Notification{
		ID: id, RecipientID: recipient, Type: typ, ReferenceID: "t-soon",
		Title: "title " + id, Message: "message " + id, Link: "/projects/p-1/board?task=t-soon",
		Status: domain.StatusUnread, CreatedAt: at,
	}
}

func TestNotifications_PendingDigestLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 8, 0, 0, 123456000, time.UTC)

	rows := []domain.Notification{
		notification("n-3", "u-bob", domain.TypeTaskComment, at.Add(2*time.Minute)),
		notification("n-1", "u-alice", domain.TypeTaskComment, at.Add(time.Minute)),
		notification("n-2", "u-alice", domain.TypeMention, at),
		notification("n-4", "u-alice", domain.TypeDeadlineReminder, at),
	}
	for _, n := range rows {
		require.NoError(t, s.CreateNotification(ctx, n))
	}

	excluded := []domain.NotificationType{domain.TypeDeadlineReminder, domain.TypeChatMessage}
	pending, err := s.ListPendingDigest(ctx, ports.PendingFilter{ExcludedTypes: excluded})
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []string{"n-2", "n-1", "n-3"}, ids(pending))
	assert.Equal(t, rows[2], pending[0])

	pending, err = s.ListPendingDigest(ctx, ports.PendingFilter{RecipientID: "u-alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"n-2", "n-4", "n-1"}, ids(pending))

	require.NoError(t, s.MarkEmailed(ctx, []string{"n-1", "n-2"}))
	require.NoError(t, s.MarkEmailed(ctx, nil))
	pending, err = s.ListPendingDigest(ctx, ports.PendingFilter{ExcludedTypes: excluded})
	require.NoError(t, err)
	assert.Equal(t, []string{"n-3"}, ids(pending))
}

func TestNotifications_ReadState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateNotification(ctx, notification("n-1", "u-alice", domain.TypeMention, at)))
	require.NoError(t, s.CreateNotification(ctx, notification("n-2", "u-alice", domain.TypeMention, at.Add(time.Minute))))
	require.NoError(t, s.CreateNotification(ctx, notification("n-3", "u-bob", domain.TypeMention, at)))

	require.NoError(t, s.MarkRead(ctx, "n-2"))
	assert.ErrorIs(t, s.MarkRead(ctx, "n-404"), ports.ErrNotFound)

	all, err := s.ListForRecipient(ctx, "u-alice", false, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"n-2", "n-1"}, ids(all))
	assert.Equal(t, domain.StatusRead, all[0].Status)

	unread, err := s.ListForRecipient(ctx, "u-alice", true, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"n-1"}, ids(unread))

	limited, err := s.ListForRecipient(ctx, "u-alice", false, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres integration test")
	}
	s, err := Open(context.Background(), DriverPostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Ping(context.Background()))
	_, err = s.ListPendingDigest(context.Background(), ports.PendingFilter{ExcludedTypes: []domain.NotificationType{domain.TypeChatMessage}})
	require.NoError(t, err)
}

func ids(ns []domain.Notification) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.ID)
	}
	return out
}
