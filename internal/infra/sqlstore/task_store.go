package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"taskremind/internal/domain"
	"taskremind/internal/ports"
	"time"

	"github.com/jmoiron/sqlx"
)

type taskRow struct {
	ID                 string         `db:"id"`
	Title              string         `db:"title"`
	ProjectID          string         `db:"project_id"`
	Deadline           sql.NullTime   `db:"deadline"`
	LastReminderSentAt sql.NullTime   `db:"last_reminder_sent_at"`
	LastReminderStage  sql.NullString `db:"last_reminder_stage"`

	AssigneeID     sql.NullString `db:"assignee_id"`
	AssigneeName   sql.NullString `db:"assignee_name"`
	AssigneeEmail  sql.NullString `db:"assignee_email"`
	AssigneeAvatar sql.NullString `db:"assignee_avatar"`

	CreatorID     sql.NullString `db:"creator_id"`
	CreatorName   sql.NullString `db:"creator_name"`
	CreatorEmail  sql.NullString `db:"creator_email"`
	CreatorAvatar sql.NullString `db:"creator_avatar"`
}

func joinedUser(id, name, email, avatar sql.NullString) *domain.User {
	if !id.Valid {
		return nil
	}
	return &domain.User{ID: id.String, Name: name.String, Email: email.String, AvatarURL: avatar.String}
}

func (r taskRow) toDomain() domain.Task {
	t := domain.Task{
		ID:        r.ID,
		Title:     r.Title,
		ProjectID: r.ProjectID,
		Assignee:  joinedUser(r.AssigneeID, r.AssigneeName, r.AssigneeEmail, r.AssigneeAvatar),
		Creator:   joinedUser(r.CreatorID, r.CreatorName, r.CreatorEmail, r.CreatorAvatar),
	}
	if r.Deadline.Valid {
		d := r.Deadline.Time.UTC()
		t.Deadline = &d
	}
	if r.LastReminderSentAt.Valid {
		at := r.LastReminderSentAt.Time.UTC()
		t.LastReminderSentAt = &at
	}
	if r.LastReminderStage.Valid {
		st := r.LastReminderStage.String
		t.LastReminderStage = &st
	}
	return t
}

const selectTasks = `
SELECT t.id, t.title, t.project_id, t.deadline, t.last_reminder_sent_at, t.last_reminder_stage,
	a.id AS assignee_id, a.name AS assignee_name, a.email AS assignee_email, a.avatar_url AS assignee_avatar,
	c.id AS creator_id, c.name AS creator_name, c.email AS creator_email, c.avatar_url AS creator_avatar
FROM tasks t
LEFT JOIN users a ON a.id = t.assignee_id
LEFT JOIN users c ON c.id = t.creator_id`

func (s *Store) ListDueBetween(ctx context.Context, from, to time.Time) ([]domain.Task, error) {
	var rows []taskRow
	q := s.db.Rebind(selectTasks + `
WHERE t.deadline IS NOT NULL AND t.deadline >= ? AND t.deadline <= ?
ORDER BY t.deadline, t.id`)
	if err := s.db.SelectContext(ctx, &rows, q, dbTime(from), dbTime(to)); err != nil {
		return nil, fmt.Errorf("querying due tasks: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	tasks := make([]domain.Task, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toDomain())
		ids = append(ids, r.ID)
	}

	followers, err := s.followers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].Followers = followers[tasks[i].ID]
	}
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var r taskRow
	if err := s.db.GetContext(ctx, &r, s.db.Rebind(selectTasks+` WHERE t.id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	t := r.toDomain()
	followers, err := s.followers(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	t.Followers = followers[id]
	return &t, nil
}

func (s *Store) followers(ctx context.Context, taskIDs []string) (map[string][]domain.Follower, error) {
	q, args, err := sqlx.In(`
SELECT f.task_id, u.id, u.name, u.email, u.avatar_url
FROM task_followers f
JOIN users u ON u.id = f.user_id
WHERE f.task_id IN (?)
ORDER BY f.task_id, u.id`, taskIDs)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("querying followers: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Follower)
	for rows.Next() {
		var taskID string
		u := &domain.User{}
		if err := rows.Scan(&taskID, &u.ID, &u.Name, &u.Email, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("scanning follower: %w", err)
		}
		out[taskID] = append(out[taskID], domain.Follower{User: u})
	}
	return out, rows.Err()
}

func (s *Store) MarkReminderSent(ctx context.Context, taskID, stage string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE tasks SET last_reminder_sent_at = ?, last_reminder_stage = ? WHERE id = ?`),
		dbTime(at), stage, taskID,
	)
	if err != nil {
		return fmt.Errorf("updating last reminder of %s: %w", taskID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// NewTask is the write model used by seeding and tests; task editing
// itself belongs to the task-management service.
type NewTask struct {
	ID         string
	ProjectID  string
	Title      string
	Deadline   *time.Time
	AssigneeID string
	CreatorID  string
}

func (s *Store) UpsertTask(ctx context.Context, t NewTask) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO tasks (id, project_id, title, deadline, assignee_id, creator_id)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	project_id = excluded.project_id,
	title = excluded.title,
	deadline = excluded.deadline,
	assignee_id = excluded.assignee_id,
	creator_id = excluded.creator_id`),
		t.ID, t.ProjectID, t.Title, nullTime(t.Deadline), nullString(t.AssigneeID), nullString(t.CreatorID),
	)
	if err != nil {
		return fmt.Errorf("upserting task %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) AddFollower(ctx context.Context, taskID, userID string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO task_followers (task_id, user_id) VALUES (?, ?)
ON CONFLICT (task_id, user_id) DO NOTHING`), taskID, userID)
	if err != nil {
		return fmt.Errorf("adding follower %s to %s: %w", userID, taskID, err)
	}
	return nil
}

func (s *Store) UpsertProject(ctx context.Context, p domain.Project) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO projects (id, name) VALUES (?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name`), p.ID, p.Name)
	if err != nil {
		return fmt.Errorf("upserting project %s: %w", p.ID, err)
	}
	return nil
}
