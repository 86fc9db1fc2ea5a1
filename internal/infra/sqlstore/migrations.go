package sqlstore

// migration holds a single schema migration with its target version and
// statements. Statements are portable between SQLite and Postgres.
type migration struct {
	version    int
	statements []string
}

// migrations is the ordered list of schema migrations.
var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT ''
)`,
			`CREATE TABLE IF NOT EXISTS projects (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS tasks (
	id                    TEXT PRIMARY KEY,
	project_id            TEXT NOT NULL REFERENCES projects(id),
	title                 TEXT NOT NULL,
	deadline              TIMESTAMP,
	assignee_id           TEXT REFERENCES users(id),
	creator_id            TEXT REFERENCES users(id),
	last_reminder_sent_at TIMESTAMP,
	last_reminder_stage   TEXT
)`,
			`CREATE TABLE IF NOT EXISTS task_followers (
	task_id TEXT NOT NULL REFERENCES tasks(id),
	user_id TEXT NOT NULL REFERENCES users(id),
	PRIMARY KEY (task_id, user_id)
)`,
			`CREATE TABLE IF NOT EXISTS notifications (
	id            TEXT PRIMARY KEY,
	recipient_id  TEXT NOT NULL,
	type          TEXT NOT NULL,
	reference_id  TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	message       TEXT NOT NULL DEFAULT '',
	link          TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'unread',
	created_at    TIMESTAMP NOT NULL,
	emailed       BOOLEAN NOT NULL DEFAULT FALSE,
	sender_name   TEXT NOT NULL DEFAULT '',
	sender_avatar TEXT NOT NULL DEFAULT ''
)`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_deadline ON tasks(deadline)`,
			`CREATE INDEX IF NOT EXISTS idx_notifications_pending ON notifications(emailed, recipient_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, created_at)`,
		},
	},
}
