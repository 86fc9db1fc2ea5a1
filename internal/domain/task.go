package domain

import "time"

type User struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Email     string `json:"email" db:"email"`
	AvatarURL string `json:"avatar_url" db:"avatar_url"`
}

type Follower struct {
	User *User `json:"user"`
}

type Project struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Task is the subset of a task the reminder engine reads and writes.
// Deadline, assignee and followers belong to the task-management side;
// LastReminderSentAt and LastReminderStage are written only by reminders.
type Task struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	ProjectID string     `json:"project_id"`
	Deadline  *time.Time `json:"deadline,omitempty"`

	Assignee  *User      `json:"assignee,omitempty"`
	Creator   *User      `json:"creator,omitempty"`
	Followers []Follower `json:"followers,omitempty"`

	LastReminderSentAt *time.Time `json:"last_reminder_sent_at,omitempty"`
	LastReminderStage  *string    `json:"last_reminder_stage,omitempty"`
}

// RemindedWithin reports whether the durable marker says stage was sent
// less than cooldown before now.
func (t Task) RemindedWithin(stage string, now time.Time, cooldown time.Duration) bool {
	if t.LastReminderStage == nil || t.LastReminderSentAt == nil {
		return false
	}
	if *t.LastReminderStage != stage {
		return false
	}
	return now.Sub(*t.LastReminderSentAt) < cooldown
}
