package ports

import (
	"context"
	"errors"
	"taskremind/internal/domain"
	"time"
)

var ErrNotFound = errors.New("not found")

type TaskStore interface {
	// ListDueBetween returns tasks whose deadline is in [from, to], with
	// assignee, creator and followers loaded.
	ListDueBetween(ctx context.Context, from, to time.Time) ([]domain.Task, error)
	MarkReminderSent(ctx context.Context, taskID, stage string, at time.Time) error
}

type UserStore interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

type PendingFilter struct {
	RecipientID   string
	ExcludedTypes []domain.NotificationType
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n domain.Notification) error
	// ListPendingDigest returns emailed=false rows ordered by recipient and creation time.
	ListPendingDigest(ctx context.Context, f PendingFilter) ([]domain.Notification, error)
	MarkEmailed(ctx context.Context, ids []string) error
	ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string) error
}
