package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"taskremind/internal/domain"
	"taskremind/internal/metrics"
	"taskremind/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const reminderTitle = "Deadline approaching"

var ErrInvalidNotification = errors.New("invalid notification")

var stageMessages = map[string]string{
	"24h": "Task \"%s\" is due in 24 hours.",
	"1h":  "Task \"%s\" is due in 1 hour. Time to wrap it up!",
}

func ReminderMessage(s domain.Stage, taskTitle string) string {
	if tmpl, ok := stageMessages[s.Name]; ok {
		return fmt.Sprintf(tmpl, taskTitle)
	}
	return fmt.Sprintf("Task \"%s\" is due in %s.", taskTitle, s.Offset)
}

type Sender struct {
	Name   string
	Avatar string
}

// NewNotification is a request to create one notification for one recipient.
type NewNotification struct {
	RecipientID  string                  `json:"recipient_id"`
	Type         domain.NotificationType `json:"type"`
	ReferenceID  string                  `json:"reference_id"`
	Title        string                  `json:"title"`
	Message      string                  `json:"message"`
	Link         string                  `json:"link"`
	SenderName   string                  `json:"sender_name"`
	SenderAvatar string                  `json:"sender_avatar"`
}

// Notifier persists notifications and pushes them to the recipient's
// realtime channel. Whether a notification should exist at all is the
// caller's decision.
type Notifier struct {
	Store     ports.NotificationStore
	Publisher ports.Publisher
	BaseURL   string
	Sender    Sender
	Clock     Clock
}

func (n Notifier) TaskLink(t domain.Task) string {
	base := strings.TrimRight(n.BaseURL, "/")
	return fmt.Sprintf("%s/projects/%s/board?task=%s", base, url.PathEscape(t.ProjectID), url.QueryEscape(t.ID))
}

// Create persists the notification and publishes it. A publish failure is
// logged and does not undo the stored row.
func (n Notifier) Create(ctx context.Context, req NewNotification) (domain.Notification, error) {
	if req.RecipientID == "" {
		return domain.Notification{}, fmt.Errorf("%w: recipient is required", ErrInvalidNotification)
	}
	if req.Type == "" {
		return domain.Notification{}, fmt.Errorf("%w: type is required", ErrInvalidNotification)
	}

	notif := domain.Notification{
		ID:           uuid.NewString(),
		RecipientID:  req.RecipientID,
		Type:         req.Type,
		ReferenceID:  req.ReferenceID,
		Title:        req.Title,
		Message:      req.Message,
		Link:         req.Link,
		Status:       domain.StatusUnread,
		CreatedAt:    n.Clock.Now().UTC(),
		SenderName:   req.SenderName,
		SenderAvatar: req.SenderAvatar,
	}
	if err := n.Store.CreateNotification(ctx, notif); err != nil {
		return domain.Notification{}, fmt.Errorf("create notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(notif.Type)).Inc()

	n.publish(ctx, notif)
	return notif, nil
}

func (n Notifier) publish(ctx context.Context, notif domain.Notification) {
	if n.Publisher == nil {
		return
	}
	if err := n.Publisher.Publish(ctx, notif.RecipientID, notif.Payload()); err != nil {
		metrics.PublishFailures.Inc()
		log.Ctx(ctx).Warn().Err(err).
			Str("component", "notifier").
			Str("recipient", notif.RecipientID).
			Str("notification", notif.ID).
			Msg("realtime push failed")
	}
}

// Remind creates one reminder per recipient and returns how many were
// stored. It fails only when there were recipients and none could be stored.
func (n Notifier) Remind(ctx context.Context, t domain.Task, s domain.Stage, recipients []domain.User) (int, error) {
	msg := ReminderMessage(s, t.Title)
	link := n.TaskLink(t)

	var (
		created int
		errs    []error
	)
	for _, u := range recipients {
		_, err := n.Create(ctx, NewNotification{
			RecipientID:  u.ID,
			Type:         domain.TypeDeadlineReminder,
			ReferenceID:  t.ID,
			Title:        reminderTitle,
			Message:      msg,
			Link:         link,
			SenderName:   n.Sender.Name,
			SenderAvatar: n.Sender.Avatar,
		})
		if err != nil {
			log.Ctx(ctx).Error().Err(err).
				Str("component", "notifier").
				Str("task", t.ID).
				Str("recipient", u.ID).
				Msg("failed to store reminder")
			errs = append(errs, err)
			continue
		}
		created++
	}

	if created == 0 && len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	return created, nil
}
