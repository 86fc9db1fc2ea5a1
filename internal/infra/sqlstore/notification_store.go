package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"taskremind/internal/domain"
	"taskremind/internal/ports"

	"github.com/jmoiron/sqlx"
)

const notificationColumns = `id, recipient_id, type, reference_id, title, message, link, status, created_at, emailed, sender_name, sender_avatar`

func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO notifications (`+notificationColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		n.ID, n.RecipientID, string(n.Type), n.ReferenceID, n.Title, n.Message, n.Link,
		string(n.Status), dbTime(n.CreatedAt), n.Emailed, n.SenderName, n.SenderAvatar,
	)
	if err != nil {
		return fmt.Errorf("inserting notification %s: %w", n.ID, err)
	}
	return nil
}

func (s *Store) ListPendingDigest(ctx context.Context, f ports.PendingFilter) ([]domain.Notification, error) {
	conditions := []string{"emailed = ?"}
	args := []any{false}

	if f.RecipientID != "" {
		conditions = append(conditions, "recipient_id = ?")
		args = append(args, f.RecipientID)
	}
	if len(f.ExcludedTypes) > 0 {
		types := make([]string, 0, len(f.ExcludedTypes))
		for _, t := range f.ExcludedTypes {
			types = append(types, string(t))
		}
		conditions = append(conditions, "type NOT IN (?)")
		args = append(args, types)
	}

	q, args, err := sqlx.In(`SELECT `+notificationColumns+` FROM notifications WHERE `+
		strings.Join(conditions, " AND ")+` ORDER BY recipient_id, created_at, id`, args...)
	if err != nil {
		return nil, err
	}

	var out []domain.Notification
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("querying pending notifications: %w", err)
	}
	return utc(out), nil
}

func (s *Store) MarkEmailed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`UPDATE notifications SET emailed = ? WHERE id IN (?)`, true, ids)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...); err != nil {
		return fmt.Errorf("marking %d notifications emailed: %w", len(ids), err)
	}
	return nil
}

func (s *Store) ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = ?`
	args := []any{recipientID}
	if unreadOnly {
		q += ` AND status = ?`
		args = append(args, string(domain.StatusUnread))
	}
	q += ` ORDER BY created_at DESC, id`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}

	var out []domain.Notification
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("querying notifications of %s: %w", recipientID, err)
	}
	return utc(out), nil
}

func (s *Store) MarkRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE notifications SET status = ? WHERE id = ?`),
		string(domain.StatusRead), id)
	if err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func utc(ns []domain.Notification) []domain.Notification {
	for i := range ns {
		ns[i].CreatedAt = ns[i].CreatedAt.UTC()
	}
	return ns
}
