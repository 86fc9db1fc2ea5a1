package sqlstore

import (
	"context"
	"fmt"
	"taskremind/internal/domain"
)

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT id, name, email, avatar_url FROM users WHERE id = ?`), id)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) UpsertUser(ctx context.Context, u domain.User) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO users (id, name, email, avatar_url) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	name = excluded.name,
	email = excluded.email,
	avatar_url = excluded.avatar_url`), u.ID, u.Name, u.Email, u.AvatarURL)
	if err != nil {
		return fmt.Errorf("upserting user %s: %w", u.ID, err)
	}
	return nil
}
