package ports

import (
	"context"
	"taskremind/internal/domain"
	"time"
)

// MarkerStore is the fast, expiring tier of reminder dedup.
type MarkerStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, ttl time.Duration) error
}

// Publisher pushes a payload onto the recipient's realtime channel.
// Delivery is fire-and-forget.
type Publisher interface {
	Publish(ctx context.Context, recipientID string, p domain.Payload) error
}

type Mailer interface {
	Send(ctx context.Context, to, subject string, body domain.Digest) error
}

type Scheduler interface {
	Run(ctx context.Context) error
}
