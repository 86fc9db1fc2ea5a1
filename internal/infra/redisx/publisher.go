package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"taskremind/internal/domain"
	"taskremind/internal/ports"
)

var _ ports.Publisher = (*Publisher)(nil)

// ErrNoListener means nothing was subscribed to the channel when the
// payload was published, so the push was dropped.
var ErrNoListener = errors.New("no realtime listener")

// Publisher pushes payloads over Redis pub/sub. The API process relays
// them to websocket clients.
type Publisher struct {
	C *Client
}

func NewPublisher(c *Client) *Publisher {
	return &Publisher{C: c}
}

func (p *Publisher) Publish(ctx context.Context, recipientID string, payload domain.Payload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	n, err := p.C.Rdb.Publish(ctx, p.C.Channel(recipientID), b).Result()
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if n == 0 {
		return ErrNoListener
	}
	return nil
}
