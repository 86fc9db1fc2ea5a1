package realtime

import (
	"context"
	"errors"
	"strings"
	"taskremind/internal/infra/redisx"
	"taskremind/pkg/backoff"
	"time"

	"github.com/rs/zerolog/log"
)

// Relay forwards payloads published on Redis by worker processes to the
// sockets held by this process's Hub.
type Relay struct {
	C       *redisx.Client
	Hub     *Hub
	Backoff backoff.Policy
}

// Run subscribes until ctx is cancelled, resubscribing with backoff when
// the Redis connection drops.
func (r Relay) Run(ctx context.Context) error {
	logger := log.Ctx(ctx).With().Str("component", "relay").Logger()
	attempt := 0
	for {
		subscribed, err := r.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if subscribed {
			attempt = 0
		}
		attempt++
		delay := r.Backoff.Delay(attempt)
		logger.Warn().Err(err).Dur("retry_in", delay).Msg("realtime subscription lost")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (r Relay) listen(ctx context.Context) (bool, error) {
	pattern := r.C.ChannelPattern()
	ps := r.C.Rdb.PSubscribe(ctx, pattern)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return false, err
	}
	log.Ctx(ctx).Info().Str("component", "relay").Str("pattern", pattern).Msg("relaying realtime notifications")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return true, errors.New("subscription closed")
			}
			userID := strings.TrimPrefix(msg.Channel, r.C.Cfg.ChannelPrefix)
			if err := r.Hub.Deliver(userID, []byte(msg.Payload)); err != nil && !errors.Is(err, ErrNotConnected) {
				log.Ctx(ctx).Warn().Err(err).Str("component", "relay").Str("user", userID).Msg("deliver failed")
			}
		}
	}
}
