// Package app assembles stores, transports and use cases from config.
package app

import (
	"context"
	"errors"
	"fmt"
	"taskremind/internal/config"
	"taskremind/internal/domain"
	"taskremind/internal/infra/mail"
	"taskremind/internal/infra/memory"
	"taskremind/internal/infra/redisx"
	"taskremind/internal/infra/sqlstore"
	"taskremind/internal/ports"
	"taskremind/internal/realtime"
	"taskremind/internal/usecase"
	"taskremind/pkg/backoff"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	MarkerRedis  = "redis"
	MarkerMemory = "memory"
)

type Realtime int

const (
	// RealtimeNone leaves the notifier without a publisher.
	RealtimeNone Realtime = iota
	// RealtimeRedis publishes on Redis channels; API processes relay them
	// to their sockets.
	RealtimeRedis
	// RealtimeLocal delivers straight to the in-process hub.
	RealtimeLocal
)

type Options struct {
	Realtime Realtime
	// Hub creates a websocket hub even when pushes go through Redis.
	Hub bool
	// Markers builds the fast dedup store; only the scanner needs it.
	Markers bool
	// ConnectAttempts bounds startup retries against the database and Redis.
	ConnectAttempts int
}

type App struct {
	Cfg       *config.Config
	Store     *sqlstore.Store
	Redis     *redisx.Client
	Hub       *realtime.Hub
	Stages    *domain.StageTable
	Markers   ports.MarkerStore
	Publisher ports.Publisher
	Mailer    ports.Mailer
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	stages, err := cfg.Reminder.StageTable()
	if err != nil {
		return nil, fmt.Errorf("reminder stages: %w", err)
	}
	a := &App{Cfg: cfg, Stages: stages}

	attempts := opts.ConnectAttempts
	if attempts <= 0 {
		attempts = 5
	}

	err = retry(ctx, "database", attempts, backoff.Default, func(ctx context.Context) error {
		s, err := sqlstore.Open(ctx, cfg.DB.Driver, cfg.DB.DSN)
		if err != nil {
			return err
		}
		a.Store = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	needRedis := opts.Realtime == RealtimeRedis || (opts.Markers && cfg.Reminder.MarkerBackend == MarkerRedis)
	if needRedis {
		a.Redis = redisx.New(cfg.Redis)
		// Markers and pushes are best effort: an unreachable Redis leaves the
		// guard on its durable check and pushes failing, the client reconnects lazily.
		if err := retry(ctx, "redis", attempts, backoff.Default, a.Redis.Connect); err != nil {
			if ctx.Err() != nil {
				_ = a.Close()
				return nil, err
			}
			log.Ctx(ctx).Warn().Err(err).Msg("redis unavailable, continuing without fast markers and realtime push")
		}
	}

	if opts.Markers {
		switch cfg.Reminder.MarkerBackend {
		case MarkerRedis:
			a.Markers = redisx.NewMarkerStore(a.Redis)
		case MarkerMemory:
			a.Markers = memory.NewMarkerStore(cfg.Reminder.MarkerCacheSize, maxMarkerExpiry(stages))
		default:
			_ = a.Close()
			return nil, fmt.Errorf("unknown marker backend %q", cfg.Reminder.MarkerBackend)
		}
	}

	if opts.Hub || opts.Realtime == RealtimeLocal {
		a.Hub = realtime.NewHub()
	}
	switch opts.Realtime {
	case RealtimeRedis:
		a.Publisher = redisx.NewPublisher(a.Redis)
	case RealtimeLocal:
		a.Publisher = a.Hub
	}

	if cfg.Mail.Host == "" {
		log.Ctx(ctx).Warn().Msg("Mail_Host not set, digests will only be logged")
		a.Mailer = mail.LogMailer{}
	} else {
		a.Mailer = mail.NewSMTPMailer(mail.Config{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			FromName: cfg.Mail.FromName,
			Timeout:  cfg.Mail.Timeout,
		})
	}
	return a, nil
}

func (a *App) Notifier() usecase.Notifier {
	return usecase.Notifier{
		Store:     a.Store,
		Publisher: a.Publisher,
		BaseURL:   a.Cfg.App.BaseURL,
		Sender:    usecase.Sender{Name: a.Cfg.App.SenderName, Avatar: a.Cfg.App.SenderAvatar},
	}
}

func (a *App) Scanner() usecase.Scanner {
	return usecase.Scanner{
		Tasks:    a.Store,
		Stages:   a.Stages,
		Guard:    usecase.Guard{Markers: a.Markers, Tasks: a.Store, Cooldown: a.Cfg.Reminder.Cooldown},
		Notifier: a.Notifier(),
		Horizon:  a.Cfg.Reminder.Horizon,
		Interval: a.Cfg.Reminder.ScanPeriod,
	}
}

func (a *App) Aggregator() usecase.Aggregator {
	return usecase.Aggregator{
		Notifications: a.Store,
		Users:         a.Store,
		Mailer:        a.Mailer,
		ExcludedTypes: a.Cfg.Digest.Excluded(),
	}
}

// Relay is only usable when the app was built with a Redis connection
// and a hub.
func (a *App) Relay() (realtime.Relay, error) {
	if a.Redis == nil || a.Hub == nil {
		return realtime.Relay{}, errors.New("relay needs redis and a websocket hub")
	}
	return realtime.Relay{C: a.Redis, Hub: a.Hub, Backoff: backoff.Default}, nil
}

func (a *App) Ping(ctx context.Context) error {
	if err := a.Store.Ping(ctx); err != nil {
		return err
	}
	if a.Redis != nil {
		return a.Redis.Rdb.Ping(ctx).Err()
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

func maxMarkerExpiry(t *domain.StageTable) (d time.Duration) {
	for _, s := range t.Stages() {
		d = max(d, s.MarkerExpiry)
	}
	return d
}

// retry calls fn until it succeeds, ctx ends or attempts run out.
func retry(ctx context.Context, what string, attempts int, p backoff.Policy, fn func(context.Context) error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		delay := p.Delay(i)
		log.Ctx(ctx).Warn().Err(err).Int("attempt", i).Dur("retry_in", delay).Msgf("connecting to %s", what)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("connecting to %s: %w", what, err)
}
