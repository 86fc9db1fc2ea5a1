package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"taskremind/internal/app"
	"taskremind/internal/usecase"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Scan   bool
	Digest bool
}

// Run drives the deadline scanner and the digest schedule until ctx ends.
func Run(ctx context.Context, a *app.App, cfg Config) error {
	if !cfg.Scan && !cfg.Digest {
		return errors.New("worker has nothing to do: both scan and digest are disabled")
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	if cfg.Scan {
		scanner := a.Scanner()
		period := scanner.Period()
		for _, s := range a.Stages.NarrowerThan(period) {
			log.Ctx(ctx).Warn().
				Str("component", "scanner").
				Str("stage", s.Name).
				Dur("tolerance", s.Tolerance).
				Dur("scan_period", period).
				Msg("stage window is narrower than the scan period, its reminders can be missed")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := scanner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				select {
				case errCh <- fmt.Errorf("scanner: %w", err):
				default:
				}
			}
		}()
	}

	if cfg.Digest {
		c, err := DigestCron(ctx, a.Aggregator(), a.Cfg.Digest.Period, a.Cfg.Digest.Schedule)
		if err != nil {
			return err
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
	}

	log.Ctx(ctx).Info().Bool("scan", cfg.Scan).Bool("digest", cfg.Digest).Msg("worker started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	wg.Wait()
	log.Ctx(ctx).Info().Msg("worker stopped")
	return nil
}

// DigestCron schedules agg on schedule, or every period when schedule is
// empty. Overlapping runs are skipped.
func DigestCron(ctx context.Context, agg usecase.Aggregator, period time.Duration, schedule string) (*cron.Cron, error) {
	logger := cronLogger{component: "digest"}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(logger)), cron.WithLogger(logger))

	job := cron.FuncJob(func() {
		res, err := agg.RunOnce(ctx)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("component", "digest").Msg("digest run failed")
			return
		}
		log.Ctx(ctx).Info().
			Str("component", "digest").
			Int("recipients", res.Recipients).
			Int("sent", res.Sent).
			Int("failed", res.Failed).
			Int("notifications", res.Notifications).
			Msg("digest run finished")
	})

	if schedule != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		sched, err := parser.Parse(schedule)
		if err != nil {
			return nil, fmt.Errorf("digest schedule %q: %w", schedule, err)
		}
		c.Schedule(sched, job)
		return c, nil
	}

	if period <= 0 {
		return nil, fmt.Errorf("digest period must be positive, got %s", period)
	}
	c.Schedule(cron.Every(period), job)
	return c, nil
}
