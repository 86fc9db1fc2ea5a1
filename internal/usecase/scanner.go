package usecase

import (
	"context"
	"fmt"
	"taskremind/internal/domain"
	"taskremind/internal/metrics"
	"taskremind/internal/ports"
	"time"

	"github.com/rs/zerolog/log"
)

var _ ports.Scheduler = Scanner{}

const DefaultScanPeriod = 30 * time.Second

// Scanner periodically looks for tasks whose reminder stages are due.
type Scanner struct {
	Tasks    ports.TaskStore
	Stages   *domain.StageTable
	Guard    Guard
	Notifier Notifier
	// Horizon bounds how far ahead deadlines are loaded; zero derives it
	// from the stage table.
	Horizon  time.Duration
	Interval time.Duration
	Clock    Clock
}

type ScanResult struct {
	Tasks  int
	Fired  int
	Failed int
}

func (s Scanner) horizon() time.Duration {
	if s.Horizon > 0 {
		return s.Horizon
	}
	return s.Stages.Horizon()
}

// Period is the interval Run actually ticks at.
func (s Scanner) Period() time.Duration {
	if s.Interval <= 0 {
		return DefaultScanPeriod
	}
	return s.Interval
}

// Run scans once per Period until ctx is cancelled.
func (s Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Period())
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx, s.Clock.Now()); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("component", "scanner").Msg("scan failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single scan as of now. Only a failure to load the
// candidate tasks is returned; per-task problems are logged.
func (s Scanner) RunOnce(ctx context.Context, now time.Time) (ScanResult, error) {
	var res ScanResult
	logger := log.Ctx(ctx).With().Str("component", "scanner").Logger()
	metrics.ScanRuns.Inc()

	tasks, err := s.Tasks.ListDueBetween(ctx, now, now.Add(s.horizon()))
	if err != nil {
		return res, fmt.Errorf("load tasks due: %w", err)
	}
	res.Tasks = len(tasks)
	metrics.TasksScanned.Add(float64(len(tasks)))
	if len(tasks) == 0 {
		logger.Debug().Msg("no tasks within horizon")
		return res, nil
	}

	for _, t := range tasks {
		fired, err := s.scanTask(ctx, t, now)
		res.Fired += fired
		if err != nil {
			res.Failed++
			logger.Error().Err(err).Str("task", t.ID).Msg("task scan failed")
		}
	}

	if res.Fired > 0 {
		logger.Info().Int("tasks", res.Tasks).Int("fired", res.Fired).Msg("scan complete")
	}
	return res, nil
}

func (s Scanner) scanTask(ctx context.Context, t domain.Task, now time.Time) (fired int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	logger := log.Ctx(ctx).With().Str("component", "scanner").Str("task", t.ID).Logger()
	if t.Deadline == nil {
		logger.Debug().Msg("task has no deadline")
		return 0, nil
	}

	for _, stage := range s.Stages.Due(now, *t.Deadline) {
		if !s.Guard.Allow(ctx, t, stage, now) {
			continue
		}

		recipients := ResolveRecipients(t)
		if len(recipients) == 0 {
			logger.Debug().Str("stage", stage.Name).Msg("no recipients")
		}

		n, err := s.Notifier.Remind(ctx, t, stage, recipients)
		if err != nil {
			logger.Warn().Err(err).Str("stage", stage.Name).Msg("reminder fan-out failed, will retry")
			continue
		}

		s.Guard.Record(ctx, t, stage, now)
		metrics.RemindersFired.WithLabelValues(stage.Name).Inc()
		logger.Info().Str("stage", stage.Name).Int("recipients", n).Msg("reminder fired")
		fired++
	}
	return fired, nil
}
