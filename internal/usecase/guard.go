package usecase

import (
	"context"
	"taskremind/internal/domain"
	"taskremind/internal/metrics"
	"taskremind/internal/ports"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultCooldown = 24 * time.Hour

// Guard decides whether a (task, stage) reminder may fire. It checks an
// expiring marker first and the task's durable last-reminder fields second.
// Neither tier is a lock: two concurrent scanners can both pass.
type Guard struct {
	Markers  ports.MarkerStore
	Tasks    ports.TaskStore
	Cooldown time.Duration
}

func MarkerKey(taskID, stage string) string {
	return "reminder:" + taskID + ":" + stage
}

func (g Guard) cooldown() time.Duration {
	if g.Cooldown <= 0 {
		return DefaultCooldown
	}
	return g.Cooldown
}

// Allow reports whether the stage has not been handled for the task yet.
// An unavailable marker store is logged and the durable check alone decides.
func (g Guard) Allow(ctx context.Context, t domain.Task, s domain.Stage, now time.Time) bool {
	logger := log.Ctx(ctx).With().Str("component", "guard").Str("task", t.ID).Str("stage", s.Name).Logger()

	if g.Markers != nil {
		exists, err := g.Markers.Exists(ctx, MarkerKey(t.ID, s.Name))
		switch {
		case err != nil:
			metrics.MarkerStoreErrors.Inc()
			logger.Warn().Err(err).Msg("marker store unavailable, using durable marker only")
		case exists:
			metrics.RemindersSkipped.WithLabelValues("marker").Inc()
			logger.Debug().Msg("skip: marker present")
			return false
		}
	}

	if t.RemindedWithin(s.Name, now, g.cooldown()) {
		metrics.RemindersSkipped.WithLabelValues("durable").Inc()
		logger.Debug().Time("last_sent", *t.LastReminderSentAt).Msg("skip: durable marker within cooldown")
		return false
	}
	return true
}

// Record stores both markers after a fan-out. Failures are logged only.
func (g Guard) Record(ctx context.Context, t domain.Task, s domain.Stage, now time.Time) {
	logger := log.Ctx(ctx).With().Str("component", "guard").Str("task", t.ID).Str("stage", s.Name).Logger()

	if g.Markers != nil {
		if err := g.Markers.Set(ctx, MarkerKey(t.ID, s.Name), s.MarkerExpiry); err != nil {
			metrics.MarkerStoreErrors.Inc()
			logger.Warn().Err(err).Msg("failed to set marker")
		}
	}
	if err := g.Tasks.MarkReminderSent(ctx, t.ID, s.Name, now); err != nil {
		logger.Error().Err(err).Msg("failed to persist last reminder")
	}
}
