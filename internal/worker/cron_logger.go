package worker

import (
	"taskremind/internal/logging"

	"github.com/rs/zerolog"
)

// cronLogger routes robfig/cron's logging through zerolog.
type cronLogger struct {
	component string
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	logger := logging.WithComponent(l.component)
	withKV(logger.Debug(), keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger := logging.WithComponent(l.component)
	withKV(logger.Error().Err(err), keysAndValues).Msg(msg)
}

func withKV(e *zerolog.Event, kv []any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			e = e.Interface(k, kv[i+1])
		}
	}
	return e
}
