package telemetry

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogSink writes each event as one structured log line.
type LogSink struct {
	Logger *zerolog.Logger // global logger when nil
	Level  zerolog.Level
}

// NewLogSink logs events at debug level through the global logger.
func NewLogSink() *LogSink { return &LogSink{Level: zerolog.DebugLevel} }

func (s *LogSink) Emit(eventType string, fields map[string]string) {
	logger := &log.Logger
	if s.Logger != nil {
		logger = s.Logger
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ev := logger.WithLevel(s.Level).Str("event", eventType)
	for _, k := range keys {
		ev = ev.Str(k, fields[k])
	}
	ev.Msg("telemetry")
}
