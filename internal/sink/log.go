package sink

import (
	"context"
	"log/slog"

	"github.com/cbegin/raga-go/internal/event"
)

// Log writes each event to a structured logger. Used for dry runs.
type Log struct {
	logger *slog.Logger
	level  slog.Level
}

func NewLog(logger *slog.Logger, level slog.Level) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger, level: level}
}

func (l *Log) Send(ev event.Event) error {
	attrs := []slog.Attr{slog.String("kind", ev.Kind.String())}
	switch ev.Kind {
	case event.NoteOn:
		attrs = append(attrs, slog.Int("pitch", ev.Pitch), slog.Int("velocity", ev.Velocity), slog.Float64("hold", ev.Hold))
	case event.NoteOff:
		attrs = append(attrs, slog.Int("pitch", ev.Pitch))
	case event.Bend:
		attrs = append(attrs, slog.Int("value", ev.Value), slog.Float64("hold", ev.Hold))
	}
	l.logger.LogAttrs(context.Background(), l.level, "midi", attrs...)
	return nil
}
