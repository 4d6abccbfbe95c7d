// Package sequencer streams a rendered event sequence to a sink at real-time
// pace.
package sequencer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cbegin/raga-go/internal/event"
	"github.com/cbegin/raga-go/internal/sink"
)

// EventKind identifies dispatcher lifecycle events.
type EventKind int

const (
	EventPlaybackStarted EventKind = iota
	EventPlaybackEnded
	EventLagging
)

func (k EventKind) String() string {
	switch k {
	case EventPlaybackStarted:
		return "playback-started"
	case EventPlaybackEnded:
		return "playback-ended"
	case EventLagging:
		return "lagging"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// DefaultLagThreshold is how late an event may be sent before it is reported.
const DefaultLagThreshold = 50 * time.Millisecond

type Options struct {
	// Now and Sleep replace the wall clock; both default to package time.
	Now          func() time.Time
	Sleep        func(ctx context.Context, d time.Duration) error
	Logger       *slog.Logger
	LagThreshold time.Duration
	OnEvent      func(EventKind)
}

// Sequencer sends events to a sink, holding after each event for its Hold.
// Holds are measured against absolute deadlines from the start of the
// sequence, so slow sends do not accumulate drift.
type Sequencer struct {
	sink         sink.Sink
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
	logger       *slog.Logger
	lagThreshold time.Duration
	onEvent      func(EventKind)
}

func New(s sink.Sink) *Sequencer {
	return NewWithOptions(s, Options{})
}

func NewWithOptions(s sink.Sink, opts Options) *Sequencer {
	seq := &Sequencer{
		sink:         s,
		now:          opts.Now,
		sleep:        opts.Sleep,
		logger:       opts.Logger,
		lagThreshold: opts.LagThreshold,
		onEvent:      opts.OnEvent,
	}
	if seq.now == nil {
		seq.now = time.Now
	}
	if seq.sleep == nil {
		seq.sleep = Sleep
	}
	if seq.logger == nil {
		seq.logger = slog.Default()
	}
	if seq.lagThreshold <= 0 {
		seq.lagThreshold = DefaultLagThreshold
	}
	return seq
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Seconds converts a hold in seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Play sends every event in order. Note-offs go out immediately; any other
// event with a positive Hold is followed by a wait until its deadline.
// Falling behind is logged once per sequence and playback continues.
func (s *Sequencer) Play(ctx context.Context, seq event.Sequence) error {
	s.emit(EventPlaybackStarted)
	defer s.emit(EventPlaybackEnded)

	start := s.now()
	var offset time.Duration
	lagged := false
	for i, ev := range seq {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.sink.Send(ev); err != nil {
			return fmt.Errorf("send event %d (%s): %w", i, ev, err)
		}
		if ev.Kind == event.NoteOff || ev.Hold <= 0 {
			continue
		}
		offset += Seconds(ev.Hold)
		wait := start.Add(offset).Sub(s.now())
		if wait > 0 {
			if err := s.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}
		if -wait > s.lagThreshold && !lagged {
			lagged = true
			s.logger.Warn("playback behind schedule", "event", i, "behind", -wait)
			s.emit(EventLagging)
		}
	}
	return nil
}

func (s *Sequencer) emit(kind EventKind) {
	if s.onEvent != nil {
		s.onEvent(kind)
	}
}
