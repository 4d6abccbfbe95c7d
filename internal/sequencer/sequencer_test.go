package sequencer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cbegin/raga-go/internal/event"
	"github.com/cbegin/raga-go/internal/sink"
)

// fakeClock advances only when slept on, plus any extra cost per send.
type fakeClock struct {
	t      time.Time
	slept  []time.Duration
	onSend time.Duration
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
	return ctx.Err()
}

type slowSink struct {
	clock *fakeClock
	rec   *sink.Recorder
}

func (s *slowSink) Send(ev event.Event) error {
	s.clock.t = s.clock.t.Add(s.clock.onSend)
	return s.rec.Send(ev)
}

func TestPlayHoldsOnlyAfterTimedEvents(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	rec := sink.NewRecorder()
	var kinds []EventKind
	seq := NewWithOptions(rec, Options{
		Now:     clock.Now,
		Sleep:   clock.Sleep,
		OnEvent: func(k EventKind) { kinds = append(kinds, k) },
	})
	events := event.Sequence{
		event.On(42, 64, 0),
		event.On(60, 64, 0.5),
		event.Off(42),
		event.Off(60),
		event.On(62, 64, 0.25),
		event.PitchBend(100, 0.125),
		event.PitchBend(0, 0),
		event.Off(62),
	}
	if err := seq.Play(context.Background(), events); err != nil {
		t.Fatalf("play: %v", err)
	}
	if got := len(rec.Events()); got != len(events) {
		t.Fatalf("sent %d events, want %d", got, len(events))
	}
	want := []time.Duration{500 * time.Millisecond, 250 * time.Millisecond, 125 * time.Millisecond}
	if len(clock.slept) != len(want) {
		t.Fatalf("slept %v, want %v", clock.slept, want)
	}
	for i := range want {
		if clock.slept[i] != want[i] {
			t.Fatalf("sleep %d = %v, want %v", i, clock.slept[i], want[i])
		}
	}
	if len(kinds) != 2 || kinds[0] != EventPlaybackStarted || kinds[1] != EventPlaybackEnded {
		t.Fatalf("lifecycle events = %v", kinds)
	}
}

func TestPlayCorrectsDriftAndReportsLag(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), onSend: 200 * time.Millisecond}
	s := &slowSink{clock: clock, rec: sink.NewRecorder()}
	lagging := 0
	seq := NewWithOptions(s, Options{
		Now:     clock.Now,
		Sleep:   clock.Sleep,
		OnEvent: func(k EventKind) {
			if k == EventLagging {
				lagging++
			}
		},
	})
	events := event.Sequence{
		event.On(60, 64, 0.5),
		event.On(62, 64, 0.1),
		event.On(64, 64, 0.1),
		event.On(65, 64, 0.1),
	}
	if err := seq.Play(context.Background(), events); err != nil {
		t.Fatalf("play: %v", err)
	}
	// first event: 200ms send cost, deadline 500ms -> sleep 300ms
	if clock.slept[0] != 300*time.Millisecond {
		t.Fatalf("first sleep = %v, want 300ms", clock.slept[0])
	}
	if lagging != 1 {
		t.Fatalf("lag reported %d times, want once", lagging)
	}
}

func TestPlayStopsOnSinkError(t *testing.T) {
	rec := sink.NewRecorder()
	_ = rec.Close()
	seq := New(rec)
	err := seq.Play(context.Background(), event.Sequence{event.Off(60)})
	if !errors.Is(err, sink.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestPlayHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := sink.NewRecorder()
	err := New(rec).Play(ctx, event.Sequence{event.On(60, 64, 1), event.Off(60)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(rec.Events()) != 0 {
		t.Fatalf("no events should be sent after cancel")
	}
}

func TestSleepZeroReturnsImmediately(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Fatalf("sleep: %v", err)
	}
}
