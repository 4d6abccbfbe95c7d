package sink

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/raga-go/internal/event"
)

type captured struct {
	msgs []midi.Message
	err  error
}

func (c *captured) send(msg midi.Message) error {
	c.msgs = append(c.msgs, msg)
	return c.err
}

func TestMIDIConvertsEvents(t *testing.T) {
	c := &captured{}
	m := NewMIDI(c.send, WithChannel(2))
	events := event.Sequence{
		event.On(64, 80, 0.5),
		event.Off(64),
		event.PitchBend(-500, 0),
	}
	for _, ev := range events {
		if err := m.Send(ev); err != nil {
			t.Fatalf("send %s: %v", ev, err)
		}
	}
	want := []midi.Message{
		midi.NoteOn(2, 64, 80),
		midi.NoteOff(2, 64),
		midi.Pitchbend(2, -500),
	}
	if len(c.msgs) != len(want) {
		t.Fatalf("got %d messages, want %d", len(c.msgs), len(want))
	}
	for i := range want {
		if !bytes.Equal(c.msgs[i], want[i]) {
			t.Fatalf("message %d = % X, want % X", i, []byte(c.msgs[i]), []byte(want[i]))
		}
	}
}

func TestMIDITransportStartIsMMCPlay(t *testing.T) {
	msg, err := Message(event.Start(), 0)
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if !bytes.Contains(msg, mmcPlay) {
		t.Fatalf("transport start = % X, want MMC play body", []byte(msg))
	}
}

func TestMIDIClosedRejectsSend(t *testing.T) {
	c := &captured{}
	m := NewMIDI(c.send)
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(c.msgs) != 1 || !bytes.Equal(c.msgs[0], midi.ControlChange(0, ccAllNotesOff, 0)) {
		t.Fatalf("close should send all-notes-off, got %v", c.msgs)
	}
	if err := m.Send(event.Off(60)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestMessageRejectsUnknownKind(t *testing.T) {
	if _, err := Message(event.Event{Kind: event.Kind(99)}, 0); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestMessageRejectsPitchOutsideMIDIRange(t *testing.T) {
	for _, ev := range []event.Event{event.On(130, 64, 0.5), event.On(-3, 64, 0.5), event.Off(128)} {
		msg, err := Message(ev, 0)
		var rangeErr *event.PitchRangeError
		if !errors.As(err, &rangeErr) {
			t.Fatalf("%s: got % X, err %v, want PitchRangeError", ev, []byte(msg), err)
		}
	}
	c := &captured{}
	m := NewMIDI(c.send)
	if err := m.Send(event.On(200, 64, 0)); err == nil {
		t.Fatalf("expected error sending pitch 200")
	}
	if len(c.msgs) != 0 {
		t.Fatalf("nothing should reach the port, got %d messages", len(c.msgs))
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	_ = r.Send(event.On(60, 64, 1))
	_ = r.Send(event.Off(60))
	got := r.Events()
	if len(got) != 2 {
		t.Fatalf("recorded %d events, want 2", len(got))
	}
	got[0].Pitch = 1
	if r.Events()[0].Pitch != 60 {
		t.Fatalf("Events must return a copy")
	}
	_ = r.Close()
	if err := r.Send(event.Off(60)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

type failing struct{}

func (failing) Send(event.Event) error { return errors.New("boom") }

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	m := NewMulti(a, failing{})
	m.Add(b)
	err := m.Send(event.Off(60))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("every sink should receive the event")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !errors.Is(a.Send(event.Off(1)), ErrClosed) {
		t.Fatalf("Multi.Close should close members")
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewTextHandler(&buf, nil)), slog.LevelInfo)
	if err := l.Send(event.On(62, 70, 0.25)); err != nil {
		t.Fatalf("send: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "pitch=62") || !strings.Contains(out, "kind=on") {
		t.Fatalf("unexpected log line %q", out)
	}
}
