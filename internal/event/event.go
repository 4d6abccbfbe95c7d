package event

import (
	"fmt"
	"strings"
)

// Kind identifies what an Event asks the sink to do.
type Kind int

const (
	NoteOn Kind = iota + 1
	NoteOff
	Bend
	TransportStart
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "on"
	case NoteOff:
		return "off"
	case Bend:
		return "bend"
	case TransportStart:
		return "start"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Pitch-bend bounds of a 14-bit MIDI pitch wheel, centered on zero.
const (
	MinBend = -8192
	MaxBend = 8191
)

// Note number bounds of a MIDI key.
const (
	MinPitch = 0
	MaxPitch = 127
)

// PitchRangeError reports a note number no MIDI key can play.
type PitchRangeError struct {
	Pitch int
}

func (e *PitchRangeError) Error() string {
	return fmt.Sprintf("pitch %d outside MIDI range %d..%d", e.Pitch, MinPitch, MaxPitch)
}

// CheckPitch returns a *PitchRangeError when p is not a MIDI note number.
func CheckPitch(p int) error {
	if p < MinPitch || p > MaxPitch {
		return &PitchRangeError{Pitch: p}
	}
	return nil
}

// Event is one timed message in a rendered performance. Hold is the number of
// seconds the dispatcher waits after sending it; note-offs never hold.
type Event struct {
	Kind     Kind
	Pitch    int
	Velocity int
	Value    int
	Hold     float64
}

func On(pitch, velocity int, hold float64) Event {
	return Event{Kind: NoteOn, Pitch: pitch, Velocity: ClampVelocity(velocity), Hold: hold}
}

func Off(pitch int) Event {
	return Event{Kind: NoteOff, Pitch: pitch}
}

// PitchBend builds a bend event, clamping value to the wheel range.
func PitchBend(value int, hold float64) Event {
	return Event{Kind: Bend, Value: ClampBend(value), Hold: hold}
}

func Start() Event {
	return Event{Kind: TransportStart}
}

func ClampBend(v int) int {
	return clampInt(v, MinBend, MaxBend)
}

func ClampVelocity(v int) int {
	return clampInt(v, 0, 127)
}

func (e Event) String() string {
	switch e.Kind {
	case NoteOn:
		return fmt.Sprintf("on(%d v%d %.3fs)", e.Pitch, e.Velocity, e.Hold)
	case NoteOff:
		return fmt.Sprintf("off(%d)", e.Pitch)
	case Bend:
		return fmt.Sprintf("bend(%d %.3fs)", e.Value, e.Hold)
	default:
		return e.Kind.String()
	}
}

// Sequence is an ordered list of events for one performance cycle.
type Sequence []Event

// Duration sums the hold time of every event.
func (s Sequence) Duration() float64 {
	var total float64
	for _, ev := range s {
		total += ev.Hold
	}
	return total
}

// Pitches returns the pitch of every note-on, in order.
func (s Sequence) Pitches() []int {
	var out []int
	for _, ev := range s {
		if ev.Kind == NoteOn {
			out = append(out, ev.Pitch)
		}
	}
	return out
}

// Count returns how many events have kind k.
func (s Sequence) Count(k Kind) int {
	n := 0
	for _, ev := range s {
		if ev.Kind == k {
			n++
		}
	}
	return n
}

func (s Sequence) String() string {
	var b strings.Builder
	for i, ev := range s {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(ev.String())
	}
	return b.String()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
