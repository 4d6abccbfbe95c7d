package sink

import (
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/cbegin/raga-go/internal/event"
)

// mmcPlay is the MIDI Machine Control "play" command body (device 7F).
var mmcPlay = []byte{0x7F, 0x7F, 0x06, 0x02}

const ccAllNotesOff = 123

var closeDriverOnce sync.Once

type MIDIOption func(*MIDI)

// WithChannel sets the MIDI channel (0-15) notes and bends are sent on.
func WithChannel(ch uint8) MIDIOption {
	return func(m *MIDI) {
		m.channel = ch & 0x0F
	}
}

// MIDI sends events as MIDI messages through a send function, usually one
// returned by midi.SendTo for an output port.
type MIDI struct {
	mu      sync.Mutex
	send    func(midi.Message) error
	port    drivers.Out
	channel uint8
	closed  bool
}

func NewMIDI(send func(midi.Message) error, opts ...MIDIOption) *MIDI {
	m := &MIDI{send: send}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OpenPort finds an output port by name (substring match, as the driver
// does) and returns a sink bound to it.
func OpenPort(name string, opts ...MIDIOption) (*MIDI, error) {
	out, err := midi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("find MIDI output %q: %w", name, err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open MIDI output %q: %w", name, err)
	}
	m := NewMIDI(send, opts...)
	m.port = out
	return m, nil
}

// OutPortNames lists the output ports the registered driver can see.
func OutPortNames() []string {
	var names []string
	for _, p := range midi.GetOutPorts() {
		names = append(names, p.String())
	}
	return names
}

// Message converts ev to its MIDI form on channel ch.
func Message(ev event.Event, ch uint8) (midi.Message, error) {
	switch ev.Kind {
	case event.NoteOn:
		if err := event.CheckPitch(ev.Pitch); err != nil {
			return nil, err
		}
		return midi.NoteOn(ch, uint8(ev.Pitch), uint8(event.ClampVelocity(ev.Velocity))), nil
	case event.NoteOff:
		if err := event.CheckPitch(ev.Pitch); err != nil {
			return nil, err
		}
		return midi.NoteOff(ch, uint8(ev.Pitch)), nil
	case event.Bend:
		return midi.Pitchbend(ch, int16(event.ClampBend(ev.Value))), nil
	case event.TransportStart:
		return midi.SysEx(mmcPlay), nil
	default:
		return nil, fmt.Errorf("no MIDI message for event kind %v", ev.Kind)
	}
}

func (m *MIDI) Send(ev event.Event) error {
	msg, err := Message(ev, m.channel)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return m.send(msg)
}

// Close silences the channel and releases the port. The driver itself is
// closed once per process.
func (m *MIDI) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	err := m.send(midi.ControlChange(m.channel, ccAllNotesOff, 0))
	if m.port != nil {
		if cerr := m.port.Close(); err == nil {
			err = cerr
		}
		closeDriverOnce.Do(midi.CloseDriver)
	}
	return err
}
