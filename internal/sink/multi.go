package sink

import (
	"errors"
	"sync"

	"github.com/cbegin/raga-go/internal/event"
)

// Multi fans every event out to several sinks, e.g. a port and a dry-run
// logger.
type Multi struct {
	mu    sync.Mutex
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: append([]Sink(nil), sinks...)}
}

// Add registers another sink.
func (m *Multi) Add(s Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

func (m *Multi) all() []Sink {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sink(nil), m.sinks...)
}

// Send delivers ev to every sink, even when an earlier one fails.
func (m *Multi) Send(ev event.Event) error {
	var errs []error
	for _, s := range m.all() {
		if err := s.Send(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.all() {
		if err := Close(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
