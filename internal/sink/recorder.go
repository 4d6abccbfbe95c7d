package sink

import (
	"sync"

	"github.com/cbegin/raga-go/internal/event"
)

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events event.Sequence
	closed bool
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Send(ev event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything received so far.
func (r *Recorder) Events() event.Sequence {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(event.Sequence(nil), r.events...)
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
