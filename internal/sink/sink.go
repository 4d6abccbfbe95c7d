// Package sink delivers rendered events to the outside world.
package sink

import (
	"errors"

	"github.com/cbegin/raga-go/internal/event"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("sink closed")

// Sink accepts performance events. Implementations must be safe for
// concurrent use; overlapping playback cycles share one sink.
type Sink interface {
	Send(ev event.Event) error
}

// Closer is implemented by sinks that hold a device or port.
type Closer interface {
	Close() error
}

// Close closes s if it holds resources.
func Close(s Sink) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
