package raga

import (
	"fmt"
	"strings"

	"github.com/cbegin/raga-go/internal/event"
)

// RenderCycles renders n cycles from random starts without playing them.
// Rules, mutations of the random source and velocity shaping all run exactly
// as in Perform, so a seeded raga yields the same cycles either way.
func RenderCycles(r *Raga, n int) ([]*Cycle, error) {
	out := make([]*Cycle, 0, n)
	for i := range n {
		c, err := r.RenderRandomStart()
		if err != nil {
			return out, fmt.Errorf("cycle %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// FormatSequence lists seq one event per line, prefixed with the offset in
// seconds at which the event is sent.
func FormatSequence(seq event.Sequence) string {
	var b strings.Builder
	var at float64
	for _, ev := range seq {
		fmt.Fprintf(&b, "%8.3f  %s\n", at, ev)
		at += ev.Hold
	}
	return b.String()
}
