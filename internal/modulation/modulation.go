// Package modulation builds pitch-bend sub-sequences that are layered on top
// of sounding notes: glides (meend) between two scale steps and a vibrato-like
// wobble around one step.
package modulation

import (
	"math"

	"github.com/cbegin/raga-go/internal/event"
	"github.com/cbegin/raga-go/internal/scale"
)

// Glide ramp resolution.
const GlideSteps = 10

// Wobble defaults.
const (
	DefaultIntensity = 500
	DefaultRateHz    = 6
)

// Glide returns a bend ramp from one step to another over duration seconds.
// The starting bend holds for the first half, then the bend moves linearly to
// the target in GlideSteps equal sub-steps across the second half.
func Glide(fromStep, toStep int, duration float64, ratios scale.RatioTable) (event.Sequence, error) {
	from, err := ratios.Bend(fromStep)
	if err != nil {
		return nil, err
	}
	to, err := ratios.Bend(toStep)
	if err != nil {
		return nil, err
	}
	half := duration / 2
	sub := half / GlideSteps
	seq := make(event.Sequence, 0, GlideSteps+1)
	seq = append(seq, event.PitchBend(from, half))
	for i := 1; i <= GlideSteps; i++ {
		fraction := float64(i) / GlideSteps
		v := float64(from) + float64(to-from)*fraction
		seq = append(seq, event.PitchBend(int(math.Round(v)), sub))
	}
	return seq, nil
}

// WobbleConfig tunes a wobble. Intensity is used as given, so zero is a
// flat wobble; a non-positive RateHz means DefaultRateHz.
type WobbleConfig struct {
	Intensity int
	RateHz    float64
}

// DefaultWobble is a 500-unit wobble at 6 Hz.
func DefaultWobble() WobbleConfig {
	return WobbleConfig{Intensity: DefaultIntensity, RateHz: DefaultRateHz}
}

func (c WobbleConfig) withDefaults() WobbleConfig {
	if c.RateHz <= 0 {
		c.RateHz = DefaultRateHz
	}
	return c
}

// WobbleCount is the number of full wobble cycles that fit in duration.
func (c WobbleConfig) WobbleCount(duration float64) int {
	c = c.withDefaults()
	if duration <= 0 {
		return 0
	}
	return int(math.Floor(duration * c.RateHz))
}

// Span is the time covered by the wobble cycles emitted for duration.
func (c WobbleConfig) Span(duration float64) float64 {
	c = c.withDefaults()
	return float64(c.WobbleCount(duration)) / c.RateHz
}

// Wobble emits, per cycle, a bend above the target, a bend below it and an
// instantaneous reset to zero.
func Wobble(targetStep int, duration float64, ratios scale.RatioTable, cfg WobbleConfig) (event.Sequence, error) {
	cfg = cfg.withDefaults()
	target, err := ratios.Bend(targetStep)
	if err != nil {
		return nil, err
	}
	n := cfg.WobbleCount(duration)
	half := 1 / (2 * cfg.RateHz)
	seq := make(event.Sequence, 0, 3*n)
	for i := 0; i < n; i++ {
		seq = append(seq,
			event.PitchBend(target+cfg.Intensity, half),
			event.PitchBend(target-cfg.Intensity, half),
			event.PitchBend(0, 0),
		)
	}
	return seq, nil
}
