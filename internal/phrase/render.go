package phrase

import (
	"fmt"
	"math/rand/v2"

	"github.com/cbegin/raga-go/internal/event"
	"github.com/cbegin/raga-go/internal/modulation"
	"github.com/cbegin/raga-go/internal/scale"
)

// DefaultWobbleChance is the per-note probability of layering a wobble.
const DefaultWobbleChance = 0.5

// Instrument carries everything rendering needs from a raga.
type Instrument struct {
	Scales    scale.Pair
	Ornaments map[string]int // ornament tag -> key-switch pitch
	Glides    map[string]int // ornament tag -> glide step delta
	Ratios    scale.RatioTable
	Wobble    modulation.WobbleConfig
	// WobbleChance is taken literally; 0 disables wobble.
	WobbleChance float64
}

func (in *Instrument) scaleFor(d Direction) scale.Scale {
	if d == Descending {
		return in.Scales.Descending
	}
	return in.Scales.Ascending
}

// Render turns a phrase into note and bend events starting from the scale
// position start. It returns the events and the summed note durations.
//
// Per note, a wobble coin is flipped first; a winning flip overrides any
// ornament. Otherwise a key-switch ornament brackets the note, a glide
// ornament ramps the bend across it, and anything else is a plain on/off.
func Render(p Phrase, in *Instrument, start int, baseDuration float64, velocity int, rng *rand.Rand) (event.Sequence, float64, error) {
	sc := in.scaleFor(p.Direction())
	seq := make(event.Sequence, 0, len(p.notes)*2)
	position := start
	var total float64

	for i, note := range p.notes {
		position += note.Step
		pitch := sc.Pitch(position)
		if err := event.CheckPitch(pitch); err != nil {
			return nil, 0, fmt.Errorf("note %d at position %d: %w", i, position, err)
		}
		actual := note.Duration * baseDuration
		degree := sc.Degree(position)

		wobble := rng.Float64() < in.WobbleChance
		keySwitch, hasKeySwitch := in.Ornaments[note.Ornament]
		glideDelta, hasGlide := in.Glides[note.Ornament]

		switch {
		case wobble:
			wob, err := modulation.Wobble(degree, actual, in.Ratios, in.Wobble)
			if err != nil {
				return nil, 0, err
			}
			seq = append(seq, event.On(pitch, velocity, actual-in.Wobble.Span(actual)))
			seq = append(seq, wob...)
		case hasKeySwitch:
			if err := event.CheckPitch(keySwitch); err != nil {
				return nil, 0, fmt.Errorf("key-switch %q: %w", note.Ornament, err)
			}
			seq = append(seq,
				event.On(keySwitch, velocity, 0),
				event.On(pitch, velocity, actual),
				event.Off(keySwitch),
			)
		case hasGlide:
			glide, err := modulation.Glide(degree, glideTarget(degree, glideDelta, sc.Len(), in.Ratios), actual, in.Ratios)
			if err != nil {
				return nil, 0, err
			}
			seq = append(seq, event.On(pitch, velocity, 0))
			seq = append(seq, glide...)
			seq = append(seq, event.PitchBend(0, 0))
		default:
			seq = append(seq, event.On(pitch, velocity, actual))
		}
		seq = append(seq, event.Off(pitch))
		total += actual
	}
	return seq, total, nil
}

// glideTarget keeps the target inside the table when the raw step runs past
// the octave.
func glideTarget(degree, delta, n int, ratios scale.RatioTable) int {
	target := degree + delta
	if _, ok := ratios[target]; ok {
		return target
	}
	_, wrapped := scale.FloorDivMod(target, n)
	return wrapped
}
