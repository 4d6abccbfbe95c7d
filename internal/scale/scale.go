package scale

import (
	"errors"
	"fmt"
)

// SemitonesPerOctave is the pitch offset applied per full pass through a scale.
const SemitonesPerOctave = 12

// ErrEmptyScale is returned when a scale has no degrees.
var ErrEmptyScale = errors.New("scale has no degrees")

// Scale is one form (ascending or descending) of a raga's scale: the absolute
// MIDI pitch of every degree within one octave, starting at the tonic.
type Scale []int

// New copies pitches into a Scale.
func New(pitches ...int) (Scale, error) {
	if len(pitches) == 0 {
		return nil, ErrEmptyScale
	}
	s := make(Scale, len(pitches))
	copy(s, pitches)
	return s, nil
}

// Len returns the number of degrees per octave.
func (s Scale) Len() int { return len(s) }

// Pitch maps a step position (relative to the tonic, any sign) to an absolute
// pitch. Positions outside one octave wrap with floor division, so -1 lands on
// the last degree one octave below.
func (s Scale) Pitch(position int) int {
	octave, degree := FloorDivMod(position, len(s))
	return s[degree] + SemitonesPerOctave*octave
}

// Degree returns the in-octave degree index for position.
func (s Scale) Degree(position int) int {
	_, degree := FloorDivMod(position, len(s))
	return degree
}

// FloorDivMod returns floor(a/n) and the matching non-negative remainder.
func FloorDivMod(a, n int) (q, r int) {
	q, r = a/n, a%n
	if r < 0 {
		r += n
		q--
	}
	return q, r
}

// Pair holds both scale forms of a raga.
type Pair struct {
	Ascending  Scale
	Descending Scale
}

// Validate checks both forms are non-empty and of equal length.
func (p Pair) Validate() error {
	if len(p.Ascending) == 0 || len(p.Descending) == 0 {
		return ErrEmptyScale
	}
	if len(p.Ascending) != len(p.Descending) {
		return fmt.Errorf("ascending scale has %d degrees, descending has %d", len(p.Ascending), len(p.Descending))
	}
	return nil
}

// Len returns the degree count shared by both forms.
func (p Pair) Len() int { return len(p.Ascending) }
