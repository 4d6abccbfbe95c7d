package phrase

import (
	"errors"
	"fmt"
)

// ErrEmptyPhrase is returned when a phrase has no notes.
var ErrEmptyPhrase = errors.New("phrase has no notes")

// Note is one melodic event in a phrase. Step moves the running scale
// position before the note sounds; Duration is relative to the cycle's base
// duration. Ornament is an optional tag resolved against the raga's ornament
// and glide maps at render time.
type Note struct {
	Step     int
	Duration float64
	Ornament string
}

// Direction selects which scale form a phrase is rendered against.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

// Phrase is an immutable ordered run of notes.
type Phrase struct {
	notes []Note
}

// New copies notes into a Phrase.
func New(notes ...Note) Phrase {
	cp := make([]Note, len(notes))
	copy(cp, notes)
	return Phrase{notes: cp}
}

// Notes returns a copy of the phrase's notes.
func (p Phrase) Notes() []Note {
	cp := make([]Note, len(p.notes))
	copy(cp, p.notes)
	return cp
}

func (p Phrase) Len() int { return len(p.notes) }

func (p Phrase) At(i int) Note { return p.notes[i] }

// NetMovement is the sum of every note's step.
func (p Phrase) NetMovement() int {
	sum := 0
	for _, n := range p.notes {
		sum += n.Step
	}
	return sum
}

// Direction is Ascending when the phrase ends at or above where it started.
func (p Phrase) Direction() Direction {
	if p.NetMovement() >= 0 {
		return Ascending
	}
	return Descending
}

// RelativeLength sums every note's relative duration.
func (p Phrase) RelativeLength() float64 {
	var total float64
	for _, n := range p.notes {
		total += n.Duration
	}
	return total
}

// Validate rejects empty phrases and non-positive durations.
func (p Phrase) Validate() error {
	if len(p.notes) == 0 {
		return ErrEmptyPhrase
	}
	for i, n := range p.notes {
		if n.Duration <= 0 {
			return fmt.Errorf("note %d: duration %v must be positive", i, n.Duration)
		}
	}
	return nil
}

func (p Phrase) String() string {
	return Format(p)
}
