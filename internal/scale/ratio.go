package scale

import (
	"fmt"
	"math"
	"math/big"
	"sort"
)

// MaxBend is the largest positive MIDI pitch-bend offset.
const MaxBend = 8191

// UnknownStepError reports a step with no entry in a RatioTable.
type UnknownStepError struct {
	Step int
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("scale step %d has no frequency ratio", e.Step)
}

// RatioTable maps a signed scale step, relative to the tonic, to its
// frequency ratio against the tonic.
type RatioTable map[int]float64

// ParseRatio parses "3/2", "1" or "1.5" into a positive ratio.
func ParseRatio(s string) (float64, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, fmt.Errorf("invalid ratio %q", s)
	}
	if r.Sign() <= 0 {
		return 0, fmt.Errorf("ratio %q must be positive", s)
	}
	f, _ := r.Float64()
	return f, nil
}

// Ratio looks up step.
func (t RatioTable) Ratio(step int) (float64, error) {
	r, ok := t[step]
	if !ok {
		return 0, &UnknownStepError{Step: step}
	}
	return r, nil
}

// Semitones returns the equal-tempered distance of step above the tonic.
func (t RatioTable) Semitones(step int) (float64, error) {
	r, err := t.Ratio(step)
	if err != nil {
		return 0, err
	}
	return SemitonesPerOctave * math.Log2(r), nil
}

// Bend returns the pitch-bend value for step using MaxBend as full scale.
func (t RatioTable) Bend(step int) (int, error) {
	return t.BendWithRange(step, MaxBend)
}

// BendWithRange returns round(semitones/12 * maxBend) for step.
func (t RatioTable) BendWithRange(step int, maxBend int) (int, error) {
	semis, err := t.Semitones(step)
	if err != nil {
		return 0, err
	}
	return BendForSemitones(semis, maxBend), nil
}

// BendForSemitones converts a semitone offset to a bend value, treating one
// octave as maxBend.
func BendForSemitones(semitones float64, maxBend int) int {
	return int(math.Round(semitones / SemitonesPerOctave * float64(maxBend)))
}

// Steps returns the table's steps in ascending order.
func (t RatioTable) Steps() []int {
	steps := make([]int, 0, len(t))
	for s := range t {
		steps = append(steps, s)
	}
	sort.Ints(steps)
	return steps
}

// Validate checks ratio(0) == 1 and that every step a scale of n degrees can
// reach in bend math, 0..n-1 and 0..-(n-1), is present.
func (t RatioTable) Validate(n int) error {
	r, ok := t[0]
	if !ok {
		return &UnknownStepError{Step: 0}
	}
	if r != 1 {
		return fmt.Errorf("ratio for tonic is %v, want 1", r)
	}
	for step := 1; step < n; step++ {
		if _, ok := t[step]; !ok {
			return &UnknownStepError{Step: step}
		}
		if _, ok := t[-step]; !ok {
			return &UnknownStepError{Step: -step}
		}
	}
	for step, ratio := range t {
		if ratio <= 0 {
			return fmt.Errorf("ratio for step %d is %v, must be positive", step, ratio)
		}
	}
	return nil
}
