package phrase

import (
	"math/rand/v2"
	"sort"
)

// DurationPalette is the set of relative durations mutation and generation
// draw from.
var DurationPalette = []float64{0.25, 0.5, 0.75, 1, 1.25, 1.5}

// FirstDurations are the candidate durations for a generated phrase's first note.
var FirstDurations = []float64{0.5, 1, 1.5}

// GlideBothWays is the ornament tag generated phrases use.
const GlideBothWays = "updown"

// MaxMutatedStep bounds a mutated note's step in both directions.
const MaxMutatedStep = 2

// Mutate returns a new phrase where each note's step, duration and ornament
// are independently redrawn with even odds. ornaments lists the tags an
// ornament may mutate to; the empty tag is always a candidate.
func Mutate(p Phrase, ornaments []string, rng *rand.Rand) Phrase {
	candidates := ornamentCandidates(ornaments)
	out := make([]Note, len(p.notes))
	for i, n := range p.notes {
		mutateStep := rng.IntN(2) == 0
		mutateDuration := rng.IntN(2) == 0
		mutateOrnament := rng.IntN(2) == 0

		if mutateStep {
			n.Step += rng.IntN(3) - 1
			n.Step = max(-MaxMutatedStep, min(MaxMutatedStep, n.Step))
		}
		if mutateDuration {
			n.Duration = DurationPalette[rng.IntN(len(DurationPalette))]
		}
		if mutateOrnament {
			n.Ornament = candidates[rng.IntN(len(candidates))]
		}
		out[i] = n
	}
	return Phrase{notes: out}
}

func ornamentCandidates(ornaments []string) []string {
	sorted := append([]string(nil), ornaments...)
	sort.Strings(sorted)
	return append([]string{""}, sorted...)
}

// Generate builds a random phrase of n notes. The first note never moves.
// Later steps follow a walk that leaves a stall in either direction and
// otherwise favors continuing (3) over reversing (1) or stalling (1).
// Durations scale the first note's duration by a palette entry, and two in
// five notes carry the GlideBothWays ornament.
func Generate(n int, rng *rand.Rand) Phrase {
	if n <= 0 {
		return Phrase{}
	}
	first := FirstDurations[rng.IntN(len(FirstDurations))]
	notes := make([]Note, 0, n)
	notes = append(notes, Note{Step: 0, Duration: first})

	step := 0
	for i := 1; i < n; i++ {
		step = nextStep(step, rng)
		note := Note{
			Step:     step,
			Duration: DurationPalette[rng.IntN(len(DurationPalette))] * first,
		}
		if rng.IntN(5) < 2 {
			note.Ornament = GlideBothWays
		}
		notes = append(notes, note)
	}
	return Phrase{notes: notes}
}

func nextStep(prev int, rng *rand.Rand) int {
	if prev == 0 {
		if rng.IntN(2) == 0 {
			return -1
		}
		return 1
	}
	switch r := rng.IntN(5); {
	case r < 3:
		return prev
	case r == 3:
		return -prev
	default:
		return 0
	}
}
