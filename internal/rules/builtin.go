package rules

import (
	"fmt"
	"math"

	"github.com/cbegin/raga-go/internal/phrase"
)

// Spec names a built-in rule and its parameters, as written in config files.
type Spec struct {
	Rule  string  `toml:"rule"`
	Value float64 `toml:"value"`
	Min   float64 `toml:"min"`
	Max   float64 `toml:"max"`
	Grid  float64 `toml:"grid"`
	Count int     `toml:"count"`
}

// Overrides is a partial table described by specs.
type Overrides struct {
	BaseDuration    *Spec `toml:"base_duration"`
	BaseVelocity    *Spec `toml:"base_velocity"`
	PhraseVelocity  *Spec `toml:"phrase_velocity"`
	PhraseSelection *Spec `toml:"phrase_selection"`
}

// Build resolves every spec into a rule. Nil specs leave the slot empty.
func (o Overrides) Build() (Table, error) {
	var t Table
	var err error
	if o.BaseDuration != nil {
		if t.BaseDuration, err = DurationFromSpec(*o.BaseDuration); err != nil {
			return Table{}, fmt.Errorf("%s: %w", BaseDurationRule, err)
		}
	}
	if o.BaseVelocity != nil {
		if t.BaseVelocity, err = VelocityFromSpec(*o.BaseVelocity); err != nil {
			return Table{}, fmt.Errorf("%s: %w", BaseVelocityRule, err)
		}
	}
	if o.PhraseVelocity != nil {
		if t.PhraseVelocity, err = VelocityFromSpec(*o.PhraseVelocity); err != nil {
			return Table{}, fmt.Errorf("%s: %w", PhraseVelocityRule, err)
		}
	}
	if o.PhraseSelection != nil {
		if t.PhraseSelection, err = SelectionFromSpec(*o.PhraseSelection); err != nil {
			return Table{}, fmt.Errorf("%s: %w", PhraseSelectionRule, err)
		}
	}
	return t, nil
}

// DurationFromSpec supports:
//
//	constant  value seconds
//	beats     value beats at the raga's tempo
//	snap      value rounded to the nearest multiple of grid
func DurationFromSpec(s Spec) (DurationRule, error) {
	switch s.Rule {
	case "constant":
		if s.Value <= 0 {
			return nil, fmt.Errorf("constant duration %v must be positive", s.Value)
		}
		v := s.Value
		return func(Context) float64 { return v }, nil
	case "beats":
		if s.Value <= 0 {
			return nil, fmt.Errorf("beat count %v must be positive", s.Value)
		}
		beats := s.Value
		return func(ctx Context) float64 { return beats * 60 / ctx.Raga.BPM() }, nil
	case "snap":
		if s.Grid <= 0 {
			return nil, fmt.Errorf("snap grid %v must be positive", s.Grid)
		}
		snapped := math.Round(s.Value/s.Grid) * s.Grid
		if snapped <= 0 {
			return nil, fmt.Errorf("snapped duration %v must be positive", snapped)
		}
		return func(Context) float64 { return snapped }, nil
	default:
		return nil, fmt.Errorf("unknown duration rule %q", s.Rule)
	}
}

// VelocityFromSpec supports:
//
//	constant  value
//	uniform   integer in [min, max]
//	arc       rises from 60 toward 127 at the middle of the cycle and falls
//	          back, halved
func VelocityFromSpec(s Spec) (VelocityRule, error) {
	switch s.Rule {
	case "constant":
		v := int(s.Value)
		if v < 0 || v > 127 {
			return nil, fmt.Errorf("velocity %d out of range", v)
		}
		return func(Context) int { return v }, nil
	case "uniform":
		lo, hi := int(s.Min), int(s.Max)
		if lo < 0 || hi > 127 || lo > hi {
			return nil, fmt.Errorf("velocity range [%d, %d] invalid", lo, hi)
		}
		return func(ctx Context) int { return lo + ctx.Rand.IntN(hi-lo+1) }, nil
	case "arc":
		return ArcVelocity, nil
	default:
		return nil, fmt.Errorf("unknown velocity rule %q", s.Rule)
	}
}

// ArcVelocity swells toward the middle of the event sequence.
func ArcVelocity(ctx Context) int {
	if ctx.TotalNotes <= 0 {
		return DefaultBaseVelocity
	}
	mid := float64(ctx.TotalNotes) / 2
	idx := float64(ctx.NoteIndex)
	var v int
	if idx < mid {
		v = int(60 + idx/mid*(127-60))
	} else {
		v = int(127 - (idx-mid)/mid*(127-60))
	}
	return v / 2
}

// SelectionFromSpec supports:
//
//	random   one phrase (the default)
//	all      every phrase in order
//	tal_fit  count phrases (default 3) whose length fills whole tal cycles
func SelectionFromSpec(s Spec) (SelectionRule, error) {
	switch s.Rule {
	case "random":
		return RandomPhrase, nil
	case "all":
		return AllPhrases, nil
	case "tal_fit":
		count := s.Count
		if count <= 0 {
			count = 3
		}
		return TalFit(count, 100), nil
	default:
		return nil, fmt.Errorf("unknown selection rule %q", s.Rule)
	}
}

// AllPhrases returns the raga's whole phrase set.
func AllPhrases(ctx Context) []phrase.Phrase {
	return ctx.Raga.Phrases()
}

// TalFit samples count distinct phrases up to attempts times, returning the
// first sample whose total duration is a whole number of tal cycles. It falls
// back to the whole phrase set.
func TalFit(count, attempts int) SelectionRule {
	return func(ctx Context) []phrase.Phrase {
		ps := ctx.Raga.Phrases()
		if len(ps) <= count {
			return ps
		}
		cycle := float64(ctx.Raga.Tal()) * 60 / ctx.Raga.BPM()
		for range attempts {
			picked := make([]phrase.Phrase, 0, count)
			var total float64
			for _, i := range ctx.Rand.Perm(len(ps))[:count] {
				picked = append(picked, ps[i])
				total += ps[i].RelativeLength() * ctx.BaseDuration
			}
			if wholeCycles(total, cycle) {
				return picked
			}
		}
		return ps
	}
}

func wholeCycles(total, cycle float64) bool {
	if cycle <= 0 {
		return false
	}
	const eps = 1e-9
	r := math.Mod(total, cycle)
	return r < eps || cycle-r < eps
}
