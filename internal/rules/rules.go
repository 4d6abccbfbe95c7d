// Package rules holds the pluggable rule table that parameterizes each
// performance cycle: base duration, base and phrase velocity, and phrase
// selection. Every slot has a documented default, so an empty Table is valid.
package rules

import (
	"math"
	"math/rand/v2"

	"github.com/cbegin/raga-go/internal/event"
	"github.com/cbegin/raga-go/internal/phrase"
)

// Name identifies a rule slot.
type Name string

const (
	BaseDurationRule    Name = "base_duration_rule"
	BaseVelocityRule    Name = "base_velocity_rule"
	PhraseVelocityRule  Name = "phrase_velocity_rule"
	PhraseSelectionRule Name = "phrase_selection_rule"
)

// Defaults used when a slot is empty.
const (
	DefaultBaseDuration   = 0.5
	DefaultBaseVelocity   = 64
	DefaultPhraseVelocity = 64
)

// Source is the view of a raga that rules may read.
type Source interface {
	Phrases() []phrase.Phrase
	Tal() int
	BPM() float64
}

// Context is passed to every rule. NoteIndex and TotalNotes are only set for
// base velocity evaluation; BaseDuration is set once it has been decided.
type Context struct {
	Raga         Source
	BaseDuration float64
	NoteIndex    int
	TotalNotes   int
	Rand         *rand.Rand
}

type (
	DurationRule  func(Context) float64
	VelocityRule  func(Context) int
	SelectionRule func(Context) []phrase.Phrase
)

// Table holds one optional rule per slot. A nil slot falls back to its default.
type Table struct {
	BaseDuration    DurationRule
	BaseVelocity    VelocityRule
	PhraseVelocity  VelocityRule
	PhraseSelection SelectionRule
}

// Apply returns t with every non-nil slot of o written over it. Colliding
// slots take o's rule.
func (t Table) Apply(o Table) Table {
	if o.BaseDuration != nil {
		t.BaseDuration = o.BaseDuration
	}
	if o.BaseVelocity != nil {
		t.BaseVelocity = o.BaseVelocity
	}
	if o.PhraseVelocity != nil {
		t.PhraseVelocity = o.PhraseVelocity
	}
	if o.PhraseSelection != nil {
		t.PhraseSelection = o.PhraseSelection
	}
	return t
}

// Names lists the slots t sets, in slot order.
func (t Table) Names() []Name {
	var out []Name
	if t.BaseDuration != nil {
		out = append(out, BaseDurationRule)
	}
	if t.BaseVelocity != nil {
		out = append(out, BaseVelocityRule)
	}
	if t.PhraseVelocity != nil {
		out = append(out, PhraseVelocityRule)
	}
	if t.PhraseSelection != nil {
		out = append(out, PhraseSelectionRule)
	}
	return out
}

func (t Table) Duration(ctx Context) float64 {
	if t.BaseDuration == nil {
		return DefaultBaseDuration
	}
	return t.BaseDuration(ctx)
}

func (t Table) BaseVelocityFor(ctx Context) int {
	if t.BaseVelocity == nil {
		return DefaultBaseVelocity
	}
	return t.BaseVelocity(ctx)
}

func (t Table) PhraseVelocityFor(ctx Context) int {
	if t.PhraseVelocity == nil {
		return DefaultPhraseVelocity
	}
	return t.PhraseVelocity(ctx)
}

// Select runs the selection rule, defaulting to one random phrase.
func (t Table) Select(ctx Context) []phrase.Phrase {
	if t.PhraseSelection == nil {
		return RandomPhrase(ctx)
	}
	return t.PhraseSelection(ctx)
}

// RandomPhrase picks one phrase uniformly.
func RandomPhrase(ctx Context) []phrase.Phrase {
	ps := ctx.Raga.Phrases()
	if len(ps) == 0 {
		return nil
	}
	return []phrase.Phrase{ps[ctx.Rand.IntN(len(ps))]}
}

// ApplyVelocities rewrites every note-on in seq with the average of the base
// velocity rule, evaluated at that event's index, and phraseVelocity.
func (t Table) ApplyVelocities(seq event.Sequence, ctx Context, phraseVelocity int) {
	ctx.TotalNotes = len(seq)
	for i := range seq {
		if seq[i].Kind != event.NoteOn {
			continue
		}
		ctx.NoteIndex = i
		base := t.BaseVelocityFor(ctx)
		seq[i].Velocity = event.ClampVelocity(int(math.Round(float64(base+phraseVelocity) / 2)))
	}
}
