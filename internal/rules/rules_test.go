package rules

import (
	"math/rand/v2"
	"testing"

	"github.com/cbegin/raga-go/internal/event"
	"github.com/cbegin/raga-go/internal/phrase"
)

type fakeRaga struct {
	phrases []phrase.Phrase
	tal     int
	bpm     float64
}

func (f *fakeRaga) Phrases() []phrase.Phrase { return f.phrases }
func (f *fakeRaga) Tal() int                 { return f.tal }
func (f *fakeRaga) BPM() float64             { return f.bpm }

func newFake() *fakeRaga {
	mk := func(steps ...int) phrase.Phrase {
		notes := make([]phrase.Note, len(steps))
		for i, s := range steps {
			notes[i] = phrase.Note{Step: s, Duration: 1}
		}
		return phrase.New(notes...)
	}
	return &fakeRaga{
		phrases: []phrase.Phrase{mk(0, 1), mk(0, -1, -1), mk(1, 1, 1), mk(0), mk(2, -2)},
		tal:     4,
		bpm:     60,
	}
}

func ctxWithSeed(src Source, seed uint64) Context {
	return Context{Raga: src, Rand: rand.New(rand.NewPCG(seed, seed+1))}
}

func TestEmptyTableDefaults(t *testing.T) {
	var tbl Table
	ctx := ctxWithSeed(newFake(), 1)
	if got := tbl.Duration(ctx); got != DefaultBaseDuration {
		t.Fatalf("duration = %v, want %v", got, DefaultBaseDuration)
	}
	if got := tbl.BaseVelocityFor(ctx); got != 64 {
		t.Fatalf("base velocity = %d, want 64", got)
	}
	if got := tbl.PhraseVelocityFor(ctx); got != 64 {
		t.Fatalf("phrase velocity = %d, want 64", got)
	}
	if got := tbl.Select(ctx); len(got) != 1 {
		t.Fatalf("default selection returned %d phrases, want 1", len(got))
	}
}

func TestDefaultSelectionIsSeedDeterministic(t *testing.T) {
	var tbl Table
	src := newFake()
	a := tbl.Select(ctxWithSeed(src, 42))
	b := tbl.Select(ctxWithSeed(src, 42))
	if a[0].String() != b[0].String() {
		t.Fatalf("same seed selected %s and %s", a[0], b[0])
	}
}

func TestApplyOverwritesOnlySetSlots(t *testing.T) {
	base := Table{
		BaseDuration:   func(Context) float64 { return 1 },
		PhraseVelocity: func(Context) int { return 10 },
	}
	got := base.Apply(Table{PhraseVelocity: func(Context) int { return 99 }})
	ctx := ctxWithSeed(newFake(), 1)
	if got.Duration(ctx) != 1 {
		t.Fatalf("untouched slot changed")
	}
	if got.PhraseVelocityFor(ctx) != 99 {
		t.Fatalf("colliding slot not overwritten")
	}
	if base.PhraseVelocityFor(ctx) != 10 {
		t.Fatalf("Apply must not modify the receiver")
	}
	names := got.Names()
	if len(names) != 2 || names[0] != BaseDurationRule || names[1] != PhraseVelocityRule {
		t.Fatalf("names = %v", names)
	}
}

func TestApplyVelocitiesAveragesOnEventsOnly(t *testing.T) {
	tbl := Table{BaseVelocity: func(ctx Context) int { return ctx.NoteIndex * 10 }}
	seq := event.Sequence{
		event.On(42, 1, 0),
		event.On(60, 1, 1),
		event.Off(42),
		event.PitchBend(100, 0),
		event.Off(60),
		event.On(62, 1, 1),
	}
	tbl.ApplyVelocities(seq, ctxWithSeed(newFake(), 1), 61)
	// round((0+61)/2)=31, round((10+61)/2)=36, round((50+61)/2)=56
	want := []int{31, 36, 56}
	got := []int{seq[0].Velocity, seq[1].Velocity, seq[5].Velocity}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("velocities = %v, want %v", got, want)
		}
	}
	if seq[2].Velocity != 0 || seq[3].Value != 100 {
		t.Fatalf("non-on events should be untouched: %s", seq)
	}
}

func TestApplyVelocitiesSeesTotal(t *testing.T) {
	var total int
	tbl := Table{BaseVelocity: func(ctx Context) int { total = ctx.TotalNotes; return 0 }}
	seq := event.Sequence{event.On(60, 0, 1), event.Off(60)}
	tbl.ApplyVelocities(seq, ctxWithSeed(newFake(), 1), 0)
	if total != 2 {
		t.Fatalf("total notes = %d, want 2", total)
	}
}

func TestDurationSpecs(t *testing.T) {
	ctx := ctxWithSeed(&fakeRaga{bpm: 120}, 1)
	cases := []struct {
		spec Spec
		want float64
	}{
		{Spec{Rule: "constant", Value: 0.75}, 0.75},
		{Spec{Rule: "beats", Value: 1.5}, 0.75},
		{Spec{Rule: "snap", Value: 1.2, Grid: 0.5}, 1.0},
	}
	for _, tc := range cases {
		rule, err := DurationFromSpec(tc.spec)
		if err != nil {
			t.Fatalf("%s: %v", tc.spec.Rule, err)
		}
		if got := rule(ctx); got != tc.want {
			t.Errorf("%s = %v, want %v", tc.spec.Rule, got, tc.want)
		}
	}
	for _, bad := range []Spec{{Rule: "constant"}, {Rule: "snap", Value: 1}, {Rule: "nope"}} {
		if _, err := DurationFromSpec(bad); err == nil {
			t.Errorf("expected error for %+v", bad)
		}
	}
}

func TestUniformVelocityStaysInRange(t *testing.T) {
	rule, err := VelocityFromSpec(Spec{Rule: "uniform", Min: 50, Max: 70})
	if err != nil {
		t.Fatalf("uniform: %v", err)
	}
	ctx := ctxWithSeed(newFake(), 9)
	for i := 0; i < 500; i++ {
		if v := rule(ctx); v < 50 || v > 70 {
			t.Fatalf("velocity %d outside [50, 70]", v)
		}
	}
	if _, err := VelocityFromSpec(Spec{Rule: "uniform", Min: 80, Max: 10}); err == nil {
		t.Fatalf("expected inverted range error")
	}
}

func TestArcVelocity(t *testing.T) {
	at := func(i, n int) int { return ArcVelocity(Context{NoteIndex: i, TotalNotes: n}) }
	if got := at(0, 10); got != 30 {
		t.Fatalf("arc start = %d, want 30", got)
	}
	if got := at(5, 10); got != 63 {
		t.Fatalf("arc middle = %d, want 63", got)
	}
	if at(2, 10) <= at(0, 10) || at(9, 10) >= at(5, 10) {
		t.Fatalf("arc should rise then fall")
	}
}

func TestTalFitSelection(t *testing.T) {
	src := newFake()
	rule := TalFit(3, 100)
	ctx := ctxWithSeed(src, 5)
	ctx.BaseDuration = 0.5
	got := rule(ctx)
	if len(got) != 3 && len(got) != len(src.phrases) {
		t.Fatalf("tal fit returned %d phrases", len(got))
	}
	if len(got) == 3 {
		var total float64
		for _, p := range got {
			total += p.RelativeLength() * 0.5
		}
		if !wholeCycles(total, 4) {
			t.Fatalf("selection total %v is not a whole tal cycle", total)
		}
	}
}

func TestTalFitFallsBackToAll(t *testing.T) {
	src := newFake()
	src.tal = 1000
	ctx := ctxWithSeed(src, 5)
	ctx.BaseDuration = 1
	if got := TalFit(3, 100)(ctx); len(got) != len(src.phrases) {
		t.Fatalf("expected fallback to all %d phrases, got %d", len(src.phrases), len(got))
	}
}

func TestOverridesBuild(t *testing.T) {
	o := Overrides{
		BaseDuration:   &Spec{Rule: "beats", Value: 1},
		PhraseVelocity: &Spec{Rule: "uniform", Min: 0, Max: 50},
	}
	tbl, err := o.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(tbl.Names()) != 2 {
		t.Fatalf("names = %v", tbl.Names())
	}
	o.PhraseSelection = &Spec{Rule: "bogus"}
	if _, err := o.Build(); err == nil {
		t.Fatalf("expected unknown selection error")
	}
}
