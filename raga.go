// Package raga composes and performs raga-style melodies: phrases are chosen
// and shaped by a pluggable rule table, rendered against the raga's scales
// into note and pitch-bend events, and streamed to an event sink.
package raga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/raga-go/internal/event"
	"github.com/cbegin/raga-go/internal/phrase"
	"github.com/cbegin/raga-go/internal/rules"
	"github.com/cbegin/raga-go/internal/scale"
	"github.com/cbegin/raga-go/internal/sequencer"
	"github.com/cbegin/raga-go/internal/sink"
)

var (
	ErrEmptyPhraseSet = errors.New("raga has no phrases")
	ErrInvalidScale   = errors.New("invalid scale")
	ErrInvalidTempo   = errors.New("tal and bpm must be positive")
	ErrNoSelection    = errors.New("phrase selection rule chose no phrases")
	ErrMissingRatios  = errors.New("wobble needs a ratio table")
)

// PlaybackEvent reports cycle progress from Watch().
type PlaybackEvent struct {
	Kind     int // EventCycleStarted, EventCycleEnded, EventCycleFailed or EventCycleLagging
	CycleID  uuid.UUID
	Duration float64
	Err      error
}

const (
	EventCycleStarted int = iota
	EventCycleEnded
	EventCycleFailed
	EventCycleLagging
)

// Cycle is one rendered performance cycle.
type Cycle struct {
	ID             uuid.UUID
	Start          int
	BaseDuration   float64
	PhraseVelocity int
	Phrases        []phrase.Phrase
	Events         event.Sequence
	// Duration is the sum of every note's rendered duration, in seconds.
	Duration float64
}

// Raga is the musical configuration and its performer. Rules, phrases and the
// random source are guarded by one lock; playback of each cycle runs on its
// own goroutine so the caller's clock is never blocked.
type Raga struct {
	mu         sync.Mutex
	name       string
	scales     scale.Pair
	tal        int
	bpm        float64
	rules      rules.Table
	instrument phrase.Instrument
	phrases    []phrase.Phrase
	rng        *rand.Rand
	logger     *slog.Logger
	sink       sink.Sink
	seqOpts    sequencer.Options
	playback   errgroup.Group
	eventCh    chan PlaybackEvent
	eventChMu  sync.Mutex
}

// New builds a raga from its two scale forms.
func New(name string, ascending, descending []int, opts ...Option) (*Raga, error) {
	cfg := defaultRagaConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	pair := scale.Pair{Ascending: scale.Scale(ascending), Descending: scale.Scale(descending)}
	if err := pair.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScale, err)
	}
	if cfg.tal <= 0 || cfg.bpm <= 0 {
		return nil, ErrInvalidTempo
	}
	if cfg.ratios == nil && cfg.wobbleChance > 0 {
		return nil, ErrMissingRatios
	}
	if cfg.ratios != nil {
		if err := cfg.ratios.Validate(pair.Len()); err != nil {
			return nil, fmt.Errorf("ratio table: %w", err)
		}
	}
	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.sink == nil {
		cfg.sink = sink.NewLog(cfg.logger, slog.LevelDebug)
	}
	r := &Raga{
		name:   name,
		scales: pair,
		tal:    cfg.tal,
		bpm:    cfg.bpm,
		rules:  cfg.rules,
		instrument: phrase.Instrument{
			Scales:       pair,
			Ornaments:    cfg.ornaments,
			Glides:       cfg.glides,
			Ratios:       cfg.ratios,
			Wobble:       cfg.wobble,
			WobbleChance: cfg.wobbleChance,
		},
		rng:    cfg.rng,
		logger: cfg.logger.With("raga", name),
		sink:   cfg.sink,
	}
	r.seqOpts = sequencer.Options{
		Now:    cfg.now,
		Sleep:  cfg.sleep,
		Logger: r.logger.With("component", "playback"),
	}
	return r, nil
}

func (r *Raga) Name() string { return r.name }
func (r *Raga) Tal() int      { return r.tal }
func (r *Raga) BPM() float64  { return r.bpm }

// SecondsPerBeat is 60/bpm.
func (r *Raga) SecondsPerBeat() float64 { return 60 / r.bpm }

// Scales returns both scale forms.
func (r *Raga) Scales() scale.Pair { return r.scales }

// Phrases returns a snapshot of the phrase set.
func (r *Raga) Phrases() []phrase.Phrase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]phrase.Phrase(nil), r.phrases...)
}

// AddPhrase appends p to the phrase set.
func (r *Raga) AddPhrase(p phrase.Phrase) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phrases = append(r.phrases, p)
	return nil
}

// AddMutations adds n mutated copies of p and returns them.
func (r *Raga) AddMutations(p phrase.Phrase, n int) []phrase.Phrase {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := r.ornamentNames()
	out := make([]phrase.Phrase, 0, n)
	for range n {
		m := phrase.Mutate(p, names, r.rng)
		r.phrases = append(r.phrases, m)
		out = append(out, m)
	}
	return out
}

// AddGenerated adds a random phrase of n notes and returns it.
func (r *Raga) AddGenerated(n int) (phrase.Phrase, error) {
	if n <= 0 {
		return phrase.Phrase{}, phrase.ErrEmptyPhrase
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p := phrase.Generate(n, r.rng)
	r.phrases = append(r.phrases, p)
	return p, nil
}

// Intn draws from the raga's random source.
func (r *Raga) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

func (r *Raga) ornamentNames() []string {
	names := make([]string, 0, len(r.instrument.Ornaments))
	for name := range r.instrument.Ornaments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Rules returns the current rule table.
func (r *Raga) Rules() rules.Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rules
}

// ApplyOverrides writes every rule set in t into the raga's rule table. The
// table is shared by all players; whoever applies last wins. Changes affect
// the next rendered cycle only.
func (r *Raga) ApplyOverrides(t rules.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = r.rules.Apply(t)
}

// Validate checks the whole configuration, including ratio coverage and a
// non-empty phrase set.
func (r *Raga) Validate() error {
	if err := r.scales.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScale, err)
	}
	if r.tal <= 0 || r.bpm <= 0 {
		return ErrInvalidTempo
	}
	if err := r.instrument.Ratios.Validate(r.scales.Len()); err != nil {
		return fmt.Errorf("ratio table: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.phrases) == 0 {
		return ErrEmptyPhraseSet
	}
	return nil
}

// snapshot is the rules.Source handed to rules while the raga is locked.
type snapshot struct {
	phrases []phrase.Phrase
	tal     int
	bpm     float64
}

func (s snapshot) Phrases() []phrase.Phrase { return s.phrases }
func (s snapshot) Tal() int                 { return s.tal }
func (s snapshot) BPM() float64             { return s.bpm }

// Render evaluates the rules and renders one cycle from scale position start
// without playing it.
func (r *Raga) Render(start int) (*Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.render(&start)
}

// RenderRandomStart renders one cycle starting on the tonic or the octave
// above, chosen at random.
func (r *Raga) RenderRandomStart() (*Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.render(nil)
}

func (r *Raga) render(start *int) (*Cycle, error) {
	if len(r.phrases) == 0 {
		return nil, ErrEmptyPhraseSet
	}
	tbl := r.rules
	ctx := rules.Context{
		Raga: snapshot{phrases: append([]phrase.Phrase(nil), r.phrases...), tal: r.tal, bpm: r.bpm},
		Rand: r.rng,
	}
	base := tbl.Duration(ctx)
	if base <= 0 {
		return nil, fmt.Errorf("base duration rule returned %v", base)
	}
	phraseVelocity := tbl.PhraseVelocityFor(ctx)
	ctx.BaseDuration = base
	selected := tbl.Select(ctx)
	if len(selected) == 0 {
		return nil, ErrNoSelection
	}

	pos := 0
	if start != nil {
		pos = *start
	} else if r.rng.IntN(2) == 1 {
		pos = r.scales.Len()
	}

	c := &Cycle{
		ID:             uuid.New(),
		Start:          pos,
		BaseDuration:   base,
		PhraseVelocity: phraseVelocity,
		Phrases:        selected,
	}
	for _, p := range selected {
		events, d, err := phrase.Render(p, &r.instrument, pos, base, phraseVelocity, r.rng)
		if err != nil {
			return nil, err
		}
		c.Events = append(c.Events, events...)
		c.Duration += d
	}
	tbl.ApplyVelocities(c.Events, ctx, phraseVelocity)
	return c, nil
}

// Perform renders a cycle from a random start and plays it in the
// background. It returns the cycle's length in seconds so the caller can
// schedule the next one.
func (r *Raga) Perform(ctx context.Context) (float64, error) {
	r.mu.Lock()
	c, err := r.render(nil)
	r.mu.Unlock()
	if err != nil {
		return 0, err
	}
	r.play(ctx, c)
	return c.Duration, nil
}

// PerformFrom is Perform with a fixed start position.
func (r *Raga) PerformFrom(ctx context.Context, start int) (float64, error) {
	c, err := r.Render(start)
	if err != nil {
		return 0, err
	}
	r.play(ctx, c)
	return c.Duration, nil
}

func (r *Raga) play(ctx context.Context, c *Cycle) {
	r.logger.Info("cycle",
		"id", c.ID,
		"start", c.Start,
		"phrases", len(c.Phrases),
		"events", len(c.Events),
		"duration", time.Duration(c.Duration*float64(time.Second)),
	)
	opts := r.seqOpts
	opts.OnEvent = func(kind sequencer.EventKind) {
		if kind == sequencer.EventLagging {
			r.sendEvent(PlaybackEvent{Kind: EventCycleLagging, CycleID: c.ID})
		}
	}
	seq := sequencer.NewWithOptions(r.sink, opts)
	r.playback.Go(func() error {
		r.sendEvent(PlaybackEvent{Kind: EventCycleStarted, CycleID: c.ID, Duration: c.Duration})
		if err := seq.Play(ctx, c.Events); err != nil {
			r.logger.Error("playback failed", "id", c.ID, "err", err)
			r.sendEvent(PlaybackEvent{Kind: EventCycleFailed, CycleID: c.ID, Err: err})
			return fmt.Errorf("cycle %s: %w", c.ID, err)
		}
		r.sendEvent(PlaybackEvent{Kind: EventCycleEnded, CycleID: c.ID, Duration: c.Duration})
		return nil
	})
}

// Wait blocks until every started cycle has finished playing and returns
// the first playback error.
func (r *Raga) Wait() error {
	return r.playback.Wait()
}

// Watch returns a channel that receives cycle events. The channel is
// buffered (cap 8) and events are dropped when it is full. Only the most
// recent Watch() channel receives events.
func (r *Raga) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	r.eventChMu.Lock()
	r.eventCh = ch
	r.eventChMu.Unlock()
	return ch
}

func (r *Raga) sendEvent(ev PlaybackEvent) {
	r.eventChMu.Lock()
	ch := r.eventCh
	r.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}
