package raga

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cbegin/raga-go/internal/modulation"
	"github.com/cbegin/raga-go/internal/phrase"
	"github.com/cbegin/raga-go/internal/rules"
	"github.com/cbegin/raga-go/internal/scale"
	"github.com/cbegin/raga-go/internal/sink"
)

type Option func(*ragaConfig)

type ragaConfig struct {
	tal          int
	bpm          float64
	rules        rules.Table
	ornaments    map[string]int
	glides       map[string]int
	ratios       scale.RatioTable
	wobble       modulation.WobbleConfig
	wobbleChance float64
	rng          *rand.Rand
	logger       *slog.Logger
	sink         sink.Sink
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

func defaultRagaConfig() ragaConfig {
	return ragaConfig{
		tal:          4,
		bpm:          120,
		wobble:       modulation.DefaultWobble(),
		wobbleChance: phrase.DefaultWobbleChance,
	}
}

// WithTal sets beats per rhythmic cycle.
func WithTal(beats int) Option {
	return func(cfg *ragaConfig) {
		cfg.tal = beats
	}
}

func WithBPM(bpm float64) Option {
	return func(cfg *ragaConfig) {
		cfg.bpm = bpm
	}
}

// WithRules installs the initial rule table.
func WithRules(t rules.Table) Option {
	return func(cfg *ragaConfig) {
		cfg.rules = t
	}
}

// WithOrnaments maps ornament tags to key-switch pitches.
func WithOrnaments(m map[string]int) Option {
	return func(cfg *ragaConfig) {
		cfg.ornaments = m
	}
}

// WithGlides maps ornament tags to glide step deltas.
func WithGlides(m map[string]int) Option {
	return func(cfg *ragaConfig) {
		cfg.glides = m
	}
}

// WithRatios sets the step to frequency-ratio table used for bends.
func WithRatios(t scale.RatioTable) Option {
	return func(cfg *ragaConfig) {
		cfg.ratios = t
	}
}

func WithWobble(w modulation.WobbleConfig) Option {
	return func(cfg *ragaConfig) {
		cfg.wobble = w
	}
}

// WithWobbleChance sets the per-note wobble probability (default 0.5).
func WithWobbleChance(p float64) Option {
	return func(cfg *ragaConfig) {
		cfg.wobbleChance = p
	}
}

// WithRand sets the random source for rules and rendering.
func WithRand(r *rand.Rand) Option {
	return func(cfg *ragaConfig) {
		cfg.rng = r
	}
}

// WithSeed seeds a PCG random source.
func WithSeed(seed uint64) Option {
	return func(cfg *ragaConfig) {
		cfg.rng = NewRand(seed)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *ragaConfig) {
		cfg.logger = logger
	}
}

// WithSink sets where performed events go. Without one, events are logged
// at debug level.
func WithSink(s sink.Sink) Option {
	return func(cfg *ragaConfig) {
		cfg.sink = s
	}
}

// WithClock replaces the wall clock used to pace playback.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(cfg *ragaConfig) {
		cfg.now = now
		cfg.sleep = sleep
	}
}

// NewRand returns a PCG-backed generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
