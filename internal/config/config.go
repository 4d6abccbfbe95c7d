// Package config loads a raga, its performance schedule and its players from
// TOML.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	raga "github.com/cbegin/raga-go"
	"github.com/cbegin/raga-go/internal/modulation"
	"github.com/cbegin/raga-go/internal/perform"
	"github.com/cbegin/raga-go/internal/phrase"
	"github.com/cbegin/raga-go/internal/rules"
	"github.com/cbegin/raga-go/internal/scale"
)

//go:embed bhairav.toml
var bhairav []byte

// File is one configuration document.
type File struct {
	Raga        Raga            `toml:"raga"`
	Performance Performance     `toml:"performance"`
	Schedule    []ScheduleEntry `toml:"schedule"`
	Players     []Player        `toml:"players"`
}

type Raga struct {
	Name         string            `toml:"name"`
	Tal          int               `toml:"tal"`
	BPM          float64           `toml:"bpm"`
	Ascending    []int             `toml:"ascending"`
	Descending   []int             `toml:"descending"`
	Ornaments    map[string]int    `toml:"ornaments"`
	Glides       map[string]int    `toml:"glides"`
	Ratios       map[string]string `toml:"ratios"`
	Wobble       Wobble            `toml:"wobble"`
	WobbleChance *float64          `toml:"wobble_chance"`
	Rules        rules.Overrides   `toml:"rules"`
	Phrases      []PhraseEntry     `toml:"phrases"`
	Generate     Generate          `toml:"generate"`
}

// Wobble overrides the default wobble. Unset fields keep the default, so an
// explicit intensity of zero gives a flat wobble.
type Wobble struct {
	Intensity *int     `toml:"intensity"`
	RateHz    *float64 `toml:"rate_hz"`
}

// Config applies the set fields to the default wobble.
func (w Wobble) Config() modulation.WobbleConfig {
	cfg := modulation.DefaultWobble()
	if w.Intensity != nil {
		cfg.Intensity = *w.Intensity
	}
	if w.RateHz != nil {
		cfg.RateHz = *w.RateHz
	}
	return cfg
}

// PhraseEntry is a phrase in compact notation plus how many mutated copies
// to add alongside it.
type PhraseEntry struct {
	Notes     string `toml:"notes"`
	Mutations int    `toml:"mutations"`
}

// Generate adds Count random phrases of MinNotes..MaxNotes notes.
type Generate struct {
	Count    int `toml:"count"`
	MinNotes int `toml:"min_notes"`
	MaxNotes int `toml:"max_notes"`
}

type Performance struct {
	// Duration is the run length in beats.
	Duration  float64 `toml:"duration"`
	Realtime  bool    `toml:"realtime"`
	Strict    bool    `toml:"strict"`
	Transport bool    `toml:"transport"`
	// Seed fixes the random source; zero picks one at random.
	Seed uint64 `toml:"seed"`
}

type ScheduleEntry struct {
	Name string  `toml:"name"`
	At   float64 `toml:"at"`
	Mood string  `toml:"mood"`
}

type Player struct {
	Name          string                     `toml:"name"`
	Participation []string                   `toml:"participation"`
	Moods         map[string]rules.Overrides `toml:"moods"`
}

// Default returns the embedded Raga Bhairav configuration.
func Default() (*File, error) {
	return Parse(bhairav)
}

// Load reads and parses the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the parts of the document the raga itself does not.
func (f *File) Validate() error {
	if f.Raga.Name == "" {
		return errors.New("raga.name is required")
	}
	if f.Performance.Duration <= 0 {
		return fmt.Errorf("performance.duration: %v must be positive", f.Performance.Duration)
	}
	for i, s := range f.Schedule {
		if s.Name == "" {
			return fmt.Errorf("schedule[%d].name is required", i)
		}
		if s.At < 0 {
			return fmt.Errorf("schedule[%d].at: %v must not be negative", i, s.At)
		}
	}
	if c := f.Raga.WobbleChance; c != nil && (*c < 0 || *c > 1) {
		return fmt.Errorf("raga.wobble_chance: %v outside [0, 1]", *c)
	}
	if r := f.Raga.Wobble.RateHz; r != nil && *r <= 0 {
		return fmt.Errorf("raga.wobble.rate_hz: %v must be positive", *r)
	}
	g := f.Raga.Generate
	if g.Count > 0 && (g.MinNotes <= 0 || g.MaxNotes < g.MinNotes) {
		return fmt.Errorf("raga.generate: note range [%d, %d] invalid", g.MinNotes, g.MaxNotes)
	}
	for i, p := range f.Players {
		if p.Name == "" {
			return fmt.Errorf("players[%d].name is required", i)
		}
	}
	return nil
}

// RatioTable parses the raga's ratio strings.
func (f *File) RatioTable() (scale.RatioTable, error) {
	t := make(scale.RatioTable, len(f.Raga.Ratios))
	for key, value := range f.Raga.Ratios {
		step, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("raga.ratios.%s: step is not an integer", key)
		}
		r, err := scale.ParseRatio(value)
		if err != nil {
			return nil, fmt.Errorf("raga.ratios.%s: %w", key, err)
		}
		t[step] = r
	}
	return t, nil
}

// BuildRaga constructs and validates the raga with its phrase set, including
// mutated and generated phrases. opts are applied after the file's own
// settings.
func (f *File) BuildRaga(opts ...raga.Option) (*raga.Raga, error) {
	cfg := f.Raga
	ratios, err := f.RatioTable()
	if err != nil {
		return nil, err
	}
	table, err := cfg.Rules.Build()
	if err != nil {
		return nil, fmt.Errorf("raga.rules: %w", err)
	}
	base := []raga.Option{
		raga.WithTal(cfg.Tal),
		raga.WithBPM(cfg.BPM),
		raga.WithOrnaments(cfg.Ornaments),
		raga.WithGlides(cfg.Glides),
		raga.WithRatios(ratios),
		raga.WithRules(table),
		raga.WithWobble(cfg.Wobble.Config()),
	}
	if cfg.WobbleChance != nil {
		base = append(base, raga.WithWobbleChance(*cfg.WobbleChance))
	}
	if f.Performance.Seed != 0 {
		base = append(base, raga.WithSeed(f.Performance.Seed))
	}
	r, err := raga.New(cfg.Name, cfg.Ascending, cfg.Descending, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	for i, entry := range cfg.Phrases {
		p, err := phrase.Parse(entry.Notes)
		if err != nil {
			return nil, fmt.Errorf("raga.phrases[%d]: %w", i, err)
		}
		if err := r.AddPhrase(p); err != nil {
			return nil, fmt.Errorf("raga.phrases[%d]: %w", i, err)
		}
		if entry.Mutations > 0 {
			r.AddMutations(p, entry.Mutations)
		}
	}
	g := cfg.Generate
	for range g.Count {
		n := g.MinNotes + r.Intn(g.MaxNotes-g.MinNotes+1)
		if _, err := r.AddGenerated(n); err != nil {
			return nil, fmt.Errorf("raga.generate: %w", err)
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// ScheduledEvents returns the schedule ordered by trigger time. Entries with
// equal times keep their file order.
func (f *File) ScheduledEvents() []perform.ScheduledEvent {
	out := make([]perform.ScheduledEvent, len(f.Schedule))
	for i, s := range f.Schedule {
		out[i] = perform.ScheduledEvent{Name: s.Name, At: s.At, Mood: s.Mood}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At < out[j].At })
	return out
}

// BuildPlayers creates every player bound to performer.
func (f *File) BuildPlayers(performer perform.Performer, logger *slog.Logger) ([]*perform.Player, error) {
	players := make([]*perform.Player, 0, len(f.Players))
	for i, pc := range f.Players {
		opts := []perform.PlayerOption{perform.WithParticipation(pc.Participation...)}
		if logger != nil {
			opts = append(opts, perform.WithPlayerLogger(logger))
		}
		moods := make([]string, 0, len(pc.Moods))
		for mood := range pc.Moods {
			moods = append(moods, mood)
		}
		sort.Strings(moods)
		for _, mood := range moods {
			t, err := pc.Moods[mood].Build()
			if err != nil {
				return nil, fmt.Errorf("players[%d].moods.%s: %w", i, mood, err)
			}
			opts = append(opts, perform.WithMoodRules(mood, t))
		}
		players = append(players, perform.NewPlayer(pc.Name, performer, opts...))
	}
	return players, nil
}
