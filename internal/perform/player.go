package perform

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/cbegin/raga-go/internal/rules"
)

// Performer is the shared raga as seen by players.
type Performer interface {
	// Perform renders and starts one cycle, returning its length in seconds.
	Perform(ctx context.Context) (float64, error)
	// ApplyOverrides writes rules into the shared rule table.
	ApplyOverrides(rules.Table)
	BPM() float64
}

// State is a player's position in its performance loop.
type State int

const (
	Idle State = iota
	CheckingMood
	Performing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CheckingMood:
		return "checking-mood"
	case Performing:
		return "performing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type PlayerOption func(*Player)

// WithParticipation lists the schedule sections the player takes part in.
func WithParticipation(sections ...string) PlayerOption {
	return func(p *Player) {
		for _, s := range sections {
			p.participation[s] = struct{}{}
		}
	}
}

// WithMoodRules binds a mood to rule overrides.
func WithMoodRules(mood string, overrides rules.Table) PlayerOption {
	return func(p *Player) {
		p.moodRules[mood] = overrides
	}
}

func WithPlayerLogger(logger *slog.Logger) PlayerOption {
	return func(p *Player) {
		p.logger = logger
	}
}

// Player performs the shared raga whenever it has a mood. It polls for a
// mood instead of being woken, so a mood change is seen at the next poll or
// cycle boundary, never mid-cycle.
//
// Mood overrides are written into the shared rule table; when several
// players interleave, the last one to apply wins.
type Player struct {
	name          string
	performer     Performer
	participation map[string]struct{}
	moodRules     map[string]rules.Table
	mood          string
	state         State
	cycles        int
	failures      int
	logger        *slog.Logger
}

func NewPlayer(name string, performer Performer, opts ...PlayerOption) *Player {
	p := &Player{
		name:          name,
		performer:     performer,
		participation: map[string]struct{}{},
		moodRules:     map[string]rules.Table{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("player", name)
	return p
}

func (p *Player) Name() string { return p.name }

// Mood returns the current mood; "" means none.
func (p *Player) Mood() string { return p.mood }

// SetMood is called by the conductor.
func (p *Player) SetMood(mood string) { p.mood = mood }

func (p *Player) State() State { return p.state }

// Cycles counts performances started.
func (p *Player) Cycles() int { return p.cycles }

// Failures counts cycles aborted by a render error.
func (p *Player) Failures() int { return p.failures }

// Participates reports whether section is one of the player's sections.
func (p *Player) Participates(section string) bool {
	_, ok := p.participation[section]
	return ok
}

// Resume advances the player's loop. It never finishes on its own.
func (p *Player) Resume(ctx context.Context, now float64) (float64, bool) {
	for {
		switch p.state {
		case Idle:
			if p.mood == "" {
				return pollWait(now), true
			}
			p.transition(CheckingMood, now)
		case CheckingMood:
			if overrides, ok := p.moodRules[p.mood]; ok {
				p.performer.ApplyOverrides(overrides)
				p.logger.Debug("applied mood rules", "mood", p.mood, "rules", overrides.Names())
			}
			p.transition(Performing, now)
		case Performing:
			p.transition(Idle, now)
			seconds, err := p.performer.Perform(ctx)
			if err != nil {
				p.failures++
				p.logger.Error("performance cycle aborted", "mood", p.mood, "err", err)
				return pollWait(now), true
			}
			p.cycles++
			beats := seconds / (60 / p.performer.BPM())
			p.logger.Info("performing", "time", now, "beats", beats, "mood", p.mood)
			if beats <= 0 {
				return pollWait(now), true
			}
			return beats, true
		}
	}
}

func (p *Player) transition(to State, now float64) {
	p.logger.Debug("state", "from", p.state, "to", to, "time", now)
	p.state = to
}

// pollWait is the delay to the next beat boundary at least half a beat away.
func pollWait(now float64) float64 {
	next := math.Round(now + 0.5)
	if wait := next - now; wait > 0 {
		return wait
	}
	return 1
}
