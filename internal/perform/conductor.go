// Package perform runs a performance: a conductor that broadcasts scheduled
// moods to players, and players that turn moods into performance cycles.
package perform

import (
	"context"
	"log/slog"

	"github.com/cbegin/raga-go/internal/event"
	"github.com/cbegin/raga-go/internal/sim"
	"github.com/cbegin/raga-go/internal/sink"
)

// ScheduledEvent switches the performance into a named section with a mood
// at a virtual time, in beats.
type ScheduledEvent struct {
	Name string
	At   float64
	Mood string
}

type ConductorOption func(*Conductor)

// WithTransport sends a transport start to s when the performance begins.
func WithTransport(s sink.Sink) ConductorOption {
	return func(c *Conductor) {
		c.transport = s
	}
}

func WithConductorLogger(logger *slog.Logger) ConductorOption {
	return func(c *Conductor) {
		c.logger = logger
	}
}

// Conductor owns the schedule and the players.
type Conductor struct {
	env       *sim.Env
	schedule  []ScheduledEvent
	players   []*Player
	transport sink.Sink
	logger    *slog.Logger
	current   *ScheduledEvent
}

// NewConductor schedules a waiter for every event on env.
func NewConductor(env *sim.Env, schedule []ScheduledEvent, opts ...ConductorOption) *Conductor {
	c := &Conductor{
		env:      env,
		schedule: append([]ScheduledEvent(nil), schedule...),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, ev := range c.schedule {
		env.At(ev.At, sim.Once(func(_ context.Context, now float64) {
			c.logger.Info("event triggered", "event", ev.Name, "time", now)
			c.Notify(ev)
		}))
	}
	return c
}

func (c *Conductor) AddPlayer(p *Player) {
	c.players = append(c.players, p)
}

func (c *Conductor) Players() []*Player { return c.players }

// Current returns the most recently triggered event, if any.
func (c *Conductor) Current() (ScheduledEvent, bool) {
	if c.current == nil {
		return ScheduledEvent{}, false
	}
	return *c.current, true
}

// Notify gives every participating player the event's mood and clears the
// mood of everyone else.
func (c *Conductor) Notify(ev ScheduledEvent) {
	c.current = &ev
	c.logger.Info("notifying", "mood", ev.Mood)
	for _, p := range c.players {
		if p.Participates(ev.Name) {
			p.SetMood(ev.Mood)
		} else {
			p.SetMood("")
		}
	}
}

// Begin starts the performance at the current time: the transport start is
// sent, every player's loop is started and a beat timer logs the clock.
func (c *Conductor) Begin() {
	c.env.Go(sim.Once(func(_ context.Context, now float64) {
		if c.transport != nil {
			if err := c.transport.Send(event.Start()); err != nil {
				c.logger.Warn("transport start failed", "err", err)
			}
		}
		for _, p := range c.players {
			c.env.Go(p)
		}
	}))
	c.env.Go(sim.ProcessFunc(func(_ context.Context, now float64) (float64, bool) {
		c.logger.Debug("time", "beat", now)
		return 1, true
	}))
}
