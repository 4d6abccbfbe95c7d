package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver
	"golang.org/x/sync/errgroup"

	raga "github.com/cbegin/raga-go"
	"github.com/cbegin/raga-go/internal/config"
	"github.com/cbegin/raga-go/internal/perform"
	"github.com/cbegin/raga-go/internal/sim"
	"github.com/cbegin/raga-go/internal/sink"
)

var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func main() {
	var (
		configPath = flag.String("config", "", "path to a raga TOML file (default: built-in Bhairav)")
		port       = flag.String("port", "", "MIDI output port name or substring (default: first port)")
		listPorts  = flag.Bool("list-ports", false, "list MIDI output ports and exit")
		dryRun     = flag.Bool("dry-run", false, "log events instead of sending MIDI")
		echo       = flag.Bool("echo", false, "also log every event sent to the MIDI port")
		debug      = flag.Bool("debug", false, "debug logging")
		seed       = flag.Uint64("seed", 0, "random seed (0 = use config or random)")
		noRealtime = flag.Bool("no-realtime", false, "run the clock as fast as possible")
		channel    = flag.Int("channel", 0, "MIDI channel 0-15")
		duration   = flag.Float64("duration", 0, "run length in beats (0 = use config)")
	)
	flag.Parse()
	initLogger(*debug)

	if *listPorts {
		for _, name := range sink.OutPortNames() {
			fmt.Println(name)
		}
		return
	}
	if *channel < 0 || *channel > 15 {
		log.Fatalf("invalid -channel %d (expected 0-15)", *channel)
	}

	f, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	out, err := openSink(*port, *dryRun, *echo, uint8(*channel))
	if err != nil {
		log.Fatal(err)
	}
	defer sink.Close(out)

	opts := []raga.Option{raga.WithLogger(logger), raga.WithSink(out)}
	if *seed != 0 {
		opts = append(opts, raga.WithSeed(*seed))
	}
	r, err := f.BuildRaga(opts...)
	if err != nil {
		log.Fatal(err)
	}
	players, err := f.BuildPlayers(r, logger)
	if err != nil {
		log.Fatal(err)
	}

	simOpts := []sim.Option{sim.WithLogger(logger)}
	if f.Performance.Realtime && !*noRealtime {
		simOpts = append(simOpts, sim.WithRealtime(r.SecondsPerBeat(), f.Performance.Strict))
	}
	env := sim.New(simOpts...)
	condOpts := []perform.ConductorOption{perform.WithConductorLogger(logger)}
	if f.Performance.Transport {
		condOpts = append(condOpts, perform.WithTransport(out))
	}
	conductor := perform.NewConductor(env, f.ScheduledEvents(), condOpts...)
	for _, p := range players {
		conductor.AddPlayer(p)
	}
	conductor.Begin()

	until := f.Performance.Duration
	if *duration > 0 {
		until = *duration
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("performance starting", "raga", r.Name(), "phrases", len(r.Phrases()), "beats", until, "bpm", r.BPM())
	events := r.Watch()
	runDone := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(runDone)
		return env.Run(ctx, until)
	})
	g.Go(func() error {
		for {
			select {
			case ev := <-events:
				switch ev.Kind {
				case raga.EventCycleStarted:
					logger.Debug("cycle started", "id", ev.CycleID)
				case raga.EventCycleEnded:
					logger.Debug("cycle ended", "id", ev.CycleID)
				case raga.EventCycleFailed:
					logger.Warn("cycle failed", "id", ev.CycleID, "err", ev.Err)
				case raga.EventCycleLagging:
					logger.Debug("cycle lagging", "id", ev.CycleID)
				}
			case <-runDone:
				return nil
			}
		}
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
	if err := r.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("playback", "err", err)
	}
	logger.Info("performance finished", "time", env.Now(), "lags", env.Lags())
}

func loadConfig(path string) (*config.File, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

func openSink(port string, dryRun, echo bool, channel uint8) (sink.Sink, error) {
	if dryRun {
		return sink.NewLog(logger, slog.LevelInfo), nil
	}
	if port == "" {
		names := sink.OutPortNames()
		if len(names) == 0 {
			return nil, errors.New("no MIDI output ports found (use -dry-run to log events instead)")
		}
		port = names[0]
	}
	m, err := sink.OpenPort(port, sink.WithChannel(channel))
	if err != nil {
		return nil, err
	}
	logger.Info("MIDI output", "port", port, "channel", channel)
	if !echo {
		return m, nil
	}
	return sink.NewMulti(m, sink.NewLog(logger, slog.LevelInfo)), nil
}
