package sim

import (
	"context"
	"testing"
	"time"
)

func TestRunOrdersByTimeThenSchedule(t *testing.T) {
	env := New()
	var order []string
	record := func(name string) Process {
		return Once(func(_ context.Context, now float64) {
			order = append(order, name)
		})
	}
	env.At(2, record("c"))
	env.At(1, record("a"))
	env.At(1, record("b"))
	if err := env.Run(context.Background(), 10); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("order = %v", order)
	}
	if env.Now() != 10 {
		t.Fatalf("clock = %v, want 10", env.Now())
	}
}

func TestRunStopsAtUntil(t *testing.T) {
	env := New()
	var wakes []float64
	env.Go(ProcessFunc(func(_ context.Context, now float64) (float64, bool) {
		wakes = append(wakes, now)
		return 1.5, true
	}))
	if err := env.Run(context.Background(), 4); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []float64{0, 1.5, 3}
	if len(wakes) != len(want) {
		t.Fatalf("wakes = %v, want %v", wakes, want)
	}
	for i := range want {
		if wakes[i] != want[i] {
			t.Fatalf("wakes = %v, want %v", wakes, want)
		}
	}
}

func TestRunCanContinue(t *testing.T) {
	env := New()
	count := 0
	env.Go(ProcessFunc(func(_ context.Context, now float64) (float64, bool) {
		count++
		return 1, true
	}))
	_ = env.Run(context.Background(), 2.5)
	_ = env.Run(context.Background(), 5)
	// wakes at 0,1,2 then 3,4,5
	if count != 6 {
		t.Fatalf("count = %d, want 6", count)
	}
}

func TestAtInPastRunsNow(t *testing.T) {
	env := New()
	_ = env.Run(context.Background(), 3)
	var at float64 = -1
	env.At(1, Once(func(_ context.Context, now float64) { at = now }))
	_ = env.Run(context.Background(), 4)
	if at != 3 {
		t.Fatalf("past schedule ran at %v, want 3", at)
	}
}

type fakeWall struct {
	t     time.Time
	slept time.Duration
}

func (w *fakeWall) now() time.Time { return w.t }
func (w *fakeWall) sleep(_ context.Context, d time.Duration) error {
	w.slept += d
	w.t = w.t.Add(d)
	return nil
}

func TestRealtimePacing(t *testing.T) {
	wall := &fakeWall{t: time.Unix(100, 0)}
	env := New(WithRealtime(0.5, true), WithWallClock(wall.now, wall.sleep))
	env.Go(ProcessFunc(func(_ context.Context, now float64) (float64, bool) {
		return 1, now < 3
	}))
	if err := env.Run(context.Background(), 4); err != nil {
		t.Fatalf("run: %v", err)
	}
	if wall.slept != 2*time.Second {
		t.Fatalf("slept %v, want 2s for 4 units at 0.5s", wall.slept)
	}
	if env.Lags() != 0 {
		t.Fatalf("unexpected lag count %d", env.Lags())
	}
}

func TestStrictPacingReportsLagAndContinues(t *testing.T) {
	wall := &fakeWall{t: time.Unix(100, 0)}
	env := New(WithRealtime(0.5, true), WithWallClock(wall.now, wall.sleep))
	resumes := 0
	env.Go(ProcessFunc(func(_ context.Context, now float64) (float64, bool) {
		resumes++
		if resumes == 1 {
			// busy work costing 3 wall seconds, six units at this factor
			wall.t = wall.t.Add(3 * time.Second)
		}
		return 1, true
	}))
	if err := env.Run(context.Background(), 5); err != nil {
		t.Fatalf("run: %v", err)
	}
	if env.Lags() == 0 {
		t.Fatalf("expected lag to be reported")
	}
	if resumes != 6 {
		t.Fatalf("resumes = %d, want 6", resumes)
	}
}

func TestRunHonorsContext(t *testing.T) {
	env := New()
	ctx, cancel := context.WithCancel(context.Background())
	env.Go(ProcessFunc(func(_ context.Context, now float64) (float64, bool) {
		cancel()
		return 1, true
	}))
	if err := env.Run(ctx, 10); err == nil {
		t.Fatalf("expected context error")
	}
}
