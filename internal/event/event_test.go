package event

import "testing"

func TestPitchBendClamps(t *testing.T) {
	if got := PitchBend(9000, 0).Value; got != MaxBend {
		t.Fatalf("bend clamp high = %d, want %d", got, MaxBend)
	}
	if got := PitchBend(-9000, 0).Value; got != MinBend {
		t.Fatalf("bend clamp low = %d, want %d", got, MinBend)
	}
	if got := PitchBend(-300, 0).Value; got != -300 {
		t.Fatalf("bend in range = %d, want -300", got)
	}
}

func TestSequenceHelpers(t *testing.T) {
	seq := Sequence{
		On(64, 70, 0.5),
		PitchBend(10, 0.25),
		Off(64),
		On(65, 70, 0.25),
		Off(65),
	}
	if got := seq.Duration(); got != 1.0 {
		t.Fatalf("duration = %v, want 1", got)
	}
	p := seq.Pitches()
	if len(p) != 2 || p[0] != 64 || p[1] != 65 {
		t.Fatalf("pitches = %v", p)
	}
	if seq.Count(NoteOff) != 2 || seq.Count(Bend) != 1 {
		t.Fatalf("unexpected counts in %s", seq)
	}
}

func TestOnClampsVelocity(t *testing.T) {
	if got := On(60, 200, 0).Velocity; got != 127 {
		t.Fatalf("velocity = %d, want 127", got)
	}
}

func TestCheckPitch(t *testing.T) {
	for _, p := range []int{MinPitch, 64, MaxPitch} {
		if err := CheckPitch(p); err != nil {
			t.Fatalf("CheckPitch(%d) = %v, want nil", p, err)
		}
	}
	for _, p := range []int{-1, 128, 180} {
		err := CheckPitch(p)
		rangeErr, ok := err.(*PitchRangeError)
		if !ok || rangeErr.Pitch != p {
			t.Fatalf("CheckPitch(%d) = %v, want PitchRangeError", p, err)
		}
	}
}
