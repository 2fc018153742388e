package nav

import (
	"context"
	"testing"

	"github.com/teslashibe/go-sarus/pkg/sensors"
)

func TestWallFollowEasesOffWhenTooClose(t *testing.T) {
	// Right wall at 15cm, inside the 20cm band: a brief left turn.
	act := &fakeActuator{}
	sens := &fakeSensors{distances: map[sensors.Direction]float64{
		sensors.Front: 100, sensors.Left: 100, sensors.Right: 15,
	}}
	e := newEngine(act, sens, newFakeGuard())

	if err := e.wallFollowStep(context.Background()); err != nil {
		t.Fatalf("wall follow: %v", err)
	}
	if got := act.moves(); len(got) != 1 || got[0] != "turn_left" {
		t.Fatalf("moves = %v, want [turn_left]", got)
	}
}

func TestWallFollowTracksWall(t *testing.T) {
	// Right wall inside the 40cm band but not too close: move forward.
	act := &fakeActuator{}
	sens := &fakeSensors{distances: map[sensors.Direction]float64{
		sensors.Front: 100, sensors.Left: 100, sensors.Right: 30,
	}}
	e := newEngine(act, sens, newFakeGuard())

	if err := e.wallFollowStep(context.Background()); err != nil {
		t.Fatalf("wall follow: %v", err)
	}
	if got := act.moves(); len(got) != 1 || got[0] != "forward" {
		t.Fatalf("moves = %v, want [forward]", got)
	}
}

func TestWallFollowSeeksMissingWall(t *testing.T) {
	act := &fakeActuator{}
	sens := &fakeSensors{distances: map[sensors.Direction]float64{
		sensors.Front: 100, sensors.Left: 100, sensors.Right: 100,
	}}
	e := newEngine(act, sens, newFakeGuard())

	if err := e.wallFollowStep(context.Background()); err != nil {
		t.Fatalf("wall follow: %v", err)
	}
	if got := act.moves(); len(got) != 1 || got[0] != "turn_right" {
		t.Fatalf("moves = %v, want [turn_right]", got)
	}
}

func TestSpiralStepIsConstantRadius(t *testing.T) {
	act := &fakeActuator{}
	sens := &fakeSensors{distances: map[sensors.Direction]float64{sensors.Front: 100}}
	e := newEngine(act, sens, newFakeGuard())

	// Every step is the same forward leg plus the same turn.
	for i := 0; i < 3; i++ {
		if err := e.spiralStep(context.Background()); err != nil {
			t.Fatalf("spiral step %d: %v", i, err)
		}
	}
	want := []string{"forward", "turn_right", "forward", "turn_right", "forward", "turn_right"}
	got := act.moves()
	if len(got) != len(want) {
		t.Fatalf("moves = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("moves = %v, want %v", got, want)
		}
	}
}

func TestSystematicAlternatesPhases(t *testing.T) {
	act := &fakeActuator{}
	sens := &fakeSensors{distances: map[sensors.Direction]float64{sensors.Front: 100}}
	e := newEngine(act, sens, newFakeGuard())

	// First four steps drive forward, the next four line up the next row.
	for i := 0; i < 8; i++ {
		if err := e.systematicStep(context.Background()); err != nil {
			t.Fatalf("systematic step %d: %v", i, err)
		}
	}
	got := act.moves()
	if len(got) != 8 {
		t.Fatalf("moves = %v, want 8 entries", got)
	}
	for i := 0; i < 4; i++ {
		if got[i] != "forward" {
			t.Fatalf("step %d = %s, want forward", i, got[i])
		}
	}
	for i := 4; i < 8; i++ {
		if got[i] != "turn_right" {
			t.Fatalf("step %d = %s, want turn_right", i, got[i])
		}
	}
}

func TestSystematicTurnsWhenBlocked(t *testing.T) {
	act := &fakeActuator{}
	sens := &fakeSensors{distances: map[sensors.Direction]float64{sensors.Front: 10}}
	e := newEngine(act, sens, newFakeGuard())

	if err := e.systematicStep(context.Background()); err != nil {
		t.Fatalf("systematic: %v", err)
	}
	if got := act.moves(); len(got) != 1 || got[0] != "turn_right" {
		t.Fatalf("moves = %v, want [turn_right]", got)
	}
}

func TestRandomStepRecordsOneMove(t *testing.T) {
	act := &fakeActuator{}
	sens := &fakeSensors{distances: map[sensors.Direction]float64{sensors.Front: 100}}
	e := newEngine(act, sens, newFakeGuard())

	for i := 0; i < 20; i++ {
		before := len(act.moves())
		if err := e.randomStep(context.Background()); err != nil {
			t.Fatalf("random step: %v", err)
		}
		if got := len(act.moves()); got != before+1 {
			t.Fatalf("step issued %d commands, want exactly 1", got-before)
		}
	}
	if e.Status().MovesRecorded != 20 {
		t.Fatalf("moves recorded = %d, want 20", e.Status().MovesRecorded)
	}
}

func TestSetPattern(t *testing.T) {
	e := newEngine(&fakeActuator{}, &fakeSensors{}, newFakeGuard())
	if err := e.SetPattern(PatternSpiral); err != nil {
		t.Fatalf("set pattern: %v", err)
	}
	if e.Status().Pattern != PatternSpiral {
		t.Fatalf("pattern = %s, want %s", e.Status().Pattern, PatternSpiral)
	}
	if err := e.SetPattern("zigzag"); err == nil {
		t.Fatal("unknown pattern should error")
	}
}
