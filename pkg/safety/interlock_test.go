package safety

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingStopper struct {
	mu    sync.Mutex
	stops int
	err   error
}

func (s *recordingStopper) EmergencyStop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return s.err
}

func (s *recordingStopper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

func TestTriggerStopsMovementAndLatches(t *testing.T) {
	stopper := &recordingStopper{}
	il := New(DefaultConfig(), stopper)

	if il.IsActive() {
		t.Fatal("new interlock should be inactive")
	}

	il.Trigger(Proximity, "obstacle at 8cm", Critical, "sensors")

	if !il.IsActive() {
		t.Error("interlock should be active after trigger")
	}
	if stopper.count() != 1 {
		t.Errorf("emergency stops = %d, want 1", stopper.count())
	}
	ev, ok := il.Current()
	if !ok {
		t.Fatal("expected a current event")
	}
	if ev.Kind != Proximity || ev.Severity != Critical || ev.Source != "sensors" {
		t.Errorf("event = %+v", ev)
	}
}

func TestCooldownSuppressesDuplicateKind(t *testing.T) {
	stopper := &recordingStopper{}
	il := New(Config{Cooldown: time.Hour, HistoryLimit: 10}, stopper)

	il.Trigger(Proximity, "first", High, "test")
	il.Trigger(Proximity, "duplicate", High, "test")

	if stopper.count() != 1 {
		t.Errorf("duplicate within cooldown should not mitigate again, stops = %d", stopper.count())
	}
	if got := len(il.History(0)); got != 1 {
		t.Errorf("history has %d events, want 1", got)
	}

	// A different kind is never a duplicate.
	il.Trigger(LowBattery, "battery at 3%", Critical, "test")
	if stopper.count() != 2 {
		t.Errorf("distinct kind should mitigate, stops = %d", stopper.count())
	}
}

func TestResetIsTheOnlyWayOut(t *testing.T) {
	il := New(Config{Cooldown: time.Millisecond, HistoryLimit: 10}, nil)

	il.Trigger(ManualStop, "operator stop", High, "test")
	time.Sleep(5 * time.Millisecond)
	if !il.IsActive() {
		t.Fatal("cooldown expiry must not clear the emergency")
	}

	il.Reset()
	if il.IsActive() {
		t.Error("reset should clear the emergency")
	}
	if _, ok := il.Current(); ok {
		t.Error("no current event after reset")
	}

	// Reset on an inactive interlock is a no-op.
	il.Reset()
	if il.IsActive() {
		t.Error("double reset should stay inactive")
	}
}

func TestTriggerAfterResetRelatches(t *testing.T) {
	stopper := &recordingStopper{}
	il := New(Config{Cooldown: time.Hour, HistoryLimit: 10}, stopper)

	il.Trigger(Proximity, "obstacle at 8cm", Critical, "sensors")
	il.Reset()

	// The hazard recurring right after a reset is a new episode, not a
	// duplicate of the cleared one.
	il.Trigger(Proximity, "obstacle at 8cm", Critical, "sensors")

	if !il.IsActive() {
		t.Fatal("post-reset trigger of the same kind must latch again")
	}
	if stopper.count() != 2 {
		t.Errorf("emergency stops = %d, want 2", stopper.count())
	}
	if _, ok := il.Current(); !ok {
		t.Error("expected a current event after re-trigger")
	}
}

func TestActivatedChannelClosesOnTrigger(t *testing.T) {
	il := New(DefaultConfig(), nil)
	ch := il.Activated()

	select {
	case <-ch:
		t.Fatal("channel should be open before any trigger")
	default:
	}

	il.Trigger(UserEmergency, "help", High, "test")

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("channel should close on trigger")
	}

	// Reset hands out a fresh channel for the next emergency.
	il.Reset()
	fresh := il.Activated()
	select {
	case <-fresh:
		t.Fatal("post-reset channel should be open")
	default:
	}
}

func TestHistoryIsBounded(t *testing.T) {
	il := New(Config{Cooldown: 0, HistoryLimit: 3}, nil)

	kinds := []Kind{Proximity, LowBattery, Overheat, HardwareFailure, ManualStop}
	for _, k := range kinds {
		il.Trigger(k, "x", Medium, "test")
	}

	hist := il.History(0)
	if len(hist) != 3 {
		t.Fatalf("history has %d events, want 3", len(hist))
	}
	// Newest last, oldest dropped.
	if hist[0].Kind != Overheat || hist[2].Kind != ManualStop {
		t.Errorf("history = %v", hist)
	}

	if got := il.History(2); len(got) != 2 || got[1].Kind != ManualStop {
		t.Errorf("History(2) = %v", got)
	}
}

func TestStatusReport(t *testing.T) {
	il := New(DefaultConfig(), nil)

	if got := il.StatusReport(); !strings.HasPrefix(got, "No active emergencies.") {
		t.Errorf("idle report = %q", got)
	}

	il.Trigger(Overheat, "controller at 82C", High, "sensors")
	got := il.StatusReport()
	if !strings.Contains(got, "ACTIVE EMERGENCY") || !strings.Contains(got, "overheat") {
		t.Errorf("active report = %q", got)
	}

	il.Reset()
	if got := il.StatusReport(); !strings.Contains(got, "1 events in the last 24 hours") {
		t.Errorf("post-reset report = %q", got)
	}
}

func TestStopperFailureStillLatches(t *testing.T) {
	stopper := &recordingStopper{err: errors.New("drive offline")}
	il := New(DefaultConfig(), stopper)

	il.Trigger(HardwareFailure, "left motor fault", Critical, "motion")
	if !il.IsActive() {
		t.Error("interlock must latch even when the stop command fails")
	}
}

func TestAlertCallbacksReceiveEvent(t *testing.T) {
	il := New(DefaultConfig(), nil)

	var got []Event
	il.RegisterAlertFunc(func(ev Event) { got = append(got, ev) })
	il.Trigger(Proximity, "obstacle", Critical, "sensors")

	if len(got) != 1 || got[0].Kind != Proximity {
		t.Errorf("callbacks received %v", got)
	}
}
