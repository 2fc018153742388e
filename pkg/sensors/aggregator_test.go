package sensors

import (
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Staleness = time.Minute
	return cfg
}

func scriptedSource(front, left, right float64) *SimSource {
	src := NewSimSource(1)
	src.SetDistance(Front, front)
	src.SetDistance(Left, left)
	src.SetDistance(Right, right)
	src.SetBattery(85)
	src.SetTemperature(30)
	return src
}

func TestPollOncePopulatesCache(t *testing.T) {
	agg := New(testConfig(), scriptedSource(120, 50, 80))
	agg.PollOnce()

	m := agg.ObstacleMap()
	if len(m) != 3 {
		t.Fatalf("obstacle map has %d entries, want 3", len(m))
	}
	if m[Front] != 120 || m[Left] != 50 || m[Right] != 80 {
		t.Errorf("obstacle map = %v", m)
	}
	if level, ok := agg.BatteryLevel(); !ok || level != 85 {
		t.Errorf("battery = %v/%v, want 85/true", level, ok)
	}
	if temp, ok := agg.Temperature(); !ok || temp != 30 {
		t.Errorf("temperature = %v/%v, want 30/true", temp, ok)
	}
}

func TestEmptyCacheReadsBlocked(t *testing.T) {
	agg := New(testConfig(), scriptedSource(120, 50, 80))

	// No poll yet: everything must read as blocked.
	if agg.IsPathClear(Front, 30) {
		t.Error("path should read blocked before first poll")
	}
	if m := agg.ObstacleMap(); len(m) != 0 {
		t.Errorf("obstacle map should be empty, got %v", m)
	}
}

func TestIsPathClearThreshold(t *testing.T) {
	agg := New(testConfig(), scriptedSource(30, 29.9, 200))
	agg.PollOnce()

	if !agg.IsPathClear(Front, 30) {
		t.Error("distance equal to minimum should be clear")
	}
	if agg.IsPathClear(Left, 30) {
		t.Error("distance below minimum should be blocked")
	}
	if !agg.IsPathClear(Right, 30) {
		t.Error("wide clearance should be clear")
	}
}

func TestStaleReadingReadsBlocked(t *testing.T) {
	cfg := testConfig()
	cfg.Staleness = time.Nanosecond
	agg := New(cfg, scriptedSource(200, 200, 200))
	agg.PollOnce()
	time.Sleep(time.Millisecond)

	if agg.IsPathClear(Front, 30) {
		t.Error("stale reading should read blocked")
	}
	if _, ok := agg.DistanceReading(Front); ok {
		t.Error("stale reading should not be returned")
	}
}

// negativeSource returns an out-of-range distance for every direction.
type negativeSource struct{}

func (negativeSource) ReadDistance(Direction) (float64, error) { return -5, nil }
func (negativeSource) ReadBattery() (float64, error)           { return 85, nil }
func (negativeSource) ReadTemperature() (float64, error)       { return 30, nil }

func TestNegativeDistanceClampedBlocked(t *testing.T) {
	agg := New(testConfig(), negativeSource{})
	agg.PollOnce()

	// A raw negative reading is clamped to zero, which reads as blocked.
	if agg.IsPathClear(Front, 1) {
		t.Error("negative raw reading should read blocked")
	}
}

func TestProximityFiresEmergency(t *testing.T) {
	agg := New(testConfig(), scriptedSource(5, 200, 200))

	var reasons []string
	agg.SetEmergencyFunc(func(reason, message string) {
		reasons = append(reasons, reason)
	})
	agg.PollOnce()

	if len(reasons) != 1 || reasons[0] != ReasonProximity {
		t.Fatalf("reasons = %v, want one proximity", reasons)
	}
}

func TestCriticalBatteryFiresEmergency(t *testing.T) {
	src := scriptedSource(200, 200, 200)
	src.SetBattery(3)
	agg := New(testConfig(), src)

	var reasons []string
	agg.SetEmergencyFunc(func(reason, message string) {
		reasons = append(reasons, reason)
	})
	agg.PollOnce()

	if len(reasons) != 1 || reasons[0] != ReasonCriticalBattery {
		t.Fatalf("reasons = %v, want one critical_battery", reasons)
	}
}

func TestSoftWarningsDoNotFireEmergency(t *testing.T) {
	src := scriptedSource(200, 200, 200)
	src.SetBattery(15)
	src.SetTemperature(80)
	agg := New(testConfig(), src)

	fired := false
	agg.SetEmergencyFunc(func(reason, message string) { fired = true })
	agg.PollOnce()

	if fired {
		t.Error("soft thresholds must not fire the emergency callback")
	}
	warnings := agg.Warnings()
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want low battery and high temperature", warnings)
	}
	if warnings[0] != "low battery" || warnings[1] != "high temperature" {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestWarningsClearOnRecovery(t *testing.T) {
	src := scriptedSource(200, 200, 200)
	src.SetBattery(15)
	agg := New(testConfig(), src)

	agg.PollOnce()
	if len(agg.Warnings()) == 0 {
		t.Fatal("expected a low battery warning")
	}

	src.SetBattery(90)
	agg.PollOnce()
	if w := agg.Warnings(); len(w) != 0 {
		t.Errorf("warnings should clear once the battery recovers, got %v", w)
	}
}

func TestNavigationDataSnapshot(t *testing.T) {
	agg := New(testConfig(), scriptedSource(8, 45, 120))
	agg.PollOnce()

	nd := agg.NavigationData()
	if !nd.Emergency[Front] {
		t.Error("front should be flagged as emergency at 8cm")
	}
	if nd.PathsClear[Front] {
		t.Error("front should not be clear at 8cm")
	}
	if !nd.PathsClear[Left] || !nd.PathsClear[Right] {
		t.Error("left and right should be clear")
	}
	if !nd.BatteryOK || nd.BatteryLevel != 85 {
		t.Errorf("battery = %v/%v", nd.BatteryLevel, nd.BatteryOK)
	}
}
