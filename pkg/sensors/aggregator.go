package sensors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/go-sarus/internal/log"
	"github.com/teslashibe/go-sarus/internal/metrics"
)

// EmergencyFunc is invoked from the poll loop when a distance reading drops
// below the emergency threshold or the battery falls to a critical level.
// The safety interlock is wired here at startup.
type EmergencyFunc func(reason, message string)

// Reasons passed to EmergencyFunc.
const (
	ReasonProximity       = "proximity"
	ReasonCriticalBattery = "critical_battery"
)

// Aggregator polls every configured sensor at a fixed rate and caches the
// latest reading per sensor id. The poll loop is the only writer; all query
// methods are safe for concurrent readers.
type Aggregator struct {
	cfg Config
	src Source

	mu       sync.RWMutex
	readings map[string]Reading
	warnings []string

	onEmergency EmergencyFunc
}

// New creates an aggregator over the given source. The cache starts empty,
// so every path reads as blocked until the first poll completes.
func New(cfg Config, src Source) *Aggregator {
	return &Aggregator{
		cfg:      cfg,
		src:      src,
		readings: make(map[string]Reading),
	}
}

// SetEmergencyFunc wires the safety trigger. Must be called before Run.
func (a *Aggregator) SetEmergencyFunc(fn EmergencyFunc) {
	a.onEmergency = fn
}

// Run polls at the configured rate until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) error {
	logger := log.Component("sensors")
	ticker := time.NewTicker(a.cfg.interval())
	defer ticker.Stop()

	logger.Info("sensor polling started", "rate_hz", a.cfg.PollRate)

	for {
		select {
		case <-ctx.Done():
			logger.Info("sensor polling stopped")
			return ctx.Err()
		case <-ticker.C:
			a.PollOnce()
		}
	}
}

// PollOnce reads every configured sensor, replaces the cached readings and
// evaluates the emergency thresholds. It is exported so tests and one-shot
// tools can drive the cache without the loop.
func (a *Aggregator) PollOnce() {
	now := time.Now()
	fresh := make([]Reading, 0, len(a.cfg.Directions)+2)

	for _, dir := range a.cfg.Directions {
		value, err := a.src.ReadDistance(dir)
		r := Reading{
			SensorID:  distanceID(dir),
			Kind:      Distance,
			Value:     value,
			Unit:      "cm",
			Timestamp: now,
			Valid:     err == nil && value >= 0,
		}
		if r.Value < 0 {
			r.Value = 0
		}
		fresh = append(fresh, r)
	}

	battery, berr := a.src.ReadBattery()
	if battery < 0 {
		battery = 0
	}
	fresh = append(fresh, Reading{
		SensorID:  batteryID,
		Kind:      Battery,
		Value:     battery,
		Unit:      "%",
		Timestamp: now,
		Valid:     berr == nil,
	})

	temp, terr := a.src.ReadTemperature()
	fresh = append(fresh, Reading{
		SensorID:  temperatureID,
		Kind:      Temperature,
		Value:     temp,
		Unit:      "C",
		Timestamp: now,
		Valid:     terr == nil,
	})

	a.mu.Lock()
	for _, r := range fresh {
		a.readings[r.SensorID] = r
	}
	a.mu.Unlock()

	metrics.SensorPolls.Inc()
	if berr == nil {
		metrics.BatteryLevel.Set(battery)
	}

	a.evaluateThresholds()
}

// evaluateThresholds raises emergencies and soft warnings from the latest
// cache contents.
func (a *Aggregator) evaluateThresholds() {
	logger := log.Component("sensors")
	var warnings []string

	for _, dir := range a.cfg.Directions {
		r, ok := a.get(distanceID(dir))
		if !ok || !r.Valid {
			continue
		}
		if r.Value < a.cfg.EmergencyThreshold {
			logger.Warn("emergency obstacle detected",
				"direction", dir, "distance_cm", r.Value)
			a.fireEmergency(ReasonProximity, string(dir), r.Value)
		}
	}

	if level, ok := a.BatteryLevel(); ok {
		if level < a.cfg.CriticalBatteryThreshold {
			logger.Warn("critical battery", "level_pct", level)
			a.fireEmergency(ReasonCriticalBattery, "battery", level)
		} else if level < a.cfg.LowBatteryThreshold {
			// Soft warning only: a low battery never aborts a mission.
			warnings = append(warnings, "low battery")
			logger.Warn("low battery warning", "level_pct", level)
		}
	}

	if temp, ok := a.Temperature(); ok && temp > a.cfg.HighTempThreshold {
		warnings = append(warnings, "high temperature")
		logger.Warn("high temperature warning", "temp_c", temp)
	}

	a.mu.Lock()
	a.warnings = warnings
	a.mu.Unlock()
}

func (a *Aggregator) fireEmergency(reason, where string, value float64) {
	if a.onEmergency == nil {
		return
	}
	a.onEmergency(reason, fmt.Sprintf("%s at %s (%.1f)", reason, where, value))
}

// get returns the cached reading for a sensor id.
func (a *Aggregator) get(id string) (Reading, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.readings[id]
	return r, ok
}

// DistanceReading returns the latest valid, fresh distance for a direction.
func (a *Aggregator) DistanceReading(dir Direction) (float64, bool) {
	r, ok := a.get(distanceID(dir))
	if !ok || !r.Fresh(a.cfg.Staleness) {
		return 0, false
	}
	return r.Value, true
}

// ObstacleMap returns the latest distance per direction. Directions with no
// fresh reading are omitted, which downstream code treats as blocked.
func (a *Aggregator) ObstacleMap() map[Direction]float64 {
	m := make(map[Direction]float64, len(a.cfg.Directions))
	for _, dir := range a.cfg.Directions {
		if d, ok := a.DistanceReading(dir); ok {
			m[dir] = d
		}
	}
	return m
}

// IsPathClear reports whether the direction has at least minDistance of
// clearance. A missing, invalid or stale reading reads as blocked.
func (a *Aggregator) IsPathClear(dir Direction, minDistance float64) bool {
	d, ok := a.DistanceReading(dir)
	if !ok {
		return false
	}
	return d >= minDistance
}

// BatteryLevel returns the latest battery percentage.
func (a *Aggregator) BatteryLevel() (float64, bool) {
	r, ok := a.get(batteryID)
	if !ok || !r.Valid {
		return 0, false
	}
	return r.Value, true
}

// Temperature returns the latest temperature in Celsius.
func (a *Aggregator) Temperature() (float64, bool) {
	r, ok := a.get(temperatureID)
	if !ok || !r.Valid {
		return 0, false
	}
	return r.Value, true
}

// Warnings returns the soft warnings from the last poll cycle.
func (a *Aggregator) Warnings() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.warnings))
	copy(out, a.warnings)
	return out
}

// NavigationData builds the snapshot consumed by the navigation engine.
func (a *Aggregator) NavigationData() NavigationData {
	obstacles := a.ObstacleMap()

	clear := make(map[Direction]bool, len(a.cfg.Directions))
	emergency := make(map[Direction]bool, len(a.cfg.Directions))
	for _, dir := range a.cfg.Directions {
		clear[dir] = a.IsPathClear(dir, a.cfg.ObstacleThreshold)
		if d, ok := obstacles[dir]; ok {
			emergency[dir] = d < a.cfg.EmergencyThreshold
		}
	}

	nd := NavigationData{
		Obstacles:  obstacles,
		PathsClear: clear,
		Emergency:  emergency,
		Timestamp:  time.Now(),
	}
	nd.BatteryLevel, nd.BatteryOK = a.BatteryLevel()
	nd.Temperature, nd.TempOK = a.Temperature()
	return nd
}
