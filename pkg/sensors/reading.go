// Package sensors aggregates the robot's distance, battery and temperature
// sensors behind a single polled cache. One goroutine (the poll loop) writes
// readings; navigation and the state machine read them. A reading older than
// the staleness bound is treated as invalid, so an unknown path is a blocked
// path.
package sensors

import "time"

// Kind identifies what a sensor measures.
type Kind int

const (
	// Distance is an ultrasonic range sensor, reported in centimeters.
	Distance Kind = iota
	// Battery is the main battery level, reported in percent.
	Battery
	// Temperature is the controller temperature, reported in Celsius.
	Temperature
)

// String returns the kind name for logs and persistence.
func (k Kind) String() string {
	switch k {
	case Distance:
		return "distance"
	case Battery:
		return "battery"
	case Temperature:
		return "temperature"
	default:
		return "unknown"
	}
}

// Direction is a mounting position for a distance sensor.
type Direction string

const (
	Front      Direction = "front"
	Left       Direction = "left"
	Right      Direction = "right"
	FrontLeft  Direction = "frontLeft"
	FrontRight Direction = "frontRight"
)

// Reading is one cached sensor sample. Readings are replaced wholesale on
// every poll cycle; they are never partially mutated.
type Reading struct {
	SensorID  string    `json:"sensor_id"`
	Kind      Kind      `json:"kind"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
	Valid     bool      `json:"valid"`
}

// Age returns how old the reading is.
func (r Reading) Age() time.Duration {
	return time.Since(r.Timestamp)
}

// Fresh reports whether the reading is valid and younger than maxAge.
func (r Reading) Fresh(maxAge time.Duration) bool {
	return r.Valid && r.Age() <= maxAge
}

// distanceID returns the cache key for a distance sensor.
func distanceID(dir Direction) string {
	return "ultrasonic_" + string(dir)
}

const (
	batteryID     = "battery_main"
	temperatureID = "temperature_cpu"
)

// NavigationData is the snapshot the navigation engine consumes each step.
// It is derived from the cache on demand and never persisted.
type NavigationData struct {
	Obstacles    map[Direction]float64 `json:"obstacles"`
	PathsClear   map[Direction]bool    `json:"paths_clear"`
	Emergency    map[Direction]bool    `json:"emergency"`
	BatteryLevel float64               `json:"battery_level"`
	BatteryOK    bool                  `json:"battery_ok"`
	Temperature  float64               `json:"temperature"`
	TempOK       bool                  `json:"temp_ok"`
	Timestamp    time.Time             `json:"timestamp"`
}
