package sensors

import (
	"errors"
	"math/rand"
	"sync"
)

// ErrUnavailable indicates the underlying sensor could not be read.
// The aggregator records an invalid reading and keeps polling.
var ErrUnavailable = errors.New("sensors: source unavailable")

// Source provides raw values from the hardware (or a simulation of it).
// Implementations must be safe for use from the single poll goroutine;
// they are never called concurrently by the aggregator.
type Source interface {
	// ReadDistance returns the clearance in cm for a mounted sensor.
	ReadDistance(dir Direction) (float64, error)

	// ReadBattery returns the battery level in percent.
	ReadBattery() (float64, error)

	// ReadTemperature returns the controller temperature in Celsius.
	ReadTemperature() (float64, error)
}

// SimSource is a hardware-free Source for development and tests. The front
// sensor reads farther than the sides, battery hovers around 85% and
// temperature around room level, mirroring the bench rig.
type SimSource struct {
	mu  sync.Mutex
	rng *rand.Rand

	// Fixed overrides. When set (>= 0) the value is returned verbatim,
	// which lets tests script obstacle scenarios.
	distances map[Direction]float64
	battery   float64
	temp      float64
}

// NewSimSource creates a simulated source with the given seed.
func NewSimSource(seed int64) *SimSource {
	return &SimSource{
		rng:       rand.New(rand.NewSource(seed)),
		distances: make(map[Direction]float64),
		battery:   -1,
		temp:      -1,
	}
}

// SetDistance pins a direction to a fixed clearance. Pass a negative value
// to return to randomized readings.
func (s *SimSource) SetDistance(dir Direction, cm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cm < 0 {
		delete(s.distances, dir)
		return
	}
	s.distances[dir] = cm
}

// SetBattery pins the battery level. Negative restores randomized readings.
func (s *SimSource) SetBattery(pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.battery = pct
}

// SetTemperature pins the temperature. Negative restores randomized readings.
func (s *SimSource) SetTemperature(c float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temp = c
}

// ReadDistance implements Source.
func (s *SimSource) ReadDistance(dir Direction) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.distances[dir]; ok {
		return d, nil
	}

	base := 100 + s.rng.Float64()*40 - 20
	if dir == Front {
		base = 150 + s.rng.Float64()*100 - 50
	}
	if base < 5 {
		base = 5
	}
	return base, nil
}

// ReadBattery implements Source.
func (s *SimSource) ReadBattery() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.battery >= 0 {
		return s.battery, nil
	}
	level := 85 + s.rng.Float64()*10 - 5
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	return level, nil
}

// ReadTemperature implements Source.
func (s *SimSource) ReadTemperature() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.temp >= 0 {
		return s.temp, nil
	}
	return 25 + s.rng.Float64()*10 - 3, nil
}
