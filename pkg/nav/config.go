package nav

import "time"

// Config tunes the navigation engine. Distances are centimeters, speeds are
// normalized motor fractions in (0,1].
type Config struct {
	MaxSpeed  float64
	TurnSpeed float64

	ObstacleThreshold  float64
	EmergencyThreshold float64

	// Defaults applied to movement actions that omit them.
	DefaultMoveDuration time.Duration
	MaxMissionDuration  time.Duration

	Pattern string

	// Stuck detection.
	StuckObstacleLimit  int
	StuckObstacleWindow time.Duration
	StuckHistoryMin     int
	StuckRecentWindow   int
	StuckDistinctMax    int
}

// DefaultConfig mirrors the hardware defaults used on the real chassis.
func DefaultConfig() Config {
	return Config{
		MaxSpeed:            0.8,
		TurnSpeed:           0.6,
		ObstacleThreshold:   30,
		EmergencyThreshold:  10,
		DefaultMoveDuration: 2 * time.Second,
		MaxMissionDuration:  5 * time.Minute,
		Pattern:             "random",
		StuckObstacleLimit:  10,
		StuckObstacleWindow: 30 * time.Second,
		StuckHistoryMin:     10,
		StuckRecentWindow:   6,
		StuckDistinctMax:    2,
	}
}
