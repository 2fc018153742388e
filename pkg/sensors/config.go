package sensors

import "time"

// Config holds aggregator tuning. Values are injected once at construction
// and never mutated afterwards.
type Config struct {
	// PollRate is the sampling frequency in Hz.
	PollRate float64

	// Staleness is the maximum age before a cached reading is treated
	// as invalid by IsPathClear.
	Staleness time.Duration

	// ObstacleThreshold is the clearance in cm below which avoidance
	// behavior engages.
	ObstacleThreshold float64

	// EmergencyThreshold is the clearance in cm below which movement is
	// halted and the safety interlock fires.
	EmergencyThreshold float64

	// LowBatteryThreshold is the percentage below which a soft warning
	// is raised. It never aborts a mission.
	LowBatteryThreshold float64

	// CriticalBatteryThreshold is the percentage below which the safety
	// interlock fires.
	CriticalBatteryThreshold float64

	// HighTempThreshold is the Celsius value above which a soft warning
	// is raised.
	HighTempThreshold float64

	// Directions lists the mounted distance sensors.
	Directions []Direction
}

// DefaultConfig returns a Config with the stock thresholds for the
// three-sensor chassis.
func DefaultConfig() Config {
	return Config{
		PollRate:                 10,
		Staleness:                500 * time.Millisecond,
		ObstacleThreshold:        30,
		EmergencyThreshold:       10,
		LowBatteryThreshold:      20,
		CriticalBatteryThreshold: 5,
		HighTempThreshold:        70,
		Directions:               []Direction{Front, Left, Right},
	}
}

// interval returns the poll period derived from PollRate.
func (c Config) interval() time.Duration {
	if c.PollRate <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(float64(time.Second) / c.PollRate)
}
