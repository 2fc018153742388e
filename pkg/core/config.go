package core

import "time"

// Config tunes the control loop.
type Config struct {
	TickInterval  time.Duration
	ListenTimeout time.Duration

	// Bounded ERROR recovery: attempts are spaced by an exponential
	// backoff starting at RecoveryBackoff and capped at
	// RecoveryBackoffMax; after RecoveryAttemptCap failures the machine
	// stays in ERROR until an operator clears it.
	RecoveryAttemptCap int
	RecoveryBackoff    time.Duration
	RecoveryBackoffMax time.Duration

	// Minimum spacing between spoken soft-warning alerts.
	AlertCooldown time.Duration
}

func DefaultConfig() Config {
	return Config{
		TickInterval:       100 * time.Millisecond,
		ListenTimeout:      5 * time.Second,
		RecoveryAttemptCap: 5,
		RecoveryBackoff:    5 * time.Second,
		RecoveryBackoffMax: 80 * time.Second,
		AlertCooldown:      time.Minute,
	}
}
