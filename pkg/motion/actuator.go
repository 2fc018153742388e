// Package motion defines the actuator boundary for the drive hardware.
//
// The package follows small, segregated interfaces so consumers depend only
// on what they use: the safety interlock needs EmergencyStopper, navigation
// needs the full Actuator. All commands are fail-soft: when hardware is
// disabled or unavailable, implementations log and no-op rather than error.
package motion

import (
	"context"
	"time"
)

// Mover issues timed drive commands. A zero duration means "until the next
// command". Timed commands block for the duration but must honor ctx
// cancellation: a cancelled wait stops the motors immediately and returns
// ctx.Err(). This is how emergency preemption interrupts in-flight moves.
type Mover interface {
	MoveForward(ctx context.Context, speed float64, duration time.Duration) error
	MoveBackward(ctx context.Context, speed float64, duration time.Duration) error
	TurnLeft(ctx context.Context, speed float64, duration time.Duration) error
	TurnRight(ctx context.Context, speed float64, duration time.Duration) error
}

// Stopper halts the drive. Stop is idempotent: two consecutive calls leave
// the speed state identical to one.
type Stopper interface {
	Stop() error
}

// EmergencyStopper is the hard stop consumed by the safety interlock.
type EmergencyStopper interface {
	EmergencyStop() error
}

// Actuator is the composite interface for full drive control.
type Actuator interface {
	Mover
	Stopper
	EmergencyStopper
}

// Ensure implementations satisfy Actuator.
var (
	_ Actuator = (*SimActuator)(nil)
	_ Actuator = (*NopActuator)(nil)
)
