package motion

import (
	"context"
	"time"

	"github.com/teslashibe/go-sarus/internal/log"
)

// NopActuator is the null drive used when hardware is disabled entirely.
// Every command logs and returns nil immediately; timed moves do not wait.
type NopActuator struct{}

// NewNopActuator creates a no-op drive.
func NewNopActuator() *NopActuator { return &NopActuator{} }

func (n *NopActuator) MoveForward(ctx context.Context, speed float64, duration time.Duration) error {
	log.Debug("motion disabled, ignoring command", "cmd", "move_forward")
	return nil
}

func (n *NopActuator) MoveBackward(ctx context.Context, speed float64, duration time.Duration) error {
	log.Debug("motion disabled, ignoring command", "cmd", "move_backward")
	return nil
}

func (n *NopActuator) TurnLeft(ctx context.Context, speed float64, duration time.Duration) error {
	log.Debug("motion disabled, ignoring command", "cmd", "turn_left")
	return nil
}

func (n *NopActuator) TurnRight(ctx context.Context, speed float64, duration time.Duration) error {
	log.Debug("motion disabled, ignoring command", "cmd", "turn_right")
	return nil
}

func (n *NopActuator) Stop() error { return nil }

func (n *NopActuator) EmergencyStop() error {
	log.Debug("motion disabled, ignoring command", "cmd", "emergency_stop")
	return nil
}
