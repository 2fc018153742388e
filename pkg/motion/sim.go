package motion

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-sarus/internal/log"
)

// Command is one recorded actuator call, kept for tests and the dashboard.
type Command struct {
	Name     string        `json:"name"`
	Speed    float64       `json:"speed"`
	Duration time.Duration `json:"duration"`
	Time     time.Time     `json:"time"`
}

// SimActuator is a software drive used when hardware is disabled. It tracks
// commanded wheel speeds, records a bounded command trace and sleeps for
// timed moves so the control loops behave as they would on the chassis.
//
// Command issuance is a critical section: no two commands are ever in
// flight concurrently.
type SimActuator struct {
	mu sync.Mutex

	leftSpeed  float64
	rightSpeed float64

	trace      []Command
	traceLimit int

	// failNext injects an actuation failure for tests.
	failNext error
}

// NewSimActuator creates a stopped simulated drive.
func NewSimActuator() *SimActuator {
	return &SimActuator{traceLimit: 256}
}

// FailNext makes the next command return err. Test hook.
func (s *SimActuator) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Speeds returns the current commanded wheel speeds.
func (s *SimActuator) Speeds() (left, right float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leftSpeed, s.rightSpeed
}

// Trace returns a copy of the recorded command trace.
func (s *SimActuator) Trace() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.trace))
	copy(out, s.trace)
	return out
}

// ResetTrace clears the command trace. Test hook.
func (s *SimActuator) ResetTrace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = nil
}

// run executes one command: set speeds, optionally hold for the duration,
// then coast at the commanded speed until the next command.
func (s *SimActuator) run(ctx context.Context, name string, left, right, speed float64, duration time.Duration) error {
	s.mu.Lock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		s.mu.Unlock()
		return err
	}
	s.leftSpeed = left
	s.rightSpeed = right
	s.record(name, speed, duration)
	s.mu.Unlock()

	log.Debug("sim actuator", "cmd", name, "speed", speed, "duration", duration)

	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		// Timed moves stop when the duration elapses.
		return s.Stop()
	case <-ctx.Done():
		// Preempted mid-wait: stop immediately.
		if err := s.Stop(); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// record appends to the bounded trace. Caller holds the lock.
func (s *SimActuator) record(name string, speed float64, duration time.Duration) {
	s.trace = append(s.trace, Command{
		Name:     name,
		Speed:    speed,
		Duration: duration,
		Time:     time.Now(),
	})
	if len(s.trace) > s.traceLimit {
		s.trace = s.trace[len(s.trace)-s.traceLimit:]
	}
}

// MoveForward implements Mover.
func (s *SimActuator) MoveForward(ctx context.Context, speed float64, duration time.Duration) error {
	return s.run(ctx, "move_forward", speed, speed, speed, duration)
}

// MoveBackward implements Mover.
func (s *SimActuator) MoveBackward(ctx context.Context, speed float64, duration time.Duration) error {
	return s.run(ctx, "move_backward", -speed, -speed, speed, duration)
}

// TurnLeft implements Mover.
func (s *SimActuator) TurnLeft(ctx context.Context, speed float64, duration time.Duration) error {
	return s.run(ctx, "turn_left", -speed, speed, speed, duration)
}

// TurnRight implements Mover.
func (s *SimActuator) TurnRight(ctx context.Context, speed float64, duration time.Duration) error {
	return s.run(ctx, "turn_right", speed, -speed, speed, duration)
}

// Stop implements Stopper.
func (s *SimActuator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leftSpeed == 0 && s.rightSpeed == 0 {
		// Already stopped: idempotent, no trace entry.
		return nil
	}
	s.leftSpeed = 0
	s.rightSpeed = 0
	s.record("stop", 0, 0)
	return nil
}

// EmergencyStop implements EmergencyStopper. Unlike Stop it always records,
// so the trace shows when safety fired even if the drive was idle.
func (s *SimActuator) EmergencyStop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leftSpeed = 0
	s.rightSpeed = 0
	s.record("emergency_stop", 0, 0)
	return nil
}
