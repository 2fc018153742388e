package nav

import (
	"context"
	"time"

	"github.com/teslashibe/go-sarus/pkg/sensors"
)

// Exploration pattern names.
const (
	PatternRandom     = "random"
	PatternWallFollow = "wall_follow"
	PatternSpiral     = "spiral"
	PatternSystematic = "systematic"
)

func validPattern(name string) bool {
	switch name {
	case PatternRandom, PatternWallFollow, PatternSpiral, PatternSystematic:
		return true
	}
	return false
}

// patternStep runs one step of the active exploration pattern.
func (e *Engine) patternStep(ctx context.Context) error {
	e.mu.Lock()
	pattern := e.pattern
	e.mu.Unlock()

	switch pattern {
	case PatternWallFollow:
		return e.wallFollowStep(ctx)
	case PatternSpiral:
		return e.spiralStep(ctx)
	case PatternSystematic:
		return e.systematicStep(ctx)
	default:
		return e.randomStep(ctx)
	}
}

// randomStep picks forward/left/right with a strong forward bias.
func (e *Engine) randomStep(ctx context.Context) error {
	roll := e.rng.Float64()

	// 0.6 forward, 0.2 left, 0.2 right.
	if roll < 0.6 {
		duration := secs(1.0 + e.rng.Float64()*2.0)
		if e.sensors.IsPathClear(sensors.Front, e.cfg.ObstacleThreshold) {
			if err := e.move(ctx, Forward, e.cfg.MaxSpeed*0.7, duration); err != nil {
				return err
			}
			e.recordMove(Forward, duration, e.cfg.MaxSpeed*0.7)
			return nil
		}
		// Blocked ahead: turn a random way instead.
		dir := Left
		if e.rng.Intn(2) == 1 {
			dir = Right
		}
		if err := e.move(ctx, dir, e.cfg.TurnSpeed, time.Second); err != nil {
			return err
		}
		e.recordMove(dir, time.Second, e.cfg.TurnSpeed)
		return nil
	}

	dir := Left
	if roll >= 0.8 {
		dir = Right
	}
	duration := secs(0.5 + e.rng.Float64())
	if err := e.move(ctx, dir, e.cfg.TurnSpeed, duration); err != nil {
		return err
	}
	e.recordMove(dir, duration, e.cfg.TurnSpeed)
	return nil
}

// wallFollowStep keeps the right wall inside a clearance band.
func (e *Engine) wallFollowStep(ctx context.Context) error {
	obstacles := e.sensors.ObstacleMap()
	front := distOr(obstacles, sensors.Front)
	left := distOr(obstacles, sensors.Left)
	right := distOr(obstacles, sensors.Right)

	switch {
	case front < e.cfg.ObstacleThreshold:
		// Wall ahead: turn away from the closer side.
		dir := Left
		if left < right {
			dir = Right
		}
		if err := e.move(ctx, dir, e.cfg.TurnSpeed, secs(0.8)); err != nil {
			return err
		}
		e.recordMove(dir, secs(0.8), e.cfg.TurnSpeed)
	case right < 40:
		if right < 20 {
			// Too close to the wall, ease left.
			if err := e.move(ctx, Left, e.cfg.TurnSpeed*0.5, secs(0.3)); err != nil {
				return err
			}
			e.recordMove(Left, secs(0.3), e.cfg.TurnSpeed*0.5)
		} else {
			if err := e.move(ctx, Forward, e.cfg.MaxSpeed*0.6, time.Second); err != nil {
				return err
			}
			e.recordMove(Forward, time.Second, e.cfg.MaxSpeed*0.6)
		}
	default:
		// No wall on the right, turn toward where one should be.
		if err := e.move(ctx, Right, e.cfg.TurnSpeed, secs(0.5)); err != nil {
			return err
		}
		e.recordMove(Right, secs(0.5), e.cfg.TurnSpeed)
	}
	return nil
}

// spiralStep is a fixed forward leg plus a fixed turn. The turn duration
// never grows, so the path is a constant-radius loop rather than a true
// spiral. That matches the deployed behavior and is kept as-is.
func (e *Engine) spiralStep(ctx context.Context) error {
	if err := e.move(ctx, Forward, e.cfg.MaxSpeed*0.6, 2*time.Second); err != nil {
		return err
	}
	e.recordMove(Forward, 2*time.Second, e.cfg.MaxSpeed*0.6)

	if err := e.move(ctx, Right, e.cfg.TurnSpeed, secs(0.3)); err != nil {
		return err
	}
	e.recordMove(Right, secs(0.3), e.cfg.TurnSpeed)
	return nil
}

// systematicStep approximates a lawn-mower sweep: four forward segments,
// then turns to line up the next row.
func (e *Engine) systematicStep(ctx context.Context) error {
	e.mu.Lock()
	phase := len(e.moves) % 8
	e.mu.Unlock()

	if phase < 4 {
		if e.sensors.IsPathClear(sensors.Front, e.cfg.ObstacleThreshold) {
			if err := e.move(ctx, Forward, e.cfg.MaxSpeed*0.7, 2*time.Second); err != nil {
				return err
			}
			e.recordMove(Forward, 2*time.Second, e.cfg.MaxSpeed*0.7)
			return nil
		}
		// Blocked: a 1.6s turn is roughly 90 degrees at turn speed.
		if err := e.move(ctx, Right, e.cfg.TurnSpeed, secs(1.6)); err != nil {
			return err
		}
		e.recordMove(Right, secs(1.6), e.cfg.TurnSpeed)
		return nil
	}

	if err := e.move(ctx, Right, e.cfg.TurnSpeed, secs(0.8)); err != nil {
		return err
	}
	e.recordMove(Right, secs(0.8), e.cfg.TurnSpeed)
	return nil
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
