package nav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-sarus/internal/log"
	"github.com/teslashibe/go-sarus/internal/metrics"
	"github.com/teslashibe/go-sarus/pkg/mission"
	"github.com/teslashibe/go-sarus/pkg/motion"
	"github.com/teslashibe/go-sarus/pkg/safety"
	"github.com/teslashibe/go-sarus/pkg/sensors"
	"github.com/teslashibe/go-sarus/pkg/vision"
)

// Objects the discovery matcher recognizes in scene descriptions.
var discoveryVocabulary = []string{
	"table", "chair", "computer", "monitor", "keyboard", "mouse",
	"book", "paper", "pen", "calculator", "lamp", "phone",
	"oscilloscope", "multimeter", "microscope", "beaker", "circuit",
}

const movementHistoryLimit = 200

// Engine executes navigation actions and exploration missions.
//
// Actuator issuance is a critical section: no two motor commands are ever
// in flight at once. Timed moves are preempted when the safety interlock
// activates mid-wait.
type Engine struct {
	cfg      Config
	actuator motion.Actuator
	sensors  SensorReader
	guard    Safety
	vision   vision.Manager
	missions mission.Logger
	logger   *slog.Logger
	rng      *rand.Rand

	// actMu serializes motor commands, separately from bookkeeping so
	// status queries never wait behind a timed move.
	actMu sync.Mutex

	mu                   sync.Mutex
	state                State
	goal                 *Goal
	rec                  *mission.Record
	pattern              string
	moves                []string
	consecutiveObstacles int
	lastObstacle         time.Time
	distanceCM           float64
	lastStop             StopReason
}

// New creates an engine. The vision manager may be vision.NewNop() when no
// camera is attached; discovery tracking then finds nothing.
func New(cfg Config, actuator motion.Actuator, sensorReader SensorReader, guard Safety, vm vision.Manager) *Engine {
	if vm == nil {
		vm = vision.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		actuator: actuator,
		sensors:  sensorReader,
		guard:    guard,
		vision:   vm,
		missions: mission.NopLogger{},
		logger:   log.Component("nav"),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		state:    StateIdle,
		pattern:  cfg.Pattern,
	}
}

// SetMissionLogger wires the event sink for movement, obstacle and
// discovery events. Must be called before the first mission.
func (e *Engine) SetMissionLogger(l mission.Logger) {
	if l == nil {
		l = mission.NopLogger{}
	}
	e.missions = l
}

// ExecuteAction validates an action against the current obstacle and
// emergency state before touching the motors. It returns (false, nil) when
// the action is refused as unsafe, and a non-nil error only for actuator
// failures, which the caller treats as a fault.
func (e *Engine) ExecuteAction(ctx context.Context, action Action) (bool, error) {
	if e.guard.IsActive() {
		e.logger.Warn("action refused, emergency active", "type", action.Type)
		return false, nil
	}

	switch action.Type {
	case ActionMovement:
		return e.executeMovement(ctx, action)
	case ActionExploration:
		return e.startExploration(action)
	case ActionSeek:
		return e.startSeek(action)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}
}

func (e *Engine) executeMovement(ctx context.Context, action Action) (bool, error) {
	speed := action.Speed
	if speed <= 0 {
		speed = e.cfg.MaxSpeed
	}
	duration := action.Duration
	if duration <= 0 {
		duration = e.cfg.DefaultMoveDuration
	}

	if action.Direction == Forward {
		obstacles := e.sensors.ObstacleMap()
		if front, ok := obstacles[sensors.Front]; ok && front < e.cfg.EmergencyThreshold {
			e.guard.Trigger(safety.Proximity,
				fmt.Sprintf("obstacle at %.1fcm (front)", front),
				safety.Critical, "nav")
			return false, nil
		}
		if !e.sensors.IsPathClear(sensors.Front, e.cfg.ObstacleThreshold) {
			e.logger.Warn("forward path blocked, canceling movement")
			return false, nil
		}
	}

	e.setState(StateMoving)
	defer e.setState(StateIdle)

	if err := e.move(ctx, action.Direction, speed, duration); err != nil {
		return false, err
	}
	e.recordMove(action.Direction, duration, speed)
	return true, nil
}

func (e *Engine) startExploration(action Action) (bool, error) {
	pattern := action.Pattern
	if pattern == "" {
		pattern = e.cfg.Pattern
	}
	if !validPattern(pattern) {
		return false, fmt.Errorf("%w: %q", ErrUnknownPattern, pattern)
	}
	maxDuration := action.MaxDuration
	if maxDuration <= 0 {
		maxDuration = e.cfg.MaxMissionDuration
	}

	e.mu.Lock()
	e.goal = &Goal{ExplorationArea: pattern, MaxDuration: maxDuration, Priority: 1}
	e.pattern = pattern
	e.state = StateExploring
	e.lastStop = StopNone
	e.mu.Unlock()

	e.logger.Info("starting exploration", "pattern", pattern, "max_duration", maxDuration)
	return true, nil
}

func (e *Engine) startSeek(action Action) (bool, error) {
	if action.TargetObject == "" {
		return false, ErrNoTarget
	}
	maxDuration := action.MaxDuration
	if maxDuration <= 0 {
		maxDuration = 2 * time.Minute
	}

	e.mu.Lock()
	e.goal = &Goal{TargetObject: action.TargetObject, MaxDuration: maxDuration, Priority: 1}
	e.state = StateSeeking
	e.lastStop = StopNone
	e.mu.Unlock()

	e.logger.Info("seeking object", "target", action.TargetObject)
	return true, nil
}

// ContinueExploration advances the active mission by one step. It returns
// true when the mission is done; the reason is available from LastStop.
// A non-nil error means an actuator failure and ends the mission.
func (e *Engine) ContinueExploration(ctx context.Context, rec *mission.Record) (bool, error) {
	e.mu.Lock()
	state := e.state
	goal := e.goal
	e.rec = rec
	e.mu.Unlock()

	if state != StateExploring && state != StateSeeking {
		return true, nil
	}

	if e.guard.IsActive() || ctx.Err() != nil {
		e.endMission(StopAborted)
		return true, nil
	}

	if goal != nil && rec != nil && rec.Duration() > goal.MaxDuration {
		e.logger.Info("mission time limit reached")
		e.endMission(StopTimeLimit)
		return true, nil
	}

	if e.detectStuck() {
		e.logger.Warn("robot appears stuck, ending mission")
		e.setState(StateStuck)
		e.endMission(StopStuck)
		return true, nil
	}

	var err error
	var done bool
	if state == StateSeeking {
		done, err = e.seekStep(ctx, goal)
	} else {
		err = e.explorationStep(ctx, rec)
	}
	if err != nil {
		metrics.ActuationFailures.Inc()
		e.endMission(StopAborted)
		return true, err
	}
	if done {
		e.endMission(StopGoalReached)
		return true, nil
	}

	e.checkForDiscoveries(ctx, rec)
	return false, nil
}

// explorationStep runs avoidance if needed, otherwise one pattern step.
func (e *Engine) explorationStep(ctx context.Context, rec *mission.Record) error {
	obstacles := e.sensors.ObstacleMap()

	for dir, dist := range obstacles {
		if dist < e.cfg.EmergencyThreshold {
			e.guard.Trigger(safety.Proximity,
				fmt.Sprintf("obstacle at %.1fcm (%s)", dist, dir),
				safety.Critical, "nav")
			return nil
		}
	}

	if needsAvoidance(obstacles, e.cfg.ObstacleThreshold) {
		return e.avoidObstacle(ctx, obstacles, rec)
	}
	return e.patternStep(ctx)
}

// avoidObstacle turns toward the clearer side, or reverses when boxed in.
func (e *Engine) avoidObstacle(ctx context.Context, obstacles map[sensors.Direction]float64, rec *mission.Record) error {
	e.setState(StateAvoiding)
	defer e.setState(StateExploring)

	e.mu.Lock()
	e.consecutiveObstacles++
	e.lastObstacle = time.Now()
	e.mu.Unlock()

	front := distOr(obstacles, sensors.Front)
	left := distOr(obstacles, sensors.Left)
	right := distOr(obstacles, sensors.Right)
	e.logger.Info("avoiding obstacle", "front", front, "left", left, "right", right)

	var action string
	var err error
	switch {
	case front < e.cfg.ObstacleThreshold:
		if left < e.cfg.ObstacleThreshold && right < e.cfg.ObstacleThreshold {
			// Boxed in on all sides: back out.
			action = "reverse"
			err = e.move(ctx, Backward, e.cfg.MaxSpeed*0.5, 800*time.Millisecond)
		} else if left > right {
			action = "turn_left"
			err = e.move(ctx, Left, e.cfg.TurnSpeed, time.Second)
		} else {
			// Tie-break goes right.
			action = "turn_right"
			err = e.move(ctx, Right, e.cfg.TurnSpeed, time.Second)
		}
	case left < e.cfg.ObstacleThreshold:
		action = "turn_right"
		err = e.move(ctx, Right, e.cfg.TurnSpeed, 800*time.Millisecond)
	case right < e.cfg.ObstacleThreshold:
		action = "turn_left"
		err = e.move(ctx, Left, e.cfg.TurnSpeed, 800*time.Millisecond)
	}
	if err != nil {
		return err
	}

	if rec != nil {
		blockedDir, blockedDist := closestObstacle(obstacles)
		rec.AddObstacle(blockedDist, string(blockedDir), action)
		if lerr := e.missions.LogEvent(rec.ID, "obstacle_encountered", map[string]any{
			"direction":   string(blockedDir),
			"distance_cm": blockedDist,
			"action":      action,
		}); lerr != nil {
			e.logger.Debug("obstacle event not persisted", "error", lerr)
		}
	}
	return nil
}

// seekStep looks for the goal object and approaches it. The goal is
// considered reached when the object is visible and the path ahead is
// already inside the obstacle threshold.
func (e *Engine) seekStep(ctx context.Context, goal *Goal) (bool, error) {
	obj, err := e.vision.FindObject(ctx, goal.TargetObject)
	if err != nil {
		e.logger.Warn("object lookup failed", "target", goal.TargetObject, "error", err)
		obj = nil
	}

	if obj == nil {
		// Not visible: turn slowly and look again next tick.
		return false, e.move(ctx, Right, e.cfg.TurnSpeed*0.5, 800*time.Millisecond)
	}

	if !e.sensors.IsPathClear(sensors.Front, e.cfg.ObstacleThreshold) {
		e.logger.Info("target reached", "target", goal.TargetObject, "confidence", obj.Confidence)
		return true, nil
	}

	if err := e.move(ctx, Forward, e.cfg.MaxSpeed*0.3, time.Second); err != nil {
		return false, err
	}
	e.recordMove(Forward, time.Second, e.cfg.MaxSpeed*0.3)
	return false, nil
}

// checkForDiscoveries matches the scene description against the object
// vocabulary and records new finds on the mission.
func (e *Engine) checkForDiscoveries(ctx context.Context, rec *mission.Record) {
	if rec == nil {
		return
	}
	scene, err := e.vision.AnalyzeScene(ctx)
	if err != nil {
		e.logger.Debug("scene analysis failed", "error", err)
		return
	}
	if scene == "" {
		return
	}
	lower := strings.ToLower(scene)
	for _, name := range discoveryVocabulary {
		if !strings.Contains(lower, name) {
			continue
		}
		if rec.AddDiscovery(name, 0.5) {
			e.logger.Info("discovered object", "name", name)
			if err := e.missions.LogEvent(rec.ID, "object_discovered", map[string]any{
				"name":       name,
				"confidence": 0.5,
			}); err != nil {
				e.logger.Debug("discovery event not persisted", "error", err)
			}
		}
	}
}

// detectStuck applies both heuristics: an obstacle burst in a short window,
// or low diversity in the recent movement history.
func (e *Engine) detectStuck() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.consecutiveObstacles > e.cfg.StuckObstacleLimit &&
		time.Since(e.lastObstacle) < e.cfg.StuckObstacleWindow {
		return true
	}

	if len(e.moves) > e.cfg.StuckHistoryMin {
		recent := e.moves[len(e.moves)-e.cfg.StuckRecentWindow:]
		distinct := make(map[string]struct{}, len(recent))
		for _, m := range recent {
			distinct[m] = struct{}{}
		}
		if len(distinct) <= e.cfg.StuckDistinctMax {
			return true
		}
	}
	return false
}

// move issues one motor command under the actuator critical section. The
// timed wait is cancelled the moment the interlock activates, and the
// motors are stopped before returning.
func (e *Engine) move(ctx context.Context, dir Direction, speed float64, duration time.Duration) error {
	e.actMu.Lock()
	defer e.actMu.Unlock()

	if e.guard.IsActive() {
		return nil
	}

	mctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.guard.Activated():
			cancel()
		case <-mctx.Done():
		}
	}()

	var err error
	switch dir {
	case Forward:
		err = e.actuator.MoveForward(mctx, speed, duration)
	case Backward:
		err = e.actuator.MoveBackward(mctx, speed, duration)
	case Left:
		err = e.actuator.TurnLeft(mctx, speed, duration)
	case Right:
		err = e.actuator.TurnRight(mctx, speed, duration)
	default:
		err = e.actuator.Stop()
	}
	if errors.Is(err, context.Canceled) {
		// Preempted mid-wait; motors are already stopped.
		return nil
	}
	if err != nil {
		return fmt.Errorf("nav: %s command: %w", dir, err)
	}
	return nil
}

// recordMove appends to the movement history and updates dead reckoning,
// mirroring both into the active mission record. Position is commanded
// speed times time, deliberately uncorrected.
func (e *Engine) recordMove(dir Direction, duration time.Duration, speed float64) {
	entry := fmt.Sprintf("%s_%.1f", dir, duration.Seconds())
	var travelled float64
	if dir == Forward || dir == Backward {
		// Roughly half a meter per second at full speed.
		travelled = speed * duration.Seconds() * 50
	}

	e.mu.Lock()
	e.moves = append(e.moves, entry)
	if len(e.moves) > movementHistoryLimit {
		e.moves = e.moves[len(e.moves)-movementHistoryLimit/2:]
	}
	e.distanceCM += travelled
	rec := e.rec
	e.mu.Unlock()

	if rec == nil {
		return
	}
	rec.AddPath(entry)
	rec.AddDistance(travelled)
	if err := e.missions.LogEvent(rec.ID, "movement", map[string]any{
		"move":        entry,
		"distance_cm": travelled,
	}); err != nil {
		e.logger.Debug("movement event not persisted", "error", err)
	}
}

func (e *Engine) endMission(reason StopReason) {
	e.actMu.Lock()
	if err := e.actuator.Stop(); err != nil {
		e.logger.Warn("stop failed at mission end", "error", err)
	}
	e.actMu.Unlock()

	e.mu.Lock()
	e.goal = nil
	e.rec = nil
	e.state = StateIdle
	e.lastStop = reason
	e.mu.Unlock()
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// SetPattern switches the exploration pattern for subsequent missions.
func (e *Engine) SetPattern(pattern string) error {
	if !validPattern(pattern) {
		return fmt.Errorf("%w: %q", ErrUnknownPattern, pattern)
	}
	e.mu.Lock()
	e.pattern = pattern
	e.mu.Unlock()
	e.logger.Info("exploration pattern changed", "pattern", pattern)
	return nil
}

// LastStop reports why the most recent mission ended.
func (e *Engine) LastStop() StopReason {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastStop
}

// Status returns a snapshot for the dashboard and voice reports.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	var goal *Goal
	if e.goal != nil {
		g := *e.goal
		goal = &g
	}
	return Status{
		State:                e.state,
		Pattern:              e.pattern,
		Goal:                 goal,
		DistanceCM:           e.distanceCM,
		MovesRecorded:        len(e.moves),
		ConsecutiveObstacles: e.consecutiveObstacles,
		LastStop:             e.lastStop,
	}
}

// Reset clears history, goals and counters and stops the motors.
func (e *Engine) Reset() {
	e.actMu.Lock()
	if err := e.actuator.Stop(); err != nil {
		e.logger.Warn("stop failed during reset", "error", err)
	}
	e.actMu.Unlock()

	e.mu.Lock()
	e.state = StateIdle
	e.goal = nil
	e.rec = nil
	e.moves = nil
	e.consecutiveObstacles = 0
	e.distanceCM = 0
	e.lastStop = StopNone
	e.mu.Unlock()

	e.logger.Info("navigation state reset")
}

// EmergencyStop halts movement and drops the active goal.
func (e *Engine) EmergencyStop() error {
	e.mu.Lock()
	e.state = StateIdle
	e.goal = nil
	e.rec = nil
	e.mu.Unlock()

	e.logger.Warn("navigation emergency stop")
	return e.actuator.EmergencyStop()
}

func needsAvoidance(obstacles map[sensors.Direction]float64, threshold float64) bool {
	for _, dist := range obstacles {
		if dist < threshold {
			return true
		}
	}
	return false
}

// distOr treats a missing reading as open space for steering decisions;
// fail-safe blocking is the path-clear check's job.
func distOr(obstacles map[sensors.Direction]float64, dir sensors.Direction) float64 {
	if d, ok := obstacles[dir]; ok {
		return d
	}
	return 999
}

func closestObstacle(obstacles map[sensors.Direction]float64) (sensors.Direction, float64) {
	var (
		minDir  sensors.Direction
		minDist = 999.0
	)
	for dir, dist := range obstacles {
		if dist < minDist {
			minDir, minDist = dir, dist
		}
	}
	return minDir, minDist
}
