// Package nav drives the robot's movement: single commanded moves,
// autonomous exploration patterns, obstacle avoidance, stuck detection and
// object seeking. It consumes the sensor aggregator and consults the safety
// interlock before every actuation.
package nav

import "time"

// State is the engine's current activity.
type State string

const (
	StateIdle      State = "idle"
	StateMoving    State = "moving"
	StateAvoiding  State = "avoiding_obstacle"
	StateExploring State = "exploring"
	StateSeeking   State = "seeking_target"
	StateStuck     State = "stuck"
)

// Direction of a commanded movement.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
	Left     Direction = "left"
	Right    Direction = "right"
)

// ActionType selects what an Action does.
type ActionType string

const (
	ActionMovement    ActionType = "movement"
	ActionExploration ActionType = "exploration"
	ActionSeek        ActionType = "seek_object"
)

// Action is one navigation request from the state machine.
type Action struct {
	Type      ActionType
	Direction Direction     // movement
	Speed     float64       // 0 means the configured default
	Duration  time.Duration // 0 means the configured default
	Pattern   string        // exploration; empty means the configured default

	TargetObject string // seek
	MaxDuration  time.Duration
}

// Goal is the active mission objective.
type Goal struct {
	TargetObject    string
	ExplorationArea string
	MaxDuration     time.Duration
	Priority        int
}

// StopReason records why the last exploration or seek mission ended.
type StopReason string

const (
	StopNone        StopReason = ""
	StopTimeLimit   StopReason = "time_limit"
	StopStuck       StopReason = "stuck"
	StopGoalReached StopReason = "goal_reached"
	StopAborted     StopReason = "aborted"
)

// Status is a point-in-time snapshot for reporting surfaces.
type Status struct {
	State                State      `json:"state"`
	Pattern              string     `json:"exploration_pattern"`
	Goal                 *Goal      `json:"current_goal,omitempty"`
	DistanceCM           float64    `json:"total_distance_cm"`
	MovesRecorded        int        `json:"moves_recorded"`
	ConsecutiveObstacles int        `json:"consecutive_obstacles"`
	LastStop             StopReason `json:"last_stop,omitempty"`
}
