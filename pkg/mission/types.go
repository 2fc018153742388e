// Package mission tracks exploration missions: what the robot did, what it
// found, and how the mission ended. Records are safe for concurrent updates
// from the navigation loop and the web layer.
package mission

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a mission record.
type Status string

const (
	StatusActive      Status = "active"
	StatusCompleted   Status = "completed"
	StatusAborted     Status = "aborted"
	StatusInterrupted Status = "interrupted"
)

// Discovery is an object found during exploration.
type Discovery struct {
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Obstacle is a single obstacle encounter and the avoidance taken.
type Obstacle struct {
	Distance  float64   `json:"distance_cm"`
	Direction string    `json:"direction"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Record accumulates the state of one mission. Create with NewRecord and
// close with Finalize; all mutators are no-ops after finalization.
type Record struct {
	mu sync.Mutex

	ID        string
	Objective string
	Status    Status
	StartTime time.Time
	EndTime   time.Time

	discoveries []Discovery
	path        []string
	obstacles   []Obstacle
	distanceCM  float64

	finalized bool
}

// NewRecord starts a mission with the given objective ("exploration",
// "seek:ball", ...). The ID is a fresh UUID.
func NewRecord(objective string) *Record {
	return &Record{
		ID:        uuid.NewString(),
		Objective: objective,
		Status:    StatusActive,
		StartTime: time.Now(),
	}
}

// AddDiscovery records a found object. Duplicate names (case-insensitive)
// are dropped so a mission reports each object once.
func (r *Record) AddDiscovery(name string, confidence float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return false
	}
	for _, d := range r.discoveries {
		if strings.EqualFold(d.Name, name) {
			return false
		}
	}
	r.discoveries = append(r.discoveries, Discovery{
		Name:       name,
		Confidence: confidence,
		Timestamp:  time.Now(),
	})
	return true
}

// AddPath appends a movement direction to the path history.
func (r *Record) AddPath(direction string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.path = append(r.path, direction)
}

// AddObstacle records an obstacle encounter.
func (r *Record) AddObstacle(distance float64, direction, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.obstacles = append(r.obstacles, Obstacle{
		Distance:  distance,
		Direction: direction,
		Action:    action,
		Timestamp: time.Now(),
	})
}

// AddDistance accumulates dead-reckoned travel distance in centimeters.
func (r *Record) AddDistance(cm float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized || cm <= 0 {
		return
	}
	r.distanceCM += cm
}

// Finalize seals the record with a terminal status. Only the first call
// takes effect.
func (r *Record) Finalize(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.finalized = true
	r.Status = status
	r.EndTime = time.Now()
}

// Finalized reports whether the record has been sealed.
func (r *Record) Finalized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized
}

// Duration is the elapsed mission time. For an open mission it is the
// time since start.
func (r *Record) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}

// Discoveries returns a copy of the discovery list.
func (r *Record) Discoveries() []Discovery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Discovery, len(r.discoveries))
	copy(out, r.discoveries)
	return out
}

// Path returns a copy of the movement history.
func (r *Record) Path() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.path))
	copy(out, r.path)
	return out
}

// Obstacles returns a copy of the obstacle encounters.
func (r *Record) Obstacles() []Obstacle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Obstacle, len(r.obstacles))
	copy(out, r.obstacles)
	return out
}

// DistanceCM returns the accumulated travel distance.
func (r *Record) DistanceCM() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.distanceCM
}

// Summarize produces the spoken mission report.
func (r *Record) Summarize() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	dur := time.Since(r.StartTime)
	if r.finalized {
		dur = r.EndTime.Sub(r.StartTime)
	}
	minutes := int(dur.Minutes())
	return fmt.Sprintf("Mission complete. I explored for %d minutes, found %d objects, and encountered %d obstacles.",
		minutes, len(r.discoveries), len(r.obstacles))
}
