// Package safety implements the emergency interlock. The interlock owns a
// single normal/emergency state; every actuation path must consult IsActive
// before issuing a command, and nothing clears an emergency except an
// explicit Reset.
package safety

import (
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/go-sarus/internal/log"
	"github.com/teslashibe/go-sarus/internal/metrics"
)

// Kind classifies an emergency trigger.
type Kind string

const (
	// Proximity is an obstacle inside the emergency distance.
	Proximity Kind = "proximity"
	// HardwareFailure is a motor or sensor fault.
	HardwareFailure Kind = "hardware_failure"
	// LowBattery is a critically drained battery.
	LowBattery Kind = "low_battery"
	// Overheat is a controller temperature fault.
	Overheat Kind = "overheat"
	// UserEmergency is a user-initiated alarm.
	UserEmergency Kind = "user_emergency"
	// ManualStop is an operator stop from the dashboard or console.
	ManualStop Kind = "manual_stop"
	// SystemCritical is an unrecoverable internal error.
	SystemCritical Kind = "system_critical"
)

// Severity orders emergencies for reporting. It does not change mitigation:
// every trigger stops movement.
type Severity int

const (
	Low Severity = iota + 1
	Medium
	High
	Critical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Event records one emergency. At most one event is current at a time; it
// is cleared only by Reset, never by timeout.
type Event struct {
	Kind      Kind      `json:"kind"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// Stopper is the mitigation target. The motion actuator implements it.
type Stopper interface {
	EmergencyStop() error
}

// AlertFunc receives a copy of each new emergency event. Callbacks run on
// the triggering goroutine and must not block.
type AlertFunc func(Event)

// Config holds interlock tuning.
type Config struct {
	// Cooldown suppresses repeated triggers of the same kind. Within the
	// window the duplicate is dropped entirely: no new event record, no
	// second mitigation.
	Cooldown time.Duration

	// HistoryLimit bounds the retained event history.
	HistoryLimit int
}

// DefaultConfig returns the stock interlock tuning.
func DefaultConfig() Config {
	return Config{
		Cooldown:     30 * time.Second,
		HistoryLimit: 50,
	}
}

// Interlock is the safety latch. Triggers from concurrent sources serialize
// through its lock.
type Interlock struct {
	cfg     Config
	stopper Stopper

	mu          sync.Mutex
	active      bool
	current     *Event
	lastTrigger map[Kind]time.Time
	history     []Event
	callbacks   []AlertFunc
	activatedCh chan struct{}
}

// New creates an interlock in the normal state. stopper may be nil when no
// actuator exists (tests, dry runs); mitigation then only records state.
func New(cfg Config, stopper Stopper) *Interlock {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	return &Interlock{
		cfg:         cfg,
		stopper:     stopper,
		lastTrigger: make(map[Kind]time.Time),
		activatedCh: make(chan struct{}),
	}
}

// RegisterAlertFunc adds a broadcast target for new emergency events.
func (i *Interlock) RegisterAlertFunc(fn AlertFunc) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.callbacks = append(i.callbacks, fn)
}

// Trigger records an emergency, runs the kind-specific mitigation and
// broadcasts to registered callbacks. Repeated triggers of the same kind
// within the cooldown window are dropped.
func (i *Interlock) Trigger(kind Kind, message string, severity Severity, source string) {
	i.mu.Lock()

	if last, ok := i.lastTrigger[kind]; ok && time.Since(last) < i.cfg.Cooldown {
		i.mu.Unlock()
		log.Debug("duplicate emergency suppressed", "kind", kind)
		return
	}
	i.lastTrigger[kind] = time.Now()

	ev := Event{
		Kind:      kind,
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now(),
		Source:    source,
	}
	wasActive := i.active
	i.active = true
	i.current = &ev
	i.history = append(i.history, ev)
	if len(i.history) > i.cfg.HistoryLimit {
		i.history = i.history[len(i.history)-i.cfg.HistoryLimit:]
	}

	callbacks := make([]AlertFunc, len(i.callbacks))
	copy(callbacks, i.callbacks)

	var activated chan struct{}
	if !wasActive {
		activated = i.activatedCh
	}
	i.mu.Unlock()

	log.Error("EMERGENCY TRIGGERED",
		"kind", kind, "severity", severity.String(),
		"source", source, "message", message)
	metrics.EmergencyTriggers.WithLabelValues(string(kind)).Inc()

	i.mitigate(kind)

	// Wake every timed wait that is parked on Activated().
	if activated != nil {
		close(activated)
	}

	for _, fn := range callbacks {
		fn(ev)
	}
}

// mitigate runs the per-kind procedure. Every kind stops movement first;
// the rest is advisory logging for the operator.
func (i *Interlock) mitigate(kind Kind) {
	i.stopMovement()

	switch kind {
	case Proximity:
		log.Warn("mitigation: holding position until clearance is restored")
	case HardwareFailure:
		log.Warn("mitigation: actuators disabled, check drive hardware")
	case LowBattery:
		log.Warn("mitigation: movement halted to preserve remaining charge")
	case Overheat:
		log.Warn("mitigation: movement halted until controller cools")
	case UserEmergency, ManualStop:
		log.Warn("mitigation: all operations paused by request")
	case SystemCritical:
		log.Warn("mitigation: entering safe mode, operator intervention required")
	default:
		log.Warn("mitigation: unknown kind, movement stopped as a safe default", "kind", kind)
	}
}

func (i *Interlock) stopMovement() {
	if i.stopper == nil {
		return
	}
	if err := i.stopper.EmergencyStop(); err != nil {
		log.Error("emergency stop command failed", "error", err)
	}
}

// Reset clears the emergency and returns to normal. This is the only way
// out of the active state. The dedup window is cleared with it: a trigger
// arriving after a reset is a new hazard episode and must latch again.
func (i *Interlock) Reset() {
	i.mu.Lock()
	if !i.active {
		i.mu.Unlock()
		return
	}
	i.active = false
	i.current = nil
	i.lastTrigger = make(map[Kind]time.Time)
	i.activatedCh = make(chan struct{})
	i.mu.Unlock()

	log.Info("emergency state cleared, returning to normal operation")
}

// IsActive reports whether an emergency is in effect. Every actuation path
// checks this before issuing a command.
func (i *Interlock) IsActive() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

// Activated returns a channel that closes when the interlock transitions to
// active. Timed waits select on it so an emergency preempts them instead of
// running to completion. After Reset a fresh channel is returned.
func (i *Interlock) Activated() <-chan struct{} {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.activatedCh
}

// Current returns a copy of the current emergency event, if any.
func (i *Interlock) Current() (Event, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.current == nil {
		return Event{}, false
	}
	return *i.current, true
}

// History returns up to limit recent events, newest last.
func (i *Interlock) History(limit int) []Event {
	i.mu.Lock()
	defer i.mu.Unlock()
	if limit <= 0 || limit > len(i.history) {
		limit = len(i.history)
	}
	out := make([]Event, limit)
	copy(out, i.history[len(i.history)-limit:])
	return out
}

// StatusReport returns a human-readable status line suitable for voice or
// log output.
func (i *Interlock) StatusReport() string {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.active || i.current == nil {
		recent := 0
		cutoff := time.Now().Add(-24 * time.Hour)
		for _, ev := range i.history {
			if ev.Timestamp.After(cutoff) {
				recent++
			}
		}
		return fmt.Sprintf("No active emergencies. %d events in the last 24 hours.", recent)
	}

	ev := i.current
	age := time.Since(ev.Timestamp).Round(time.Second)
	return fmt.Sprintf("ACTIVE EMERGENCY: %s (%s ago) - %s", ev.Kind, age, ev.Message)
}
