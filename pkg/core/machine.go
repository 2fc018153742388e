package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/teslashibe/go-sarus/internal/log"
	"github.com/teslashibe/go-sarus/internal/metrics"
	"github.com/teslashibe/go-sarus/pkg/intent"
	"github.com/teslashibe/go-sarus/pkg/mission"
	"github.com/teslashibe/go-sarus/pkg/nav"
	"github.com/teslashibe/go-sarus/pkg/vision"
)

// Deps are the machine's collaborators. Nil entries are replaced with
// null implementations, never nil-checked at call sites.
type Deps struct {
	Voice     VoiceInterface
	Display   DisplayController
	Vision    vision.Manager
	Navigator Navigator
	Interlock Interlock
	Sensors   SensorStatus
	Missions  mission.Logger

	// Init runs subsystem bring-up during INITIALIZING. Nil means
	// nothing to bring up.
	Init func(ctx context.Context) error
}

// Machine drives the robot: one handler per tick, chosen by the current
// state, with emergency preemption checked before anything else.
type Machine struct {
	cfg    Config
	fsm    *fsm.FSM
	logger *slog.Logger

	voice     VoiceInterface
	display   DisplayController
	vision    vision.Manager
	navigator Navigator
	interlock Interlock
	sensors   SensorStatus
	missions  mission.Logger
	initFn    func(ctx context.Context) error

	startTime time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once

	mu               sync.Mutex
	command          string
	response         string
	pendingMove      *nav.Action
	currentMission   *mission.Record
	monitorRequested bool
	lastAlert        time.Time
	errorCount       int
	recoveryAttempts int
	nextRecoveryAt   time.Time
	lastErr          error
}

// New builds a machine in INITIALIZING.
func New(cfg Config, deps Deps) *Machine {
	if deps.Voice == nil {
		deps.Voice = NopVoice{}
	}
	if deps.Display == nil {
		deps.Display = NopDisplay{}
	}
	if deps.Vision == nil {
		deps.Vision = vision.NewNop()
	}
	if deps.Sensors == nil {
		deps.Sensors = nopSensors{}
	}
	if deps.Missions == nil {
		deps.Missions = mission.NopLogger{}
	}

	m := &Machine{
		cfg:       cfg,
		logger:    log.Component("core"),
		voice:     deps.Voice,
		display:   deps.Display,
		vision:    deps.Vision,
		navigator: deps.Navigator,
		interlock: deps.Interlock,
		sensors:   deps.Sensors,
		missions:  deps.Missions,
		initFn:    deps.Init,
		startTime: time.Now(),
		stopCh:    make(chan struct{}),
	}
	m.fsm = newStateMachine(m)
	return m
}

// active is every state except shutdown, for transitions that can fire
// from anywhere.
var active = []string{
	string(StateInitializing), string(StateIdle), string(StateListening),
	string(StateProcessing), string(StateSpeaking), string(StateMoving),
	string(StateExploring), string(StateMonitoring), string(StateAlert),
	string(StateEmergency), string(StateError),
}

func newStateMachine(m *Machine) *fsm.FSM {
	return fsm.NewFSM(
		string(StateInitializing),
		fsm.Events{
			{Name: eventInitialized, Src: []string{string(StateInitializing)}, Dst: string(StateIdle)},
			{Name: eventInitFailed, Src: []string{string(StateInitializing)}, Dst: string(StateError)},
			{Name: eventWake, Src: []string{string(StateIdle), string(StateMonitoring)}, Dst: string(StateListening)},
			{Name: eventCommand, Src: []string{string(StateListening), string(StateIdle)}, Dst: string(StateProcessing)},
			{Name: eventListenTimeout, Src: []string{string(StateListening)}, Dst: string(StateIdle)},
			{Name: eventSpeak, Src: []string{string(StateProcessing)}, Dst: string(StateSpeaking)},
			{Name: eventMove, Src: []string{string(StateProcessing)}, Dst: string(StateMoving)},
			{Name: eventExplore, Src: []string{string(StateProcessing)}, Dst: string(StateExploring)},
			{Name: eventMonitor, Src: []string{string(StateIdle)}, Dst: string(StateMonitoring)},
			{Name: eventAlertRaised, Src: []string{string(StateIdle), string(StateMonitoring)}, Dst: string(StateAlert)},
			{Name: eventActionDone, Src: []string{string(StateSpeaking), string(StateMoving), string(StateAlert), string(StateProcessing), string(StateMonitoring)}, Dst: string(StateIdle)},
			{Name: eventMissionDone, Src: []string{string(StateExploring)}, Dst: string(StateIdle)},
			{Name: eventEmergency, Src: active, Dst: string(StateEmergency)},
			{Name: eventEmergencyCleared, Src: []string{string(StateEmergency)}, Dst: string(StateIdle)},
			{Name: eventFault, Src: active, Dst: string(StateError)},
			{Name: eventRecovered, Src: []string{string(StateError)}, Dst: string(StateIdle)},
			{Name: eventShutdown, Src: append(append([]string{}, active...), string(StateShutdown)), Dst: string(StateShutdown)},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				metrics.StateTransitions.WithLabelValues(e.Dst).Inc()
				m.logger.Info("state transition", "from", e.Src, "to", e.Dst, "event", e.Event)
				m.display.ShowAnimation(State(e.Dst))
			},
		},
	)
}

// State returns the current operating state.
func (m *Machine) State() State {
	return State(m.fsm.Current())
}

// apply fires a transition; an invalid transition is a programming error
// worth a log line, never a crash.
func (m *Machine) apply(ctx context.Context, event string) {
	if err := m.fsm.Event(ctx, event); err != nil {
		m.logger.Error("invalid transition", "event", event, "state", m.fsm.Current(), "error", err)
	}
}

// Run executes the control loop until ctx is cancelled or Stop is called.
func (m *Machine) Run(ctx context.Context) error {
	m.logger.Info("control loop starting", "tick", m.cfg.TickInterval)
	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.enterShutdown(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-m.stopCh:
			m.enterShutdown(context.WithoutCancel(ctx))
			return nil
		case <-ticker.C:
			m.Tick(ctx)
			if m.State() == StateShutdown {
				return nil
			}
		}
	}
}

// Stop requests a transition to SHUTDOWN. Safe to call more than once.
func (m *Machine) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Tick runs one dispatch cycle. Exported so tests and tools can single-step
// the machine without the loop. Panics in handlers are converted to a
// fault, never propagated.
func (m *Machine) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("handler panic", "state", m.fsm.Current(), "panic", r)
			m.toError(ctx, fmt.Errorf("core: handler panic: %v", r))
		}
	}()

	metrics.Ticks.Inc()

	// Emergency preemption beats every other transition.
	if m.interlock != nil && m.interlock.IsActive() {
		if s := m.State(); s != StateEmergency && s != StateShutdown {
			m.enterEmergency(ctx)
		}
		if m.State() == StateEmergency {
			return
		}
	}

	switch m.State() {
	case StateInitializing:
		m.handleInitializing(ctx)
	case StateIdle:
		m.handleIdle(ctx)
	case StateListening:
		m.handleListening(ctx)
	case StateProcessing:
		m.handleProcessing(ctx)
	case StateSpeaking:
		m.handleSpeaking(ctx)
	case StateMoving:
		m.handleMoving(ctx)
	case StateExploring:
		m.handleExploring(ctx)
	case StateMonitoring:
		m.handleMonitoring(ctx)
	case StateAlert:
		m.handleAlert(ctx)
	case StateEmergency:
		m.handleEmergency(ctx)
	case StateError:
		m.handleError(ctx)
	case StateShutdown:
		// Terminal.
	}
}

func (m *Machine) handleInitializing(ctx context.Context) {
	if m.initFn != nil {
		if err := m.initFn(ctx); err != nil {
			m.logger.Error("subsystem bring-up failed", "error", err)
			m.setLastErr(fmt.Errorf("core: init: %w", err))
			m.apply(ctx, eventInitFailed)
			return
		}
	}
	m.logger.Info("subsystems ready")
	m.apply(ctx, eventInitialized)
}

func (m *Machine) handleIdle(ctx context.Context) {
	if m.raiseAlertIfWarned(ctx) {
		return
	}

	m.mu.Lock()
	monitor := m.monitorRequested
	m.mu.Unlock()
	if monitor {
		m.apply(ctx, eventMonitor)
		return
	}

	if m.voice.CheckWake(ctx) {
		m.logger.Info("wake word detected")
		m.apply(ctx, eventWake)
	}
}

func (m *Machine) handleListening(ctx context.Context) {
	command, ok := m.voice.Listen(ctx, m.cfg.ListenTimeout)
	if !ok || strings.TrimSpace(command) == "" {
		m.apply(ctx, eventListenTimeout)
		return
	}
	m.logger.Info("command received", "command", command)
	m.mu.Lock()
	m.command = command
	m.mu.Unlock()
	m.apply(ctx, eventCommand)
}

func (m *Machine) handleProcessing(ctx context.Context) {
	m.mu.Lock()
	command := m.command
	m.mu.Unlock()

	it := intent.Parse(command)
	switch it.Type {
	case intent.TypeMovement:
		m.mu.Lock()
		m.pendingMove = &nav.Action{Type: nav.ActionMovement, Direction: nav.Direction(it.Direction)}
		m.mu.Unlock()
		m.apply(ctx, eventMove)

	case intent.TypeExploration:
		ok, err := m.navigator.ExecuteAction(ctx, nav.Action{Type: nav.ActionExploration})
		if err != nil {
			m.toError(ctx, err)
			return
		}
		if !ok {
			m.respond(ctx, "I can't start exploring right now.")
			return
		}
		m.beginMission("exploration")
		m.apply(ctx, eventExplore)

	case intent.TypeSeek:
		ok, err := m.navigator.ExecuteAction(ctx, nav.Action{Type: nav.ActionSeek, TargetObject: it.Target})
		if err != nil {
			m.toError(ctx, err)
			return
		}
		if !ok {
			m.respond(ctx, "I can't go looking for that right now.")
			return
		}
		m.beginMission("seek:" + it.Target)
		m.apply(ctx, eventExplore)

	default:
		m.respond(ctx, m.composeResponse(ctx, command))
	}
}

// composeResponse builds a spoken reply for non-action commands.
func (m *Machine) composeResponse(ctx context.Context, command string) string {
	if strings.Contains(strings.ToLower(command), "status") {
		return m.statusText()
	}
	if intent.NeedsVision(command) {
		scene, err := m.vision.AnalyzeScene(ctx)
		if err != nil || scene == "" {
			return "I can't see anything right now."
		}
		return scene
	}
	return "I heard you, but I don't know how to help with that yet."
}

func (m *Machine) respond(ctx context.Context, text string) {
	m.mu.Lock()
	m.response = text
	m.mu.Unlock()
	m.apply(ctx, eventSpeak)
}

func (m *Machine) handleSpeaking(ctx context.Context) {
	m.mu.Lock()
	text := m.response
	m.response = ""
	m.mu.Unlock()

	if text != "" && !m.voice.Speak(ctx, text) {
		m.logger.Warn("speech delivery failed", "text", text)
	}
	m.apply(ctx, eventActionDone)
}

func (m *Machine) handleMoving(ctx context.Context) {
	m.mu.Lock()
	action := m.pendingMove
	m.pendingMove = nil
	m.mu.Unlock()

	if action == nil {
		m.apply(ctx, eventActionDone)
		return
	}

	ok, err := m.navigator.ExecuteAction(ctx, *action)
	if err != nil {
		m.toError(ctx, err)
		return
	}
	if !ok {
		m.logger.Warn("movement refused", "direction", action.Direction)
	}
	m.apply(ctx, eventActionDone)
}

func (m *Machine) handleExploring(ctx context.Context) {
	m.mu.Lock()
	rec := m.currentMission
	m.mu.Unlock()

	done, err := m.navigator.ContinueExploration(ctx, rec)
	if err != nil {
		m.finishMission(rec, mission.StatusInterrupted)
		m.toError(ctx, err)
		return
	}
	if !done {
		return
	}

	status := missionStatus(m.navigator.LastStop())
	m.finishMission(rec, status)
	m.apply(ctx, eventMissionDone)
}

func (m *Machine) handleMonitoring(ctx context.Context) {
	if m.raiseAlertIfWarned(ctx) {
		return
	}

	m.mu.Lock()
	monitor := m.monitorRequested
	m.mu.Unlock()
	if !monitor {
		m.apply(ctx, eventActionDone)
		return
	}

	if m.voice.CheckWake(ctx) {
		m.apply(ctx, eventWake)
	}
}

func (m *Machine) handleAlert(ctx context.Context) {
	warnings := m.sensors.Warnings()
	text := "Attention: " + strings.Join(warnings, ", ") + "."
	if len(warnings) == 0 {
		text = "Attention: a warning was raised and has already cleared."
	}
	m.logger.Warn("alert raised", "warnings", warnings)
	if !m.voice.Speak(ctx, text) {
		m.logger.Warn("alert announcement failed")
	}
	m.apply(ctx, eventActionDone)
}

// raiseAlertIfWarned moves to ALERT when soft warnings exist, rate-limited
// by the alert cooldown. Warnings never abort missions; they only speak up.
func (m *Machine) raiseAlertIfWarned(ctx context.Context) bool {
	warnings := m.sensors.Warnings()
	if len(warnings) == 0 {
		return false
	}
	m.mu.Lock()
	recent := time.Since(m.lastAlert) < m.cfg.AlertCooldown
	if !recent {
		m.lastAlert = time.Now()
	}
	m.mu.Unlock()
	if recent {
		return false
	}
	m.apply(ctx, eventAlertRaised)
	return true
}

func (m *Machine) enterEmergency(ctx context.Context) {
	m.mu.Lock()
	rec := m.currentMission
	m.mu.Unlock()
	if rec != nil {
		m.finishMission(rec, mission.StatusInterrupted)
	}

	if m.navigator != nil {
		if err := m.navigator.EmergencyStop(); err != nil {
			m.logger.Error("emergency stop failed", "error", err)
		}
	}

	m.apply(ctx, eventEmergency)

	report := "Emergency stop activated."
	if m.interlock != nil {
		report = m.interlock.StatusReport()
	}
	m.voice.Speak(ctx, report)
}

func (m *Machine) handleEmergency(ctx context.Context) {
	if m.interlock == nil || !m.interlock.IsActive() {
		m.logger.Info("emergency cleared")
		m.voice.Speak(ctx, "Emergency cleared. Resuming normal operation.")
		m.apply(ctx, eventEmergencyCleared)
	}
}

// handleError retries recovery with exponential backoff up to the attempt
// cap, then stays put until ClearError.
func (m *Machine) handleError(ctx context.Context) {
	m.mu.Lock()
	attempts := m.recoveryAttempts
	next := m.nextRecoveryAt
	m.mu.Unlock()

	if attempts >= m.cfg.RecoveryAttemptCap {
		return
	}
	if time.Now().Before(next) {
		return
	}

	m.mu.Lock()
	m.recoveryAttempts++
	attempts = m.recoveryAttempts
	backoff := m.cfg.RecoveryBackoff << (attempts - 1)
	if backoff > m.cfg.RecoveryBackoffMax {
		backoff = m.cfg.RecoveryBackoffMax
	}
	m.nextRecoveryAt = time.Now().Add(backoff)
	m.mu.Unlock()

	m.logger.Info("attempting recovery", "attempt", attempts, "cap", m.cfg.RecoveryAttemptCap)

	if m.initFn != nil {
		if err := m.initFn(ctx); err != nil {
			m.logger.Warn("recovery failed", "attempt", attempts, "error", err)
			if attempts >= m.cfg.RecoveryAttemptCap {
				m.logger.Error("recovery attempts exhausted, operator intervention required")
				m.voice.Speak(ctx, "I could not recover on my own. Please check on me.")
			}
			return
		}
	}

	m.logger.Info("recovered from error state")
	m.mu.Lock()
	m.recoveryAttempts = 0
	m.nextRecoveryAt = time.Time{}
	m.lastErr = nil
	m.mu.Unlock()
	m.apply(ctx, eventRecovered)
}

// ClearError resets the recovery budget and returns to IDLE. This is the
// operator's way out once the attempt cap is exhausted.
func (m *Machine) ClearError(ctx context.Context) {
	if m.State() != StateError {
		return
	}
	m.mu.Lock()
	m.recoveryAttempts = 0
	m.nextRecoveryAt = time.Time{}
	m.lastErr = nil
	m.mu.Unlock()
	m.logger.Info("error state cleared by operator")
	m.apply(ctx, eventRecovered)
}

func (m *Machine) toError(ctx context.Context, err error) {
	m.logger.Error("fault", "state", m.fsm.Current(), "error", err)
	m.setLastErr(err)

	m.mu.Lock()
	m.errorCount++
	m.recoveryAttempts = 0
	m.nextRecoveryAt = time.Now().Add(m.cfg.RecoveryBackoff)
	m.mu.Unlock()

	if m.State() != StateError {
		m.apply(ctx, eventFault)
	}
	m.voice.Speak(ctx, "Something went wrong. I am trying to recover.")
}

func (m *Machine) setLastErr(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Machine) beginMission(objective string) {
	rec := mission.NewRecord(objective)
	if _, err := m.missions.StartMission(rec); err != nil {
		m.logger.Warn("mission persistence unavailable", "error", err)
	}
	m.mu.Lock()
	m.currentMission = rec
	m.mu.Unlock()
	m.logger.Info("mission started", "id", rec.ID, "objective", objective)
}

func (m *Machine) finishMission(rec *mission.Record, status mission.Status) {
	m.mu.Lock()
	m.currentMission = nil
	m.mu.Unlock()
	if rec == nil || rec.Finalized() {
		return
	}
	rec.Finalize(status)

	summary := rec.Summarize()
	if err := m.missions.CompleteMission(rec, summary); err != nil {
		m.logger.Warn("mission completion not persisted", "error", err)
	}
	metrics.MissionsCompleted.WithLabelValues(string(status)).Inc()
	m.logger.Info("mission finished", "id", rec.ID, "status", status)

	if status == mission.StatusCompleted || status == mission.StatusInterrupted {
		m.voice.Speak(context.Background(), summary)
	}
}

// missionStatus maps why navigation stopped to the record's final status.
func missionStatus(reason nav.StopReason) mission.Status {
	switch reason {
	case nav.StopStuck:
		return mission.StatusInterrupted
	case nav.StopAborted:
		return mission.StatusAborted
	default:
		// Time limit and goal reached both count as completed.
		return mission.StatusCompleted
	}
}

// Command injects a text command as if it had been spoken; used by the web
// dashboard. It only takes effect from IDLE.
func (m *Machine) Command(ctx context.Context, text string) bool {
	if m.State() != StateIdle {
		return false
	}
	m.mu.Lock()
	m.command = text
	m.mu.Unlock()
	m.apply(ctx, eventCommand)
	return true
}

// StartMonitoring asks the machine to sit in MONITORING instead of IDLE.
func (m *Machine) StartMonitoring() {
	m.mu.Lock()
	m.monitorRequested = true
	m.mu.Unlock()
}

// StopMonitoring returns the machine to IDLE on the next monitoring tick.
func (m *Machine) StopMonitoring() {
	m.mu.Lock()
	m.monitorRequested = false
	m.mu.Unlock()
}

func (m *Machine) enterShutdown(ctx context.Context) {
	m.mu.Lock()
	rec := m.currentMission
	m.mu.Unlock()
	if rec != nil {
		m.finishMission(rec, mission.StatusInterrupted)
	}
	if m.navigator != nil {
		if err := m.navigator.EmergencyStop(); err != nil {
			m.logger.Warn("stop during shutdown failed", "error", err)
		}
	}
	m.apply(ctx, eventShutdown)
	m.logger.Info("shutdown complete", "uptime", time.Since(m.startTime).Round(time.Second))
}

func (m *Machine) statusText() string {
	parts := []string{fmt.Sprintf("I am %s.", m.State())}
	if level, ok := m.sensors.BatteryLevel(); ok {
		parts = append(parts, fmt.Sprintf("Battery at %.0f percent.", level))
	}
	if warnings := m.sensors.Warnings(); len(warnings) > 0 {
		parts = append(parts, "Warnings: "+strings.Join(warnings, ", ")+".")
	}
	if m.interlock != nil {
		parts = append(parts, m.interlock.StatusReport())
	}
	return strings.Join(parts, " ")
}
