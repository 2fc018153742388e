package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-sarus/pkg/mission"
	"github.com/teslashibe/go-sarus/pkg/nav"
	"github.com/teslashibe/go-sarus/pkg/safety"
)

type fakeVoice struct {
	mu       sync.Mutex
	wake     bool
	commands []string
	spoken   []string
}

func (f *fakeVoice) CheckWake(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := f.wake
	f.wake = false
	return w
}

func (f *fakeVoice) Listen(ctx context.Context, timeout time.Duration) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		return "", false
	}
	cmd := f.commands[0]
	f.commands = f.commands[1:]
	return cmd, true
}

func (f *fakeVoice) Speak(ctx context.Context, text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return true
}

func (f *fakeVoice) said() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.spoken))
	copy(out, f.spoken)
	return out
}

type fakeNavigator struct {
	mu              sync.Mutex
	actions         []nav.Action
	execOK          bool
	execErr         error
	stepsUntilDone  int
	continueErr     error
	panicOnContinue bool
	lastStop        nav.StopReason
	emergencyStops  int
}

func (f *fakeNavigator) ExecuteAction(ctx context.Context, a nav.Action) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, a)
	return f.execOK, f.execErr
}

func (f *fakeNavigator) ContinueExploration(ctx context.Context, rec *mission.Record) (bool, error) {
	if f.panicOnContinue {
		panic("sensor bus fell over")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.continueErr != nil {
		return true, f.continueErr
	}
	if f.stepsUntilDone > 0 {
		f.stepsUntilDone--
		return false, nil
	}
	return true, nil
}

func (f *fakeNavigator) LastStop() nav.StopReason { return f.lastStop }

func (f *fakeNavigator) Status() nav.Status { return nav.Status{State: nav.StateIdle} }

func (f *fakeNavigator) EmergencyStop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emergencyStops++
	return nil
}

type fakeInterlock struct {
	mu     sync.Mutex
	active bool
}

func (f *fakeInterlock) IsActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeInterlock) Current() (safety.Event, bool) {
	return safety.Event{Kind: safety.UserEmergency}, f.IsActive()
}

func (f *fakeInterlock) StatusReport() string {
	if f.IsActive() {
		return "ACTIVE EMERGENCY"
	}
	return "No active emergencies."
}

func (f *fakeInterlock) set(active bool) {
	f.mu.Lock()
	f.active = active
	f.mu.Unlock()
}

type warnSensors struct{ warnings []string }

func (w *warnSensors) BatteryLevel() (float64, bool) { return 85, true }
func (w *warnSensors) Temperature() (float64, bool)  { return 25, true }
func (w *warnSensors) Warnings() []string            { return w.warnings }

type captureLogger struct {
	mu         sync.Mutex
	objectives []string
	completed  []mission.Status
}

func (c *captureLogger) StartMission(rec *mission.Record) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objectives = append(c.objectives, rec.Objective)
	return rec.ID, nil
}

func (c *captureLogger) LogEvent(missionID, eventType string, data map[string]any) error {
	return nil
}

func (c *captureLogger) CompleteMission(rec *mission.Record, summary string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = append(c.completed, rec.Status)
	return nil
}

func (c *captureLogger) Close() error { return nil }

func testMachine(deps Deps) *Machine {
	cfg := DefaultConfig()
	cfg.RecoveryBackoff = time.Millisecond
	cfg.RecoveryBackoffMax = 2 * time.Millisecond
	if deps.Navigator == nil {
		deps.Navigator = &fakeNavigator{execOK: true}
	}
	if deps.Interlock == nil {
		deps.Interlock = &fakeInterlock{}
	}
	return New(cfg, deps)
}

func TestBootToIdle(t *testing.T) {
	m := testMachine(Deps{})
	if m.State() != StateInitializing {
		t.Fatalf("initial state = %s", m.State())
	}
	m.Tick(context.Background())
	if m.State() != StateIdle {
		t.Fatalf("state = %s, want %s", m.State(), StateIdle)
	}
}

func TestInitFailureGoesToError(t *testing.T) {
	m := testMachine(Deps{Init: func(ctx context.Context) error { return errors.New("no motors") }})
	m.Tick(context.Background())
	if m.State() != StateError {
		t.Fatalf("state = %s, want %s", m.State(), StateError)
	}
}

func TestWakeCommandSpeechCycle(t *testing.T) {
	voice := &fakeVoice{wake: true, commands: []string{"hello there"}}
	m := testMachine(Deps{Voice: voice})
	ctx := context.Background()

	m.Tick(ctx) // initializing -> idle
	m.Tick(ctx) // idle: wake -> listening
	if m.State() != StateListening {
		t.Fatalf("state = %s, want %s", m.State(), StateListening)
	}
	m.Tick(ctx) // listening: command -> processing
	if m.State() != StateProcessing {
		t.Fatalf("state = %s, want %s", m.State(), StateProcessing)
	}
	m.Tick(ctx) // processing: speech intent -> speaking
	if m.State() != StateSpeaking {
		t.Fatalf("state = %s, want %s", m.State(), StateSpeaking)
	}
	m.Tick(ctx) // speaking -> idle
	if m.State() != StateIdle {
		t.Fatalf("state = %s, want %s", m.State(), StateIdle)
	}
	if len(voice.said()) != 1 {
		t.Fatalf("spoken = %v, want one response", voice.said())
	}
}

func TestListenTimeoutReturnsToIdle(t *testing.T) {
	voice := &fakeVoice{wake: true}
	m := testMachine(Deps{Voice: voice})
	ctx := context.Background()

	m.Tick(ctx)
	m.Tick(ctx)
	m.Tick(ctx) // listening with no command -> idle
	if m.State() != StateIdle {
		t.Fatalf("state = %s, want %s", m.State(), StateIdle)
	}
}

func TestMovementCommand(t *testing.T) {
	navi := &fakeNavigator{execOK: true}
	m := testMachine(Deps{Navigator: navi})
	ctx := context.Background()

	m.Tick(ctx)
	if !m.Command(ctx, "move forward") {
		t.Fatal("command injection from idle should be accepted")
	}
	m.Tick(ctx) // processing -> moving
	if m.State() != StateMoving {
		t.Fatalf("state = %s, want %s", m.State(), StateMoving)
	}
	m.Tick(ctx) // moving -> idle
	if m.State() != StateIdle {
		t.Fatalf("state = %s, want %s", m.State(), StateIdle)
	}

	navi.mu.Lock()
	defer navi.mu.Unlock()
	if len(navi.actions) != 1 || navi.actions[0].Type != nav.ActionMovement || navi.actions[0].Direction != nav.Forward {
		t.Fatalf("actions = %+v, want one forward movement", navi.actions)
	}
}

func TestExplorationLifecycle(t *testing.T) {
	navi := &fakeNavigator{execOK: true, stepsUntilDone: 3, lastStop: nav.StopTimeLimit}
	missions := &captureLogger{}
	m := testMachine(Deps{Navigator: navi, Missions: missions})
	ctx := context.Background()

	m.Tick(ctx)
	m.Command(ctx, "explore the room")
	m.Tick(ctx) // processing -> exploring
	if m.State() != StateExploring {
		t.Fatalf("state = %s, want %s", m.State(), StateExploring)
	}

	for i := 0; i < 3; i++ {
		m.Tick(ctx)
		if m.State() != StateExploring {
			t.Fatalf("tick %d: state = %s, want %s", i, m.State(), StateExploring)
		}
	}
	m.Tick(ctx) // mission done
	if m.State() != StateIdle {
		t.Fatalf("state = %s, want %s", m.State(), StateIdle)
	}

	missions.mu.Lock()
	defer missions.mu.Unlock()
	if len(missions.completed) != 1 || missions.completed[0] != mission.StatusCompleted {
		t.Fatalf("completed = %v, want [completed]", missions.completed)
	}
}

func TestSeekCommandStartsSearchMission(t *testing.T) {
	navi := &fakeNavigator{execOK: true, stepsUntilDone: 2, lastStop: nav.StopTimeLimit}
	missions := &captureLogger{}
	m := testMachine(Deps{Navigator: navi, Missions: missions})
	ctx := context.Background()

	m.Tick(ctx)
	m.Command(ctx, "find the oscilloscope")
	m.Tick(ctx) // processing -> exploring
	if m.State() != StateExploring {
		t.Fatalf("state = %s, want %s", m.State(), StateExploring)
	}

	navi.mu.Lock()
	action := navi.actions[0]
	navi.mu.Unlock()
	if action.Type != nav.ActionSeek || action.TargetObject != "oscilloscope" {
		t.Fatalf("action = %+v, want seek for oscilloscope", action)
	}

	m.Tick(ctx)
	m.Tick(ctx)
	m.Tick(ctx) // mission done
	if m.State() != StateIdle {
		t.Fatalf("state = %s, want %s", m.State(), StateIdle)
	}

	missions.mu.Lock()
	defer missions.mu.Unlock()
	if len(missions.objectives) != 1 || missions.objectives[0] != "seek:oscilloscope" {
		t.Fatalf("objectives = %v, want [seek:oscilloscope]", missions.objectives)
	}
	if len(missions.completed) != 1 || missions.completed[0] != mission.StatusCompleted {
		t.Fatalf("completed = %v, want [completed]", missions.completed)
	}
}

func TestStuckMissionInterrupted(t *testing.T) {
	navi := &fakeNavigator{execOK: true, lastStop: nav.StopStuck}
	missions := &captureLogger{}
	m := testMachine(Deps{Navigator: navi, Missions: missions})
	ctx := context.Background()

	m.Tick(ctx)
	m.Command(ctx, "explore")
	m.Tick(ctx)
	m.Tick(ctx) // immediately done, stuck
	if m.State() != StateIdle {
		t.Fatalf("state = %s, want %s", m.State(), StateIdle)
	}
	missions.mu.Lock()
	defer missions.mu.Unlock()
	if len(missions.completed) != 1 || missions.completed[0] != mission.StatusInterrupted {
		t.Fatalf("completed = %v, want [interrupted]", missions.completed)
	}
}

func TestEmergencyPreemptsExploration(t *testing.T) {
	navi := &fakeNavigator{execOK: true, stepsUntilDone: 100}
	interlock := &fakeInterlock{}
	missions := &captureLogger{}
	m := testMachine(Deps{Navigator: navi, Interlock: interlock, Missions: missions})
	ctx := context.Background()

	m.Tick(ctx)
	m.Command(ctx, "explore")
	m.Tick(ctx)
	m.Tick(ctx)
	if m.State() != StateExploring {
		t.Fatalf("state = %s, want %s", m.State(), StateExploring)
	}

	interlock.set(true)
	m.Tick(ctx)
	if m.State() != StateEmergency {
		t.Fatalf("state = %s, want %s", m.State(), StateEmergency)
	}
	navi.mu.Lock()
	stops := navi.emergencyStops
	navi.mu.Unlock()
	if stops == 0 {
		t.Fatal("emergency stop should have been issued")
	}
	missions.mu.Lock()
	interrupted := len(missions.completed) == 1 && missions.completed[0] == mission.StatusInterrupted
	missions.mu.Unlock()
	if !interrupted {
		t.Fatal("active mission should be finalized as interrupted")
	}

	// The machine stays in EMERGENCY until the interlock is reset.
	m.Tick(ctx)
	if m.State() != StateEmergency {
		t.Fatalf("state = %s, want %s", m.State(), StateEmergency)
	}

	interlock.set(false)
	m.Tick(ctx)
	if m.State() != StateIdle {
		t.Fatalf("state = %s, want %s", m.State(), StateIdle)
	}
}

func TestActuationFailureGoesToError(t *testing.T) {
	navi := &fakeNavigator{execErr: errors.New("motor driver timeout")}
	m := testMachine(Deps{Navigator: navi})
	ctx := context.Background()

	m.Tick(ctx)
	m.Command(ctx, "move forward")
	m.Tick(ctx) // processing -> moving
	m.Tick(ctx) // moving: actuation fails -> error
	if m.State() != StateError {
		t.Fatalf("state = %s, want %s", m.State(), StateError)
	}
}

func TestPanicInHandlerBecomesFault(t *testing.T) {
	navi := &fakeNavigator{execOK: true, panicOnContinue: true}
	m := testMachine(Deps{Navigator: navi})
	ctx := context.Background()

	m.Tick(ctx)
	m.Command(ctx, "explore")
	m.Tick(ctx)
	m.Tick(ctx) // panics inside the handler
	if m.State() != StateError {
		t.Fatalf("state = %s, want %s", m.State(), StateError)
	}
}

func TestRecoveryAttemptsAreCapped(t *testing.T) {
	initErr := errors.New("still broken")
	m := testMachine(Deps{Init: func(ctx context.Context) error { return initErr }})
	ctx := context.Background()

	m.Tick(ctx) // init fails -> error
	if m.State() != StateError {
		t.Fatalf("state = %s, want %s", m.State(), StateError)
	}

	for i := 0; i < 20; i++ {
		time.Sleep(3 * time.Millisecond)
		m.Tick(ctx)
	}
	if m.State() != StateError {
		t.Fatalf("state = %s, machine should stay in error", m.State())
	}
	m.mu.Lock()
	attempts := m.recoveryAttempts
	m.mu.Unlock()
	if attempts != m.cfg.RecoveryAttemptCap {
		t.Fatalf("attempts = %d, want exactly the cap %d", attempts, m.cfg.RecoveryAttemptCap)
	}

	m.ClearError(ctx)
	if m.State() != StateIdle {
		t.Fatalf("state = %s, want %s after operator clear", m.State(), StateIdle)
	}
}

func TestRecoverySucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	m := testMachine(Deps{Init: func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}})
	ctx := context.Background()

	m.Tick(ctx) // first init fails
	for i := 0; i < 10 && m.State() == StateError; i++ {
		time.Sleep(3 * time.Millisecond)
		m.Tick(ctx)
	}
	if m.State() != StateIdle {
		t.Fatalf("state = %s, want %s after recovery", m.State(), StateIdle)
	}
}

func TestSoftWarningsRaiseAlertNotAbort(t *testing.T) {
	voice := &fakeVoice{}
	sens := &warnSensors{warnings: []string{"low battery"}}
	m := testMachine(Deps{Voice: voice, Sensors: sens})
	ctx := context.Background()

	m.Tick(ctx) // -> idle
	m.Tick(ctx) // idle with warnings -> alert
	if m.State() != StateAlert {
		t.Fatalf("state = %s, want %s", m.State(), StateAlert)
	}
	m.Tick(ctx) // alert announced -> idle
	if m.State() != StateIdle {
		t.Fatalf("state = %s, want %s", m.State(), StateIdle)
	}

	said := voice.said()
	if len(said) != 1 || said[0] != "Attention: low battery." {
		t.Fatalf("spoken = %v", said)
	}

	// Cooldown: the same warning does not retrigger immediately.
	m.Tick(ctx)
	if m.State() != StateIdle {
		t.Fatalf("state = %s, alert should be rate-limited", m.State())
	}
}

func TestMonitoringRequest(t *testing.T) {
	m := testMachine(Deps{Sensors: &warnSensors{}})
	ctx := context.Background()

	m.Tick(ctx)
	m.StartMonitoring()
	m.Tick(ctx)
	if m.State() != StateMonitoring {
		t.Fatalf("state = %s, want %s", m.State(), StateMonitoring)
	}
	m.Tick(ctx)
	if m.State() != StateMonitoring {
		t.Fatalf("state = %s, should hold monitoring", m.State())
	}
	m.StopMonitoring()
	m.Tick(ctx)
	if m.State() != StateIdle {
		t.Fatalf("state = %s, want %s", m.State(), StateIdle)
	}
}

func TestStatusCommandSpeaksReport(t *testing.T) {
	voice := &fakeVoice{}
	m := testMachine(Deps{Voice: voice, Sensors: &warnSensors{}})
	ctx := context.Background()

	m.Tick(ctx)
	m.Command(ctx, "status report please")
	m.Tick(ctx) // processing -> speaking
	m.Tick(ctx) // speaking -> idle

	said := voice.said()
	if len(said) != 1 {
		t.Fatalf("spoken = %v, want one status line", said)
	}
	if want := "Battery at 85 percent."; !strings.Contains(said[0], want) {
		t.Fatalf("status %q missing %q", said[0], want)
	}
}
