// Package core is the robot's top level state machine. It sequences the
// operating states, delegates movement and exploration to the navigation
// engine, and preempts everything the moment the safety interlock activates.
package core

// State is the robot's operating state. Exactly one is active at a time
// and only the machine itself transitions it.
type State string

const (
	StateInitializing State = "initializing"
	StateIdle         State = "idle"
	StateListening    State = "listening"
	StateProcessing   State = "processing"
	StateSpeaking     State = "speaking"
	StateMoving       State = "moving"
	StateExploring    State = "exploring"
	StateMonitoring   State = "monitoring"
	StateAlert        State = "alert"
	StateEmergency    State = "emergency"
	StateError        State = "error"
	StateShutdown     State = "shutdown"
)

// Transition event names for the underlying fsm.
const (
	eventInitialized      = "initialized"
	eventInitFailed       = "init_failed"
	eventWake             = "wake"
	eventCommand          = "command"
	eventListenTimeout    = "listen_timeout"
	eventSpeak            = "speak"
	eventMove             = "move"
	eventExplore          = "explore"
	eventMonitor          = "monitor"
	eventAlertRaised      = "alert_raised"
	eventActionDone       = "action_done"
	eventMissionDone      = "mission_done"
	eventEmergency        = "emergency"
	eventEmergencyCleared = "emergency_cleared"
	eventFault            = "fault"
	eventRecovered        = "recovered"
	eventShutdown         = "shutdown"
)
