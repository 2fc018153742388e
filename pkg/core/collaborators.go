package core

import (
	"context"
	"time"

	"github.com/teslashibe/go-sarus/internal/log"
	"github.com/teslashibe/go-sarus/pkg/mission"
	"github.com/teslashibe/go-sarus/pkg/nav"
	"github.com/teslashibe/go-sarus/pkg/safety"
)

// VoiceInterface is the speech collaborator. All methods are fail-soft:
// a broken microphone reads as "no wake word", not an error.
type VoiceInterface interface {
	// CheckWake reports whether the wake word was heard since last check.
	CheckWake(ctx context.Context) bool

	// Listen waits up to timeout for a spoken command.
	Listen(ctx context.Context, timeout time.Duration) (string, bool)

	// Speak says the text out loud and reports whether it was delivered.
	Speak(ctx context.Context, text string) bool
}

// DisplayController shows a state animation. Fire-and-forget; the machine
// never consumes a return value.
type DisplayController interface {
	ShowAnimation(state State)
}

// Navigator is the slice of the navigation engine the machine drives.
type Navigator interface {
	ExecuteAction(ctx context.Context, action nav.Action) (bool, error)
	ContinueExploration(ctx context.Context, rec *mission.Record) (bool, error)
	LastStop() nav.StopReason
	Status() nav.Status
	EmergencyStop() error
}

// Interlock is the safety surface the machine polls every tick.
type Interlock interface {
	IsActive() bool
	Current() (safety.Event, bool)
	StatusReport() string
}

// SensorStatus feeds the status report and soft-warning alerts.
type SensorStatus interface {
	BatteryLevel() (float64, bool)
	Temperature() (float64, bool)
	Warnings() []string
}

// NopVoice never wakes and swallows speech. Logged at debug so headless
// runs still show what would have been said.
type NopVoice struct{}

func (NopVoice) CheckWake(ctx context.Context) bool { return false }

func (NopVoice) Listen(ctx context.Context, timeout time.Duration) (string, bool) {
	return "", false
}

func (NopVoice) Speak(ctx context.Context, text string) bool {
	log.Component("voice").Debug("speak (no output device)", "text", text)
	return true
}

// NopDisplay drops animations.
type NopDisplay struct{}

func (NopDisplay) ShowAnimation(state State) {}

// nopSensors reports nothing; used when the machine runs without an
// aggregator in tests.
type nopSensors struct{}

func (nopSensors) BatteryLevel() (float64, bool) { return 0, false }
func (nopSensors) Temperature() (float64, bool)  { return 0, false }
func (nopSensors) Warnings() []string            { return nil }

var (
	_ VoiceInterface    = NopVoice{}
	_ DisplayController = NopDisplay{}
	_ SensorStatus      = nopSensors{}
)
