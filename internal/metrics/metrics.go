// Package metrics defines the Prometheus collectors for the robot core.
// Collectors register on the default registry in init and are served from
// the web dashboard's /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Ticks counts state-machine control-loop ticks.
	Ticks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sarus_control_ticks_total",
			Help: "Total state machine control loop ticks.",
		},
	)

	// StateTransitions counts transitions by destination state.
	StateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sarus_state_transitions_total",
			Help: "Total state machine transitions by destination state.",
		},
		[]string{"state"},
	)

	// EmergencyTriggers counts safety interlock activations by kind.
	EmergencyTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sarus_emergency_triggers_total",
			Help: "Total safety interlock triggers by emergency kind.",
		},
		[]string{"kind"},
	)

	// SensorPolls counts completed sensor poll cycles.
	SensorPolls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sarus_sensor_polls_total",
			Help: "Total completed sensor poll cycles.",
		},
	)

	// ActuationFailures counts failed motion actuator commands.
	ActuationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sarus_actuation_failures_total",
			Help: "Total failed motion actuator commands.",
		},
	)

	// MissionsCompleted counts finalized missions by status.
	MissionsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sarus_missions_total",
			Help: "Total finalized missions by status.",
		},
		[]string{"status"},
	)

	// BatteryLevel reports the latest battery reading.
	BatteryLevel = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sarus_battery_percent",
			Help: "Latest battery level reading in percent.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		Ticks,
		StateTransitions,
		EmergencyTriggers,
		SensorPolls,
		ActuationFailures,
		MissionsCompleted,
		BatteryLevel,
	)
}
