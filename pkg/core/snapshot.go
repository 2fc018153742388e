package core

import (
	"time"

	"github.com/teslashibe/go-sarus/pkg/nav"
)

// MissionSnapshot summarizes the active mission for reporting surfaces.
type MissionSnapshot struct {
	ID          string  `json:"id"`
	Objective   string  `json:"objective"`
	DurationSec float64 `json:"duration_seconds"`
	Discoveries int     `json:"discoveries"`
	Obstacles   int     `json:"obstacles"`
	PathLength  int     `json:"path_length"`
}

// Snapshot is the machine's externally visible status.
type Snapshot struct {
	State            State            `json:"state"`
	UptimeSec        float64          `json:"uptime_seconds"`
	Battery          *float64         `json:"battery_pct,omitempty"`
	Temperature      *float64         `json:"temperature_c,omitempty"`
	Warnings         []string         `json:"warnings,omitempty"`
	ErrorCount       int              `json:"error_count"`
	RecoveryAttempts int              `json:"recovery_attempts"`
	LastError        string           `json:"last_error,omitempty"`
	Safety           string           `json:"safety"`
	Navigation       *nav.Status      `json:"navigation,omitempty"`
	Mission          *MissionSnapshot `json:"mission,omitempty"`
}

// Snapshot collects the current status. Safe to call from any goroutine.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		State:     m.State(),
		UptimeSec: time.Since(m.startTime).Seconds(),
		Warnings:  m.sensors.Warnings(),
	}

	if level, ok := m.sensors.BatteryLevel(); ok {
		s.Battery = &level
	}
	if temp, ok := m.sensors.Temperature(); ok {
		s.Temperature = &temp
	}
	if m.interlock != nil {
		s.Safety = m.interlock.StatusReport()
	}
	if m.navigator != nil {
		ns := m.navigator.Status()
		s.Navigation = &ns
	}

	m.mu.Lock()
	s.ErrorCount = m.errorCount
	s.RecoveryAttempts = m.recoveryAttempts
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	rec := m.currentMission
	m.mu.Unlock()

	if rec != nil {
		s.Mission = &MissionSnapshot{
			ID:          rec.ID,
			Objective:   rec.Objective,
			DurationSec: rec.Duration().Seconds(),
			Discoveries: len(rec.Discoveries()),
			Obstacles:   len(rec.Obstacles()),
			PathLength:  len(rec.Path()),
		}
	}
	return s
}
