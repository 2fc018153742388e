// Package config builds the robot's immutable configuration: defaults,
// an optional YAML file, and SARUS_ environment overrides, resolved once
// at startup and injected into every constructor.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/teslashibe/go-sarus/pkg/alerts"
	"github.com/teslashibe/go-sarus/pkg/core"
	"github.com/teslashibe/go-sarus/pkg/nav"
	"github.com/teslashibe/go-sarus/pkg/safety"
	"github.com/teslashibe/go-sarus/pkg/sensors"
	"github.com/teslashibe/go-sarus/pkg/web"
)

// Config is the full configuration tree. Values are read once by Load and
// never mutated afterwards.
type Config struct {
	Sensors sensors.Config
	Safety  safety.Config
	Nav     nav.Config
	Core    core.Config
	Web     web.Config
	Alerts  alerts.Config

	// MissionDBPath is the SQLite file for mission persistence; empty
	// disables persistence.
	MissionDBPath string

	// WebEnabled switches the dashboard server on.
	WebEnabled bool
}

// Load reads configuration from an optional YAML file plus SARUS_
// environment overrides (SARUS_SENSORS_POLL_RATE_HZ, SARUS_WEB_PORT, ...).
// An empty path skips the file and uses defaults and environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SARUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := build(v)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	sens := sensors.DefaultConfig()
	v.SetDefault("sensors.poll_rate_hz", sens.PollRate)
	v.SetDefault("sensors.staleness_ms", int(sens.Staleness/time.Millisecond))
	v.SetDefault("sensors.obstacle_threshold_cm", sens.ObstacleThreshold)
	v.SetDefault("sensors.emergency_threshold_cm", sens.EmergencyThreshold)
	v.SetDefault("sensors.low_battery_pct", sens.LowBatteryThreshold)
	v.SetDefault("sensors.critical_battery_pct", sens.CriticalBatteryThreshold)
	v.SetDefault("sensors.high_temp_c", sens.HighTempThreshold)

	safe := safety.DefaultConfig()
	v.SetDefault("safety.cooldown_s", int(safe.Cooldown/time.Second))
	v.SetDefault("safety.history_limit", safe.HistoryLimit)

	n := nav.DefaultConfig()
	v.SetDefault("nav.max_speed", n.MaxSpeed)
	v.SetDefault("nav.turn_speed", n.TurnSpeed)
	v.SetDefault("nav.pattern", n.Pattern)
	v.SetDefault("nav.max_mission_duration_s", int(n.MaxMissionDuration/time.Second))
	v.SetDefault("nav.default_move_duration_s", int(n.DefaultMoveDuration/time.Second))

	c := core.DefaultConfig()
	v.SetDefault("core.tick_ms", int(c.TickInterval/time.Millisecond))
	v.SetDefault("core.listen_timeout_s", int(c.ListenTimeout/time.Second))
	v.SetDefault("core.recovery_attempt_cap", c.RecoveryAttemptCap)
	v.SetDefault("core.recovery_backoff_s", int(c.RecoveryBackoff/time.Second))
	v.SetDefault("core.recovery_backoff_max_s", int(c.RecoveryBackoffMax/time.Second))

	w := web.DefaultConfig()
	v.SetDefault("web.enabled", true)
	v.SetDefault("web.port", w.Port)

	a := alerts.DefaultConfig()
	v.SetDefault("alerts.broker", "")
	v.SetDefault("alerts.topic", a.Topic)
	v.SetDefault("alerts.client_id", a.ClientID)
	v.SetDefault("alerts.qos", a.QoS)

	v.SetDefault("mission.db_path", "missions.db")
}

func build(v *viper.Viper) Config {
	cfg := Config{
		Sensors: sensors.DefaultConfig(),
		Safety:  safety.DefaultConfig(),
		Nav:     nav.DefaultConfig(),
		Core:    core.DefaultConfig(),
		Web:     web.DefaultConfig(),
		Alerts:  alerts.DefaultConfig(),
	}

	cfg.Sensors.PollRate = v.GetFloat64("sensors.poll_rate_hz")
	cfg.Sensors.Staleness = time.Duration(v.GetInt("sensors.staleness_ms")) * time.Millisecond
	cfg.Sensors.ObstacleThreshold = v.GetFloat64("sensors.obstacle_threshold_cm")
	cfg.Sensors.EmergencyThreshold = v.GetFloat64("sensors.emergency_threshold_cm")
	cfg.Sensors.LowBatteryThreshold = v.GetFloat64("sensors.low_battery_pct")
	cfg.Sensors.CriticalBatteryThreshold = v.GetFloat64("sensors.critical_battery_pct")
	cfg.Sensors.HighTempThreshold = v.GetFloat64("sensors.high_temp_c")

	cfg.Safety.Cooldown = time.Duration(v.GetInt("safety.cooldown_s")) * time.Second
	cfg.Safety.HistoryLimit = v.GetInt("safety.history_limit")

	cfg.Nav.MaxSpeed = v.GetFloat64("nav.max_speed")
	cfg.Nav.TurnSpeed = v.GetFloat64("nav.turn_speed")
	cfg.Nav.Pattern = v.GetString("nav.pattern")
	cfg.Nav.MaxMissionDuration = time.Duration(v.GetInt("nav.max_mission_duration_s")) * time.Second
	cfg.Nav.DefaultMoveDuration = time.Duration(v.GetInt("nav.default_move_duration_s")) * time.Second
	cfg.Nav.ObstacleThreshold = cfg.Sensors.ObstacleThreshold
	cfg.Nav.EmergencyThreshold = cfg.Sensors.EmergencyThreshold

	cfg.Core.TickInterval = time.Duration(v.GetInt("core.tick_ms")) * time.Millisecond
	cfg.Core.ListenTimeout = time.Duration(v.GetInt("core.listen_timeout_s")) * time.Second
	cfg.Core.RecoveryAttemptCap = v.GetInt("core.recovery_attempt_cap")
	cfg.Core.RecoveryBackoff = time.Duration(v.GetInt("core.recovery_backoff_s")) * time.Second
	cfg.Core.RecoveryBackoffMax = time.Duration(v.GetInt("core.recovery_backoff_max_s")) * time.Second

	cfg.WebEnabled = v.GetBool("web.enabled")
	cfg.Web.Port = v.GetString("web.port")

	cfg.Alerts.Broker = v.GetString("alerts.broker")
	cfg.Alerts.Topic = v.GetString("alerts.topic")
	cfg.Alerts.ClientID = v.GetString("alerts.client_id")
	cfg.Alerts.QoS = v.GetInt("alerts.qos")

	cfg.MissionDBPath = v.GetString("mission.db_path")
	return cfg
}

// Validate rejects configurations the robot cannot safely run with.
func (c Config) Validate() error {
	var errs []error
	if c.Sensors.PollRate <= 0 {
		errs = append(errs, errors.New("config: sensors.poll_rate_hz must be positive"))
	}
	if c.Sensors.EmergencyThreshold >= c.Sensors.ObstacleThreshold {
		errs = append(errs, errors.New("config: emergency threshold must be below obstacle threshold"))
	}
	if c.Nav.MaxSpeed <= 0 || c.Nav.MaxSpeed > 1 {
		errs = append(errs, errors.New("config: nav.max_speed must be in (0,1]"))
	}
	if c.Nav.TurnSpeed <= 0 || c.Nav.TurnSpeed > 1 {
		errs = append(errs, errors.New("config: nav.turn_speed must be in (0,1]"))
	}
	if c.Core.TickInterval <= 0 {
		errs = append(errs, errors.New("config: core.tick_ms must be positive"))
	}
	if c.Core.RecoveryAttemptCap < 1 {
		errs = append(errs, errors.New("config: core.recovery_attempt_cap must be at least 1"))
	}
	return errors.Join(errs...)
}
