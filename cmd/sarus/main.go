package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-sarus/internal/config"
	applog "github.com/teslashibe/go-sarus/internal/log"
	"github.com/teslashibe/go-sarus/pkg/alerts"
	"github.com/teslashibe/go-sarus/pkg/core"
	"github.com/teslashibe/go-sarus/pkg/mission"
	"github.com/teslashibe/go-sarus/pkg/motion"
	"github.com/teslashibe/go-sarus/pkg/nav"
	"github.com/teslashibe/go-sarus/pkg/safety"
	"github.com/teslashibe/go-sarus/pkg/sensors"
	"github.com/teslashibe/go-sarus/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (or set SARUS_* env vars)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	applog.Init(*logLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Println("🤖 Sarus Robot Controller")
	fmt.Printf("   Pattern:   %s\n", cfg.Nav.Pattern)
	fmt.Printf("   Dashboard: %v (port %s)\n", cfg.WebEnabled, cfg.Web.Port)
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Actuator and safety interlock first: everything downstream must be
	// able to stop the motors.
	actuator := motion.NewSimActuator()
	interlock := safety.New(cfg.Safety, actuator)

	source := sensors.NewSimSource(time.Now().UnixNano())
	aggregator := sensors.New(cfg.Sensors, source)
	aggregator.SetEmergencyFunc(func(reason, message string) {
		switch reason {
		case sensors.ReasonCriticalBattery:
			interlock.Trigger(safety.LowBattery, message, safety.Critical, "sensors")
		default:
			interlock.Trigger(safety.Proximity, message, safety.Critical, "sensors")
		}
	})

	var missions mission.Logger = mission.NopLogger{}
	var store *mission.Store
	if cfg.MissionDBPath != "" {
		store, err = mission.OpenStore(cfg.MissionDBPath)
		if err != nil {
			applog.Warn("mission store unavailable, continuing without persistence", "error", err)
		} else {
			missions = store
			defer store.Close()
		}
	}

	if cfg.Alerts.Broker != "" {
		publisher, err := alerts.NewMQTT(ctx, cfg.Alerts)
		if err != nil {
			applog.Warn("alert publisher unavailable", "error", err)
		} else {
			interlock.RegisterAlertFunc(publisher.PublishEvent)
			defer publisher.Close()
		}
	}

	engine := nav.New(cfg.Nav, actuator, aggregator, interlock, nil)
	engine.SetMissionLogger(missions)

	machine := core.New(cfg.Core, core.Deps{
		Navigator: engine,
		Interlock: interlock,
		Sensors:   aggregator,
		Missions:  missions,
	})

	go func() {
		if err := aggregator.Run(ctx); err != nil && ctx.Err() == nil {
			applog.Error("sensor loop ended", "error", err)
		}
	}()

	if cfg.WebEnabled {
		server := web.NewServer(cfg.Web, web.Deps{
			Machine:   machine,
			Interlock: interlock,
			Sensors:   aggregator,
			Engine:    engine,
			Missions:  store,
		})
		go func() {
			if err := server.Run(ctx); err != nil {
				applog.Error("dashboard ended", "error", err)
				cancel()
			}
		}()
		fmt.Printf("🌐 Dashboard on http://localhost:%s\n", cfg.Web.Port)
	}

	fmt.Println("✅ Running. Ctrl+C to stop.")
	if err := machine.Run(ctx); err != nil {
		log.Printf("Control loop ended: %v", err)
	}

	fmt.Println("👋 Goodbye!")
}
