// Package web serves the robot dashboard: live status over websocket,
// mission history, and manual safety controls.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-sarus/internal/log"
	"github.com/teslashibe/go-sarus/pkg/core"
	"github.com/teslashibe/go-sarus/pkg/hub"
	"github.com/teslashibe/go-sarus/pkg/mission"
	"github.com/teslashibe/go-sarus/pkg/nav"
	"github.com/teslashibe/go-sarus/pkg/safety"
	"github.com/teslashibe/go-sarus/pkg/sensors"
)

// Config for the dashboard server.
type Config struct {
	Port string
	// TelemetryInterval spaces the periodic status broadcasts.
	TelemetryInterval time.Duration
}

func DefaultConfig() Config {
	return Config{Port: "8091", TelemetryInterval: time.Second}
}

// Deps are the subsystems the dashboard exposes. Missions may be nil when
// persistence is disabled.
type Deps struct {
	Machine   *core.Machine
	Interlock *safety.Interlock
	Sensors   *sensors.Aggregator
	Engine    *nav.Engine
	Missions  *mission.Store
}

// Server is the dashboard server.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	machine   *core.Machine
	interlock *safety.Interlock
	sensors   *sensors.Aggregator
	engine    *nav.Engine
	missions  *mission.Store

	statusHub *hub.Hub
}

// NewServer wires the routes. Call Run to serve.
func NewServer(cfg Config, deps Deps) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    log.Component("web"),
		machine:   deps.Machine,
		interlock: deps.Interlock,
		sensors:   deps.Sensors,
		engine:    deps.Engine,
		missions:  deps.Missions,
		statusHub: hub.New("status"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Sarus Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/obstacles", s.handleObstacles)
	api.Get("/safety", s.handleSafety)
	api.Get("/missions", s.handleMissions)
	api.Post("/command", s.handleCommand)
	api.Post("/emergency", s.handleTriggerEmergency)
	api.Post("/emergency/reset", s.handleResetEmergency)
	api.Post("/pattern/:name", s.handleSetPattern)
	api.Post("/monitoring/:action", s.handleMonitoring)
	api.Post("/error/clear", s.handleClearError)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Run serves until ctx is cancelled. The interlock's alert broadcast is
// forwarded to websocket clients for the lifetime of the server.
func (s *Server) Run(ctx context.Context) error {
	go s.statusHub.Run(ctx)
	go s.telemetryLoop(ctx)

	if s.interlock != nil {
		s.interlock.RegisterAlertFunc(func(ev safety.Event) {
			if err := s.statusHub.Publish(hub.TypeEmergency, ev); err != nil {
				s.logger.Warn("emergency broadcast failed", "error", err)
			}
		})
	}

	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			s.logger.Warn("shutdown", "error", err)
		}
	}()

	s.logger.Info("dashboard listening", "port", s.cfg.Port)
	return s.app.Listen(":" + s.cfg.Port)
}

// telemetryLoop pushes periodic status and obstacle snapshots to every
// websocket client.
func (s *Server) telemetryLoop(ctx context.Context) {
	interval := s.cfg.TelemetryInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			if s.machine != nil {
				s.statusHub.Publish(hub.TypeStatus, s.machine.Snapshot())
			}
			if s.sensors != nil {
				s.statusHub.Publish(hub.TypeObstacles, s.sensors.ObstacleMap())
			}
		}
	}
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	client.Run()
}
