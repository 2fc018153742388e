package web

import (
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-sarus/pkg/safety"
)

func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.machine == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "state machine not running"})
	}
	return c.JSON(s.machine.Snapshot())
}

func (s *Server) handleObstacles(c *fiber.Ctx) error {
	if s.sensors == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "sensors unavailable"})
	}
	return c.JSON(fiber.Map{
		"obstacles": s.sensors.ObstacleMap(),
		"warnings":  s.sensors.Warnings(),
	})
}

func (s *Server) handleSafety(c *fiber.Ctx) error {
	if s.interlock == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "interlock unavailable"})
	}
	resp := fiber.Map{
		"active":  s.interlock.IsActive(),
		"report":  s.interlock.StatusReport(),
		"history": s.interlock.History(20),
	}
	if ev, ok := s.interlock.Current(); ok {
		resp["current"] = ev
	}
	return c.JSON(resp)
}

func (s *Server) handleMissions(c *fiber.Ctx) error {
	if s.missions == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "mission store disabled"})
	}
	limit := c.QueryInt("limit", 10)
	missions, err := s.missions.RecentMissions(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(missions)
}

type commandRequest struct {
	Text string `json:"text"`
}

// handleCommand injects a text command as if it were spoken.
func (s *Server) handleCommand(c *fiber.Ctx) error {
	if s.machine == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "state machine not running"})
	}
	var req commandRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "body must be {\"text\": ...}"})
	}
	if !s.machine.Command(c.Context(), req.Text) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "robot is busy", "state": s.machine.State(),
		})
	}
	return c.JSON(fiber.Map{"accepted": true})
}

type emergencyRequest struct {
	Message string `json:"message"`
}

// handleTriggerEmergency is the dashboard's big red button.
func (s *Server) handleTriggerEmergency(c *fiber.Ctx) error {
	if s.interlock == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "interlock unavailable"})
	}
	var req emergencyRequest
	_ = c.BodyParser(&req)
	if req.Message == "" {
		req.Message = "manual emergency stop from dashboard"
	}
	s.interlock.Trigger(safety.UserEmergency, req.Message, safety.High, "web")
	return c.JSON(fiber.Map{"active": true, "report": s.interlock.StatusReport()})
}

func (s *Server) handleResetEmergency(c *fiber.Ctx) error {
	if s.interlock == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "interlock unavailable"})
	}
	s.interlock.Reset()
	return c.JSON(fiber.Map{"active": false, "report": s.interlock.StatusReport()})
}

func (s *Server) handleSetPattern(c *fiber.Ctx) error {
	if s.engine == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "navigation unavailable"})
	}
	name := c.Params("name")
	if err := s.engine.SetPattern(name); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"pattern": name})
}

func (s *Server) handleMonitoring(c *fiber.Ctx) error {
	if s.machine == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "state machine not running"})
	}
	switch c.Params("action") {
	case "start":
		s.machine.StartMonitoring()
	case "stop":
		s.machine.StopMonitoring()
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "action must be start or stop"})
	}
	return c.JSON(fiber.Map{"state": s.machine.State()})
}

func (s *Server) handleClearError(c *fiber.Ctx) error {
	if s.machine == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "state machine not running"})
	}
	s.machine.ClearError(c.Context())
	return c.JSON(fiber.Map{"state": s.machine.State()})
}
