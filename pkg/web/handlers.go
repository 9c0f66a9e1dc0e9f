package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/snapsolve/pkg/camera"
	"github.com/teslashibe/snapsolve/pkg/hub"
	"github.com/teslashibe/snapsolve/pkg/solver"
)

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func (s *Server) withController(c *fiber.Ctx, fn func(Controller) error) error {
	ctrl := s.controller()
	if ctrl == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "solver not ready")
	}
	return fn(ctrl)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":          "ok",
		"recording":       s.controller() != nil && s.controller().State().Recording,
		"preview_clients": s.PreviewClients(),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleState(c *fiber.Ctx) error {
	return s.withController(c, func(ctrl Controller) error {
		return c.JSON(newStateMessage(ctrl.State()))
	})
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	return s.withController(c, func(ctrl Controller) error {
		err := ctrl.Start(c.UserContext())
		if errors.Is(err, solver.ErrStartCancelled) {
			return errorJSON(c, fiber.StatusConflict, err.Error())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": ctrl.State().ErrorText,
				"state": newStateMessage(ctrl.State()),
			})
		}
		return c.JSON(newStateMessage(ctrl.State()))
	})
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	return s.withController(c, func(ctrl Controller) error {
		ctrl.Stop()
		return c.JSON(newStateMessage(ctrl.State()))
	})
}

func (s *Server) handleCapture(c *fiber.Ctx) error {
	return s.withController(c, func(ctrl Controller) error {
		err := ctrl.Capture(c.UserContext())
		switch {
		case err == nil:
			return c.Status(fiber.StatusAccepted).JSON(newStateMessage(ctrl.State()))
		case errors.Is(err, solver.ErrNotRecording),
			errors.Is(err, solver.ErrBusy),
			errors.Is(err, solver.ErrNoFrame):
			return errorJSON(c, fiber.StatusConflict, err.Error())
		default:
			return errorJSON(c, fiber.StatusInternalServerError, err.Error())
		}
	})
}

func (s *Server) handleMute(c *fiber.Ctx) error {
	return s.withController(c, func(ctrl Controller) error {
		return c.JSON(fiber.Map{"muted": ctrl.ToggleMute()})
	})
}

func (s *Server) handleLogs(c *fiber.Ctx) error {
	return c.JSON(s.Logs())
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return errorJSON(c, fiber.StatusNotFound, "camera configuration not available")
	}
	return c.JSON(fiber.Map{
		"config":  s.camera.GetConfigJSON(),
		"presets": camera.PresetNames(),
	})
}

func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return errorJSON(c, fiber.StatusNotFound, "camera configuration not available")
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid JSON body")
	}
	if err := s.camera.UpdateConfig(params); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	s.logger.Info("camera config updated", "config", s.camera.GetConfigJSON())
	return c.JSON(s.camera.GetConfigJSON())
}

func (s *Server) handleWS(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		h.Serve(conn)
	}
}

// handleLogsWS sends the recent log before joining the live feed.
func (s *Server) handleLogsWS(conn *websocket.Conn) {
	for _, entry := range s.Logs() {
		if err := conn.WriteJSON(entry); err != nil {
			conn.Close()
			return
		}
	}
	s.logHub.Serve(conn)
}
