package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/voicenav/pkg/hub"
)

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	s.conversationMu.RLock()
	defer s.conversationMu.RUnlock()
	return c.JSON(s.conversation)
}

func (s *Server) handleSkip(c *fiber.Ctx) error {
	skipped := s.voice.Skip()
	if skipped {
		s.AddLog("info", "Skipped from dashboard")
	}
	return c.JSON(fiber.Map{"skipped": skipped})
}

// handleCommand runs frames sent over /ws/status.
func (s *Server) handleCommand(cmd hub.Command) {
	switch cmd.Type {
	case "skip":
		if s.voice.Skip() {
			s.AddLog("info", "Skipped from dashboard")
		}
	default:
		s.logger.Debug("unknown command", "type", cmd.Type)
	}
}

// handleStatusWS sends a status snapshot, then live events.
func (s *Server) handleStatusWS(conn *websocket.Conn) {
	snapshot, err := hub.NewMessage("status", s.status())
	if err != nil {
		s.logger.Warn("encode status", "error", err)
		return
	}
	client := hub.NewClient(s.hub, conn, snapshot)
	if client == nil {
		return
	}
	client.Run()
}
