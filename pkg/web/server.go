// Package web serves a small status dashboard for the assistant: the
// listening indicator, the conversation, cache statistics and a skip
// button.
package web

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/voicenav/pkg/hub"
	"github.com/teslashibe/voicenav/pkg/playback"
	"github.com/teslashibe/voicenav/pkg/voice"
)

// Voice is what the dashboard reads from and controls.
type Voice interface {
	State() voice.State
	Metrics() voice.Metrics
	Cache() *playback.Cache
	Skip() bool
}

// LogEntry is a line shown in the dashboard log.
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // step, input, error, info
	Message string `json:"message"`
}

// ConversationEntry is one message of the conversation.
type ConversationEntry struct {
	Time    string `json:"time"`
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Status is the payload of GET /api/status.
type Status struct {
	Voice   voice.State         `json:"voice"`
	Metrics voice.Metrics       `json:"metrics"`
	Cache   playback.CacheStats `json:"cache"`
	Clients int                 `json:"clients"`
}

const (
	maxLogs         = 500
	maxConversation = 100
)

// Server is the dashboard server.
type Server struct {
	app    *fiber.App
	voice  Voice
	hub    *hub.Hub
	logger *slog.Logger

	logs   []LogEntry
	logsMu sync.RWMutex

	conversation   []ConversationEntry
	conversationMu sync.RWMutex
}

// NewServer creates a dashboard for v. staticDir, if not empty, is
// served at /.
func NewServer(v Voice, staticDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		voice:        v,
		hub:          hub.New("status", logger),
		logger:       logger.With("component", "web.Server"),
		logs:         make([]LogEntry, 0, maxLogs),
		conversation: make([]ConversationEntry, 0, maxConversation),
	}
	s.hub.OnCommand = s.handleCommand

	app := fiber.New(fiber.Config{
		AppName:               "voicenav dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	if staticDir != "" {
		app.Static("/", staticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/logs", s.handleGetLogs)
	api.Get("/conversation", s.handleGetConversation)
	api.Post("/skip", s.handleSkip)

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

// Serve runs the hub and serves HTTP on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listener(ln) }()

	s.logger.Info("dashboard listening", "addr", "http://"+ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return err
		}
		return nil
	}
}

// ListenAndServe listens on addr (":8080") and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// App exposes the fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// UpdateState broadcasts a voice state change. Its signature matches
// voice.Observer.
func (s *Server) UpdateState(st voice.State) {
	s.broadcast("state", st)
}

func (s *Server) broadcast(kind string, data any) {
	if err := s.hub.BroadcastEvent(kind, data); err != nil {
		s.logger.Debug("broadcast "+kind, "error", err)
	}
}

// AddLog records a log line and broadcasts it.
func (s *Server) AddLog(kind, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    kind,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.broadcast("log", entry)
}

// AddConversation records a conversation message and broadcasts it.
func (s *Server) AddConversation(role, message string) {
	entry := ConversationEntry{
		Time:    time.Now().Format("15:04:05"),
		Role:    role,
		Message: message,
	}

	s.conversationMu.Lock()
	s.conversation = append(s.conversation, entry)
	if len(s.conversation) > maxConversation {
		s.conversation = s.conversation[1:]
	}
	s.conversationMu.Unlock()

	s.broadcast("conversation", entry)
}

func (s *Server) status() Status {
	return Status{
		Voice:   s.voice.State(),
		Metrics: s.voice.Metrics(),
		Cache:   s.voice.Cache().Stats(),
		Clients: s.hub.ClientCount(),
	}
}
