/*
Package service exposes the supervisor over HTTP. One POST /chat call is one
routed turn; session continuity comes from the session_id echoed back to the
client.
*/
package service

import (
	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/ybryxcapital/agentcore/pkg/supervisor"
)

const maxMessageLength = 1000

// ChatRequest is one inbound user message.
type ChatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the agent's reply for one turn.
type ChatResponse struct {
	SessionID    string `json:"session_id"`
	Response     string `json:"response"`
	Agent        string `json:"agent"`
	Iterations   int    `json:"iterations"`
	TriggerFired bool   `json:"trigger_fired"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ChatServer is the fiber front end for the router.
type ChatServer struct {
	app    *fiber.App
	router *supervisor.Router
}

// NewChatServer constructs the server around a wired router.
func NewChatServer(router *supervisor.Router) *ChatServer {
	srv := &ChatServer{
		app: fiber.New(fiber.Config{
			AppName:      "agentcore",
			ServerHeader: "AgentCore-Server",
		}),
		router: router,
	}

	srv.app.Use(logger.New(), healthcheck.NewHealthChecker())
	srv.app.Get("/", srv.handleRoot)
	srv.app.Post("/chat", srv.handleChat)

	return srv
}

// App exposes the fiber app for tests.
func (srv *ChatServer) App() *fiber.App {
	return srv.app
}

// Start blocks serving on the given address.
func (srv *ChatServer) Start(addr string) error {
	return srv.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown drains in-flight requests and stops the listener.
func (srv *ChatServer) Shutdown() error {
	return srv.app.Shutdown()
}

func (srv *ChatServer) handleRoot(ctx fiber.Ctx) error {
	return ctx.SendString("OK")
}

func (srv *ChatServer) handleChat(ctx fiber.Ctx) error {
	var req ChatRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "malformed request body"})
	}

	if req.Message == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "message is required"})
	}

	if len(req.Message) > maxMessageLength {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "message exceeds maximum length"})
	}

	if req.UserID == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "user_id is required"})
	}

	result, err := srv.router.RunTurn(ctx.Context(), req.UserID, req.SessionID, req.Message)
	if err != nil {
		log.Error("turn failed", "user_id", req.UserID, "session_id", req.SessionID, "error", err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to process message"})
	}

	return ctx.JSON(ChatResponse{
		SessionID:    result.SessionID,
		Response:     result.ResponseText,
		Agent:        result.Route.String(),
		Iterations:   result.Iterations,
		TriggerFired: result.TriggerFired,
	})
}
