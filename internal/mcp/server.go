package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/rollcall/internal/dispatch"
)

// Dispatcher defines the request handling needed by MCP.
type Dispatcher interface {
	HandleRoute(ctx context.Context, op dispatch.Operator, chat dispatch.Chat, token string) dispatch.Render
	HandleCommand(ctx context.Context, op dispatch.Operator, chat dispatch.Chat, name, args string) dispatch.Render
}

// Config contains server configuration.
type Config struct {
	Dispatcher Dispatcher
	Version    string
	Logger     *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "rollcall",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(logger, "outbound"))

	registerTools(server, cfg.Dispatcher)

	return server
}
