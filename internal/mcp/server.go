package mcp

import (
	"log/slog"
	"net/http"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Services contains all domain services needed by MCP.
type Services struct {
	Access        AccessService
	Reports       ReportService
	Notifications NotificationService
	Activity      ActivityService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Tokens        TokenParser
	TransportMode string // "stdio" or "http"
	// StdioLogin is the login stdio sessions act as.
	StdioLogin string
	Version    string
	Logger     *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "salesportal",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Each call wraps the previous handler, so the session middleware is
	// added last to run first.
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger))
	if cfg.TransportMode == "stdio" {
		server.AddReceivingMiddleware(fixedLoginMiddleware(cfg.StdioLogin))
	} else {
		server.AddReceivingMiddleware(authMiddleware(cfg.Tokens))
	}

	h := NewHandler(cfg.Services.Access, cfg.Services.Reports, cfg.Services.Notifications, cfg.Services.Activity)
	registerTools(server, h)

	return server
}

// NewHTTPHandler serves server over the streamable HTTP transport.
func NewHTTPHandler(server *sdkmcp.Server) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return server
	}, &sdkmcp.StreamableHTTPOptions{Stateless: true})
}
