package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-extras/cobraflags"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/rpggio/salesportal/internal/app"
)

func newServeCommand() *cobra.Command {
	flags := configFlags()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the portal over HTTP or MCP stdio",
		Long: `Serve the portal.

In http mode the JSON API, the JSON-RPC endpoint and the streamable MCP
endpoint share one listener. In stdio mode the MCP protocol runs on
stdin/stdout acting as transport.stdio_login.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func runServe(ctx context.Context, flags map[string]cobraflags.Flag) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	stdio := cfg.Transport.Mode == "stdio"
	logger, closeLog := newLogger(cfg.Log.Level, stdio)
	defer closeLog()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	portal, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer portal.Close()

	if stdio {
		return runStdioMode(ctx, logger, portal.MCPServer(), cfg.Transport.StdioLogin)
	}
	router, err := portal.Router()
	if err != nil {
		return err
	}
	return runHTTPMode(ctx, logger, router, fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
}

func runStdioMode(ctx context.Context, logger *slog.Logger, server *sdkmcp.Server, login string) error {
	logger.Info("starting stdio transport", "login", login)

	// Run blocks until stdin closes or ctx is canceled.
	if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		return err
	}
	logger.Info("shutting down")
	return nil
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, handler http.Handler, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	return waitForShutdown(logger, httpServer)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}
