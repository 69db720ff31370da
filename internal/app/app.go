// Package app wires the portal's stores and services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"

	"github.com/rpggio/salesportal/internal/auth"
	"github.com/rpggio/salesportal/internal/cache"
	"github.com/rpggio/salesportal/internal/config"
	"github.com/rpggio/salesportal/internal/domain/access"
	"github.com/rpggio/salesportal/internal/domain/activity"
	"github.com/rpggio/salesportal/internal/domain/identity"
	"github.com/rpggio/salesportal/internal/domain/notification"
	"github.com/rpggio/salesportal/internal/domain/report"
	"github.com/rpggio/salesportal/internal/events"
	"github.com/rpggio/salesportal/internal/mcp"
	"github.com/rpggio/salesportal/internal/repository"
	"github.com/rpggio/salesportal/internal/sqlstore"
	"github.com/rpggio/salesportal/internal/transport"
)

// Version is reported by the MCP server. Overridden at build time.
var Version = "dev"

// App holds the wired portal.
type App struct {
	Config     config.Config
	DB         *sqlstore.DB
	Worksheets *sqlstore.WorksheetRepository
	// Store is the worksheet store the services read through: the sheet
	// cache when Redis is available, otherwise Worksheets.
	Store repository.TabularStore
	Cache *cache.SheetCache

	Events        *events.Publisher
	Activity      *activity.Service
	Directory     *identity.Directory
	Access        *access.Service
	Reports       *report.Service
	Notifications *notification.Service
	Tokens        *auth.Issuer

	redis  *redis.Client
	logger *slog.Logger
}

// Open connects the database and runs migrations.
func Open(ctx context.Context, cfg config.DBConfig) (*sqlstore.DB, error) {
	if err := ensureDBDir(cfg); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlstore.New(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New wires every service from cfg. The caller must Close the result.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := Open(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, DB: db, logger: logger}
	a.Worksheets = sqlstore.NewWorksheetRepository(db)
	a.Store = a.Worksheets

	if cfg.Cache.Enabled {
		if client := cache.NewRedisClient(ctx, cfg.Cache); client != nil {
			a.redis = client
			a.Cache = cache.NewSheetCache(a.Worksheets, client, cfg.Cache.Prefix, cfg.Cache.TTL, logger)
			a.Store = a.Cache
			logger.Info("worksheet cache enabled", "addr", cfg.Cache.Addr, "ttl", cfg.Cache.TTL)
		} else {
			logger.Warn("redis unreachable, running without worksheet cache", "addr", cfg.Cache.Addr)
		}
	}

	if cfg.Auth.JWTSecret != "" {
		a.Tokens, err = auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	a.Events = events.NewPublisher(cfg.Broker, logger)
	a.Activity = activity.NewService(sqlstore.NewActivityRepository(db), logger)

	views := cfg.Portal.Views
	a.Directory = identity.NewDirectory(identity.NewResolver(a.Store, logger), userLogins(cfg.Portal),
		identity.SourcesFrom(views.Customers), identity.DirectoryTTL)

	a.Access = access.NewService(cfg.Portal, access.NewResolver(cfg.Portal), a.Directory, logger)
	a.Reports = report.NewService(a.Access, a.Store, a.Directory, views, logger)
	a.Notifications = notification.NewService(a.Store, cfg.Portal.NotificationsWorksheet, a.Events, a.Activity, logger)

	return a, nil
}

// MCPServer builds the MCP server for the configured transport mode.
func (a *App) MCPServer() *sdkmcp.Server {
	cfg := mcp.Config{
		Services: mcp.Services{
			Access:        a.Access,
			Reports:       a.Reports,
			Notifications: a.Notifications,
			Activity:      a.Activity,
		},
		TransportMode: a.Config.Transport.Mode,
		StdioLogin:    a.Config.Transport.StdioLogin,
		Version:       Version,
		Logger:        a.logger,
	}
	if a.Tokens != nil {
		cfg.Tokens = a.Tokens
	}
	return mcp.NewServer(cfg)
}

// Router builds the HTTP API including the streamable MCP endpoint.
func (a *App) Router() (http.Handler, error) {
	if a.Tokens == nil {
		return nil, errors.New("http transport requires auth.jwt_secret")
	}
	return transport.NewServer(transport.Options{
		RPC:      mcp.NewHandler(a.Access, a.Reports, a.Notifications, a.Activity),
		Accounts: a.Access,
		Tokens:   a.Tokens,
		Audit:    a.Activity,
		MCP:      mcp.NewHTTPHandler(a.MCPServer()),
		Logger:   a.logger,
	}), nil
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func userLogins(p config.Portal) []string {
	logins := make([]string, 0, len(p.Users))
	for login := range p.Users {
		logins = append(logins, login)
	}
	sort.Strings(logins)
	return logins
}

func ensureDBDir(cfg config.DBConfig) error {
	if cfg.Driver != sqlstore.DriverSQLite || cfg.DSN == ":memory:" || cfg.DSN == "" {
		return nil
	}
	dir := filepath.Dir(cfg.DSN)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
