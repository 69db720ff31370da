package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/salesportal/internal/auth"
)

type contextKey int

const (
	sessionKey contextKey = iota
)

// getSession extracts the signed-in portal session from context.
func getSession(ctx context.Context) auth.Session {
	v, _ := ctx.Value(sessionKey).(auth.Session)
	return v
}

// WithSession stores a portal session in context.
func WithSession(ctx context.Context, sess auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// TokenParser validates a bearer token and returns its session.
type TokenParser interface {
	Parse(raw string) (auth.Session, error)
}

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(tokens TokenParser) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			header := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}

			sess, err := tokens.Parse(token)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}

			return next(WithSession(ctx, sess), method, req)
		}
	}
}

// fixedLoginMiddleware acts as a configured login. Used for stdio, where
// the process owner is the user.
func fixedLoginMiddleware(login string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			return next(WithSession(ctx, auth.Session{Login: login}), method, req)
		}
	}
}
