package transport

import (
	"context"

	"github.com/rpggio/salesportal/internal/auth"
)

type sessionKey struct{}

// SessionFromContext returns the signed-in session from context, if present.
func SessionFromContext(ctx context.Context) (auth.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(auth.Session)
	return sess, ok
}

// WithSession stores sess in context.
func WithSession(ctx context.Context, sess auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}
