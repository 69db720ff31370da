package transport

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rpggio/salesportal/internal/auth"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

// TokenParser validates a bearer token and returns its session.
type TokenParser interface {
	Parse(raw string) (auth.Session, error)
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" {
				writeProblem(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
				return
			}

			sess, err := tokens.Parse(token)
			if err != nil || sess.Login == "" {
				writeProblem(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
