package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rpggio/salesportal/internal/auth"
	"github.com/rpggio/salesportal/internal/domain/access"
	"github.com/rpggio/salesportal/internal/domain/activity"
)

// RPCHandler handles portal method dispatch.
type RPCHandler interface {
	Handle(ctx context.Context, sess auth.Session, method string, params json.RawMessage) (any, error)
}

// Accounts authenticates logins and checks company entitlement.
type Accounts interface {
	Authenticate(ctx context.Context, login, password string) (*access.Account, error)
	Account(ctx context.Context, login string) (*access.Account, error)
	SelectCompany(login, companyKey string) (access.Company, error)
}

// Tokens issues and validates session tokens.
type Tokens interface {
	TokenParser
	Issue(s auth.Session) (auth.Token, error)
}

// Auditor records audit log entries without failing the caller.
type Auditor interface {
	Record(ctx context.Context, login, company string, typ activity.ActivityType, summary string, details any)
}

// Options wires the HTTP server. Audit and MCP may be nil.
type Options struct {
	RPC      RPCHandler
	Accounts Accounts
	Tokens   Tokens
	Audit    Auditor
	// MCP serves the streamable MCP transport at /mcp.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	rpc      RPCHandler
	accounts Accounts
	tokens   Tokens
	audit    Auditor
	logger   *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{
		rpc:      opts.RPC,
		accounts: opts.Accounts,
		tokens:   opts.Tokens,
		audit:    opts.Audit,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", srv.handleHealth)
	r.Post("/v1/auth/login", srv.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(opts.Tokens))
		r.Post("/v1/auth/company", srv.handleSelectCompany)
		r.Get("/v1/me", srv.handleMe)
		r.Post("/v1/rpc", srv.handleRPC)
	})

	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// SelectCompanyRequest is the body of POST /v1/auth/company.
type SelectCompanyRequest struct {
	Company string `json:"company"`
}

// SessionResponse describes a signed-in session.
type SessionResponse struct {
	Token     string          `json:"token,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Account   *access.Account `json:"account"`
	Company   string          `json:"company,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "INVALID_REQUEST", "body must be JSON with login and password")
		return
	}
	login := strings.ToLower(strings.TrimSpace(req.Login))

	acct, err := s.accounts.Authenticate(r.Context(), login, req.Password)
	if err != nil {
		s.record(r.Context(), login, "", activity.TypeLoginFailed, "login failed")
		if errors.Is(err, access.ErrInvalidCredentials) {
			writeProblem(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid login or password")
			return
		}
		s.internalError(w, "login", err)
		return
	}

	company, _ := acct.DefaultCompany()
	s.record(r.Context(), acct.Login, company, activity.TypeLogin, "logged in")
	s.writeSession(w, auth.Session{Login: acct.Login, Company: company}, acct)
}

func (s *Server) handleSelectCompany(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	var req SelectCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Company) == "" {
		writeProblem(w, http.StatusBadRequest, "INVALID_REQUEST", "company is required")
		return
	}

	company, err := s.accounts.SelectCompany(sess.Login, strings.TrimSpace(req.Company))
	switch {
	case errors.Is(err, access.ErrUnknownCompany):
		writeProblem(w, http.StatusNotFound, "UNKNOWN_COMPANY", err.Error())
		return
	case errors.Is(err, access.ErrAccessDenied):
		s.record(r.Context(), sess.Login, req.Company, activity.TypeAccessDenied, err.Error())
		writeProblem(w, http.StatusForbidden, "ACCESS_DENIED", err.Error())
		return
	case err != nil:
		s.internalError(w, "select company", err)
		return
	}

	acct, err := s.accounts.Account(r.Context(), sess.Login)
	if err != nil {
		s.internalError(w, "load account", err)
		return
	}
	s.record(r.Context(), sess.Login, company.Key, activity.TypeCompanySelected, "selected "+company.Name)
	s.writeSession(w, auth.Session{Login: sess.Login, Company: company.Key}, acct)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	acct, err := s.accounts.Account(r.Context(), sess.Login)
	if err != nil {
		writeProblem(w, http.StatusForbidden, "ACCESS_DENIED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Account: acct, Company: sess.Company})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		rpcErr, _ := classify(err)
		writeRPCError(w, nil, rpcErr)
		return
	}

	sess, ok := SessionFromContext(r.Context())
	if !ok || sess.Login == "" {
		writeProblem(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing session")
		return
	}

	result, err := s.rpc.Handle(r.Context(), sess, req.Method, req.Params)
	if err != nil {
		rpcErr, unexpected := classify(err)
		if unexpected {
			s.logger.Error("rpc failed", "method", req.Method, "login", sess.Login, "error", err)
		}
		writeRPCError(w, req.ID, rpcErr)
		return
	}

	WriteResult(w, req.ID, result)
}

func (s *Server) writeSession(w http.ResponseWriter, sess auth.Session, acct *access.Account) {
	token, err := s.tokens.Issue(sess)
	if err != nil {
		s.internalError(w, "issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{
		Token:     token.Token,
		ExpiresAt: &token.ExpiresAt,
		Account:   acct,
		Company:   sess.Company,
	})
}

func (s *Server) record(ctx context.Context, login, company string, typ activity.ActivityType, summary string) {
	if s.audit == nil || login == "" {
		return
	}
	s.audit.Record(ctx, login, company, typ, summary, nil)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed", "op", op, "error", err)
	writeProblem(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

// problem is the error body of the REST endpoints.
type problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeProblem(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]problem{"error": {Code: code, Message: message}})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
