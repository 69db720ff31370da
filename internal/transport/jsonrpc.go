package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rpggio/salesportal/internal/mcp"
)

// JSON-RPC 2.0 error codes.
const (
	ErrParseCode      = -32700
	ErrInvalidReq     = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603
	// ErrApplication carries a portal error code in Error.Data.
	ErrApplication = -32000
)

// maxRPCBody bounds a single JSON-RPC request body.
const maxRPCBody = 1 << 20

var (
	errParse          = errors.New("parse error")
	errInvalidRequest = errors.New("invalid request")
	errBatch          = errors.New("batch requests are not supported")
)

// Request is a JSON-RPC 2.0 call. Portal methods take a params object.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Response is a JSON-RPC 2.0 reply carrying either Result or Error.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id"`
}

// Error is a JSON-RPC 2.0 error object. Portal failures put the
// mcp.APIError in Data so clients can switch on its code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ParseRequest reads one JSON-RPC call of at most maxRPCBody bytes.
// Parse failures wrap errParse; structurally invalid calls, including
// batches and non-object params, wrap errInvalidRequest.
func ParseRequest(body io.Reader) (Request, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxRPCBody+1))
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", errParse, err)
	}
	if len(raw) > maxRPCBody {
		return Request{}, fmt.Errorf("%w: body exceeds %d bytes", errInvalidRequest, maxRPCBody)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		return Request{}, fmt.Errorf("%w: %w", errInvalidRequest, errBatch)
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %w", errParse, err)
	}
	switch {
	case req.JSONRPC != "2.0":
		return Request{}, fmt.Errorf("%w: jsonrpc must be \"2.0\"", errInvalidRequest)
	case req.Method == "":
		return Request{}, fmt.Errorf("%w: method is required", errInvalidRequest)
	}
	if p := bytes.TrimSpace(req.Params); len(p) > 0 && p[0] != '{' && !bytes.Equal(p, []byte("null")) {
		return Request{}, fmt.Errorf("%w: params must be an object", errInvalidRequest)
	}
	return req, nil
}

// classify maps a parse or dispatch failure to its JSON-RPC error. The
// second result reports whether the failure is unexpected and worth
// logging; its message is then withheld from the client.
func classify(err error) (*Error, bool) {
	var apiErr *mcp.APIError
	switch {
	case errors.Is(err, errParse):
		return &Error{Code: ErrParseCode, Message: err.Error()}, false
	case errors.Is(err, errInvalidRequest):
		return &Error{Code: ErrInvalidReq, Message: err.Error()}, false
	case errors.Is(err, mcp.ErrUnknownMethod):
		return &Error{Code: ErrMethodNotFound, Message: err.Error()}, false
	case errors.As(err, &apiErr) && apiErr.Code == "INVALID_PARAMS":
		return &Error{Code: ErrInvalidParams, Message: apiErr.Message, Data: apiErr}, false
	case errors.As(err, &apiErr):
		return &Error{Code: ErrApplication, Message: apiErr.Message, Data: apiErr}, false
	default:
		return &Error{Code: ErrInternal, Message: "internal error"}, true
	}
}

// WriteResult writes a JSON-RPC success response.
func WriteResult(w http.ResponseWriter, id any, result any) {
	writeJSON(w, http.StatusOK, Response{JSONRPC: "2.0", Result: result, ID: id})
}

// WriteError writes a JSON-RPC error response. Errors are always sent
// with HTTP 200.
func WriteError(w http.ResponseWriter, id any, code int, message string, data any) {
	writeRPCError(w, id, &Error{Code: code, Message: message, Data: data})
}

func writeRPCError(w http.ResponseWriter, id any, rpcErr *Error) {
	writeJSON(w, http.StatusOK, Response{JSONRPC: "2.0", Error: rpcErr, ID: id})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
