package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/salesportal/internal/mcp"
)

func TestParseRequest(t *testing.T) {
	body := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"prepare_view","params":{"view":"overdue"},"id":1}`)
	req, err := ParseRequest(body)
	require.NoError(t, err)
	require.Equal(t, "prepare_view", req.Method)
	require.JSONEq(t, `{"view":"overdue"}`, string(req.Params))
}

func TestParseRequest_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"truncated", `{"jsonrpc":`, errParse},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, errInvalidRequest},
		{"wrong version", `{"jsonrpc":"1.0","method":"x"}`, errInvalidRequest},
		{"batch", ` [{"jsonrpc":"2.0","method":"x"}]`, errBatch},
		{"positional params", `{"jsonrpc":"2.0","method":"x","params":[1]}`, errInvalidRequest},
		{"oversized", `{"jsonrpc":"2.0","method":"x","params":{"pad":"` + strings.Repeat("a", maxRPCBody) + `"}}`, errInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest(strings.NewReader(tt.body))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseRequest_NullParams(t *testing.T) {
	req, err := ParseRequest(strings.NewReader(`{"jsonrpc":"2.0","method":"unread_count","params":null}`))
	require.NoError(t, err)
	require.Equal(t, "unread_count", req.Method)
}

func TestClassify(t *testing.T) {
	denied := &mcp.APIError{Code: "ACCESS_DENIED", Message: "access denied"}
	tests := []struct {
		name       string
		err        error
		code       int
		unexpected bool
	}{
		{"unknown method", fmt.Errorf("%w: drop", mcp.ErrUnknownMethod), ErrMethodNotFound, false},
		{"invalid params", &mcp.APIError{Code: "INVALID_PARAMS", Message: "bad"}, ErrInvalidParams, false},
		{"application", fmt.Errorf("view: %w", denied), ErrApplication, false},
		{"internal", errors.New("disk on fire"), ErrInternal, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpcErr, unexpected := classify(tt.err)
			require.Equal(t, tt.code, rpcErr.Code)
			require.Equal(t, tt.unexpected, unexpected)
		})
	}

	rpcErr, _ := classify(errors.New("disk on fire"))
	require.Equal(t, "internal error", rpcErr.Message)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 7, ErrInvalidParams, "bad params", nil)

	require.Equal(t, 200, rec.Code)
	var resp struct {
		ID    int   `json:"id"`
		Error Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 7, resp.ID)
	require.Equal(t, ErrInvalidParams, resp.Error.Code)
}
