// Package testserver runs a fully wired portal over httptest for
// end-to-end tests.
package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/salesportal/internal/app"
	"github.com/rpggio/salesportal/internal/auth"
	"github.com/rpggio/salesportal/internal/config"
	"github.com/rpggio/salesportal/internal/domain/sheet"
)

// Password is the password of every seeded user.
const Password = "s3cret"

type TestServer struct {
	Server *httptest.Server
	App    *app.App
}

// Portal returns the portal configuration the server is seeded with: one
// admin, a team lead (dana) with one member (erik), and a rep in another
// company (zed).
func Portal(t *testing.T) config.Portal {
	t.Helper()
	hash, err := auth.HashPassword(Password, 4)
	require.NoError(t, err)
	user := func(companies ...string) config.User {
		if len(companies) == 1 && companies[0] == config.AdminCompany {
			return config.User{PasswordHash: hash, Company: config.CompanyAssignment{Admin: true}}
		}
		return config.User{PasswordHash: hash, Company: config.CompanyAssignment{Keys: companies}}
	}
	return config.Portal{
		AdminLogins:            []string{"admin"},
		NotificationsWorksheet: "Notifications",
		Companies:              map[string]string{"acme": "Acme Corp", "globex": ""},
		Users: map[string]config.User{
			"admin": user(config.AdminCompany),
			"dana":  user("acme"),
			"erik":  user("acme"),
			"zed":   user("globex"),
		},
		Teams: map[string]map[string][]string{
			"acme": {"dana": {"dana", "erik"}},
		},
		Views: config.Views{
			Overdue: map[string]config.ViewSettings{
				"acme": {Worksheet: "Overdue", SalesCol: "Sales Rep", CustomerCol: "Customer", TotalCol: "Amount",
					SummaryCols: []string{"Customer", "Amount"}},
			},
			Customers: map[string]config.ViewSettings{
				"acme": {Worksheet: "Customers", SalesCol: "Sales Rep", CustomerCol: "Customer", StatusCol: "Status"},
			},
			Notifications: map[string]config.NotificationSettings{
				"acme": {
					ViewSettings: config.ViewSettings{Worksheet: "Expiring", SalesCol: "Sales Rep"},
					ClientCol:    "Client", PortalCol: "Portal", DaysLeftCol: "Days Left",
					ExpiryDateCol: "Expiry", IDCol: "Id", NotedByCol: "Noted By",
				},
			},
		},
	}
}

// Worksheets is the seeded worksheet data.
var Worksheets = map[string]sheet.Grid{
	"Overdue": {
		Header: []string{"Customer", "Sales Rep", "Amount"},
		Rows: [][]string{
			{"Acme Foods", "Dana Scully", "1,200.50"},
			{"Blue Sky", "Erik Larsen", "300"},
			{"Delta Ltd", "Mark Twain", "99.50"},
		},
	},
	"Customers": {
		Header: []string{"Customer", "Sales Rep", "Status"},
		Rows: [][]string{
			{"Acme Foods", "Dana Scully", "Active"},
			{"Blue Sky", "Erik Larsen", "Lapsed"},
		},
	},
	"Expiring": {
		Header: []string{"Id", "Client", "Portal", "Days Left", "Expiry", "Sales Rep", "Noted By"},
		Rows: [][]string{
			{"N-1", "Blue Sky", "Web", "5", "2030-01-10", "Erik Larsen", ""},
			{"N-2", "Acme Foods", "Shop", "2", "2030-01-07", "Dana Scully", ""},
			{"N-3", "Corner Shop", "Web", "9", "2030-01-14", "erik", "erik"},
		},
	},
	"Notifications": {
		Header: []string{"Username", "Message", "Status"},
		Rows: [][]string{
			{"erik", "Quota updated", "unread"},
			{"erik@other.example", "Not for erik", "unread"},
			{"erik", "Welcome", "read"},
			{"dana", "Team report ready", "Unread"},
		},
	},
}

// New starts a wired portal on an in-memory SQLite database.
func New(t *testing.T) *TestServer {
	t.Helper()
	ctx := context.Background()

	cfg := config.Default()
	cfg.DB = config.DBConfig{Driver: "sqlite", DSN: ":memory:"}
	cfg.Auth = config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}
	cfg.Portal = Portal(t)
	require.NoError(t, cfg.Validate())

	portal, err := app.New(ctx, cfg, nil)
	require.NoError(t, err)
	for name, grid := range Worksheets {
		require.NoError(t, portal.Worksheets.ImportGrid(ctx, name, grid, false))
	}

	router, err := portal.Router()
	require.NoError(t, err)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		_ = portal.Close()
	})

	return &TestServer{Server: server, App: portal}
}

// Login signs in and returns the session token.
func (ts *TestServer) Login(t *testing.T, login string) string {
	t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	status := ts.Do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"login": login, "password": Password}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// Call invokes a JSON-RPC method and decodes the result into out. It
// returns the JSON-RPC error, if any.
func (ts *TestServer) Call(t *testing.T, token, method string, params, out any) map[string]any {
	t.Helper()
	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  map[string]any  `json:"error"`
	}
	status := ts.Do(t, http.MethodPost, "/v1/rpc", token, map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}, &resp)
	require.Equal(t, http.StatusOK, status)
	if resp.Error == nil && out != nil {
		require.NoError(t, json.Unmarshal(resp.Result, out))
	}
	return resp.Error
}

// Do sends a JSON request and decodes the JSON response into out.
func (ts *TestServer) Do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.Server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}
