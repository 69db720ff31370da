package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/salesportal/internal/auth"
)

func connect(t *testing.T, cfg Config) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	server := NewServer(cfg)
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func stdioConfig() Config {
	return Config{
		TransportMode: "stdio",
		StdioLogin:    "erik",
		Services: Services{
			Access: singleCompanyAccess(),
			Notifications: notificationStub{
				unreadFn: func(_ context.Context, login string) (int, error) {
					if login != "erik" {
						return 0, nil
					}
					return 3, nil
				},
			},
		},
	}
}

func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "CallTool %s failed", name)
	require.NotEmpty(t, result.Content)
	return result
}

func textOf(t *testing.T, result *sdkmcp.CallToolResult) json.RawMessage {
	t.Helper()
	for _, content := range result.Content {
		if text, ok := content.(*sdkmcp.TextContent); ok {
			return json.RawMessage(text.Text)
		}
	}
	t.Fatal("no text content")
	return nil
}

func TestServer_ToolsListed(t *testing.T) {
	session := connect(t, stdioConfig())

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
		require.NotEmpty(t, tool.Description)
	}
	for _, name := range []string{"resolve_access", "prepare_view", "team_dashboard", "list_notifications", "acknowledge_notification", "unread_count", "get_recent_activity"} {
		require.True(t, names[name], "missing tool %s", name)
	}
}

func TestServer_StdioActsAsConfiguredLogin(t *testing.T) {
	session := connect(t, stdioConfig())

	result := callTool(t, session, "unread_count", map[string]any{})
	require.False(t, result.IsError)
	var resp UnreadCountResponse
	require.NoError(t, json.Unmarshal(textOf(t, result), &resp))
	require.Equal(t, 3, resp.Count)

	result = callTool(t, session, "resolve_access", map[string]any{})
	require.False(t, result.IsError)
	var access ResolveAccessResponse
	require.NoError(t, json.Unmarshal(textOf(t, result), &access))
	require.Equal(t, "erik", access.Account.Login)
	require.Equal(t, "acme", access.Company)
}

func TestServer_ToolErrorsCarryCodes(t *testing.T) {
	session := connect(t, stdioConfig())

	result := callTool(t, session, "resolve_access", map[string]any{"company": "globex"})
	require.True(t, result.IsError)
	var payload struct {
		Error APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(textOf(t, result), &payload))
	require.Equal(t, "ACCESS_DENIED", payload.Error.Code)
}

type tokenStub map[string]auth.Session

func (s tokenStub) Parse(raw string) (auth.Session, error) {
	if sess, ok := s[raw]; ok {
		return sess, nil
	}
	return auth.Session{}, auth.ErrInvalidToken
}

func TestServer_HTTPModeRequiresBearer(t *testing.T) {
	cfg := stdioConfig()
	cfg.TransportMode = "http"
	cfg.Tokens = tokenStub{}
	session := connect(t, cfg)

	// In-memory transports carry no headers.
	_, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: "unread_count", Arguments: map[string]any{}})
	require.Error(t, err)
}

func TestServer_DocumentationResources(t *testing.T) {
	session := connect(t, stdioConfig())
	ctx := context.Background()

	resources, err := session.ListResources(ctx, nil)
	require.NoError(t, err)
	require.Len(t, resources.Resources, len(docResources))

	read, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "portal://docs/views"})
	require.NoError(t, err)
	require.Equal(t, "text/markdown", read.Contents[0].MIMEType)
	require.Contains(t, read.Contents[0].Text, "# Views")
}
