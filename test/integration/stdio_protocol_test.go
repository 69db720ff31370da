package integration_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

const portalConfig = `
db:
  driver: sqlite
  dsn: %DB%
transport:
  mode: stdio
  stdio_login: erik
portal:
  companies:
    acme: Acme Corp
  users:
    erik:
      password: s3cret
      company: acme
  views:
    overdue:
      acme:
        worksheet: Overdue
        sales_col: Sales Rep
        customer_col: Customer
        total_col: Amount
        summary_cols: [Customer, Amount]
`

const overdueCSV = "Customer,Sales Rep,Amount\nBlue Sky,Erik Larsen,300\nDelta Ltd,Mark Twain,99.50\n"

func portalBinary(t *testing.T) string {
	t.Helper()
	for _, path := range []string{"./bin/portal", "../../bin/portal"} {
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			require.NoError(t, err)
			return abs
		}
	}
	t.Skip("Server binary not found. Run 'go build -o bin/portal ./cmd/portal' first.")
	return ""
}

// seedPortal writes a config file and imports the overdue worksheet through
// the CLI, returning the config path.
func seedPortal(t *testing.T, ctx context.Context, binary string) string {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "portal.yaml")
	cfg := []byte(strings.ReplaceAll(portalConfig, "%DB%", filepath.Join(dir, "portal.db")))
	require.NoError(t, os.WriteFile(configPath, cfg, 0o600))

	csvPath := filepath.Join(dir, "overdue.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(overdueCSV), 0o600))

	out, err := exec.CommandContext(ctx, binary, "import", "Overdue", csvPath,
		"--config", configPath, "--env-file", "").CombinedOutput()
	require.NoError(t, err, string(out))
	require.Contains(t, string(out), `imported 2 rows into "Overdue"`)
	return configPath
}

// TestStdioProtocolCompliance drives the portal binary over stdio with the
// MCP SDK client.
func TestStdioProtocolCompliance(t *testing.T) {
	binary := portalBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	configPath := seedPortal(t, ctx, binary)

	cmd := exec.CommandContext(ctx, binary, "serve", "--config", configPath, "--env-file", "")
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, nil)
	require.NoError(t, err, "Failed to connect to server")
	defer session.Close()

	t.Run("ServerInfo", func(t *testing.T) {
		initResult := session.InitializeResult()
		require.NotNil(t, initResult)
		require.NotNil(t, initResult.ServerInfo)
		require.Equal(t, "salesportal", initResult.ServerInfo.Name)
	})

	t.Run("ListTools", func(t *testing.T) {
		tools, err := session.ListTools(ctx, nil)
		require.NoError(t, err, "tools/list failed")

		toolNames := make(map[string]bool)
		for _, tool := range tools.Tools {
			toolNames[tool.Name] = true
		}
		for _, name := range []string{"resolve_access", "prepare_view", "list_notifications", "acknowledge_notification", "unread_count"} {
			require.True(t, toolNames[name], "Missing expected tool: %s", name)
		}
	})

	t.Run("PrepareView", func(t *testing.T) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "prepare_view",
			Arguments: map[string]any{"view": "overdue"},
		})
		require.NoError(t, err, "tools/call prepare_view failed")
		require.False(t, result.IsError, "prepare_view returned error: %v", result)
		require.Len(t, result.Content, 1)

		text, ok := result.Content[0].(*sdkmcp.TextContent)
		require.True(t, ok)
		var view struct {
			RowCount int `json:"row_count"`
			Total    struct {
				Amount string `json:"amount"`
			} `json:"total"`
		}
		require.NoError(t, json.Unmarshal([]byte(text.Text), &view))
		require.Equal(t, 1, view.RowCount)
		require.Equal(t, "300.00", view.Total.Amount)
	})

	t.Run("UnconfiguredNotificationsDegrade", func(t *testing.T) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "unread_count"})
		require.NoError(t, err)
		require.False(t, result.IsError)
		text := result.Content[0].(*sdkmcp.TextContent).Text
		require.Contains(t, text, `"count":0`)
		require.Contains(t, text, "data_unavailable")
	})
}

// TestStdioProtocol_StdoutHygiene verifies that nothing but JSON-RPC
// messages reach stdout.
func TestStdioProtocol_StdoutHygiene(t *testing.T) {
	binary := portalBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	configPath := seedPortal(t, ctx, binary)

	cmd := exec.CommandContext(ctx, binary, "serve", "--config", configPath, "--env-file", "")
	cmd.Env = append(os.Environ(), "PORTAL_LOG_LEVEL=debug")
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	defer func() {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	initReq := `{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}},"id":1}`
	_, err = stdin.Write([]byte(initReq + "\n"))
	require.NoError(t, err)

	lines := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(stdout).ReadString('\n')
		lines <- line
	}()

	select {
	case line := <-lines:
		require.NotEmpty(t, line, "Server produced no stdout output")
		require.Equal(t, byte('{'), line[0], "stdout should start with a JSON message, got: %q", line)
		var msg map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &msg))
		require.Equal(t, "2.0", msg["jsonrpc"])
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for server response")
	}
}
