package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/salesportal/internal/auth"
)

// registerTools exposes every Handler method as an MCP tool.
func registerTools(server *sdkmcp.Server, h *Handler) {
	addTool(server, "resolve_access",
		"Show the signed-in account, its companies, and the record scope in the selected company.",
		h.ResolveAccess)
	addTool(server, "prepare_view",
		"Render the overdue, customers or bonuses view for a company, filtered to the caller's scope.",
		h.PrepareView)
	addTool(server, "team_dashboard",
		"Render the team dashboard: team and member pickers plus customers, overdue and bonuses tabs.",
		h.TeamDashboard)
	addTool(server, "list_notifications",
		"List expiring-service notifications, unread first, soonest expiry first.",
		h.ListNotifications)
	addTool(server, "acknowledge_notification",
		"Mark a notification as seen by the caller. Idempotent.",
		h.Acknowledge)
	addTool(server, "unread_count",
		"Count the caller's unread notifications.",
		func(ctx context.Context, sess auth.Session, _ UnreadCountParams) (*UnreadCountResponse, error) {
			return h.UnreadCount(ctx, sess)
		})
	addTool(server, "get_recent_activity",
		"List recent audit log entries. Non-administrators only see their own.",
		func(ctx context.Context, sess auth.Session, in GetRecentActivityParams) (*GetRecentActivityResponse, error) {
			entries, err := h.RecentActivity(ctx, sess, in)
			if err != nil {
				return nil, err
			}
			return &GetRecentActivityResponse{Entries: entries}, nil
		})
}

func addTool[In, Out any](server *sdkmcp.Server, name, description string, fn func(context.Context, auth.Session, In) (Out, error)) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
			sess := getSession(ctx)
			if sess.Login == "" {
				return toolError(ErrUnauthenticated), nil, nil
			}
			out, err := fn(ctx, sess, in)
			if err != nil {
				return toolError(err), nil, nil
			}
			data, err := json.Marshal(out)
			if err != nil {
				return nil, nil, fmt.Errorf("encoding %s result: %w", name, err)
			}
			return &sdkmcp.CallToolResult{
				Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
			}, nil, nil
		})
}

func toolError(err error) *sdkmcp.CallToolResult {
	var payload any = map[string]string{"code": "INTERNAL", "message": err.Error()}
	if apiErr := MapError(err); apiErr != nil {
		payload = apiErr
	}
	data, _ := json.Marshal(map[string]any{"error": payload})
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}
