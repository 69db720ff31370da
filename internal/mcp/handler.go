package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/salesportal/internal/auth"
	"github.com/rpggio/salesportal/internal/domain/access"
	"github.com/rpggio/salesportal/internal/domain/activity"
	"github.com/rpggio/salesportal/internal/domain/notification"
	"github.com/rpggio/salesportal/internal/domain/report"
)

// AccessService defines access operations needed by MCP.
type AccessService interface {
	Account(ctx context.Context, login string) (*access.Account, error)
	Authorize(login, companyKey string) (access.Scope, error)
}

// ReportService defines report assembly operations needed by MCP.
type ReportService interface {
	View(ctx context.Context, req report.Request) (*report.Result, error)
	TeamDashboard(ctx context.Context, req report.Request) (*report.TeamResult, error)
	Notifications(ctx context.Context, req report.Request) (*report.Feed, error)
	AckRequest(ctx context.Context, req report.Request, id string) (notification.AckRequest, error)
}

// NotificationService defines notification operations needed by MCP.
type NotificationService interface {
	Acknowledge(ctx context.Context, req notification.AckRequest) bool
	UnreadCount(ctx context.Context, login string) (int, error)
}

// ActivityService defines audit log operations needed by MCP.
type ActivityService interface {
	Record(ctx context.Context, login, company string, typ activity.ActivityType, summary string, details any)
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Handler dispatches portal commands.
type Handler struct {
	access        AccessService
	reports       ReportService
	notifications NotificationService
	activity      ActivityService
}

// NewHandler creates a new MCP handler. activitySvc may be nil.
func NewHandler(accessSvc AccessService, reports ReportService, notifications NotificationService, activitySvc ActivityService) *Handler {
	return &Handler{
		access:        accessSvc,
		reports:       reports,
		notifications: notifications,
		activity:      activitySvc,
	}
}

// Handle dispatches a named method on behalf of the signed-in session.
func (h *Handler) Handle(ctx context.Context, sess auth.Session, method string, params json.RawMessage) (any, error) {
	if strings.TrimSpace(sess.Login) == "" {
		return nil, ErrUnauthenticated
	}
	switch method {
	case "resolve_access":
		var req ResolveAccessParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.ResolveAccess(ctx, sess, req)
	case "prepare_view":
		var req PrepareViewParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.PrepareView(ctx, sess, req)
	case "team_dashboard":
		var req TeamDashboardParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.TeamDashboard(ctx, sess, req)
	case "list_notifications":
		var req ListNotificationsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.ListNotifications(ctx, sess, req)
	case "acknowledge_notification":
		var req AcknowledgeParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.Acknowledge(ctx, sess, req)
	case "unread_count":
		return h.UnreadCount(ctx, sess)
	case "get_recent_activity":
		var req GetRecentActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		entries, err := h.RecentActivity(ctx, sess, req)
		if err != nil {
			return nil, err
		}
		return &GetRecentActivityResponse{Entries: entries}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

// ResolveAccess returns the caller's account and, when a company is known,
// their scope in it.
func (h *Handler) ResolveAccess(ctx context.Context, sess auth.Session, req ResolveAccessParams) (*ResolveAccessResponse, error) {
	acct, err := h.access.Account(ctx, sess.Login)
	if err != nil {
		return nil, mapError(err)
	}
	resp := &ResolveAccessResponse{Account: *acct}
	company := firstNonEmpty(req.Company, sess.Company)
	if company == "" {
		company, _ = acct.DefaultCompany()
	}
	if company == "" {
		return resp, nil
	}
	scope, err := h.access.Authorize(acct.Login, company)
	if err != nil {
		return nil, h.denied(ctx, sess, company, err)
	}
	resp.Company = company
	resp.Scope = &scope
	return resp, nil
}

// PrepareView assembles one of the tabular views.
func (h *Handler) PrepareView(ctx context.Context, sess auth.Session, req PrepareViewParams) (*report.Result, error) {
	company, err := h.company(ctx, sess, req.Company)
	if err != nil {
		return nil, err
	}
	result, err := h.reports.View(ctx, report.Request{
		Login:          sess.Login,
		Company:        company,
		View:           report.View(req.View),
		Search:         req.Search,
		Status:         req.Status,
		ShowAllColumns: req.ShowAllColumns,
	})
	if err != nil {
		return nil, h.denied(ctx, sess, company, err)
	}
	return result, nil
}

// TeamDashboard assembles the team dashboard.
func (h *Handler) TeamDashboard(ctx context.Context, sess auth.Session, req TeamDashboardParams) (*report.TeamResult, error) {
	company, err := h.company(ctx, sess, req.Company)
	if err != nil {
		return nil, err
	}
	result, err := h.reports.TeamDashboard(ctx, report.Request{
		Login:   sess.Login,
		Company: company,
		View:    report.ViewTeam,
		Team:    req.Team,
		Member:  req.Member,
	})
	if err != nil {
		return nil, h.denied(ctx, sess, company, err)
	}
	return result, nil
}

// ListNotifications returns the notification feed ordered for display.
func (h *Handler) ListNotifications(ctx context.Context, sess auth.Session, req ListNotificationsParams) (*report.Feed, error) {
	company, err := h.company(ctx, sess, req.Company)
	if err != nil {
		return nil, err
	}
	feed, err := h.reports.Notifications(ctx, report.Request{
		Login:   sess.Login,
		Company: company,
		View:    report.ViewNotifications,
	})
	if err != nil {
		return nil, h.denied(ctx, sess, company, err)
	}
	return feed, nil
}

// Acknowledge marks a notification as seen by the caller.
func (h *Handler) Acknowledge(ctx context.Context, sess auth.Session, req AcknowledgeParams) (*AcknowledgeResponse, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, &APIError{Code: "INVALID_PARAMS", Message: "id is required"}
	}
	company, err := h.company(ctx, sess, req.Company)
	if err != nil {
		return nil, err
	}
	ack, err := h.reports.AckRequest(ctx, report.Request{
		Login:   sess.Login,
		Company: company,
		View:    report.ViewNotifications,
	}, req.ID)
	if err != nil {
		return nil, h.denied(ctx, sess, company, err)
	}
	resp := &AcknowledgeResponse{ID: req.ID, Acknowledged: h.notifications.Acknowledge(ctx, ack)}
	if !resp.Acknowledged {
		resp.Warning = &report.Warning{
			Kind:    report.WarningWriteFailed,
			Message: fmt.Sprintf("could not record acknowledgement of %s", req.ID),
		}
	}
	return resp, nil
}

// UnreadCount counts the caller's unread notifications. Failures yield zero
// with a warning.
func (h *Handler) UnreadCount(ctx context.Context, sess auth.Session) (*UnreadCountResponse, error) {
	count, err := h.notifications.UnreadCount(ctx, sess.Login)
	if err != nil {
		return &UnreadCountResponse{Warning: &report.Warning{
			Kind:    report.WarningDataUnavailable,
			Message: err.Error(),
		}}, nil
	}
	return &UnreadCountResponse{Count: count}, nil
}

// RecentActivity lists audit log entries. Non-admins only see their own.
func (h *Handler) RecentActivity(ctx context.Context, sess auth.Session, req GetRecentActivityParams) ([]ActivityEntryResponse, error) {
	if h.activity == nil {
		return []ActivityEntryResponse{}, nil
	}
	acct, err := h.access.Account(ctx, sess.Login)
	if err != nil {
		return nil, mapError(err)
	}
	opts := activity.ListActivityOptions{
		Login:   req.Login,
		Company: req.Company,
		Limit:   req.Limit,
		Offset:  req.Offset,
	}
	if !acct.Admin {
		opts.Login = acct.Login
	}
	if req.Type != "" {
		typ := activity.ActivityType(req.Type)
		opts.ActivityType = &typ
	}
	entries, err := h.activity.GetRecentActivity(ctx, opts)
	if err != nil {
		return nil, mapError(err)
	}
	resp := make([]ActivityEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, ActivityEntryResponse{
			Timestamp: entry.CreatedAt,
			Type:      entry.ActivityType,
			Login:     entry.Login,
			Company:   entry.Company,
			Summary:   entry.Summary,
			Details:   entry.Details,
		})
	}
	return resp, nil
}

// company picks the company for a request: explicit, then the session's,
// then the only company of a single-company account.
func (h *Handler) company(ctx context.Context, sess auth.Session, requested string) (string, error) {
	if company := firstNonEmpty(requested, sess.Company); company != "" {
		return company, nil
	}
	acct, err := h.access.Account(ctx, sess.Login)
	if err != nil {
		return "", mapError(err)
	}
	if key, ok := acct.DefaultCompany(); ok {
		return key, nil
	}
	return "", mapError(ErrCompanyRequired)
}

// denied audits access refusals before mapping err.
func (h *Handler) denied(ctx context.Context, sess auth.Session, company string, err error) error {
	if h.activity != nil && errors.Is(err, access.ErrAccessDenied) {
		h.activity.Record(ctx, sess.Login, company, activity.TypeAccessDenied, err.Error(), nil)
	}
	return mapError(err)
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
