package mcp

import (
	"time"

	"github.com/rpggio/salesportal/internal/domain/access"
	"github.com/rpggio/salesportal/internal/domain/activity"
	"github.com/rpggio/salesportal/internal/domain/report"
)

// Params types

type ResolveAccessParams struct {
	Company string `json:"company,omitempty" jsonschema:"company key; defaults to the selected or only company"`
}

type PrepareViewParams struct {
	Company        string `json:"company,omitempty" jsonschema:"company key; defaults to the selected or only company"`
	View           string `json:"view" jsonschema:"overdue, customers or bonuses"`
	Search         string `json:"search,omitempty" jsonschema:"case-insensitive substring matched against the customer column"`
	Status         string `json:"status,omitempty" jsonschema:"exact status to keep (customers view)"`
	ShowAllColumns bool   `json:"show_all_columns,omitempty" jsonschema:"return every column instead of the summary columns"`
}

type TeamDashboardParams struct {
	Company string `json:"company,omitempty" jsonschema:"company key; defaults to the selected or only company"`
	Team    string `json:"team,omitempty" jsonschema:"team to narrow to"`
	Member  string `json:"member,omitempty" jsonschema:"member login to narrow to"`
}

type ListNotificationsParams struct {
	Company string `json:"company,omitempty" jsonschema:"company key; defaults to the selected or only company"`
}

type AcknowledgeParams struct {
	Company string `json:"company,omitempty" jsonschema:"company key; defaults to the selected or only company"`
	ID      string `json:"id" jsonschema:"notification id"`
}

type UnreadCountParams struct{}

type GetRecentActivityParams struct {
	Login   string `json:"login,omitempty" jsonschema:"filter by login (administrators only)"`
	Company string `json:"company,omitempty" jsonschema:"filter by company key"`
	Type    string `json:"type,omitempty" jsonschema:"filter by activity type"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum entries, default 50"`
	Offset  int    `json:"offset,omitempty"`
}

// Response types

type ResolveAccessResponse struct {
	Account access.Account `json:"account"`
	Company string         `json:"company,omitempty"`
	Scope   *access.Scope  `json:"scope,omitempty"`
}

type AcknowledgeResponse struct {
	ID           string          `json:"id"`
	Acknowledged bool            `json:"acknowledged"`
	Warning      *report.Warning `json:"warning,omitempty"`
}

type UnreadCountResponse struct {
	Count   int             `json:"count"`
	Warning *report.Warning `json:"warning,omitempty"`
}

type ActivityEntryResponse struct {
	Timestamp time.Time             `json:"timestamp"`
	Type      activity.ActivityType `json:"type"`
	Login     string                `json:"login"`
	Company   string                `json:"company,omitempty"`
	Summary   string                `json:"summary"`
	Details   string                `json:"details,omitempty"`
}

type GetRecentActivityResponse struct {
	Entries []ActivityEntryResponse `json:"entries"`
}
