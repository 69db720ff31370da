package report

import (
	"github.com/rpggio/salesportal/internal/domain/access"
	"github.com/rpggio/salesportal/internal/domain/filter"
	"github.com/rpggio/salesportal/internal/domain/notification"
)

// View names a portal page.
type View string

const (
	ViewOverdue       View = "overdue"
	ViewCustomers     View = "customers"
	ViewBonuses       View = "bonuses"
	ViewTeam          View = "team"
	ViewNotifications View = "notifications"
)

// WarningKind classifies a non-fatal problem encountered while assembling a view.
type WarningKind string

const (
	WarningConfigurationMissing WarningKind = "configuration_missing"
	WarningAccessDenied         WarningKind = "access_denied"
	WarningDataUnavailable      WarningKind = "data_unavailable"
	WarningWriteFailed          WarningKind = "write_failed"
)

// Warning is surfaced to the viewer next to a (possibly empty) result.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// Request is the immutable context of one render: who is asking, for which
// company, and the viewer's picks.
type Request struct {
	Login          string
	Company        string
	View           View
	Search         string
	Status         string
	ShowAllColumns bool
	Team           string
	Member         string
}

// Row is one rendered row.
type Row struct {
	Cells []string     `json:"cells"`
	Style filter.Style `json:"style,omitempty"`
}

// Total is the summed amount column of a view.
type Total struct {
	Column    string `json:"column"`
	Amount    string `json:"amount"`
	Formatted string `json:"formatted"`
}

// Result is an assembled tabular view.
type Result struct {
	Company       access.Company `json:"company"`
	View          View           `json:"view"`
	Scope         access.Scope   `json:"scope"`
	Columns       []string       `json:"columns"`
	Rows          []Row          `json:"rows"`
	RowCount      int            `json:"row_count"`
	Total         *Total         `json:"total,omitempty"`
	SearchColumn  string         `json:"search_column,omitempty"`
	StatusOptions []string       `json:"status_options,omitempty"`
	Month         string         `json:"month,omitempty"`
	Warnings      []Warning      `json:"warnings,omitempty"`
}

// Member is a selectable team member.
type Member struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// TeamResult is the team dashboard: pickers plus one tab per view.
type TeamResult struct {
	Company   access.Company `json:"company"`
	Scope     access.Scope   `json:"scope"`
	Teams     []string       `json:"teams,omitempty"`
	Members   []Member       `json:"members"`
	Customers *Result        `json:"customers"`
	Overdue   *Result        `json:"overdue"`
	Bonuses   *Result        `json:"bonuses"`
	Warnings  []Warning      `json:"warnings,omitempty"`
}

// FeedItem is one notification card.
type FeedItem struct {
	notification.Item
	ID            string `json:"id"`
	Client        string `json:"client"`
	Portal        string `json:"portal"`
	DaysLeft      string `json:"days_left"`
	ExpiryDate    string `json:"expiry_date"`
	SalesRep      string `json:"sales_rep"`
	NotedBy       string `json:"noted_by"`
	CustomersLink string `json:"customers_link"`
}

// Feed is the notifications view.
type Feed struct {
	Company  access.Company `json:"company"`
	Scope    access.Scope   `json:"scope"`
	Items    []FeedItem     `json:"items"`
	Warnings []Warning      `json:"warnings,omitempty"`
}
