package report

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rpggio/salesportal/internal/config"
	"github.com/rpggio/salesportal/internal/domain/access"
	"github.com/rpggio/salesportal/internal/domain/notification"
	"github.com/rpggio/salesportal/internal/domain/sheet"
)

// NotificationSettings returns the notifications configuration of companyKey.
func (s *Service) NotificationSettings(companyKey string) (config.NotificationSettings, bool) {
	n, ok := s.views.Notifications[companyKey]
	return n, ok && n.Worksheet != ""
}

// Notifications assembles the expiring-notifications feed: rows in the
// viewer's scope, unacknowledged-by-viewer first, then by expiry.
func (s *Service) Notifications(ctx context.Context, req Request) (*Feed, error) {
	company, err := s.gate.SelectCompany(req.Login, req.Company)
	if err != nil {
		return nil, err
	}
	scope, err := s.gate.Authorize(req.Login, req.Company)
	if err != nil {
		return nil, err
	}
	feed := &Feed{Company: company, Scope: scope, Items: []FeedItem{}}

	n, ok := s.NotificationSettings(req.Company)
	if !ok {
		feed.Warnings = append(feed.Warnings, Warning{
			Kind:    WarningConfigurationMissing,
			Message: "no notifications configuration for " + company.Name,
		})
		return feed, nil
	}

	grid, warn := s.load(ctx, n.Worksheet)
	if warn != nil {
		feed.Warnings = append(feed.Warnings, *warn)
		return feed, nil
	}
	t := sheet.FromGrid(grid)
	if missing := missingColumns(t, n.RequiredColumns()); len(missing) > 0 {
		feed.Warnings = append(feed.Warnings, Warning{
			Kind:    WarningConfigurationMissing,
			Message: fmt.Sprintf("worksheet %q is missing columns: %s", n.Worksheet, strings.Join(missing, ", ")),
		})
		return feed, nil
	}

	t, warnings := Prepare(grid, companyFilter(n.ViewSettings), n.SalesCol, scope)
	feed.Warnings = append(feed.Warnings, warnings...)

	for _, item := range notification.SortForDisplay(t, n.NotedByCol, n.ExpiryDateCol, req.Login) {
		client := item.Record[n.ClientCol]
		feed.Items = append(feed.Items, FeedItem{
			Item:          item,
			ID:            strings.TrimSpace(item.Record[n.IDCol]),
			Client:        client,
			Portal:        item.Record[n.PortalCol],
			DaysLeft:      item.Record[n.DaysLeftCol],
			ExpiryDate:    item.Record[n.ExpiryDateCol],
			SalesRep:      item.Record[n.SalesCol],
			NotedBy:       item.Record[n.NotedByCol],
			CustomersLink: CustomersLink(client),
		})
	}
	return feed, nil
}

// CustomersLink deep-links to the customers view searching for client.
func CustomersLink(client string) string {
	return "Customers?search=" + strings.ReplaceAll(url.QueryEscape(client), "+", "%20")
}

// AckRequest builds the acknowledgement request for a feed item id. The id
// must name a row the caller can see in the notifications feed; anything
// else, including ids that do not exist, is ErrAccessDenied.
func (s *Service) AckRequest(ctx context.Context, req Request, id string) (notification.AckRequest, error) {
	scope, err := s.gate.Authorize(req.Login, req.Company)
	if err != nil {
		return notification.AckRequest{}, err
	}
	n, ok := s.NotificationSettings(req.Company)
	if !ok {
		return notification.AckRequest{}, fmt.Errorf("%w: notifications for %q", ErrNotConfigured, req.Company)
	}

	grid, warn := s.load(ctx, n.Worksheet)
	if warn != nil {
		return notification.AckRequest{}, fmt.Errorf("%w: %s", ErrDataUnavailable, warn.Message)
	}
	if missing := missingColumns(sheet.FromGrid(grid), n.RequiredColumns()); len(missing) > 0 {
		return notification.AckRequest{}, fmt.Errorf("%w: worksheet %q is missing columns: %s",
			ErrNotConfigured, n.Worksheet, strings.Join(missing, ", "))
	}

	t, _ := Prepare(grid, companyFilter(n.ViewSettings), n.SalesCol, scope)
	id = strings.TrimSpace(id)
	visible := false
	for _, row := range t.Rows {
		if strings.TrimSpace(row[n.IDCol]) == id {
			visible = true
			break
		}
	}
	if !visible {
		return notification.AckRequest{}, fmt.Errorf("%w: notification %q", access.ErrAccessDenied, id)
	}

	return notification.AckRequest{
		Company:   req.Company,
		Worksheet: n.Worksheet,
		IDColumn:  n.IDCol,
		AckColumn: n.NotedByCol,
		ID:        id,
		Login:     req.Login,
	}, nil
}

func missingColumns(t sheet.Table, required []string) []string {
	var missing []string
	for _, col := range required {
		if col == "" || !t.HasColumn(col) {
			if col == "" {
				col = "(unset)"
			}
			missing = append(missing, col)
		}
	}
	return missing
}
