package report_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/salesportal/internal/config"
	"github.com/rpggio/salesportal/internal/domain/access"
	"github.com/rpggio/salesportal/internal/domain/filter"
	"github.com/rpggio/salesportal/internal/domain/identity"
	"github.com/rpggio/salesportal/internal/domain/report"
	"github.com/rpggio/salesportal/internal/domain/sheet"
	"github.com/rpggio/salesportal/internal/repository"
	"github.com/rpggio/salesportal/internal/repository/mocks"
)

type staticNames identity.Map

func (n staticNames) Names(context.Context) identity.Map { return identity.Map(n) }

func testPortal() config.Portal {
	return config.Portal{
		AdminLogins: []string{"admin"},
		Companies:   map[string]string{"acme": "Acme Corp", "globex": ""},
		Users: map[string]config.User{
			"admin": {Company: config.CompanyAssignment{Admin: true}},
			"dana":  {Company: config.CompanyAssignment{Keys: []string{"acme"}}},
			"erik":  {Company: config.CompanyAssignment{Keys: []string{"acme"}}},
			"zed":   {Company: config.CompanyAssignment{Keys: []string{"globex"}}},
		},
		Teams: map[string]map[string][]string{
			"acme": {"dana": {"dana", "erik"}},
		},
		Views: config.Views{
			Overdue: map[string]config.ViewSettings{
				"acme": {Worksheet: "Overdue", SalesCol: "Sales Rep", CustomerCol: "Customer", TotalCol: "Amount",
					FilterCol: "Country", ExcludeVals: []string{"MX"}, SummaryCols: []string{"Customer", "Amount"}},
			},
			Customers: map[string]config.ViewSettings{
				"acme": {Worksheet: "Customers", SalesCol: "Sales Rep", CustomerCol: "Customer", StatusCol: "Status",
					SummaryCols: []string{"Customer", "Status"}},
			},
			Bonuses: map[string]config.BonusSettings{
				"acme": {
					ViewSettings: config.ViewSettings{Worksheet: "Bonuses", SalesCol: "Sales Rep"},
					ShipmentCol:  "Shipment", MonthCol: "Month", ResultCol: "Result",
				},
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

func newService(store *mocks.TabularStore) *report.Service {
	portal := testPortal()
	gate := access.NewService(portal, access.NewResolver(portal), nil, nil)
	names := staticNames{"dana": "Dana Scully", "erik": "Erik Larsen"}
	return report.NewService(gate, store, names, portal.Views, nil)
}

var overdueGrid = sheet.Grid{
	Header: []string{"Customer", "Sales Rep", "Amount", "Country"},
	Rows: [][]string{
		{"Acme Foods", "Dana Scully", "$1,200.50", "US"},
		{"Blue Sky", "Erik Larsen", "300", "MX"},
		{"Corner Shop", "Erik Larsen", "n/a", "CA"},
		{"Delta Ltd", "Mark Twain", "99.50", "US"},
	},
}

func TestPrepare_CompanyFilterKeepsOrder(t *testing.T) {
	grid := sheet.Grid{
		Header: []string{"Country", "Owner"},
		Rows:   [][]string{{"US", "a"}, {"MX", "b"}, {"CA", "c"}},
	}
	table, warnings := report.Prepare(grid, filter.CompanyFilter{Column: "Country", Exclude: []string{"MX"}}, "Owner", access.AllRecords())
	require.Empty(t, warnings)
	require.Equal(t, []string{"US", "CA"}, table.Values("Country"))
}

func TestPrepare_Warnings(t *testing.T) {
	us := "US"
	grid := sheet.Grid{Header: []string{"Owner"}, Rows: [][]string{{"erik"}}}

	table, warnings := report.Prepare(grid, filter.CompanyFilter{Column: "Country", Include: &us}, "Rep", access.SelfOnly("erik"))
	require.Len(t, warnings, 2)
	require.Equal(t, report.WarningConfigurationMissing, warnings[0].Kind)
	require.Zero(t, table.Len())

	_, warnings = report.Prepare(sheet.Grid{}, filter.CompanyFilter{}, "Owner", access.AllRecords())
	require.Equal(t, []report.Warning{{Kind: report.WarningDataUnavailable, Message: "worksheet is empty"}}, warnings)
}

func TestService_OverdueForTeamLead(t *testing.T) {
	ctx := context.Background()
	store := &mocks.TabularStore{}
	store.On("Fetch", ctx, "Overdue").Return(overdueGrid, nil)

	res, err := newService(store).View(ctx, report.Request{Login: "dana", Company: "acme", View: report.ViewOverdue})
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", res.Company.Name)
	require.Equal(t, []string{"Customer", "Amount"}, res.Columns)
	require.Equal(t, 2, res.RowCount)
	require.Equal(t, []string{"Acme Foods", "$1,200.50"}, res.Rows[0].Cells)
	require.Equal(t, "$1,200.50", res.Total.Formatted)
	require.Empty(t, res.Warnings)
}

func TestService_TotalIgnoresSearch(t *testing.T) {
	ctx := context.Background()
	store := &mocks.TabularStore{}
	store.On("Fetch", ctx, "Overdue").Return(overdueGrid, nil)

	res, err := newService(store).View(ctx, report.Request{
		Login: "admin", Company: "acme", View: report.ViewOverdue, Search: "delta", ShowAllColumns: true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.RowCount)
	require.Len(t, res.Columns, 4)
	require.Equal(t, "1300.00", res.Total.Amount)
}

func TestService_CustomersStatus(t *testing.T) {
	ctx := context.Background()
	store := &mocks.TabularStore{}
	store.On("Fetch", ctx, "Customers").Return(sheet.Grid{
		Header: []string{"Customer", "Sales Rep", "Status"},
		Rows: [][]string{
			{"Acme Foods", "Erik Larsen", "Active"},
			{"Blue Sky", "Erik Larsen", "Blacklist"},
			{"Corner Shop", "Dana Scully", "On Hold"},
		},
	}, nil)

	svc := newService(store)
	res, err := svc.View(ctx, report.Request{Login: "erik", Company: "acme", View: report.ViewCustomers})
	require.NoError(t, err)
	require.Equal(t, access.SelfOnly("erik"), res.Scope)
	require.Equal(t, []string{"All", "Active", "Blacklist"}, res.StatusOptions)
	require.Equal(t, 2, res.RowCount)
	require.Equal(t, filter.StyleBlacklisted, res.Rows[1].Style)

	res, err = svc.View(ctx, report.Request{Login: "erik", Company: "acme", View: report.ViewCustomers, Status: "Active"})
	require.NoError(t, err)
	require.Equal(t, 1, res.RowCount)
	require.Equal(t, filter.StyleNone, res.Rows[0].Style)
}

func TestService_BonusesCurrentMonth(t *testing.T) {
	ctx := context.Background()
	store := &mocks.TabularStore{}
	store.On("Fetch", ctx, "Bonuses").Return(sheet.Grid{
		Header: []string{"Shipment", "Sales Rep", "Month", "Result"},
		Rows: [][]string{
			{"SH-1", "Erik", "3", "Paid"},
			{"SH-2", "Erik", "3.0", "ERROR in invoice"},
			{"SH-3", "Erik", "4", "Paid"},
		},
	}, nil)

	svc := newService(store)
	svc.SetClock(func() time.Time { return time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC) })
	res, err := svc.View(ctx, report.Request{Login: "erik", Company: "acme", View: report.ViewBonuses})
	require.NoError(t, err)
	require.Equal(t, "March", res.Month)
	require.Equal(t, "Shipment", res.SearchColumn)
	require.Equal(t, 2, res.RowCount)
	require.Equal(t, filter.StyleNeedsAttention, res.Rows[1].Style)
}

func TestService_ViewDegrades(t *testing.T) {
	ctx := context.Background()

	t.Run("missing configuration", func(t *testing.T) {
		store := &mocks.TabularStore{}
		res, err := newService(store).View(ctx, report.Request{Login: "zed", Company: "globex", View: report.ViewOverdue})
		require.NoError(t, err)
		require.Zero(t, res.RowCount)
		require.Equal(t, report.WarningConfigurationMissing, res.Warnings[0].Kind)
		store.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("store unavailable", func(t *testing.T) {
		store := &mocks.TabularStore{}
		store.On("Fetch", ctx, "Overdue").Return(nil, errors.New("connection refused"))
		res, err := newService(store).View(ctx, report.Request{Login: "dana", Company: "acme", View: report.ViewOverdue})
		require.NoError(t, err)
		require.Equal(t, report.WarningDataUnavailable, res.Warnings[0].Kind)
		require.NotNil(t, res.Rows)
	})

	t.Run("worksheet missing", func(t *testing.T) {
		store := &mocks.TabularStore{}
		store.On("Fetch", ctx, "Customers").Return(nil, repository.ErrWorksheetNotFound)
		res, err := newService(store).View(ctx, report.Request{Login: "dana", Company: "acme", View: report.ViewCustomers})
		require.NoError(t, err)
		require.Equal(t, report.WarningConfigurationMissing, res.Warnings[0].Kind)
	})
}

func TestService_ViewAccessDenied(t *testing.T) {
	ctx := context.Background()
	store := &mocks.TabularStore{}
	svc := newService(store)

	_, err := svc.View(ctx, report.Request{Login: "zed", Company: "acme", View: report.ViewOverdue})
	require.ErrorIs(t, err, access.ErrAccessDenied)

	_, err = svc.View(ctx, report.Request{Login: "admin", Company: "nope", View: report.ViewOverdue})
	require.ErrorIs(t, err, access.ErrUnknownCompany)

	_, err = svc.View(ctx, report.Request{Login: "admin", Company: "acme", View: report.ViewTeam})
	require.ErrorIs(t, err, report.ErrUnsupportedView)
	store.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestService_TeamDashboard(t *testing.T) {
	ctx := context.Background()
	store := &mocks.TabularStore{}
	store.On("Fetch", ctx, "Overdue").Return(overdueGrid, nil)
	store.On("Fetch", ctx, "Customers").Return(sheet.Grid{
		Header: []string{"Customer", "Sales Rep", "Status", "Notes"},
		Rows:   [][]string{{"Acme Foods", "Dana Scully", "Active", "x"}, {"Zeta", "Mark Twain", "Active", "y"}},
	}, nil)
	store.On("Fetch", ctx, "Bonuses").Return(nil, repository.ErrEmptyWorksheet)

	svc := newService(store)
	res, err := svc.TeamDashboard(ctx, report.Request{Login: "dana", Company: "acme"})
	require.NoError(t, err)
	require.Equal(t, []report.Member{{Login: "dana", Name: "Dana Scully"}, {Login: "erik", Name: "Erik Larsen"}}, res.Members)
	require.Equal(t, []string{"Customer", "Status"}, res.Customers.Columns)
	require.Equal(t, 1, res.Customers.RowCount)
	require.Len(t, res.Overdue.Columns, 4)
	require.Equal(t, "$1,200.50", res.Overdue.Total.Formatted)
	require.Equal(t, report.WarningDataUnavailable, res.Bonuses.Warnings[0].Kind)

	res, err = svc.TeamDashboard(ctx, report.Request{Login: "dana", Company: "acme", Member: "erik"})
	require.NoError(t, err)
	require.Equal(t, access.TeamRoster([]string{"erik"}), res.Scope)
	require.Zero(t, res.Customers.RowCount)

	_, err = svc.TeamDashboard(ctx, report.Request{Login: "dana", Company: "acme", Member: "mark"})
	require.ErrorIs(t, err, access.ErrAccessDenied)
}

func TestService_Notifications(t *testing.T) {
	ctx := context.Background()
	store := &mocks.TabularStore{}
	store.On("Fetch", ctx, "Expiring").Return(sheet.Grid{
		Header: []string{"Id", "Client", "Portal", "Days Left", "Expiry", "Sales Rep", "Noted By"},
		Rows: [][]string{
			{"1", "Acme & Co", "p1", "3", "2024-05-03", "Erik Larsen", "erik"},
			{"2", "Blue Sky", "p2", "9", "2024-05-09", "Erik Larsen", ""},
			{"3", "Corner", "p3", "1", "2024-05-01", "Dana Scully", ""},
		},
	}, nil)

	feed, err := newService(store).Notifications(ctx, report.Request{Login: "erik", Company: "acme"})
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	require.Equal(t, "2", feed.Items[0].ID)
	require.False(t, feed.Items[0].Acknowledged)
	require.True(t, feed.Items[1].Acknowledged)
	require.Equal(t, "Customers?search=Acme%20%26%20Co", feed.Items[1].CustomersLink)
}

func TestService_NotificationsMissingColumns(t *testing.T) {
	ctx := context.Background()
	store := &mocks.TabularStore{}
	store.On("Fetch", ctx, "Expiring").Return(sheet.Grid{
		Header: []string{"Id", "Client", "Sales Rep"},
		Rows:   [][]string{{"1", "Acme", "erik"}},
	}, nil)

	feed, err := newService(store).Notifications(ctx, report.Request{Login: "erik", Company: "acme"})
	require.NoError(t, err)
	require.Empty(t, feed.Items)
	require.Equal(t, report.WarningConfigurationMissing, feed.Warnings[0].Kind)
	require.Contains(t, feed.Warnings[0].Message, "Noted By")
}

var expiringGrid = sheet.Grid{
	Header: []string{"Id", "Client", "Portal", "Days Left", "Expiry", "Sales Rep", "Noted By"},
	Rows: [][]string{
		{"7", "Blue Sky", "p2", "9", "2024-05-09", "Erik Larsen", ""},
		{"8", "Corner", "p3", "1", "2024-05-01", "Dana Scully", ""},
	},
}

func TestService_AckRequest(t *testing.T) {
	ctx := context.Background()
	store := &mocks.TabularStore{}
	store.On("Fetch", ctx, "Expiring").Return(expiringGrid, nil)
	svc := newService(store)

	req, err := svc.AckRequest(ctx, report.Request{Login: "erik", Company: "acme"}, " 7 ")
	require.NoError(t, err)
	require.Equal(t, "Expiring", req.Worksheet)
	require.Equal(t, "Noted By", req.AckColumn)
	require.Equal(t, "7", req.ID)

	// dana leads erik's team, so both rows are in her scope.
	_, err = svc.AckRequest(ctx, report.Request{Login: "dana", Company: "acme"}, "7")
	require.NoError(t, err)

	_, err = svc.AckRequest(ctx, report.Request{Login: "zed", Company: "globex"}, "7")
	require.ErrorIs(t, err, report.ErrNotConfigured)
}

func TestService_AckRequestOutsideScope(t *testing.T) {
	ctx := context.Background()
	store := &mocks.TabularStore{}
	store.On("Fetch", ctx, "Expiring").Return(expiringGrid, nil)
	svc := newService(store)

	for _, id := range []string{"8", "99"} {
		_, err := svc.AckRequest(ctx, report.Request{Login: "erik", Company: "acme"}, id)
		require.ErrorIs(t, err, access.ErrAccessDenied, "id %s", id)
	}
}

func TestService_AckRequestWorksheetUnavailable(t *testing.T) {
	ctx := context.Background()
	store := &mocks.TabularStore{}
	store.On("Fetch", ctx, "Expiring").Return(sheet.Grid{}, errors.New("connection reset"))

	_, err := newService(store).AckRequest(ctx, report.Request{Login: "erik", Company: "acme"}, "7")
	require.ErrorIs(t, err, report.ErrDataUnavailable)
}

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "$0.00", report.FormatMoney(decimal.Zero))
	require.Equal(t, "$999.10", report.FormatMoney(decimal.RequireFromString("999.1")))
	require.Equal(t, "$1,234,567.89", report.FormatMoney(decimal.RequireFromString("1234567.891")))
	require.Equal(t, "-$1,000.00", report.FormatMoney(decimal.RequireFromString("-1000")))
}
