package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/salesportal/internal/config"
	"github.com/rpggio/salesportal/internal/domain/access"
	"github.com/rpggio/salesportal/internal/domain/filter"
	"github.com/rpggio/salesportal/internal/domain/sheet"
	"github.com/rpggio/salesportal/internal/repository"
)

// Service assembles the portal views. Only access errors are returned;
// configuration and data problems degrade to warnings.
type Service struct {
	gate   Gatekeeper
	store  Fetcher
	names  Names
	views  config.Views
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new report service. names may be nil.
func NewService(gate Gatekeeper, store Fetcher, names Names, views config.Views, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		gate:   gate,
		store:  store,
		names:  names,
		views:  views,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the clock used for the bonuses month filter.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Prepare normalizes grid, applies the company filter, then the scope
// filter on ownerColumn. Problems become warnings; the table returned is
// always safe to render.
func Prepare(grid sheet.Grid, company filter.CompanyFilter, ownerColumn string, scope access.Scope) (sheet.Table, []Warning) {
	var warnings []Warning
	t := sheet.FromGrid(grid)
	if len(t.Columns) == 0 {
		return t, append(warnings, Warning{Kind: WarningDataUnavailable, Message: "worksheet is empty"})
	}

	t, err := filter.ApplyCompany(t, company)
	if err != nil {
		warnings = append(warnings, Warning{Kind: WarningConfigurationMissing, Message: err.Error()})
	}
	t, err = filter.ApplyScope(t, ownerColumn, scope)
	if err != nil {
		warnings = append(warnings, Warning{Kind: WarningConfigurationMissing, Message: err.Error()})
	}
	return t, warnings
}

func companyFilter(v config.ViewSettings) filter.CompanyFilter {
	return filter.CompanyFilter{Column: v.FilterCol, Include: v.FilterVal, Exclude: v.ExcludeVals}
}

// View assembles the overdue, customers or bonuses view for req.
func (s *Service) View(ctx context.Context, req Request) (*Result, error) {
	company, err := s.gate.SelectCompany(req.Login, req.Company)
	if err != nil {
		return nil, err
	}
	scope, err := s.gate.Authorize(req.Login, req.Company)
	if err != nil {
		return nil, err
	}

	var opts assembleOptions
	switch req.View {
	case ViewOverdue:
		opts = assembleOptions{total: true, search: req.Search, project: !req.ShowAllColumns}
	case ViewCustomers:
		opts = assembleOptions{total: true, search: req.Search, status: req.Status, statusSelect: true, project: !req.ShowAllColumns}
	case ViewBonuses:
		opts = assembleOptions{total: true, search: req.Search, currentMonth: true, project: !req.ShowAllColumns}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedView, req.View)
	}
	res := s.assemble(ctx, req.Company, req.View, scope, opts)
	res.Company = company
	s.logger.Debug("view assembled", "login", req.Login, "company", req.Company, "view", req.View,
		"rows", res.RowCount, "warnings", len(res.Warnings))
	return res, nil
}

type assembleOptions struct {
	total        bool
	search       string
	status       string
	statusSelect bool
	currentMonth bool
	project      bool
}

// settings returns the shared settings of view plus the bonus extras.
func (s *Service) settings(companyKey string, view View) (config.ViewSettings, config.BonusSettings, bool) {
	switch view {
	case ViewOverdue:
		v, ok := s.views.Overdue[companyKey]
		return v, config.BonusSettings{}, ok
	case ViewCustomers:
		v, ok := s.views.Customers[companyKey]
		return v, config.BonusSettings{}, ok
	case ViewBonuses:
		b, ok := s.views.Bonuses[companyKey]
		return b.ViewSettings, b, ok
	}
	return config.ViewSettings{}, config.BonusSettings{}, false
}

func (s *Service) load(ctx context.Context, worksheet string) (sheet.Grid, *Warning) {
	grid, err := s.store.Fetch(ctx, worksheet)
	switch {
	case err == nil:
		return grid, nil
	case errors.Is(err, repository.ErrWorksheetNotFound):
		return sheet.Grid{}, &Warning{Kind: WarningConfigurationMissing, Message: fmt.Sprintf("worksheet %q not found", worksheet)}
	case errors.Is(err, repository.ErrEmptyWorksheet):
		return sheet.Grid{}, &Warning{Kind: WarningDataUnavailable, Message: fmt.Sprintf("worksheet %q is empty", worksheet)}
	default:
		s.logger.Warn("failed to load worksheet", "worksheet", worksheet, "error", err)
		return sheet.Grid{}, &Warning{Kind: WarningDataUnavailable, Message: fmt.Sprintf("worksheet %q is unavailable", worksheet)}
	}
}

func (s *Service) assemble(ctx context.Context, companyKey string, view View, scope access.Scope, opts assembleOptions) *Result {
	res := &Result{View: view, Scope: scope, Rows: []Row{}}

	v, bonus, ok := s.settings(companyKey, view)
	if !ok || v.Worksheet == "" {
		res.Warnings = append(res.Warnings, Warning{
			Kind:    WarningConfigurationMissing,
			Message: fmt.Sprintf("no %s configuration for company %q", view, companyKey),
		})
		return res
	}

	grid, warn := s.load(ctx, v.Worksheet)
	if warn != nil {
		res.Warnings = append(res.Warnings, *warn)
		return res
	}
	t, warnings := Prepare(grid, companyFilter(v), v.SalesCol, scope)
	res.Warnings = append(res.Warnings, warnings...)

	if opts.total && v.TotalCol != "" {
		if t.HasColumn(v.TotalCol) {
			sum := SumColumn(t, v.TotalCol)
			res.Total = &Total{Column: v.TotalCol, Amount: sum.StringFixed(2), Formatted: FormatMoney(sum)}
		} else if len(t.Columns) > 0 {
			res.Warnings = append(res.Warnings, Warning{
				Kind:    WarningConfigurationMissing,
				Message: fmt.Sprintf("total column %q not found", v.TotalCol),
			})
		}
	}

	res.SearchColumn = v.CustomerCol
	if view == ViewBonuses {
		res.SearchColumn = bonus.ShipmentCol
	}
	if res.SearchColumn != "" {
		t = filter.Search(t, res.SearchColumn, opts.search)
	}

	if opts.statusSelect && v.StatusCol != "" {
		res.StatusOptions = filter.StatusOptions(t, v.StatusCol)
		t = filter.ByStatus(t, v.StatusCol, opts.status)
	}
	if opts.currentMonth && bonus.MonthCol != "" {
		month := s.now().Month()
		res.Month = month.String()
		t = filter.ByMonth(t, bonus.MonthCol, int(month))
	}

	styles := make([]filter.Style, len(t.Rows))
	for i, row := range t.Rows {
		switch {
		case view == ViewBonuses && bonus.ResultCol != "":
			styles[i] = filter.AttentionStyle(row[bonus.ResultCol])
		case v.StatusCol != "":
			styles[i] = filter.StatusStyle(row[v.StatusCol])
		}
	}

	if opts.project {
		t = t.Project(v.SummaryCols)
	}
	res.Columns = t.Columns
	for i, cells := range t.Matrix() {
		res.Rows = append(res.Rows, Row{Cells: cells, Style: styles[i]})
	}
	res.RowCount = len(res.Rows)
	return res
}
