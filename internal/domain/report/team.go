package report

import (
	"context"
	"sort"

	"github.com/rpggio/salesportal/internal/domain/identity"
)

// TeamDashboard assembles the customers, overdue and bonuses tabs for the
// viewer's scope, narrowed by the optional team and member picks.
func (s *Service) TeamDashboard(ctx context.Context, req Request) (*TeamResult, error) {
	company, err := s.gate.SelectCompany(req.Login, req.Company)
	if err != nil {
		return nil, err
	}
	scope, err := s.gate.Authorize(req.Login, req.Company)
	if err != nil {
		return nil, err
	}
	opts, err := s.gate.TeamOptions(req.Login, req.Company, scope, req.Team)
	if err != nil {
		return nil, err
	}
	narrowed, err := s.gate.NarrowScope(req.Login, req.Company, scope, req.Team, req.Member)
	if err != nil {
		return nil, err
	}

	res := &TeamResult{
		Company: company,
		Scope:   narrowed,
		Teams:   opts.Teams,
		Members: s.members(ctx, opts.Members),
	}
	if scope.IsAll() && len(opts.Teams) == 0 {
		res.Warnings = append(res.Warnings, Warning{
			Kind:    WarningConfigurationMissing,
			Message: "no teams configured for " + company.Name,
		})
	}

	res.Customers = s.assemble(ctx, req.Company, ViewCustomers, narrowed, assembleOptions{project: true})
	res.Overdue = s.assemble(ctx, req.Company, ViewOverdue, narrowed, assembleOptions{total: true})
	res.Bonuses = s.assemble(ctx, req.Company, ViewBonuses, narrowed, assembleOptions{})
	for _, tab := range []*Result{res.Customers, res.Overdue, res.Bonuses} {
		tab.Company = company
	}
	s.logger.Debug("team dashboard assembled", "login", req.Login, "company", req.Company,
		"team", req.Team, "member", req.Member, "members", len(res.Members))
	return res, nil
}

// members pairs logins with display names, sorted by name.
func (s *Service) members(ctx context.Context, logins []string) []Member {
	var names identity.Map
	if s.names != nil {
		names = s.names.Names(ctx)
	}
	out := make([]Member, 0, len(logins))
	for _, login := range logins {
		out = append(out, Member{Login: login, Name: identity.DisplayName(names, login)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
