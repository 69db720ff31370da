package access

import (
	"sort"
	"strings"

	"github.com/rpggio/salesportal/internal/config"
	"github.com/rpggio/salesportal/internal/domain/identity"
)

// Resolver derives a viewer's scope from the team configuration.
// Every lookup is made under the requested company only.
type Resolver struct {
	portal config.Portal
}

// NewResolver creates a scope resolver over the portal configuration.
func NewResolver(portal config.Portal) *Resolver {
	return &Resolver{portal: portal}
}

// Resolve returns the scope of login within companyKey:
// administrators see everything, directors see the union of their teams,
// team leads see their team, and everyone else sees their own records.
func (r *Resolver) Resolve(login, companyKey string) Scope {
	login = identity.BareLogin(login)
	if r.portal.IsAdmin(login) {
		return AllRecords()
	}
	if teams, ok := r.directorTeams(login, companyKey); ok {
		var members []string
		for _, team := range teams {
			members = append(members, r.TeamMembers(companyKey, team)...)
		}
		return TeamRoster(members)
	}
	if team, ok := r.findTeam(companyKey, login); ok {
		return TeamRoster(r.portal.Teams[companyKey][team])
	}
	return SelfOnly(login)
}

// Teams returns the sorted team names of companyKey.
func (r *Resolver) Teams(companyKey string) []string {
	teams := make([]string, 0, len(r.portal.Teams[companyKey]))
	for team := range r.portal.Teams[companyKey] {
		teams = append(teams, team)
	}
	sort.Strings(teams)
	return teams
}

// TeamMembers returns the members of a team of companyKey, or nil.
func (r *Resolver) TeamMembers(companyKey, team string) []string {
	return normalizeLogins(r.portal.Teams[companyKey][team])
}

// VisibleTeams returns the teams whose members login may pick from in
// companyKey: every team for administrators, their own teams for directors.
func (r *Resolver) VisibleTeams(login, companyKey string) []string {
	login = identity.BareLogin(login)
	if r.portal.IsAdmin(login) {
		return r.Teams(companyKey)
	}
	if teams, ok := r.directorTeams(login, companyKey); ok {
		out := append([]string(nil), teams...)
		sort.Strings(out)
		return out
	}
	return nil
}

// directorTeams and findTeam walk keys in sorted order so a lookup is
// stable even if two keys normalize to the same login.
func (r *Resolver) directorTeams(login, companyKey string) ([]string, bool) {
	directors := r.portal.Directors[companyKey]
	for _, director := range sortedKeys(directors) {
		if identity.BareLogin(director) == login {
			return directors[director], true
		}
	}
	return nil, false
}

func (r *Resolver) findTeam(companyKey, login string) (string, bool) {
	for _, team := range r.Teams(companyKey) {
		if strings.ToLower(strings.TrimSpace(team)) == login {
			return team, true
		}
	}
	return "", false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
