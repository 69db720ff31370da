package access

import (
	"sort"

	"github.com/rpggio/salesportal/internal/domain/identity"
)

// ScopeKind names the breadth of records a viewer may see.
type ScopeKind string

const (
	KindAllRecords ScopeKind = "all_records"
	KindTeamRoster ScopeKind = "team_roster"
	KindSelfOnly   ScopeKind = "self_only"
)

// Scope is the set of owners whose records a viewer may see in one company.
type Scope struct {
	Kind   ScopeKind `json:"kind"`
	Logins []string  `json:"logins,omitempty"`
}

// AllRecords is the unrestricted scope.
func AllRecords() Scope {
	return Scope{Kind: KindAllRecords}
}

// TeamRoster restricts to the given logins. Logins are lower-cased,
// de-duplicated and sorted.
func TeamRoster(logins []string) Scope {
	return Scope{Kind: KindTeamRoster, Logins: normalizeLogins(logins)}
}

// SelfOnly restricts to the viewer's own records.
func SelfOnly(login string) Scope {
	return Scope{Kind: KindSelfOnly, Logins: normalizeLogins([]string{login})}
}

// IsAll reports whether the scope is unrestricted.
func (s Scope) IsAll() bool {
	return s.Kind == KindAllRecords
}

// Fragments returns the distinct non-empty login fragments of the scope.
func (s Scope) Fragments() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(s.Logins))
	for _, login := range s.Logins {
		f := identity.LoginFragment(login)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Includes reports whether login is inside the scope.
func (s Scope) Includes(login string) bool {
	if s.IsAll() {
		return true
	}
	login = identity.BareLogin(login)
	for _, l := range s.Logins {
		if l == login {
			return true
		}
	}
	return false
}

// Company is a selectable company.
type Company struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Account is an authenticated portal user.
type Account struct {
	Login       string    `json:"login"`
	DisplayName string    `json:"display_name"`
	Admin       bool      `json:"admin"`
	Companies   []Company `json:"companies"`
}

// DefaultCompany returns the company to select without asking: the only
// company of a single-company user.
func (a Account) DefaultCompany() (string, bool) {
	if a.Admin || len(a.Companies) != 1 {
		return "", false
	}
	return a.Companies[0].Key, true
}

// TeamOptions lists the team and member pickers offered to a viewer.
// Teams is empty for viewers who cannot choose a team.
type TeamOptions struct {
	Teams   []string `json:"teams,omitempty"`
	Members []string `json:"members"`
}

func normalizeLogins(logins []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(logins))
	for _, login := range logins {
		l := identity.BareLogin(login)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
