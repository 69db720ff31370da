package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// AdminCompany is the company assignment that grants every company.
const AdminCompany = "admin"

// Portal is the access and view configuration of the reporting portal.
type Portal struct {
	AdminLogins            []string `yaml:"admin_logins"`
	NotificationsWorksheet string   `yaml:"notifications_worksheet"`
	// Companies maps company key to display name. An empty name falls back
	// to a title-cased key.
	Companies map[string]string `yaml:"companies"`
	Users     map[string]User   `yaml:"users"`
	// Teams maps company key to team name to member logins. A team named
	// after a login makes that login its lead.
	Teams map[string]map[string][]string `yaml:"teams"`
	// Directors maps company key to director login to the teams they oversee.
	Directors map[string]map[string]StringList `yaml:"directors"`
	Views     Views                            `yaml:"views"`
}

// User is a portal account.
type User struct {
	PasswordHash string `yaml:"password_hash"`
	// Password is a legacy plaintext credential, accepted when no hash is set.
	Password string            `yaml:"password"`
	Company  CompanyAssignment `yaml:"company"`
}

// CompanyAssignment is either the admin sentinel or a list of company keys.
type CompanyAssignment struct {
	Admin bool
	Keys  []string
}

// UnmarshalYAML accepts "admin", a single key, or a sequence of keys.
func (a *CompanyAssignment) UnmarshalYAML(node *yaml.Node) error {
	var list StringList
	if err := node.Decode(&list); err != nil {
		return fmt.Errorf("company assignment: %w", err)
	}
	if len(list) == 1 && list[0] == AdminCompany {
		*a = CompanyAssignment{Admin: true}
		return nil
	}
	*a = CompanyAssignment{Keys: list}
	return nil
}

// MarshalYAML mirrors UnmarshalYAML.
func (a CompanyAssignment) MarshalYAML() (any, error) {
	if a.Admin {
		return AdminCompany, nil
	}
	if len(a.Keys) == 1 {
		return a.Keys[0], nil
	}
	return a.Keys, nil
}

// StringList decodes from either a scalar or a sequence of scalars.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}

// ViewSettings is the per-company configuration shared by every view.
type ViewSettings struct {
	Worksheet   string   `yaml:"worksheet"`
	SalesCol    string   `yaml:"sales_col"`
	CustomerCol string   `yaml:"customer_col"`
	TotalCol    string   `yaml:"total_col"`
	StatusCol   string   `yaml:"status_col"`
	FilterCol   string   `yaml:"filter_col"`
	// FilterVal is nil when unset; an explicit "" selects blank cells.
	FilterVal   *string  `yaml:"filter_val"`
	ExcludeVals []string `yaml:"exclude_vals"`
	SummaryCols []string `yaml:"summary_cols"`
}

// BonusSettings extends ViewSettings for the bonuses view.
type BonusSettings struct {
	ViewSettings `yaml:",inline"`
	ShipmentCol  string `yaml:"shipment_col"`
	MonthCol     string `yaml:"month_col"`
	ResultCol    string `yaml:"result_col"`
}

// NotificationSettings extends ViewSettings for the notifications view.
type NotificationSettings struct {
	ViewSettings  `yaml:",inline"`
	ClientCol     string `yaml:"client_col"`
	PortalCol     string `yaml:"portal_col"`
	DaysLeftCol   string `yaml:"days_left_col"`
	ExpiryDateCol string `yaml:"expiry_date_col"`
	IDCol         string `yaml:"id_col"`
	NotedByCol    string `yaml:"noted_by_col"`
}

// RequiredColumns lists the columns the notifications view cannot render without.
func (n NotificationSettings) RequiredColumns() []string {
	return []string{n.SalesCol, n.ClientCol, n.PortalCol, n.DaysLeftCol, n.ExpiryDateCol, n.IDCol, n.NotedByCol}
}

// Views holds the per-company settings of each view, keyed by company.
type Views struct {
	Overdue       map[string]ViewSettings         `yaml:"overdue"`
	Customers     map[string]ViewSettings         `yaml:"customers"`
	Bonuses       map[string]BonusSettings        `yaml:"bonuses"`
	Notifications map[string]NotificationSettings `yaml:"notifications"`
}

// IsAdmin reports whether login is an administrative login.
func (p Portal) IsAdmin(login string) bool {
	login = strings.ToLower(strings.TrimSpace(login))
	for _, admin := range p.AdminLogins {
		if admin == login {
			return true
		}
	}
	return false
}

// CompanyKeys returns every configured company key, sorted.
func (p Portal) CompanyKeys() []string {
	keys := make([]string, 0, len(p.Companies))
	for key := range p.Companies {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// CompanyName returns the display name of a company.
func (p Portal) CompanyName(key string) string {
	if name := strings.TrimSpace(p.Companies[key]); name != "" {
		return name
	}
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

func (p *Portal) normalize() {
	for i, admin := range p.AdminLogins {
		p.AdminLogins[i] = strings.ToLower(strings.TrimSpace(admin))
	}
	if len(p.Users) > 0 {
		users := make(map[string]User, len(p.Users))
		for login, u := range p.Users {
			users[strings.ToLower(strings.TrimSpace(login))] = u
		}
		p.Users = users
	}
	if p.NotificationsWorksheet == "" {
		p.NotificationsWorksheet = "Notifications"
	}
}

func (p Portal) validate() []error {
	var errs []error
	hasCompany := func(key string) bool {
		_, ok := p.Companies[key]
		return ok
	}

	for _, login := range sortedKeys(p.Users) {
		u := p.Users[login]
		if u.PasswordHash == "" && u.Password == "" {
			errs = append(errs, fmt.Errorf("portal.users.%s: password_hash is required", login))
		}
		if !u.Company.Admin && len(u.Company.Keys) == 0 {
			errs = append(errs, fmt.Errorf("portal.users.%s: company is required", login))
		}
		for _, key := range u.Company.Keys {
			if !hasCompany(key) {
				errs = append(errs, fmt.Errorf("portal.users.%s: unknown company %q", login, key))
			}
		}
	}

	for _, company := range sortedKeys(p.Teams) {
		if !hasCompany(company) {
			errs = append(errs, fmt.Errorf("portal.teams: unknown company %q", company))
		}
		seen := make(map[string]string)
		for _, team := range sortedKeys(p.Teams[company]) {
			if len(p.Teams[company][team]) == 0 {
				errs = append(errs, fmt.Errorf("portal.teams.%s.%s: team has no members", company, team))
			}
			key := strings.ToLower(strings.TrimSpace(team))
			if prev, ok := seen[key]; ok {
				errs = append(errs, fmt.Errorf("portal.teams.%s.%s: duplicates team %q", company, team, prev))
			}
			seen[key] = team
		}
	}

	for _, company := range sortedKeys(p.Directors) {
		if !hasCompany(company) {
			errs = append(errs, fmt.Errorf("portal.directors: unknown company %q", company))
		}
		seen := make(map[string]string)
		for _, director := range sortedKeys(p.Directors[company]) {
			key := loginKey(director)
			if prev, ok := seen[key]; ok {
				errs = append(errs, fmt.Errorf("portal.directors.%s.%s: duplicates director %q", company, director, prev))
			}
			seen[key] = director
			for _, team := range p.Directors[company][director] {
				if _, ok := p.Teams[company][team]; !ok {
					errs = append(errs, fmt.Errorf("portal.directors.%s.%s: team %q is not defined for this company", company, director, team))
				}
			}
		}
	}

	for _, company := range sortedKeys(p.Views.Overdue) {
		errs = append(errs, validateView("overdue", company, p.Views.Overdue[company], hasCompany)...)
	}
	for _, company := range sortedKeys(p.Views.Customers) {
		errs = append(errs, validateView("customers", company, p.Views.Customers[company], hasCompany)...)
	}
	for _, company := range sortedKeys(p.Views.Bonuses) {
		errs = append(errs, validateView("bonuses", company, p.Views.Bonuses[company].ViewSettings, hasCompany)...)
	}
	for _, company := range sortedKeys(p.Views.Notifications) {
		n := p.Views.Notifications[company]
		errs = append(errs, validateView("notifications", company, n.ViewSettings, hasCompany)...)
		if n.IDCol == "" || n.NotedByCol == "" || n.ExpiryDateCol == "" || n.ClientCol == "" {
			errs = append(errs, fmt.Errorf("portal.views.notifications.%s: id_col, noted_by_col, expiry_date_col and client_col are required", company))
		}
	}
	return errs
}

func validateView(view, company string, v ViewSettings, hasCompany func(string) bool) []error {
	var errs []error
	prefix := fmt.Sprintf("portal.views.%s.%s", view, company)
	if !hasCompany(company) {
		errs = append(errs, fmt.Errorf("%s: unknown company", prefix))
	}
	if v.Worksheet == "" {
		errs = append(errs, fmt.Errorf("%s: worksheet is required", prefix))
	}
	if v.SalesCol == "" {
		errs = append(errs, fmt.Errorf("%s: sales_col is required", prefix))
	}
	if (v.FilterVal != nil || len(v.ExcludeVals) > 0) && v.FilterCol == "" {
		errs = append(errs, errors.New(prefix+": filter_col is required with filter_val or exclude_vals"))
	}
	return errs
}

// loginKey is the bare, lower-cased login of s, without any email domain.
func loginKey(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "@")
	return strings.ToLower(s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
