package access

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rpggio/salesportal/internal/auth"
	"github.com/rpggio/salesportal/internal/config"
	"github.com/rpggio/salesportal/internal/domain/identity"
)

// DisplayNamer resolves a login to a human-readable name.
type DisplayNamer interface {
	DisplayName(ctx context.Context, login string) string
}

// Service authenticates portal users and decides what they may see.
type Service struct {
	portal   config.Portal
	resolver *Resolver
	names    DisplayNamer
	logger   *slog.Logger
}

// NewService creates a new access service. names may be nil, in which case
// display names fall back to the capitalized login.
func NewService(portal config.Portal, resolver *Resolver, names DisplayNamer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{portal: portal, resolver: resolver, names: names, logger: logger}
}

// Resolver returns the underlying scope resolver.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// Authenticate checks a login and password and returns the account.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*Account, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	user, ok := s.portal.Users[login]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	switch {
	case user.PasswordHash != "":
		if !auth.VerifyPassword(user.PasswordHash, password) {
			return nil, ErrInvalidCredentials
		}
	case user.Password != "":
		if !auth.VerifyLegacyPassword(user.Password, password) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Warn("login with plaintext password; configure password_hash", "login", login)
	default:
		return nil, ErrInvalidCredentials
	}
	return s.account(ctx, login, user), nil
}

// Account returns the account of an already authenticated login.
func (s *Service) Account(ctx context.Context, login string) (*Account, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	user, ok := s.portal.Users[login]
	if !ok {
		return nil, ErrAccessDenied
	}
	return s.account(ctx, login, user), nil
}

func (s *Service) account(ctx context.Context, login string, user config.User) *Account {
	return &Account{
		Login:       login,
		DisplayName: s.displayName(ctx, login),
		Admin:       user.Company.Admin,
		Companies:   s.companies(user),
	}
}

func (s *Service) displayName(ctx context.Context, login string) string {
	if s.names == nil {
		return identity.Capitalize(identity.BareLogin(login))
	}
	return s.names.DisplayName(ctx, login)
}

func (s *Service) companies(user config.User) []Company {
	keys := user.Company.Keys
	if user.Company.Admin {
		keys = s.portal.CompanyKeys()
	}
	out := make([]Company, 0, len(keys))
	for _, key := range keys {
		out = append(out, Company{Key: key, Name: s.portal.CompanyName(key)})
	}
	return out
}

// SelectCompany checks that login may view companyKey.
func (s *Service) SelectCompany(login, companyKey string) (Company, error) {
	if _, ok := s.portal.Companies[companyKey]; !ok {
		return Company{}, fmt.Errorf("%w: %q", ErrUnknownCompany, companyKey)
	}
	user, ok := s.portal.Users[identity.BareLogin(login)]
	if !ok || !entitled(user, companyKey) {
		return Company{}, fmt.Errorf("%w: %s may not view %s", ErrAccessDenied, login, companyKey)
	}
	return Company{Key: companyKey, Name: s.portal.CompanyName(companyKey)}, nil
}

// Authorize checks company entitlement and resolves the viewer's scope.
// A roster that resolves to nobody is denied.
func (s *Service) Authorize(login, companyKey string) (Scope, error) {
	if _, err := s.SelectCompany(login, companyKey); err != nil {
		return Scope{}, err
	}
	scope := s.resolver.Resolve(login, companyKey)
	if !scope.IsAll() && len(scope.Logins) == 0 {
		return Scope{}, fmt.Errorf("%w: no visible members for %s in %s", ErrAccessDenied, login, companyKey)
	}
	return scope, nil
}

// TeamOptions returns the team and member pickers for login in companyKey.
// When team is set, members are limited to that team.
func (s *Service) TeamOptions(login, companyKey string, scope Scope, team string) (TeamOptions, error) {
	opts := TeamOptions{Teams: s.resolver.VisibleTeams(login, companyKey)}
	if team != "" {
		if !contains(opts.Teams, team) {
			return TeamOptions{}, fmt.Errorf("%w: team %q", ErrAccessDenied, team)
		}
		opts.Members = s.resolver.TeamMembers(companyKey, team)
		return opts, nil
	}
	if scope.IsAll() {
		var members []string
		for _, t := range s.resolver.Teams(companyKey) {
			members = append(members, s.resolver.TeamMembers(companyKey, t)...)
		}
		opts.Members = normalizeLogins(members)
		return opts, nil
	}
	opts.Members = scope.Logins
	return opts, nil
}

// NarrowScope applies the team dashboard pickers to scope. An empty
// member list leaves administrators unrestricted.
func (s *Service) NarrowScope(login, companyKey string, scope Scope, team, member string) (Scope, error) {
	opts, err := s.TeamOptions(login, companyKey, scope, team)
	if err != nil {
		return Scope{}, err
	}
	if member != "" {
		member = identity.BareLogin(member)
		if !contains(opts.Members, member) {
			return Scope{}, fmt.Errorf("%w: member %q", ErrAccessDenied, member)
		}
		return TeamRoster([]string{member}), nil
	}
	if len(opts.Members) == 0 {
		if scope.IsAll() {
			return scope, nil
		}
		return Scope{}, fmt.Errorf("%w: no visible members", ErrAccessDenied)
	}
	return TeamRoster(opts.Members), nil
}

func entitled(user config.User, companyKey string) bool {
	return user.Company.Admin || contains(user.Company.Keys, companyKey)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
