package report

import (
	"context"

	"github.com/rpggio/salesportal/internal/domain/access"
	"github.com/rpggio/salesportal/internal/domain/identity"
	"github.com/rpggio/salesportal/internal/domain/sheet"
)

// Gatekeeper decides which company and records a viewer may see.
type Gatekeeper interface {
	SelectCompany(login, companyKey string) (access.Company, error)
	Authorize(login, companyKey string) (access.Scope, error)
	TeamOptions(login, companyKey string, scope access.Scope, team string) (access.TeamOptions, error)
	NarrowScope(login, companyKey string, scope access.Scope, team, member string) (access.Scope, error)
}

// Fetcher loads worksheet grids.
type Fetcher interface {
	Fetch(ctx context.Context, worksheet string) (sheet.Grid, error)
}

// Names provides the login to display-name map.
type Names interface {
	Names(ctx context.Context) identity.Map
}
