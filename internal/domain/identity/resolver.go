package identity

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rpggio/salesportal/internal/config"
	"github.com/rpggio/salesportal/internal/domain/sheet"
)

// Map maps a bare login to its best-matched display name. A missing entry
// means no name matched.
type Map map[string]string

// Fetcher loads a worksheet grid.
type Fetcher interface {
	Fetch(ctx context.Context, worksheet string) (sheet.Grid, error)
}

// Source is a worksheet column holding owner full names.
type Source struct {
	Company     string
	Worksheet   string
	OwnerColumn string
}

// SourcesFrom lists the owner columns of the given per-company view
// settings, ordered by company key.
func SourcesFrom(views map[string]config.ViewSettings) []Source {
	companies := make([]string, 0, len(views))
	for company := range views {
		companies = append(companies, company)
	}
	sort.Strings(companies)

	sources := make([]Source, 0, len(companies))
	for _, company := range companies {
		v := views[company]
		if v.Worksheet == "" || v.SalesCol == "" {
			continue
		}
		sources = append(sources, Source{Company: company, Worksheet: v.Worksheet, OwnerColumn: v.SalesCol})
	}
	return sources
}

// Resolver matches logins to owner names found in worksheets.
//
// Matching is a substring heuristic: a login matches the first name whose
// canonical form contains the login's fragment. It can produce false
// positives when one login's fragment is contained in an unrelated name.
type Resolver struct {
	store  Fetcher
	logger *slog.Logger
}

// NewResolver creates a new identity resolver.
func NewResolver(store Fetcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{store: store, logger: logger}
}

// BuildMap collects owner names from every source and assigns each login
// the first name containing its fragment. Sources that fail to load are
// skipped.
func (r *Resolver) BuildMap(ctx context.Context, logins []string, sources []Source) Map {
	names := r.collectNames(ctx, sources)
	return Match(logins, names)
}

// Match assigns each login the first name, in the given order, whose
// canonical form contains the login's fragment.
func Match(logins []string, names []string) Map {
	ordered := make([]string, 0, len(logins))
	for _, login := range logins {
		ordered = append(ordered, BareLogin(login))
	}
	sort.Strings(ordered)

	folded := make([]string, len(names))
	for i, name := range names {
		folded[i] = foldName(name)
	}

	out := Map{}
	for _, login := range ordered {
		fragment := LoginFragment(login)
		if fragment == "" {
			continue
		}
		for i, name := range names {
			if strings.Contains(folded[i], fragment) {
				out[login] = name
				break
			}
		}
	}
	return out
}

func (r *Resolver) collectNames(ctx context.Context, sources []Source) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, src := range sources {
		grid, err := r.store.Fetch(ctx, src.Worksheet)
		if err != nil {
			r.logger.Warn("skipping owner source", "company", src.Company, "worksheet", src.Worksheet, "error", err)
			continue
		}
		table := sheet.FromGrid(grid)
		if !table.HasColumn(src.OwnerColumn) {
			r.logger.Warn("owner column missing", "company", src.Company, "worksheet", src.Worksheet, "column", src.OwnerColumn)
			continue
		}
		for _, name := range table.Distinct(src.OwnerColumn) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// DirectoryTTL is how long a built Map is reused.
const DirectoryTTL = time.Hour

// Directory caches a built Map and rebuilds it after ttl.
type Directory struct {
	resolver *Resolver
	logins   []string
	sources  []Source
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	names   Map
	builtAt time.Time
}

// NewDirectory creates a cached display-name directory.
func NewDirectory(resolver *Resolver, logins []string, sources []Source, ttl time.Duration) *Directory {
	return &Directory{
		resolver: resolver,
		logins:   logins,
		sources:  sources,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Names returns the current display-name map, building it when absent or
// expired. The returned map must not be modified.
func (d *Directory) Names(ctx context.Context) Map {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.names != nil && d.now().Sub(d.builtAt) < d.ttl {
		return d.names
	}
	d.names = d.resolver.BuildMap(ctx, d.logins, d.sources)
	d.builtAt = d.now()
	return d.names
}

// DisplayName resolves one login through the directory.
func (d *Directory) DisplayName(ctx context.Context, login string) string {
	return DisplayName(d.Names(ctx), login)
}
