package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rpggio/salesportal/internal/domain/access"
	"github.com/rpggio/salesportal/internal/domain/identity"
	"github.com/rpggio/salesportal/internal/domain/sheet"
)

// ErrColumnMissing indicates a configured column that the table lacks.
var ErrColumnMissing = errors.New("configured column missing")

// AllStatuses is the status select value that disables status filtering.
const AllStatuses = "All"

// CompanyFilter restricts rows by a company column. Include takes precedence
// over Exclude. A nil Include means no include filter; a pointer to ""
// keeps only rows whose company cell is blank.
type CompanyFilter struct {
	Column  string
	Include *string
	Exclude []string
}

// Active reports whether the filter would restrict anything.
func (f CompanyFilter) Active() bool {
	return f.Column != "" && (f.Include != nil || len(f.Exclude) > 0)
}

// ApplyCompany keeps rows whose company cell equals Include, or, without
// Include, rows whose cell is not in Exclude. Matching is exact. A missing
// column leaves the table unchanged and returns ErrColumnMissing.
func ApplyCompany(t sheet.Table, f CompanyFilter) (sheet.Table, error) {
	if !f.Active() {
		return t, nil
	}
	if !t.HasColumn(f.Column) {
		return t, fmt.Errorf("%w: company filter column %q", ErrColumnMissing, f.Column)
	}
	if f.Include != nil {
		include := *f.Include
		return t.Filter(func(r sheet.Record) bool { return r[f.Column] == include }), nil
	}
	excluded := make(map[string]struct{}, len(f.Exclude))
	for _, v := range f.Exclude {
		excluded[v] = struct{}{}
	}
	return t.Filter(func(r sheet.Record) bool {
		_, drop := excluded[r[f.Column]]
		return !drop
	}), nil
}

// ApplyScope keeps rows whose canonical owner contains a fragment of one
// of the scope's logins. A missing owner column yields an empty table and
// ErrColumnMissing.
func ApplyScope(t sheet.Table, ownerColumn string, scope access.Scope) (sheet.Table, error) {
	if scope.IsAll() {
		return t, nil
	}
	if !t.HasColumn(ownerColumn) {
		return t.Empty(), fmt.Errorf("%w: owner column %q", ErrColumnMissing, ownerColumn)
	}
	pattern := ownerPattern(scope.Fragments())
	if pattern == nil {
		return t.Empty(), nil
	}
	return t.Filter(func(r sheet.Record) bool {
		return pattern.MatchString(identity.OwnerKey(r[ownerColumn]))
	}), nil
}

func ownerPattern(fragments []string) *regexp.Regexp {
	if len(fragments) == 0 {
		return nil
	}
	quoted := make([]string, len(fragments))
	for i, f := range fragments {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return regexp.MustCompile(strings.Join(quoted, "|"))
}

// Search keeps rows whose column contains term, case-insensitively.
// An empty term or missing column leaves the table unchanged.
func Search(t sheet.Table, column, term string) sheet.Table {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || !t.HasColumn(column) {
		return t
	}
	return t.Filter(func(r sheet.Record) bool {
		return strings.Contains(strings.ToLower(r[column]), term)
	})
}

// ByStatus keeps rows whose status equals value. An empty value or
// AllStatuses leaves the table unchanged.
func ByStatus(t sheet.Table, column, value string) sheet.Table {
	if value == "" || value == AllStatuses || !t.HasColumn(column) {
		return t
	}
	return t.Filter(func(r sheet.Record) bool {
		return strings.TrimSpace(r[column]) == value
	})
}

// StatusOptions returns AllStatuses followed by the sorted distinct statuses.
func StatusOptions(t sheet.Table, column string) []string {
	return append([]string{AllStatuses}, t.Distinct(column)...)
}

// ByMonth keeps rows whose month cell, read as a number, equals month.
// Non-numeric cells are dropped; a missing column leaves the table unchanged.
func ByMonth(t sheet.Table, column string, month int) sheet.Table {
	if !t.HasColumn(column) {
		return t
	}
	return t.Filter(func(r sheet.Record) bool {
		v, err := strconv.ParseFloat(strings.TrimSpace(r[column]), 64)
		return err == nil && v == float64(month)
	})
}
