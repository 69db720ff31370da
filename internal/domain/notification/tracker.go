package notification

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rpggio/salesportal/internal/domain/identity"
	"github.com/rpggio/salesportal/internal/domain/sheet"
)

// ErrColumnMissing indicates the notifications worksheet lacks a required column.
var ErrColumnMissing = errors.New("notification column missing")

const (
	usernameColumn = "Username"
	statusColumn   = "Status"
	statusUnread   = "unread"
	ackSeparator   = ", "
)

// dateLayouts are tried in order when reading expiry dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// Acknowledgers splits an acknowledged-by cell into its trimmed entries.
func Acknowledgers(field string) []string {
	var out []string
	for _, part := range strings.Split(field, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsAcknowledgedBy reports whether login's fragment is in the cell.
func IsAcknowledgedBy(field, login string) bool {
	fragment := identity.LoginFragment(login)
	if fragment == "" {
		return false
	}
	for _, f := range Acknowledgers(field) {
		if strings.ToLower(f) == fragment {
			return true
		}
	}
	return false
}

// AppendAcknowledger adds login's fragment to the cell unless present.
// It returns the new cell value and whether it changed.
func AppendAcknowledger(field, login string) (string, bool) {
	if IsAcknowledgedBy(field, login) {
		return field, false
	}
	fragment := identity.LoginFragment(login)
	if fragment == "" {
		return field, false
	}
	return strings.Join(append(Acknowledgers(field), fragment), ackSeparator), true
}

// CountUnread counts rows addressed to login with an unread status. The
// Username cell must equal the domain-stripped login, ignoring case and
// surrounding space; a cell holding a full address never matches.
func CountUnread(t sheet.Table, login string) (int, error) {
	if !t.HasColumn(usernameColumn) || !t.HasColumn(statusColumn) {
		return 0, fmt.Errorf("%w: %s and %s are required", ErrColumnMissing, usernameColumn, statusColumn)
	}
	who := identity.BareLogin(login)
	if who == "" {
		return 0, nil
	}
	count := 0
	for _, row := range t.Rows {
		if strings.ToLower(strings.TrimSpace(row[usernameColumn])) != who {
			continue
		}
		if strings.ToLower(strings.TrimSpace(row[statusColumn])) == statusUnread {
			count++
		}
	}
	return count, nil
}

// ParseDate reads an expiry date in any of the accepted layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Item is a notification row prepared for display.
type Item struct {
	Record       sheet.Record `json:"record"`
	Acknowledged bool         `json:"acknowledged"`
	Expiry       *time.Time   `json:"expiry,omitempty"`
}

// SortForDisplay orders rows unacknowledged-by-login first, then by expiry
// ascending. Rows with unreadable dates sort after dated rows in their group.
func SortForDisplay(t sheet.Table, ackColumn, expiryColumn, login string) []Item {
	items := make([]Item, 0, len(t.Rows))
	for _, row := range t.Rows {
		item := Item{
			Record:       row,
			Acknowledged: IsAcknowledgedBy(row[ackColumn], login),
		}
		if ts, ok := ParseDate(row[expiryColumn]); ok {
			item.Expiry = &ts
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Acknowledged != b.Acknowledged {
			return !a.Acknowledged
		}
		switch {
		case a.Expiry == nil:
			return false
		case b.Expiry == nil:
			return true
		default:
			return a.Expiry.Before(*b.Expiry)
		}
	})
	return items
}
