package sheet

import (
	"sort"
	"strconv"
	"strings"
)

// NormalizeColumns trims every label and renames repeats to name_N,
// where N counts earlier occurrences of the same trimmed name.
func NormalizeColumns(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, label := range raw {
		name := strings.TrimSpace(label)
		n := seen[name]
		seen[name] = n + 1
		if n == 0 {
			out[i] = name
			continue
		}
		out[i] = name + "_" + strconv.Itoa(n)
	}
	return out
}

// FromGrid normalizes the header and maps every row onto it.
// Short rows are padded with empty cells; extra cells are dropped.
func FromGrid(g Grid) Table {
	cols := NormalizeColumns(g.Header)
	rows := make([]Record, 0, len(g.Rows))
	for _, raw := range g.Rows {
		rows = append(rows, recordFrom(cols, raw))
	}
	return Table{Columns: cols, Rows: rows}
}

func recordFrom(cols, raw []string) Record {
	rec := make(Record, len(cols))
	for i, col := range cols {
		if i < len(raw) {
			rec[col] = raw[i]
		} else {
			rec[col] = ""
		}
	}
	return rec
}

// Empty returns a table with the same columns and no rows.
func (t Table) Empty() Table {
	return Table{Columns: t.Columns, Rows: []Record{}}
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether name is one of the table's columns.
func (t Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// ColumnIndex returns the position of name, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Filter returns the rows for which keep returns true.
func (t Table) Filter(keep func(Record) bool) Table {
	rows := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	return Table{Columns: t.Columns, Rows: rows}
}

// Project keeps only the listed columns that exist, in the listed order.
// An empty list, or a list naming no existing column, returns t unchanged.
func (t Table) Project(columns []string) Table {
	keep := make([]string, 0, len(columns))
	for _, col := range columns {
		if t.HasColumn(col) {
			keep = append(keep, col)
		}
	}
	if len(keep) == 0 {
		return t
	}
	rows := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(Record, len(keep))
		for _, col := range keep {
			rec[col] = row[col]
		}
		rows = append(rows, rec)
	}
	return Table{Columns: keep, Rows: rows}
}

// Values returns the cells of column in row order.
func (t Table) Values(column string) []string {
	if !t.HasColumn(column) {
		return nil
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, row[column])
	}
	return out
}

// Distinct returns the sorted distinct non-blank values of column.
func (t Table) Distinct(column string) []string {
	set := map[string]struct{}{}
	for _, v := range t.Values(column) {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Matrix returns the rows as ordered cell slices, for rendering.
func (t Table) Matrix() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			cells[i] = row[col]
		}
		out = append(out, cells)
	}
	return out
}
