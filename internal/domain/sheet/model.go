package sheet

// Record is one worksheet row keyed by normalized column name.
type Record map[string]string

// Grid is a worksheet as stored: a raw header row followed by data rows.
type Grid struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Table is a normalized, read-only view of a worksheet.
// Filters never mutate a Table; they return a new one.
type Table struct {
	Columns []string
	Rows    []Record
}

// RowHandle locates a single worksheet row for a follow-up write.
type RowHandle struct {
	Worksheet string
	// Index is the zero-based data row position, header excluded.
	Index  int
	Values Record
	// Raw is the stored row as read, used for compare-and-swap writes.
	Raw []string
}
