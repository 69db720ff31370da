package sqlstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/salesportal/internal/domain/sheet"
	"github.com/rpggio/salesportal/internal/repository"
)

// WorksheetRepository implements repository.TabularStore on SQL tables.
// A worksheet is a header row plus data rows stored as JSON cell arrays.
type WorksheetRepository struct {
	db *DB
}

// NewWorksheetRepository creates a new WorksheetRepository
func NewWorksheetRepository(db *DB) *WorksheetRepository {
	return &WorksheetRepository{db: db}
}

// Fetch returns the raw grid of a worksheet.
func (r *WorksheetRepository) Fetch(ctx context.Context, worksheet string) (sheet.Grid, error) {
	header, err := r.header(ctx, worksheet)
	if err != nil {
		return sheet.Grid{}, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT cells FROM worksheet_rows WHERE worksheet = ? ORDER BY row_idx", worksheet)
	if err != nil {
		return sheet.Grid{}, fmt.Errorf("failed to query worksheet rows: %w", err)
	}
	defer rows.Close()

	grid := sheet.Grid{Header: header, Rows: [][]string{}}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return sheet.Grid{}, fmt.Errorf("failed to scan worksheet row: %w", err)
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return sheet.Grid{}, err
		}
		grid.Rows = append(grid.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return sheet.Grid{}, fmt.Errorf("error iterating worksheet rows: %w", err)
	}
	return grid, nil
}

// FindRowByID returns the first row whose idColumn cell equals id, both trimmed.
func (r *WorksheetRepository) FindRowByID(ctx context.Context, worksheet, idColumn, id string) (*sheet.RowHandle, error) {
	header, err := r.header(ctx, worksheet)
	if err != nil {
		return nil, err
	}
	columns := sheet.NormalizeColumns(header)
	idx := indexOf(columns, idColumn)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q in %q", repository.ErrColumnNotFound, idColumn, worksheet)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT row_idx, cells FROM worksheet_rows WHERE worksheet = ? ORDER BY row_idx", worksheet)
	if err != nil {
		return nil, fmt.Errorf("failed to query worksheet rows: %w", err)
	}
	defer rows.Close()

	id = strings.TrimSpace(id)
	for rows.Next() {
		var rowIdx int
		var raw string
		if err := rows.Scan(&rowIdx, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan worksheet row: %w", err)
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, err
		}
		if idx < len(cells) && strings.TrimSpace(cells[idx]) == id {
			table := sheet.FromGrid(sheet.Grid{Header: header, Rows: [][]string{cells}})
			return &sheet.RowHandle{
				Worksheet: worksheet,
				Index:     rowIdx,
				Values:    table.Rows[0],
				Raw:       cells,
			}, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating worksheet rows: %w", err)
	}
	return nil, repository.ErrNotFound
}

// WriteCell sets one cell of the row behind handle. The update only lands
// if the row still holds the cells the handle was read with; otherwise
// ErrConflict is returned and nothing changes.
func (r *WorksheetRepository) WriteCell(ctx context.Context, handle *sheet.RowHandle, column, value string) error {
	if handle == nil {
		return fmt.Errorf("%w: nil row handle", repository.ErrInvalidInput)
	}
	header, err := r.header(ctx, handle.Worksheet)
	if err != nil {
		return err
	}
	idx := indexOf(sheet.NormalizeColumns(header), column)
	if idx < 0 {
		return fmt.Errorf("%w: %q in %q", repository.ErrColumnNotFound, column, handle.Worksheet)
	}

	updated := make([]string, max(len(handle.Raw), idx+1))
	copy(updated, handle.Raw)
	updated[idx] = value

	previous, _, err := encodeCells(handle.Raw)
	if err != nil {
		return err
	}
	encoded, sum, err := encodeCells(updated)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE worksheet_rows SET cells = ?, checksum = ?
		WHERE worksheet = ? AND row_idx = ? AND checksum = ?
	`, encoded, sum, handle.Worksheet, handle.Index, checksum(previous))
	if err != nil {
		return fmt.Errorf("failed to write cell: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check write: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: row %d of %q changed since it was read", repository.ErrConflict, handle.Index, handle.Worksheet)
	}

	handle.Raw = updated
	if handle.Values != nil {
		handle.Values[column] = value
	}
	return nil
}

// ImportGrid stores grid as worksheet. Rows are padded to the header width.
// Without replace, importing over an existing worksheet returns ErrConflict.
func (r *WorksheetRepository) ImportGrid(ctx context.Context, worksheet string, grid sheet.Grid, replace bool) error {
	if strings.TrimSpace(worksheet) == "" || len(grid.Header) == 0 {
		return fmt.Errorf("%w: worksheet name and header are required", repository.ErrInvalidInput)
	}
	header, err := json.Marshal(grid.Header)
	if err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM worksheet_rows WHERE worksheet = ?", worksheet); err != nil {
			return fmt.Errorf("failed to clear worksheet rows: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM worksheets WHERE name = ?", worksheet); err != nil {
			return fmt.Errorf("failed to clear worksheet: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO worksheets (name, header) VALUES (?, ?)", worksheet, string(header)); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: worksheet %q already exists", repository.ErrConflict, worksheet)
		}
		return fmt.Errorf("failed to create worksheet: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO worksheet_rows (worksheet, row_idx, cells, checksum) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range grid.Rows {
		cells := make([]string, len(grid.Header))
		copy(cells, row)
		encoded, sum, err := encodeCells(cells)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, worksheet, i, encoded, sum); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

// List returns the stored worksheet names.
func (r *WorksheetRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name FROM worksheets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list worksheets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan worksheet name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *WorksheetRepository) header(ctx context.Context, worksheet string) ([]string, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, "SELECT header FROM worksheets WHERE name = ?", worksheet).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", repository.ErrWorksheetNotFound, worksheet)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worksheet: %w", err)
	}
	header, err := decodeCells(raw)
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("%w: %q", repository.ErrEmptyWorksheet, worksheet)
	}
	return header, nil
}

func indexOf(columns []string, name string) int {
	for i, col := range columns {
		if col == name {
			return i
		}
	}
	return -1
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("failed to decode cells: %w", err)
	}
	return cells, nil
}

func encodeCells(cells []string) (string, string, error) {
	if cells == nil {
		cells = []string{}
	}
	b, err := json.Marshal(cells)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode cells: %w", err)
	}
	return string(b), checksum(string(b)), nil
}

func checksum(encoded string) string {
	sum := sha256.Sum256([]byte(encoded))
	return hex.EncodeToString(sum[:])
}
