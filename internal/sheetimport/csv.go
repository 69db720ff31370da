// Package sheetimport reads CSV exports into worksheet grids.
package sheetimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rpggio/salesportal/internal/domain/sheet"
)

// ErrNoHeader is returned for input without a header row.
var ErrNoHeader = errors.New("no header row found")

// Warning is a non-fatal problem with one input row.
type Warning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result is a parsed worksheet.
type Result struct {
	Grid     sheet.Grid
	Encoding string
	Warnings []Warning
}

// Parse reads CSV data into a grid. Rows are padded or truncated to the
// header width and malformed rows are skipped, each with a warning.
// Header cells are trimmed; data cells are kept as-is.
func Parse(data []byte) (*Result, error) {
	decoded, encoding, err := Decode(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	res := &Result{Grid: sheet.Grid{Header: header, Rows: [][]string{}}, Encoding: encoding}
	rowNum := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{Row: rowNum, Message: fmt.Sprintf("parse error: %v", err)})
			continue
		}
		if isBlank(row) {
			continue
		}
		switch {
		case len(row) < len(header):
			res.Warnings = append(res.Warnings, Warning{
				Row:     rowNum,
				Message: fmt.Sprintf("row has %d columns, expected %d; padding with empty values", len(row), len(header)),
			})
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		case len(row) > len(header):
			res.Warnings = append(res.Warnings, Warning{
				Row:     rowNum,
				Message: fmt.Sprintf("row has %d columns, expected %d; truncating extra columns", len(row), len(header)),
			})
			row = row[:len(header)]
		}
		res.Grid.Rows = append(res.Grid.Rows, row)
	}
	return res, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
