package repository

import "errors"

var (
	// ErrNotFound is returned when a requested row doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrWorksheetNotFound is returned when a worksheet doesn't exist
	ErrWorksheetNotFound = errors.New("worksheet not found")

	// ErrEmptyWorksheet is returned when a worksheet has no header row
	ErrEmptyWorksheet = errors.New("worksheet is empty")

	// ErrColumnNotFound is returned when a named column isn't in the header
	ErrColumnNotFound = errors.New("column not found")

	// ErrConflict is returned when a row changed between read and write
	ErrConflict = errors.New("conflict: row was modified by another writer")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
