package repository

import (
	"context"

	"github.com/rpggio/salesportal/internal/domain/activity"
	"github.com/rpggio/salesportal/internal/domain/sheet"
)

// TabularStore is the worksheet-backed data source.
type TabularStore interface {
	// Fetch returns the full grid of a worksheet.
	Fetch(ctx context.Context, worksheet string) (sheet.Grid, error)
	// FindRowByID returns the first row whose idColumn cell equals id,
	// both sides trimmed.
	FindRowByID(ctx context.Context, worksheet, idColumn, id string) (*sheet.RowHandle, error)
	// WriteCell replaces one cell of the row located by handle.
	WriteCell(ctx context.Context, handle *sheet.RowHandle, column, value string) error
}

// ActivityRepository persists the portal audit log.
type ActivityRepository interface {
	activity.Repository
}
