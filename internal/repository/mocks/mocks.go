package mocks

import (
	"context"

	"github.com/rpggio/salesportal/internal/domain/activity"
	"github.com/rpggio/salesportal/internal/domain/sheet"
	"github.com/stretchr/testify/mock"
)

// TabularStore is a mock for repository.TabularStore.
type TabularStore struct {
	mock.Mock
}

func (m *TabularStore) Fetch(ctx context.Context, worksheet string) (sheet.Grid, error) {
	args := m.Called(ctx, worksheet)
	if grid, ok := args.Get(0).(sheet.Grid); ok {
		return grid, args.Error(1)
	}
	return sheet.Grid{}, args.Error(1)
}

func (m *TabularStore) FindRowByID(ctx context.Context, worksheet, idColumn, id string) (*sheet.RowHandle, error) {
	args := m.Called(ctx, worksheet, idColumn, id)
	if handle, ok := args.Get(0).(*sheet.RowHandle); ok {
		return handle, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TabularStore) WriteCell(ctx context.Context, handle *sheet.RowHandle, column, value string) error {
	args := m.Called(ctx, handle, column, value)
	return args.Error(0)
}

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if entries, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return entries, args.Error(1)
	}
	return nil, args.Error(1)
}

// EventPublisher is a mock for notification.EventPublisher.
type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	args := m.Called(ctx, eventType, payload)
	return args.Error(0)
}
