package mocks

import (
	"context"
	"time"

	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/stretchr/testify/mock"
)

// DocumentStore is a mock for attendance.DocumentStore.
type DocumentStore struct {
	mock.Mock
}

func (m *DocumentStore) Load(ctx context.Context) (*attendance.Document, error) {
	args := m.Called(ctx)
	if doc, ok := args.Get(0).(*attendance.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DocumentStore) Save(ctx context.Context, doc *attendance.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *DocumentStore) Backup(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *DocumentStore) Restore(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *DocumentStore) ListBackups(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]string); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// RecordSource is a mock for report.RecordSource.
type RecordSource struct {
	mock.Mock
}

func (m *RecordSource) RecordsInRange(ctx context.Context, start, end time.Time) ([]attendance.Record, error) {
	args := m.Called(ctx, start, end)
	if list, ok := args.Get(0).([]attendance.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
