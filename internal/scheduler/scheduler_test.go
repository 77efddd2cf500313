package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type countingBackuper struct {
	calls atomic.Int32
	err   error
}

func (b *countingBackuper) Backup(context.Context) (string, error) {
	n := b.calls.Add(1)
	if b.err != nil {
		return "", b.err
	}
	return "db_backup_" + string(rune('0'+n)) + ".json", nil
}

type mockAuditor struct {
	mock.Mock
}

func (m *mockAuditor) Record(ctx context.Context, operatorID int64, kind activity.ActivityType, summary string, details any) {
	m.Called(ctx, operatorID, kind, summary, details)
}

func TestEmptyScheduleDisables(t *testing.T) {
	s, err := New("  ", &countingBackuper{}, nil, nil, nil)
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestInvalidSchedule(t *testing.T) {
	_, err := New("every tuesday", &countingBackuper{}, nil, nil, nil)
	require.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestRunOnceAudits(t *testing.T) {
	auditor := &mockAuditor{}
	auditor.On("Record", mock.Anything, int64(0), activity.TypeBackupCreated, "scheduled backup db_backup_1.json", mock.Anything).Return()

	s, err := New("0 3 * * *", &countingBackuper{}, auditor, time.UTC, nil)
	require.NoError(t, err)

	name, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, "db_backup_1.json", name)
	auditor.AssertExpectations(t)
}

func TestRunOnceFailureSkipsAudit(t *testing.T) {
	boom := errors.New("disk full")
	auditor := &mockAuditor{}

	s, err := New("0 3 * * *", &countingBackuper{err: boom}, auditor, time.UTC, nil)
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	require.ErrorIs(t, err, boom)
	auditor.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduleCreatesBackups(t *testing.T) {
	b := &countingBackuper{}
	s, err := New("@every 1s", b, nil, time.UTC, nil)
	require.NoError(t, err)

	s.Start()
	require.False(t, s.Next().IsZero())
	require.Eventually(t, func() bool { return b.calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)
	<-s.Stop().Done()
}
