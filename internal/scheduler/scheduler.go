// Package scheduler runs automatic backups of the attendance document on a
// cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rpggio/rollcall/internal/domain/activity"
)

// ErrInvalidSchedule indicates a cron expression that does not parse.
var ErrInvalidSchedule = errors.New("invalid backup schedule")

const jobTimeout = time.Minute

// Backuper creates a snapshot and returns its name.
type Backuper interface {
	Backup(ctx context.Context) (string, error)
}

// Auditor records a system activity entry.
type Auditor interface {
	Record(ctx context.Context, operatorID int64, kind activity.ActivityType, summary string, details any)
}

// Scheduler owns the cron runner for backups.
type Scheduler struct {
	cron    *cron.Cron
	target  Backuper
	auditor Auditor
	logger  *slog.Logger
}

// New creates a scheduler that backs up target on spec. An empty spec returns
// nil and no error, meaning scheduling is disabled. auditor may be nil.
func New(spec string, target Backuper, auditor Auditor, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if loc == nil {
		loc = time.Local
	}

	cronLog := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		target:  target,
		auditor: auditor,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, spec, err)
	}
	return s, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("backup schedule started", "entries", len(s.cron.Entries()))
}

// Stop halts the schedule. The returned context is done once a running job
// has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next returns the next scheduled run, or the zero time if not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce performs one backup immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	name, err := s.target.Backup(ctx)
	if err != nil {
		s.logger.Error("scheduled backup failed", "error", err)
		return "", err
	}
	s.logger.Info("scheduled backup created", "name", name)
	if s.auditor != nil {
		s.auditor.Record(ctx, 0, activity.TypeBackupCreated, "scheduled backup "+name, map[string]string{"name": name})
	}
	return name, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	_, _ = s.RunOnce(ctx)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
