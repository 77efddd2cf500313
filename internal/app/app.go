// Package app wires configuration into stores, services and the dispatcher.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/rollcall/internal/config"
	"github.com/rpggio/rollcall/internal/dispatch"
	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/report"
	"github.com/rpggio/rollcall/internal/domain/session"
	"github.com/rpggio/rollcall/internal/jsonfile"
	"github.com/rpggio/rollcall/internal/mcp"
	"github.com/rpggio/rollcall/internal/scheduler"
	"github.com/rpggio/rollcall/internal/sqlite"
)

// App holds the wired components of a running instance.
type App struct {
	DB         *sqlite.DB
	Store      attendance.DocumentStore
	Attendance *attendance.Service
	Activity   *activity.Service
	Reports    *report.Service
	Dispatcher *dispatch.Dispatcher
	Scheduler  *scheduler.Scheduler
	Location   *time.Location
}

// Build opens storage and constructs every service described by cfg. The
// caller owns the returned App and must Close it.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if err := ensureDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	store, err := newStore(cfg.Store, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	now := func() time.Time { return time.Now().In(loc) }
	attendanceSvc := attendance.NewService(store, logger, attendance.WithClock(now))
	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), logger)
	reportSvc := report.NewService(attendanceSvc, now, logger)

	if len(cfg.SeedGroups) > 0 {
		if _, err := attendanceSvc.EnsureGroups(ctx, cfg.SeedGroups); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed groups: %w", err)
		}
	}

	if len(cfg.Operators) == 0 {
		logger.Warn("no operators configured; every request will be denied")
	}

	dispatcher := dispatch.New(dispatch.Config{
		Operators:  cfg.Operators,
		Attendance: attendanceSvc,
		Reports:    reportSvc,
		Activity:   activitySvc,
		Sessions:   session.NewMachine(logger),
		Logger:     logger,
	})

	sched, err := scheduler.New(cfg.Backup.Schedule, attendanceSvc, activitySvc, loc, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		DB:         db,
		Store:      store,
		Attendance: attendanceSvc,
		Activity:   activitySvc,
		Reports:    reportSvc,
		Dispatcher: dispatcher,
		Scheduler:  sched,
		Location:   loc,
	}, nil
}

// MCPServer creates the MCP server over the app's dispatcher.
func (a *App) MCPServer(version string, logger *slog.Logger) *sdkmcp.Server {
	return mcp.NewServer(mcp.Config{
		Dispatcher: a.Dispatcher,
		Version:    version,
		Logger:     logger,
	})
}

// Close stops the scheduler and releases the database.
func (a *App) Close() error {
	if a.Scheduler != nil {
		<-a.Scheduler.Stop().Done()
	}
	return a.DB.Close()
}

func newStore(cfg config.StoreConfig, db *sqlite.DB) (attendance.DocumentStore, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.NewDocumentStore(db), nil
	case "file", "":
		return jsonfile.New(cfg.Path, cfg.BackupDir)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func ensureDir(path string) error {
	if path == ":memory:" || path == "" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
