package dispatch

import (
	"context"
	"time"

	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/report"
)

// AttendanceService defines the document operations needed by the dispatcher.
type AttendanceService interface {
	Now() time.Time
	Groups(ctx context.Context) ([]attendance.Group, error)
	Group(ctx context.Context, name string) (*attendance.Group, error)
	AddGroup(ctx context.Context, g attendance.Group) error
	DeleteGroup(ctx context.Context, name string) error
	AddSampleGroups(ctx context.Context) error
	Settings(ctx context.Context) (attendance.Settings, error)
	SetLogChat(ctx context.Context, chatID int64) error
	ClearLogChat(ctx context.Context) error
	Record(ctx context.Context, req attendance.RecordRequest) (*attendance.Record, error)
	Backup(ctx context.Context) (string, error)
	Restore(ctx context.Context, name string) error
	Backups(ctx context.Context) ([]string, error)
}

// ReportService defines report operations needed by the dispatcher.
type ReportService interface {
	Run(ctx context.Context, req report.Request) (*report.Report, error)
}

// ActivityService defines audit operations needed by the dispatcher.
type ActivityService interface {
	Record(ctx context.Context, operatorID int64, kind activity.ActivityType, summary string, details any)
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}
