package report

import (
	"context"
	"time"

	"github.com/rpggio/rollcall/internal/domain/attendance"
)

// RecordSource provides stored attendance records.
type RecordSource interface {
	RecordsInRange(ctx context.Context, start, end time.Time) ([]attendance.Record, error)
}
