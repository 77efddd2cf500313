package report

import (
	"fmt"
	"time"

	"github.com/rpggio/rollcall/internal/domain/attendance"
)

// Mode selects the date range of a report.
type Mode string

const (
	ModeDaily   Mode = "daily"
	ModeWeekly  Mode = "weekly"
	ModeMonthly Mode = "monthly"
	ModeYearly  Mode = "yearly"
)

// Modes lists every report mode in display order.
var Modes = []Mode{ModeDaily, ModeWeekly, ModeMonthly, ModeYearly}

// ParseMode validates a raw mode value.
func ParseMode(raw string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == raw {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: report mode %q", ErrInvalidInput, raw)
}

// NeedsMonth reports whether the mode asks for a month after the group.
func (m Mode) NeedsMonth() bool {
	return m == ModeMonthly
}

// Request describes a report to run.
type Request struct {
	Mode  Mode
	Group string
	// Month is only used by monthly reports.
	Month time.Month
}

// StudentTally counts one student's absences across a report.
type StudentTally struct {
	Student   string `json:"student"`
	Unexcused int    `json:"unexcused"`
	Excused   int    `json:"excused"`
}

// Summary aggregates the marks of a set of records.
type Summary struct {
	Records   int            `json:"records"`
	Present   int            `json:"present"`
	Unexcused int            `json:"unexcused"`
	Excused   int            `json:"excused"`
	Absences  []StudentTally `json:"absences,omitempty"`
}

// Report is the result of running a Request.
type Report struct {
	Mode    Mode                `json:"mode"`
	Group   string              `json:"group"`
	Start   time.Time           `json:"start"`
	End     time.Time           `json:"end"`
	Records []attendance.Record `json:"records"`
	Summary Summary             `json:"summary"`
}

// Empty reports whether no record matched.
func (r Report) Empty() bool {
	return len(r.Records) == 0
}
