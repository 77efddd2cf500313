package session

import (
	"time"

	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/report"
)

// Flow names the multi-step interaction a session belongs to.
type Flow string

const (
	FlowAttendance Flow = "attendance"
	FlowReport     Flow = "report"
)

// Stage is the position of a session inside its flow.
type Stage string

const (
	StageGroupSelected   Stage = "group_selected"
	StagePeriodSelection Stage = "period_selection"
	StagePreviewConfirm  Stage = "preview_confirm"

	StageReportGroupSelection Stage = "report_group_selection"
	StageMonthSelection       Stage = "month_selection"
)

// Session is the in-progress state of one operator. Values are treated as
// immutable: transitions return a modified copy.
type Session struct {
	OperatorID int64                        `json:"operator_id"`
	Flow       Flow                         `json:"flow"`
	Stage      Stage                        `json:"stage"`
	Group      string                       `json:"group,omitempty"`
	Students   []string                     `json:"students,omitempty"`
	StatusMap  map[string]attendance.Status `json:"status_map,omitempty"`
	Period     attendance.Period            `json:"period,omitempty"`
	ReportMode report.Mode                  `json:"report_mode,omitempty"`
	// ReportGroup is set once a monthly report is waiting for its month.
	ReportGroup string    `json:"report_group,omitempty"`
	Revision    uint64    `json:"revision"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Status returns the current mark of a student.
func (s Session) Status(student string) attendance.Status {
	if st, ok := s.StatusMap[student]; ok {
		return st
	}
	return attendance.StatusPresent
}

// Partition splits the roster by current marks in roster order.
func (s Session) Partition() (present, unexcused, excused []string) {
	return attendance.Partition(s.Students, s.StatusMap)
}

func (s Session) clone() Session {
	out := s
	if s.Students != nil {
		out.Students = append([]string(nil), s.Students...)
	}
	if s.StatusMap != nil {
		out.StatusMap = make(map[string]attendance.Status, len(s.StatusMap))
		for k, v := range s.StatusMap {
			out.StatusMap[k] = v
		}
	}
	return out
}

// Draft is a confirmed attendance sheet waiting to be committed.
type Draft struct {
	OperatorID int64
	Group      string
	Period     attendance.Period
	Students   []string
	StatusMap  map[string]attendance.Status
	// Revision identifies the session state the draft was taken from.
	Revision uint64
}
