package session

import (
	"fmt"
	"time"

	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/report"
)

// The functions in this file are pure: they never touch the machine's map and
// never modify their receiver.

// NewAttendance starts an attendance entry with every student present.
func NewAttendance(operatorID int64, group attendance.Group) Session {
	statuses := make(map[string]attendance.Status, len(group.Students))
	for _, st := range group.Students {
		statuses[st] = attendance.StatusPresent
	}
	return Session{
		OperatorID: operatorID,
		Flow:       FlowAttendance,
		Stage:      StageGroupSelected,
		Group:      group.Name,
		Students:   append([]string(nil), group.Students...),
		StatusMap:  statuses,
	}
}

// NewReport starts a report flow waiting for its group.
func NewReport(operatorID int64, mode report.Mode) Session {
	return Session{
		OperatorID: operatorID,
		Flow:       FlowReport,
		Stage:      StageReportGroupSelection,
		ReportMode: mode,
	}
}

// Toggle advances one student's mark through the status cycle.
func (s Session) Toggle(student string) (Session, error) {
	if err := s.expect(FlowAttendance, StageGroupSelected); err != nil {
		return s, err
	}
	if !s.onRoster(student) {
		return s, fmt.Errorf("%w: %q", ErrStudentNotFound, student)
	}
	next := s.clone()
	next.StatusMap[student] = s.Status(student).Next()
	return next, nil
}

// Bulk sets every student to status.
func (s Session) Bulk(status attendance.Status) (Session, error) {
	if err := s.expect(FlowAttendance, StageGroupSelected); err != nil {
		return s, err
	}
	if !status.Valid() {
		return s, fmt.Errorf("%w: status %q", ErrInvalidInput, status)
	}
	next := s.clone()
	next.StatusMap = make(map[string]attendance.Status, len(s.Students))
	for _, st := range s.Students {
		next.StatusMap[st] = status
	}
	return next, nil
}

// ConfirmStudents moves on to period selection.
func (s Session) ConfirmStudents() (Session, error) {
	return s.move(FlowAttendance, StageGroupSelected, StagePeriodSelection)
}

// BackToStudents returns from period selection to the roster.
func (s Session) BackToStudents() (Session, error) {
	return s.move(FlowAttendance, StagePeriodSelection, StageGroupSelected)
}

// SelectPeriod records the period and shows the preview.
func (s Session) SelectPeriod(p attendance.Period) (Session, error) {
	if err := s.expect(FlowAttendance, StagePeriodSelection); err != nil {
		return s, err
	}
	if _, err := attendance.ParsePeriod(string(p)); err != nil {
		return s, fmt.Errorf("%w: period %q", ErrInvalidInput, p)
	}
	next := s.clone()
	next.Period = p
	next.Stage = StagePreviewConfirm
	return next, nil
}

// BackToPeriods returns from the preview to period selection.
func (s Session) BackToPeriods() (Session, error) {
	return s.move(FlowAttendance, StagePreviewConfirm, StagePeriodSelection)
}

// CancelPreview returns from the preview to the roster, keeping the marks.
func (s Session) CancelPreview() (Session, error) {
	next, err := s.move(FlowAttendance, StagePreviewConfirm, StageGroupSelected)
	if err != nil {
		return s, err
	}
	next.Period = ""
	return next, nil
}

// Draft returns the sheet to commit from a previewed session.
func (s Session) Draft() (Draft, error) {
	if err := s.expect(FlowAttendance, StagePreviewConfirm); err != nil {
		return Draft{}, err
	}
	c := s.clone()
	return Draft{
		OperatorID: s.OperatorID,
		Group:      s.Group,
		Period:     s.Period,
		Students:   c.Students,
		StatusMap:  c.StatusMap,
		Revision:   s.Revision,
	}, nil
}

// SelectReportGroup picks the report group. Monthly reports continue to
// month selection and return a nil request; other modes are complete.
func (s Session) SelectReportGroup(group string) (Session, *report.Request, error) {
	if err := s.expect(FlowReport, StageReportGroupSelection); err != nil {
		return s, nil, err
	}
	if s.ReportMode.NeedsMonth() {
		next := s.clone()
		next.Stage = StageMonthSelection
		next.ReportGroup = group
		return next, nil, nil
	}
	return s, &report.Request{Mode: s.ReportMode, Group: group}, nil
}

// SelectMonth completes a monthly report.
func (s Session) SelectMonth(month time.Month) (*report.Request, error) {
	if err := s.expect(FlowReport, StageMonthSelection); err != nil {
		return nil, err
	}
	if !report.MonthSelectable(month) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, report.ErrMonthNotSelectable)
	}
	return &report.Request{Mode: report.ModeMonthly, Group: s.ReportGroup, Month: month}, nil
}

func (s Session) expect(flow Flow, stage Stage) error {
	if s.Flow != flow || s.Stage != stage {
		return ErrNoActiveProcess
	}
	return nil
}

func (s Session) move(flow Flow, from, to Stage) (Session, error) {
	if err := s.expect(flow, from); err != nil {
		return s, err
	}
	next := s.clone()
	next.Stage = to
	return next, nil
}

func (s Session) onRoster(student string) bool {
	for _, st := range s.Students {
		if st == student {
			return true
		}
	}
	return false
}
