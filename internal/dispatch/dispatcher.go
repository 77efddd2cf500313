// Package dispatch routes commands and button presses from operators to the
// session machine and the attendance and report services, and returns what
// the transport should render.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/rpggio/rollcall/internal/action"
	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/report"
	"github.com/rpggio/rollcall/internal/domain/session"
)

// Config wires a Dispatcher.
type Config struct {
	Operators  []int64
	Attendance AttendanceService
	Reports    ReportService
	Activity   ActivityService
	Sessions   *session.Machine
	Logger     *slog.Logger
}

// Dispatcher is safe for concurrent use by many operators.
type Dispatcher struct {
	operators  map[int64]struct{}
	operatorID []int64
	attendance AttendanceService
	reports    ReportService
	activity   ActivityService
	sessions   *session.Machine
	logger     *slog.Logger
}

// New creates a dispatcher. A nil session machine gets a fresh one.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.NewMachine(logger)
	}
	d := &Dispatcher{
		operators:  make(map[int64]struct{}, len(cfg.Operators)),
		attendance: cfg.Attendance,
		reports:    cfg.Reports,
		activity:   cfg.Activity,
		sessions:   sessions,
		logger:     logger,
	}
	for _, id := range cfg.Operators {
		if _, dup := d.operators[id]; dup {
			continue
		}
		d.operators[id] = struct{}{}
		d.operatorID = append(d.operatorID, id)
	}
	sort.Slice(d.operatorID, func(i, j int) bool { return d.operatorID[i] < d.operatorID[j] })
	return d
}

// Authorized reports whether id is on the operator allow-list.
func (d *Dispatcher) Authorized(id int64) bool {
	_, ok := d.operators[id]
	return ok
}

// Operators returns the allow-list in ascending order.
func (d *Dispatcher) Operators() []int64 {
	return append([]int64(nil), d.operatorID...)
}

// Sessions exposes the session machine.
func (d *Dispatcher) Sessions() *session.Machine {
	return d.sessions
}

// HandleRoute handles a button press carrying a route token.
func (d *Dispatcher) HandleRoute(ctx context.Context, op Operator, chat Chat, token string) (r Render) {
	defer d.recoverInto(&r, "route", op.ID)

	if !d.Authorized(op.ID) {
		d.logger.Warn("unauthorized route", "operator_id", op.ID)
		return denied()
	}
	a, err := action.Parse(token)
	if err != nil {
		d.logger.Debug("route rejected", "operator_id", op.ID, "token", token, "error", err)
		return d.routeError(err)
	}
	return d.handleAction(ctx, op, chat, d.resolve(op.ID, a))
}

// resolve maps the legacy group token onto the flow the operator is in. It
// is the only place that looks at the session to interpret a token.
func (d *Dispatcher) resolve(operatorID int64, a action.Action) action.Action {
	sel, ok := a.(action.SelectGroup)
	if !ok {
		return a
	}
	if s, ok := d.sessions.Get(operatorID); ok && s.Flow == session.FlowReport {
		return action.SelectReportGroup{Group: sel.Group}
	}
	return action.SelectAttendanceGroup{Group: sel.Group}
}

func (d *Dispatcher) handleAction(ctx context.Context, op Operator, chat Chat, a action.Action) Render {
	switch a := a.(type) {
	case action.Noop:
		return Render{}
	case action.BackToMain:
		return screen(mainMenuText, mainMenu())
	case action.ShowHelp:
		return screen(helpText, mainMenu())
	case action.ShowAttendanceMenu, action.BackToGroups:
		return d.attendanceGroups(ctx)
	case action.ShowReportsMenu, action.BackToReports:
		return screen(reportsText, reportsMenu())

	case action.SelectAttendanceGroup:
		g, err := d.attendance.Group(ctx, a.Group)
		if err != nil {
			return d.routeError(err)
		}
		s := d.sessions.StartAttendance(op.ID, *g)
		return screen(rosterText(s), rosterMenu(s))
	case action.ToggleStudent:
		s, err := d.sessions.Toggle(op.ID, a.Student)
		if err != nil {
			return d.routeError(err)
		}
		r := screen(rosterText(s), rosterMenu(s))
		r.Alert = fmt.Sprintf("%s: %s", a.Student, statusLabel(s.Status(a.Student)))
		return r
	case action.BulkStatus:
		s, err := d.sessions.Bulk(op.ID, a.Status)
		if err != nil {
			return d.routeError(err)
		}
		r := screen(rosterText(s), rosterMenu(s))
		r.Alert = "All marks updated."
		return r
	case action.ConfirmStudents:
		if _, err := d.sessions.ConfirmStudents(op.ID); err != nil {
			return d.routeError(err)
		}
		return screen(periodText, periodMenu())
	case action.BackToStudents:
		s, err := d.sessions.BackToStudents(op.ID)
		if err != nil {
			return d.routeError(err)
		}
		return screen(rosterText(s), rosterMenu(s))
	case action.SelectPeriod:
		s, err := d.sessions.SelectPeriod(op.ID, a.Period)
		if err != nil {
			return d.routeError(err)
		}
		return screen(previewText(s, d.attendance.Now()), previewMenu())
	case action.BackToPeriods:
		if _, err := d.sessions.BackToPeriods(op.ID); err != nil {
			return d.routeError(err)
		}
		return screen(periodText, periodMenu())
	case action.FinalCancel:
		s, err := d.sessions.CancelPreview(op.ID)
		if err != nil {
			return d.routeError(err)
		}
		return screen(rosterText(s), rosterMenu(s))
	case action.FinalConfirm:
		return d.commit(ctx, op)

	case action.SelectReportMode:
		d.sessions.StartReport(op.ID, a.Mode)
		return d.reportGroups(ctx)
	case action.SelectReportGroup:
		if _, err := d.attendance.Group(ctx, a.Group); err != nil {
			return d.routeError(err)
		}
		_, req, err := d.sessions.SelectReportGroup(op.ID, a.Group)
		if err != nil {
			return d.routeError(err)
		}
		if req == nil {
			return screen(monthText, monthMenu())
		}
		return d.runReport(ctx, *req)
	case action.SelectMonth:
		req, err := d.sessions.SelectMonth(op.ID, a.Month)
		if err != nil {
			return d.routeError(err)
		}
		return d.runReport(ctx, *req)
	}

	d.logger.Error("unhandled action", "action", fmt.Sprintf("%T", a))
	return alert(NoticeFailure, failureText)
}

// commit persists the previewed sheet. The session is cleared only once the
// record is stored so a failed save can be retried.
func (d *Dispatcher) commit(ctx context.Context, op Operator) Render {
	draft, err := d.sessions.FinalConfirm(op.ID)
	if err != nil {
		return d.routeError(err)
	}
	rec, err := d.attendance.Record(ctx, attendance.RecordRequest{
		Group:    draft.Group,
		Period:   draft.Period,
		Students: draft.Students,
		Statuses: draft.StatusMap,
		RecordedBy: attendance.Recorder{
			ID:          op.ID,
			DisplayName: op.DisplayName,
			Handle:      op.Handle,
		},
	})
	if err != nil {
		d.logger.Error("attendance not saved", "operator_id", op.ID, "group", draft.Group, "error", err)
		return alert(NoticeFailure, saveFailedText)
	}
	d.sessions.Complete(draft)

	dateKey := attendance.DateKey(rec.RecordedAt)
	d.audit(ctx, op.ID, activity.TypeAttendanceRecorded,
		fmt.Sprintf("%s %s period %s", rec.Group, dateKey, rec.Period),
		map[string]any{
			"record_id": rec.ID,
			"group":     rec.Group,
			"date":      dateKey,
			"period":    rec.Period,
			"unexcused": len(rec.AbsentUnexcused),
			"excused":   len(rec.AbsentExcused),
		})

	target := op.ID
	if settings, err := d.attendance.Settings(ctx); err != nil {
		d.logger.Warn("settings unavailable, summary goes to operator", "error", err)
	} else if settings.LogChatID != nil {
		target = *settings.LogChatID
	}

	r := screen(savedText, mainMenu())
	r.Deliveries = []Delivery{{ChatID: target, Text: summaryText(*rec)}}
	return r
}

func (d *Dispatcher) runReport(ctx context.Context, req report.Request) Render {
	rep, err := d.reports.Run(ctx, req)
	if err != nil {
		return d.routeError(err)
	}
	return screen(reportText(rep), [][]Button{{backButton(action.BackToReports{})}})
}

func (d *Dispatcher) attendanceGroups(ctx context.Context) Render {
	groups, err := d.attendance.Groups(ctx)
	if err != nil {
		return d.routeError(err)
	}
	return screen(attendanceGroupsText, groupMenu(groups,
		func(name string) action.Action { return action.SelectAttendanceGroup{Group: name} },
		action.BackToMain{}))
}

func (d *Dispatcher) reportGroups(ctx context.Context) Render {
	groups, err := d.attendance.Groups(ctx)
	if err != nil {
		return d.routeError(err)
	}
	return screen(reportGroupsText, groupMenu(groups,
		func(name string) action.Action { return action.SelectReportGroup{Group: name} },
		action.BackToReports{}))
}

func (d *Dispatcher) audit(ctx context.Context, operatorID int64, kind activity.ActivityType, summary string, details any) {
	if d.activity == nil {
		return
	}
	d.activity.Record(ctx, operatorID, kind, summary, details)
}

func (d *Dispatcher) recoverInto(r *Render, kind string, operatorID int64) {
	if v := recover(); v != nil {
		d.logger.Error("dispatch panic", "kind", kind, "operator_id", operatorID, "panic", v)
		*r = alert(NoticeFailure, failureText)
	}
}

func denied() Render {
	return Render{Text: deniedText, Notice: NoticeUnauthorized}
}

// routeError renders err as a transient alert, leaving the screen in place.
func (d *Dispatcher) routeError(err error) Render {
	notice, text := d.noticeFor(err)
	return alert(notice, text)
}

// commandError renders err as a reply message.
func (d *Dispatcher) commandError(err error) Render {
	notice, text := d.noticeFor(err)
	return Render{Text: text, Notice: notice}
}

// noticeFor maps an error to its notice class and operator-facing text.
func (d *Dispatcher) noticeFor(err error) (Notice, string) {
	switch {
	case errors.Is(err, session.ErrNoActiveProcess):
		return NoticeNoActiveProcess, noActiveProcessText
	case errors.Is(err, session.ErrStudentNotFound):
		return NoticeNotFound, "Student not found."
	case errors.Is(err, attendance.ErrGroupNotFound):
		return NoticeNotFound, "Group not found."
	case errors.Is(err, attendance.ErrBackupNotFound):
		return NoticeNotFound, "Backup not found."
	case errors.Is(err, action.ErrUnknownAction),
		errors.Is(err, action.ErrInvalidPayload),
		errors.Is(err, session.ErrInvalidInput),
		errors.Is(err, attendance.ErrInvalidInput),
		errors.Is(err, report.ErrInvalidInput),
		errors.Is(err, report.ErrMonthNotSelectable):
		return NoticeInvalidChoice, invalidChoiceText
	}
	d.logger.Error("dispatch failed", "error", err)
	return NoticeFailure, failureText
}
