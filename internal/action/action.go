// Package action defines the closed set of button actions and converts them
// to and from route tokens.
package action

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rpggio/rollcall/internal/codec"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/report"
)

var (
	// ErrUnknownAction indicates a route name no action uses.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidPayload indicates a payload the action can't accept.
	ErrInvalidPayload = errors.New("invalid action payload")
)

// Route names.
const (
	NameAttendanceMenu  = "menu_attendance"
	NameReportsMenu     = "menu_reports"
	NameHelp            = "menu_help"
	NameBackToMain      = "back_main"
	NameNoop            = "noop"
	NameAttendanceGroup = "att_group"
	NameSelectGroup     = "select_group"
	NameToggle          = "toggle"
	NameBulk            = "bulk"
	NameConfirmStudents = "confirm_students"
	NameBackToGroups    = "back_groups"
	NamePeriod          = "period"
	NameBackToStudents  = "back_students"
	NameFinalConfirm    = "final_confirm"
	NameFinalCancel     = "final_cancel"
	NameBackToPeriods   = "back_period"
	NameReportMode      = "report"
	NameReportGroup     = "rep_group"
	NameMonth           = "month"
	NameBackToReports   = "back_reports"
)

// Action is one decoded button press. The set of implementations is closed.
type Action interface {
	route() (name, payload string)
}

type (
	ShowAttendanceMenu struct{}
	ShowReportsMenu    struct{}
	ShowHelp           struct{}
	BackToMain         struct{}
	Noop               struct{}
	BackToGroups       struct{}
	BackToStudents     struct{}
	BackToPeriods      struct{}
	BackToReports      struct{}
	ConfirmStudents    struct{}
	FinalConfirm       struct{}
	FinalCancel        struct{}

	// SelectAttendanceGroup starts attendance entry for a group.
	SelectAttendanceGroup struct{ Group string }
	// SelectReportGroup picks the group of the report in progress.
	SelectReportGroup struct{ Group string }
	// SelectGroup is the legacy token shared by both flows. Its meaning
	// depends on the operator's current session.
	SelectGroup struct{ Group string }

	ToggleStudent    struct{ Student string }
	BulkStatus       struct{ Status attendance.Status }
	SelectPeriod     struct{ Period attendance.Period }
	SelectReportMode struct{ Mode report.Mode }
	SelectMonth      struct{ Month time.Month }
)

func (ShowAttendanceMenu) route() (string, string) { return NameAttendanceMenu, "" }
func (ShowReportsMenu) route() (string, string)    { return NameReportsMenu, "" }
func (ShowHelp) route() (string, string)           { return NameHelp, "" }
func (BackToMain) route() (string, string)         { return NameBackToMain, "" }
func (Noop) route() (string, string)               { return NameNoop, "" }
func (BackToGroups) route() (string, string)       { return NameBackToGroups, "" }
func (BackToStudents) route() (string, string)     { return NameBackToStudents, "" }
func (BackToPeriods) route() (string, string)      { return NameBackToPeriods, "" }
func (BackToReports) route() (string, string)      { return NameBackToReports, "" }
func (ConfirmStudents) route() (string, string)    { return NameConfirmStudents, "" }
func (FinalConfirm) route() (string, string)       { return NameFinalConfirm, "" }
func (FinalCancel) route() (string, string)        { return NameFinalCancel, "" }

func (a SelectAttendanceGroup) route() (string, string) { return NameAttendanceGroup, a.Group }
func (a SelectReportGroup) route() (string, string)     { return NameReportGroup, a.Group }
func (a SelectGroup) route() (string, string)           { return NameSelectGroup, a.Group }
func (a ToggleStudent) route() (string, string)         { return NameToggle, a.Student }
func (a BulkStatus) route() (string, string)            { return NameBulk, string(a.Status) }
func (a SelectPeriod) route() (string, string)          { return NamePeriod, string(a.Period) }
func (a SelectReportMode) route() (string, string)      { return NameReportMode, string(a.Mode) }
func (a SelectMonth) route() (string, string)           { return NameMonth, strconv.Itoa(int(a.Month)) }

// Route formats an action as a route token.
func Route(a Action) string {
	name, payload := a.route()
	return codec.JoinRoute(name, payload)
}

var bare = map[string]Action{
	NameAttendanceMenu:  ShowAttendanceMenu{},
	NameReportsMenu:     ShowReportsMenu{},
	NameHelp:            ShowHelp{},
	NameBackToMain:      BackToMain{},
	NameNoop:            Noop{},
	NameBackToGroups:    BackToGroups{},
	NameBackToStudents:  BackToStudents{},
	NameBackToPeriods:   BackToPeriods{},
	NameBackToReports:   BackToReports{},
	NameConfirmStudents: ConfirmStudents{},
	NameFinalConfirm:    FinalConfirm{},
	NameFinalCancel:     FinalCancel{},
}

// Parse decodes a route token. Payloads of bare actions are ignored.
func Parse(token string) (Action, error) {
	name, payload, err := codec.SplitRoute(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if a, ok := bare[name]; ok {
		return a, nil
	}

	switch name {
	case NameAttendanceGroup, NameReportGroup, NameSelectGroup, NameToggle:
		if payload == "" {
			return nil, fmt.Errorf("%w: %s needs a name", ErrInvalidPayload, name)
		}
	}

	switch name {
	case NameAttendanceGroup:
		return SelectAttendanceGroup{Group: payload}, nil
	case NameReportGroup:
		return SelectReportGroup{Group: payload}, nil
	case NameSelectGroup:
		return SelectGroup{Group: payload}, nil
	case NameToggle:
		return ToggleStudent{Student: payload}, nil
	case NameBulk:
		status := attendance.Status(payload)
		if payload == "absent" {
			status = attendance.StatusAbsentUnexcused
		}
		if !status.Valid() {
			return nil, fmt.Errorf("%w: status %q", ErrInvalidPayload, payload)
		}
		return BulkStatus{Status: status}, nil
	case NamePeriod:
		p, err := attendance.ParsePeriod(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: period %q", ErrInvalidPayload, payload)
		}
		return SelectPeriod{Period: p}, nil
	case NameReportMode:
		m, err := report.ParseMode(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: mode %q", ErrInvalidPayload, payload)
		}
		return SelectReportMode{Mode: m}, nil
	case NameMonth:
		n, err := strconv.Atoi(payload)
		if err != nil || n < 1 || n > 12 {
			return nil, fmt.Errorf("%w: month %q", ErrInvalidPayload, payload)
		}
		return SelectMonth{Month: time.Month(n)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}
