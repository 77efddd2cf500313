package action_test

import (
	"testing"
	"time"

	"github.com/rpggio/rollcall/internal/action"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/report"
	"github.com/stretchr/testify/require"
)

func TestRouteThenParse(t *testing.T) {
	actions := []action.Action{
		action.ShowAttendanceMenu{},
		action.ShowReportsMenu{},
		action.ShowHelp{},
		action.BackToMain{},
		action.Noop{},
		action.BackToGroups{},
		action.BackToStudents{},
		action.BackToPeriods{},
		action.BackToReports{},
		action.ConfirmStudents{},
		action.FinalConfirm{},
		action.FinalCancel{},
		action.SelectAttendanceGroup{Group: "Avto 13-24"},
		action.SelectReportGroup{Group: "G::1"},
		action.SelectGroup{Group: "100% group"},
		action.ToggleStudent{Student: "Qaxxarov Ali: 2"},
		action.BulkStatus{Status: attendance.StatusAbsentExcused},
		action.SelectPeriod{Period: attendance.PeriodAllDay},
		action.SelectReportMode{Mode: report.ModeMonthly},
		action.SelectMonth{Month: time.November},
	}
	for _, a := range actions {
		token := action.Route(a)
		got, err := action.Parse(token)
		require.NoError(t, err, token)
		require.Equal(t, a, got, token)
	}
}

func TestRouteTokens(t *testing.T) {
	require.Equal(t, "menu_attendance", action.Route(action.ShowAttendanceMenu{}))
	require.Equal(t, "toggle::Qaxxarov%20Ali%3A%202", action.Route(action.ToggleStudent{Student: "Qaxxarov Ali: 2"}))
	require.Equal(t, "month::3", action.Route(action.SelectMonth{Month: time.March}))
	require.Equal(t, "att_group::G1", action.Route(action.SelectAttendanceGroup{Group: "G1"}))
	require.Equal(t, "rep_group::G1", action.Route(action.SelectReportGroup{Group: "G1"}))
}

func TestParse_LegacyBulkAbsent(t *testing.T) {
	a, err := action.Parse("bulk::absent")
	require.NoError(t, err)
	require.Equal(t, action.BulkStatus{Status: attendance.StatusAbsentUnexcused}, a)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		token string
		want  error
	}{
		{"launch_rockets", action.ErrUnknownAction},
		{"", action.ErrUnknownAction},
		{"toggle", action.ErrInvalidPayload},
		{"att_group::", action.ErrInvalidPayload},
		{"toggle::%ZZ", action.ErrInvalidPayload},
		{"bulk::maybe", action.ErrInvalidPayload},
		{"period::5", action.ErrInvalidPayload},
		{"report::hourly", action.ErrInvalidPayload},
		{"month::13", action.ErrInvalidPayload},
		{"month::0", action.ErrInvalidPayload},
		{"month::may", action.ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			_, err := action.Parse(tt.token)
			require.ErrorIs(t, err, tt.want)
		})
	}
}
