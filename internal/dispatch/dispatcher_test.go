package dispatch_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rpggio/rollcall/internal/action"
	"github.com/rpggio/rollcall/internal/dispatch"
	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/report"
	"github.com/rpggio/rollcall/internal/domain/session"
	"github.com/rpggio/rollcall/internal/jsonfile"
	"github.com/rpggio/rollcall/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	opA      = int64(100)
	opB      = int64(200)
	stranger = int64(999)
)

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

// flakyStore fails Save while failSave is set.
type flakyStore struct {
	attendance.DocumentStore
	failSave bool
}

func (f *flakyStore) Save(ctx context.Context, doc *attendance.Document) error {
	if f.failSave {
		return errors.New("disk full")
	}
	return f.DocumentStore.Save(ctx, doc)
}

type fixture struct {
	d          *dispatch.Dispatcher
	attendance *attendance.Service
	store      *flakyStore
	activity   *mocks.ActivityRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	inner, err := jsonfile.New(filepath.Join(dir, "db.json"), filepath.Join(dir, "backups"))
	require.NoError(t, err)
	store := &flakyStore{DocumentStore: inner}

	clock := func() time.Time { return testNow }
	att := attendance.NewService(store, nil, attendance.WithClock(clock))
	require.NoError(t, att.AddGroup(context.Background(), attendance.Group{
		Name: "G1", Code: "1", Students: []string{"A", "B", "C"},
	}))

	repo := &mocks.ActivityRepository{}
	repo.On("Log", mock.Anything, mock.Anything).Return(nil)

	d := dispatch.New(dispatch.Config{
		Operators:  []int64{opB, opA},
		Attendance: att,
		Reports:    report.NewService(att, clock, nil),
		Activity:   activity.NewService(repo, nil),
	})
	return &fixture{d: d, attendance: att, store: store, activity: repo}
}

func (f *fixture) press(t *testing.T, op int64, a action.Action) dispatch.Render {
	t.Helper()
	return f.d.HandleRoute(context.Background(), dispatch.Operator{ID: op, DisplayName: "Op"}, dispatch.Chat{ID: op, Type: dispatch.ChatPrivate}, action.Route(a))
}

func (f *fixture) command(t *testing.T, op int64, name, args string) dispatch.Render {
	t.Helper()
	return f.d.HandleCommand(context.Background(), dispatch.Operator{ID: op}, dispatch.Chat{ID: op, Type: dispatch.ChatPrivate}, name, args)
}

func (f *fixture) recordsToday(t *testing.T) []attendance.Record {
	t.Helper()
	records, err := f.attendance.RecordsOn(context.Background(), attendance.DateKey(testNow))
	require.NoError(t, err)
	return records
}

func menuRoutes(r dispatch.Render) []string {
	var routes []string
	for _, row := range r.Menu {
		for _, b := range row {
			routes = append(routes, b.Route)
		}
	}
	return routes
}

func TestDispatcher_UnauthorizedHasNoEffect(t *testing.T) {
	f := newFixture(t)

	r := f.press(t, stranger, action.SelectAttendanceGroup{Group: "G1"})
	require.Equal(t, dispatch.NoticeUnauthorized, r.Notice)
	require.Equal(t, 0, f.d.Sessions().Len())

	r = f.command(t, stranger, "sample", "")
	require.Equal(t, dispatch.NoticeUnauthorized, r.Notice)
	groups, err := f.attendance.Groups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)

	r2 := f.command(t, stranger, "set_log_chat", "5")
	require.Equal(t, r.Text, r2.Text)
	f.activity.AssertNotCalled(t, "Log", mock.Anything, mock.Anything)
}

func TestDispatcher_ToggleWithoutSession(t *testing.T) {
	f := newFixture(t)

	r := f.press(t, opA, action.ToggleStudent{Student: "A"})
	require.Equal(t, dispatch.NoticeNoActiveProcess, r.Notice)
	require.Empty(t, r.Text)
	require.Equal(t, 0, f.d.Sessions().Len())
	require.Empty(t, f.recordsToday(t))
}

func TestDispatcher_AttendanceFlow(t *testing.T) {
	f := newFixture(t)

	r := f.press(t, opA, action.ShowAttendanceMenu{})
	require.Contains(t, menuRoutes(r), "att_group::G1")

	r = f.press(t, opA, action.SelectAttendanceGroup{Group: "G1"})
	require.Equal(t, dispatch.NoticeNone, r.Notice)
	require.Contains(t, menuRoutes(r), "toggle::B")

	r = f.press(t, opA, action.ToggleStudent{Student: "B"})
	require.Equal(t, "B: absent (unexcused)", r.Alert)
	require.Equal(t, "❌ B", r.Menu[1][0].Label)

	r = f.press(t, opA, action.ConfirmStudents{})
	require.Contains(t, menuRoutes(r), "period::2")

	r = f.press(t, opA, action.SelectPeriod{Period: attendance.Period2})
	require.Contains(t, r.Text, "Unexcused:\n- B")
	require.Contains(t, r.Text, "Period 2")

	r = f.press(t, opA, action.FinalConfirm{})
	require.Equal(t, dispatch.NoticeNone, r.Notice)
	require.Len(t, r.Deliveries, 1)
	require.Equal(t, opA, r.Deliveries[0].ChatID)
	require.Contains(t, r.Deliveries[0].Text, "Group: G1")
	require.Contains(t, r.Deliveries[0].Text, "- B")
	require.Contains(t, r.Deliveries[0].Text, "Present: 2\n❌ Absent: 1")

	records := f.recordsToday(t)
	require.Len(t, records, 1)
	require.Equal(t, "G1", records[0].Group)
	require.Equal(t, attendance.Period2, records[0].Period)
	require.Equal(t, []string{"A", "C"}, records[0].Present)
	require.Equal(t, []string{"B"}, records[0].AbsentUnexcused)
	require.Empty(t, records[0].AbsentExcused)
	require.Equal(t, opA, records[0].RecordedBy.ID)

	_, ok := f.d.Sessions().Get(opA)
	require.False(t, ok)
	f.activity.AssertCalled(t, "Log", mock.Anything, mock.MatchedBy(func(e *activity.ActivityEntry) bool {
		return e.ActivityType == activity.TypeAttendanceRecorded && e.OperatorID == opA
	}))
}

func TestDispatcher_SummaryGoesToLogChat(t *testing.T) {
	f := newFixture(t)
	group := dispatch.Chat{ID: -5001, Type: dispatch.ChatSupergroup}
	r := f.d.HandleCommand(context.Background(), dispatch.Operator{ID: opA}, group, "/set_log_chat", "")
	require.Equal(t, dispatch.NoticeNone, r.Notice)

	f.press(t, opA, action.SelectAttendanceGroup{Group: "G1"})
	f.press(t, opA, action.ConfirmStudents{})
	f.press(t, opA, action.SelectPeriod{Period: attendance.PeriodAllDay})
	r = f.press(t, opA, action.FinalConfirm{})

	require.Len(t, r.Deliveries, 1)
	require.Equal(t, int64(-5001), r.Deliveries[0].ChatID)
}

func TestDispatcher_FailedSaveKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.press(t, opA, action.SelectAttendanceGroup{Group: "G1"})
	f.press(t, opA, action.ToggleStudent{Student: "C"})
	f.press(t, opA, action.ConfirmStudents{})
	f.press(t, opA, action.SelectPeriod{Period: attendance.Period1})

	f.store.failSave = true
	r := f.press(t, opA, action.FinalConfirm{})
	require.Equal(t, dispatch.NoticeFailure, r.Notice)
	require.Empty(t, r.Deliveries)
	_, ok := f.d.Sessions().Get(opA)
	require.True(t, ok)

	f.store.failSave = false
	r = f.press(t, opA, action.FinalConfirm{})
	require.Equal(t, dispatch.NoticeNone, r.Notice)
	records := f.recordsToday(t)
	require.Len(t, records, 1)
	require.Equal(t, []string{"C"}, records[0].AbsentUnexcused)
}

func TestDispatcher_TwoOperatorsSameDay(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.attendance.AddGroup(context.Background(), attendance.Group{Name: "G2", Students: []string{"X", "Y"}}))

	f.press(t, opA, action.SelectAttendanceGroup{Group: "G1"})
	f.press(t, opB, action.SelectAttendanceGroup{Group: "G2"})
	f.press(t, opB, action.ToggleStudent{Student: "Y"})
	f.press(t, opA, action.ConfirmStudents{})
	f.press(t, opB, action.ConfirmStudents{})
	f.press(t, opA, action.SelectPeriod{Period: attendance.Period1})
	f.press(t, opB, action.SelectPeriod{Period: attendance.Period3})

	require.Empty(t, f.press(t, opA, action.FinalConfirm{}).Notice)
	require.Empty(t, f.press(t, opB, action.FinalConfirm{}).Notice)

	records := f.recordsToday(t)
	require.Len(t, records, 2)
	require.Equal(t, "G1", records[0].Group)
	require.Equal(t, "G2", records[1].Group)
	require.Equal(t, []string{"Y"}, records[1].AbsentUnexcused)
}

func TestDispatcher_LegacyGroupTokenFollowsFlow(t *testing.T) {
	f := newFixture(t)

	r := f.d.HandleRoute(context.Background(), dispatch.Operator{ID: opA}, dispatch.Chat{ID: opA}, "select_group::G1")
	require.Contains(t, menuRoutes(r), "toggle::A")
	s, ok := f.d.Sessions().Get(opA)
	require.True(t, ok)
	require.Equal(t, "G1", s.Group)

	f.press(t, opA, action.SelectReportMode{Mode: report.ModeDaily})
	r = f.d.HandleRoute(context.Background(), dispatch.Operator{ID: opA}, dispatch.Chat{ID: opA}, "select_group::G1")
	require.Equal(t, "No attendance found for G1 in 2025-03-10.", r.Text)
	_, ok = f.d.Sessions().Get(opA)
	require.False(t, ok)
}

func TestDispatcher_MonthlyReport(t *testing.T) {
	f := newFixture(t)
	f.press(t, opA, action.SelectAttendanceGroup{Group: "G1"})
	f.press(t, opA, action.ToggleStudent{Student: "A"})
	f.press(t, opA, action.ConfirmStudents{})
	f.press(t, opA, action.SelectPeriod{Period: attendance.Period4})
	f.press(t, opA, action.FinalConfirm{})

	r := f.press(t, opA, action.SelectReportMode{Mode: report.ModeMonthly})
	require.Contains(t, menuRoutes(r), "rep_group::G1")

	r = f.press(t, opA, action.SelectReportGroup{Group: "G1"})
	routes := menuRoutes(r)
	require.Contains(t, routes, "month::3")
	require.NotContains(t, routes, "month::7")

	r = f.press(t, opA, action.SelectMonth{Month: time.July})
	require.Equal(t, dispatch.NoticeInvalidChoice, r.Notice)

	r = f.press(t, opA, action.SelectMonth{Month: time.March})
	require.Equal(t, dispatch.NoticeNone, r.Notice)
	require.True(t, strings.HasPrefix(r.Text, "🗓️ Monthly attendance: March 2025, G1"))
	require.Contains(t, r.Text, "Unexcused (1): A")

	r = f.press(t, opA, action.SelectMonth{Month: time.March})
	require.Equal(t, dispatch.NoticeNoActiveProcess, r.Notice)
}

func TestDispatcher_ReportForMissingGroup(t *testing.T) {
	for _, mode := range []report.Mode{report.ModeDaily, report.ModeMonthly} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t)
			f.press(t, opA, action.SelectReportMode{Mode: mode})
			before, ok := f.d.Sessions().Get(opA)
			require.True(t, ok)

			r := f.press(t, opA, action.SelectReportGroup{Group: "Nope"})
			require.Equal(t, dispatch.NoticeNotFound, r.Notice)
			require.Empty(t, r.Text)

			after, ok := f.d.Sessions().Get(opA)
			require.True(t, ok)
			require.Equal(t, session.StageReportGroupSelection, after.Stage)
			require.Empty(t, after.ReportGroup)
			require.Equal(t, before, after)
		})
	}
}

func TestDispatcher_InvalidRoutes(t *testing.T) {
	f := newFixture(t)

	for _, token := range []string{"launch", "period::9", "toggle::%Z", "month::x"} {
		r := f.d.HandleRoute(context.Background(), dispatch.Operator{ID: opA}, dispatch.Chat{}, token)
		require.Equal(t, dispatch.NoticeInvalidChoice, r.Notice, token)
	}
	r := f.press(t, opA, action.SelectAttendanceGroup{Group: "nope"})
	require.Equal(t, dispatch.NoticeNotFound, r.Notice)

	f.press(t, opA, action.SelectAttendanceGroup{Group: "G1"})
	r = f.press(t, opA, action.ToggleStudent{Student: "Z"})
	require.Equal(t, dispatch.NoticeNotFound, r.Notice)
}

func TestDispatcher_RestoreMissingLeavesDocument(t *testing.T) {
	f := newFixture(t)

	r := f.command(t, opA, "restore_from", "db_backup_20000101_000000.json")
	require.Equal(t, dispatch.NoticeNotFound, r.Notice)
	require.Equal(t, "Backup not found.", r.Text)

	groups, err := f.attendance.Groups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
}

func TestDispatcher_BackupAndRestore(t *testing.T) {
	f := newFixture(t)

	r := f.command(t, opA, "backup", "")
	require.True(t, strings.HasPrefix(r.Text, "Backup created: db_backup_"))
	name := strings.TrimPrefix(r.Text, "Backup created: ")

	r = f.command(t, opA, "delete_group", "G1")
	require.Equal(t, "Group deleted: G1", r.Text)

	r = f.command(t, opA, "backups", "")
	require.Contains(t, r.Text, name)

	r = f.command(t, opA, "restore_from", name)
	require.Equal(t, dispatch.NoticeNone, r.Notice)
	_, err := f.attendance.Group(context.Background(), "G1")
	require.NoError(t, err)
}

func TestDispatcher_Commands(t *testing.T) {
	f := newFixture(t)

	r := f.command(t, opA, "/start", "")
	require.Len(t, r.Menu, 3)

	r = f.command(t, opA, "admins", "")
	require.Equal(t, "Admins: 100, 200", r.Text)

	r = f.command(t, opA, "add_group", "G9 | 77 | Ann; Bob ;  ; Cid")
	require.Equal(t, "Group saved: G9 (3 students)", r.Text)
	g, err := f.attendance.Group(context.Background(), "G9")
	require.NoError(t, err)
	require.Equal(t, []string{"Ann", "Bob", "Cid"}, g.Students)
	require.Equal(t, "77", g.Code)

	r = f.command(t, opA, "add_group", "missing separators")
	require.Equal(t, dispatch.NoticeInvalidChoice, r.Notice)

	r = f.command(t, opA, "list_groups", "")
	require.Contains(t, r.Text, "- G1 (3 students) code: 1")
	require.Contains(t, r.Text, "- G9 (3 students) code: 77")

	r = f.command(t, opA, "get_log_chat", "")
	require.Equal(t, "Current log chat id: not set", r.Text)
	r = f.command(t, opA, "set_log_chat", "")
	require.Equal(t, dispatch.NoticeInvalidChoice, r.Notice)
	r = f.command(t, opA, "set_log_chat", "abc")
	require.Equal(t, dispatch.NoticeInvalidChoice, r.Notice)
	r = f.command(t, opA, "set_log_chat", "-777")
	require.Equal(t, "Log chat set to id -777", r.Text)
	r = f.command(t, opA, "get_log_chat", "")
	require.Equal(t, "Current log chat id: -777", r.Text)
	r = f.command(t, opA, "clear_log_chat", "")
	require.Equal(t, "Log chat cleared.", r.Text)

	r = f.command(t, opA, "sample", "")
	require.Equal(t, "Sample groups added.", r.Text)

	r = f.command(t, opA, "cancel", "")
	require.Equal(t, dispatch.NoticeNoActiveProcess, r.Notice)
	require.NotEmpty(t, r.Text)
	f.press(t, opA, action.SelectAttendanceGroup{Group: "G1"})
	r = f.command(t, opA, "cancel", "")
	require.Equal(t, "Process cancelled.", r.Text)

	r = f.command(t, opA, "whatever", "")
	require.Contains(t, r.Text, "Admin panel")
	require.Len(t, r.Menu, 3)
}

func TestDispatcher_Activity(t *testing.T) {
	f := newFixture(t)
	f.activity.On("List", mock.Anything, activity.ListActivityOptions{Limit: 10}).Return([]activity.ActivityEntry{
		{OperatorID: opA, ActivityType: activity.TypeBackupCreated, Summary: "db_backup_x.json", CreatedAt: testNow},
	}, nil)

	r := f.command(t, opA, "activity", "")
	require.Contains(t, r.Text, "2025-03-10 09:00  100  backup_created  db_backup_x.json")
}
