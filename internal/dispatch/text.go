package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/rollcall/internal/action"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/report"
	"github.com/rpggio/rollcall/internal/domain/session"
)

const (
	startText = "Welcome to the attendance system.\n" +
		"Use the buttons below to take attendance or view reports."
	mainMenuText = "Main menu:"
	helpText     = "Help:\n" +
		"- Attendance: choose a group, tap students to change their mark, choose the period, confirm\n" +
		"- Reports: daily, weekly, monthly or yearly\n" +
		"- /set_log_chat: choose the chat that receives confirmed attendance\n" +
		"- /cancel: drop the process in progress"
	fallbackText = "Admin panel:\n/start - main menu\n/help - help"

	attendanceGroupsText = "Take attendance: choose a group:"
	reportGroupsText     = "Choose a group:"
	reportsText          = "Reports: choose a range:"
	periodText           = "Which period is this attendance for?"
	monthText            = "Choose a month (June, July and August are not offered):"
	savedText            = "Attendance saved.\n\nMain menu:"

	deniedText          = "This bot is for admins only. Please contact an admin."
	noActiveProcessText = "No active process. Start again from the menu."
	invalidChoiceText   = "Invalid choice."
	saveFailedText      = "Saving failed. Please try again."
	failureText         = "Something went wrong. Please try again."

	humanDate = "02 January 2006"
)

func button(label string, a action.Action) Button {
	return Button{Label: label, Route: action.Route(a)}
}

func backButton(a action.Action) Button {
	return button("⬅️ Back", a)
}

func mainMenu() [][]Button {
	return [][]Button{
		{button("📝 Take attendance", action.ShowAttendanceMenu{})},
		{button("📊 Reports", action.ShowReportsMenu{})},
		{button("ℹ️ Help", action.ShowHelp{})},
	}
}

func groupMenu(groups []attendance.Group, pick func(name string) action.Action, back action.Action) [][]Button {
	rows := make([][]Button, 0, len(groups)+1)
	if len(groups) == 0 {
		rows = append(rows, []Button{button("No groups found", action.Noop{})})
	}
	for _, g := range groups {
		rows = append(rows, []Button{button("👥 "+g.Name, pick(g.Name))})
	}
	return append(rows, []Button{backButton(back)})
}

func statusIcon(s attendance.Status) string {
	switch s {
	case attendance.StatusAbsentUnexcused:
		return "❌"
	case attendance.StatusAbsentExcused:
		return "🟡"
	}
	return "✅"
}

func statusLabel(s attendance.Status) string {
	switch s {
	case attendance.StatusAbsentUnexcused:
		return "absent (unexcused)"
	case attendance.StatusAbsentExcused:
		return "absent (excused)"
	}
	return "present"
}

func rosterText(s session.Session) string {
	return fmt.Sprintf("Group: %s\nStudents (✅ present, ❌ unexcused, 🟡 excused).\nTap a name to change the mark.", s.Group)
}

func rosterMenu(s session.Session) [][]Button {
	rows := make([][]Button, 0, len(s.Students)+2)
	for _, st := range s.Students {
		rows = append(rows, []Button{button(statusIcon(s.Status(st))+" "+st, action.ToggleStudent{Student: st})})
	}
	return append(rows,
		[]Button{
			button("Mark all present", action.BulkStatus{Status: attendance.StatusPresent}),
			button("Mark all absent", action.BulkStatus{Status: attendance.StatusAbsentUnexcused}),
		},
		[]Button{
			button("✅ Confirm", action.ConfirmStudents{}),
			backButton(action.BackToGroups{}),
		},
	)
}

func periodMenu() [][]Button {
	return [][]Button{
		{
			button(attendance.Period1.Label(), action.SelectPeriod{Period: attendance.Period1}),
			button(attendance.Period2.Label(), action.SelectPeriod{Period: attendance.Period2}),
		},
		{
			button(attendance.Period3.Label(), action.SelectPeriod{Period: attendance.Period3}),
			button(attendance.Period4.Label(), action.SelectPeriod{Period: attendance.Period4}),
		},
		{button(attendance.PeriodAllDay.Label(), action.SelectPeriod{Period: attendance.PeriodAllDay})},
		{backButton(action.BackToStudents{})},
	}
}

func previewMenu() [][]Button {
	return [][]Button{
		{
			button("✅ Confirm", action.FinalConfirm{}),
			button("❌ Cancel", action.FinalCancel{}),
		},
		{backButton(action.BackToPeriods{})},
	}
}

func reportsMenu() [][]Button {
	return [][]Button{
		{
			button("📅 Daily", action.SelectReportMode{Mode: report.ModeDaily}),
			button("📆 Weekly", action.SelectReportMode{Mode: report.ModeWeekly}),
		},
		{
			button("🗓️ Monthly", action.SelectReportMode{Mode: report.ModeMonthly}),
			button("📈 Yearly", action.SelectReportMode{Mode: report.ModeYearly}),
		},
		{backButton(action.BackToMain{})},
	}
}

func monthMenu() [][]Button {
	var rows [][]Button
	var row []Button
	for _, m := range report.SelectableMonths() {
		row = append(row, button(m.String(), action.SelectMonth{Month: m}))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return append(rows, []Button{backButton(action.BackToReports{})})
}

func writeNames(b *strings.Builder, title string, names []string) {
	fmt.Fprintf(b, "%s (%d):\n", title, len(names))
	if len(names) == 0 {
		b.WriteString("-\n")
		return
	}
	for _, n := range names {
		fmt.Fprintf(b, "- %s\n", n)
	}
}

func previewText(s session.Session, now time.Time) string {
	_, unexcused, excused := s.Partition()
	var b strings.Builder
	b.WriteString("📝 Confirm attendance\n\n")
	fmt.Fprintf(&b, "🏫 Group: %s\n", s.Group)
	fmt.Fprintf(&b, "⏰ %s\n", s.Period.Label())
	fmt.Fprintf(&b, "📅 Date: %s\n\n", now.Format(humanDate))
	fmt.Fprintf(&b, "👥 Absent students (%d):\n", len(unexcused)+len(excused))
	if len(unexcused) > 0 {
		b.WriteString("\nUnexcused:\n")
		for _, n := range unexcused {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	if len(excused) > 0 {
		b.WriteString("\nExcused:\n")
		for _, n := range excused {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	b.WriteString("\nConfirm?")
	return b.String()
}

func summaryText(rec attendance.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏫 Group: %s\n", rec.Group)
	fmt.Fprintf(&b, "⏰ %s\n", rec.Period.Label())
	fmt.Fprintf(&b, "📅 Date: %s\n\n", rec.RecordedAt.Format(humanDate))
	writeNames(&b, "👥 Unexcused", rec.AbsentUnexcused)
	b.WriteString("\n")
	writeNames(&b, "👥 Excused", rec.AbsentExcused)
	fmt.Fprintf(&b, "\n✅ Present: %d\n", len(rec.Present))
	fmt.Fprintf(&b, "❌ Absent: %d\n\n", rec.Absent())
	fmt.Fprintf(&b, "Recorded by %s.", rec.RecordedBy.Label())
	if rec.Period != attendance.PeriodAllDay {
		fmt.Fprintf(&b, "\n\n⚠️ These students missed %s only.", strings.ToLower(rec.Period.Label()))
	}
	return b.String()
}

func reportTitle(rep *report.Report) string {
	switch rep.Mode {
	case report.ModeDaily:
		return fmt.Sprintf("📅 Daily attendance: %s, %s", attendance.DateKey(rep.Start), rep.Group)
	case report.ModeWeekly:
		return fmt.Sprintf("📆 Weekly attendance: %s to %s, %s", attendance.DateKey(rep.Start), attendance.DateKey(rep.End), rep.Group)
	case report.ModeMonthly:
		return fmt.Sprintf("🗓️ Monthly attendance: %s, %s", rep.Start.Format("January 2006"), rep.Group)
	}
	return fmt.Sprintf("📈 Yearly attendance: %d, %s", rep.Start.Year(), rep.Group)
}

func reportText(rep *report.Report) string {
	if rep.Empty() {
		var span string
		switch rep.Mode {
		case report.ModeDaily:
			span = attendance.DateKey(rep.Start)
		case report.ModeWeekly:
			span = attendance.DateKey(rep.Start) + " to " + attendance.DateKey(rep.End)
		case report.ModeMonthly:
			span = rep.Start.Format("January 2006")
		default:
			span = fmt.Sprint(rep.Start.Year())
		}
		return fmt.Sprintf("No attendance found for %s in %s.", rep.Group, span)
	}

	var b strings.Builder
	b.WriteString(reportTitle(rep))
	for _, rec := range rep.Records {
		fmt.Fprintf(&b, "\n\n📆 %s, %s", attendance.DateKey(rec.RecordedAt), rec.Period.Label())
		fmt.Fprintf(&b, "\n✅ Present (%d): %s", len(rec.Present), joinOrDash(rec.Present))
		fmt.Fprintf(&b, "\n❌ Unexcused (%d): %s", len(rec.AbsentUnexcused), joinOrDash(rec.AbsentUnexcused))
		fmt.Fprintf(&b, "\n🟡 Excused (%d): %s", len(rec.AbsentExcused), joinOrDash(rec.AbsentExcused))
	}
	sum := rep.Summary
	fmt.Fprintf(&b, "\n\nTotal: %d records, %d present, %d unexcused, %d excused",
		sum.Records, sum.Present, sum.Unexcused, sum.Excused)
	if len(sum.Absences) > 0 {
		b.WriteString("\nMost absences:")
		for i, t := range sum.Absences {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "\n- %s: %d unexcused, %d excused", t.Student, t.Unexcused, t.Excused)
		}
	}
	return b.String()
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
