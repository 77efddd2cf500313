package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/rpggio/rollcall/internal/domain/attendance"
)

// Service computes date ranges and aggregates stored records.
type Service struct {
	records RecordSource
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new report service. now supplies "today" and must
// return times in the location date keys are written in.
func NewService(records RecordSource, now func() time.Time, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if now == nil {
		now = time.Now
	}
	return &Service{records: records, logger: logger, now: now}
}

// RangeQuery returns every record from start to end inclusive.
func (s *Service) RangeQuery(ctx context.Context, start, end time.Time) ([]attendance.Record, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: range ends before it starts", ErrInvalidInput)
	}
	records, err := s.records.RecordsInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	return records, nil
}

// Range resolves the date range of a request relative to today.
func (s *Service) Range(req Request) (time.Time, time.Time, error) {
	now := s.now()
	switch req.Mode {
	case ModeDaily:
		start, end := DailyRange(now)
		return start, end, nil
	case ModeWeekly:
		start, end := WeeklyRange(now)
		return start, end, nil
	case ModeMonthly:
		if !MonthSelectable(req.Month) {
			return time.Time{}, time.Time{}, ErrMonthNotSelectable
		}
		start, end := MonthRange(now.Year(), req.Month, now.Location())
		return start, end, nil
	case ModeYearly:
		start, end := YearlyRange(now)
		return start, end, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: report mode %q", ErrInvalidInput, req.Mode)
}

// Run resolves the range, queries it and keeps the group's records.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	if strings.TrimSpace(req.Group) == "" {
		return nil, fmt.Errorf("%w: group is required", ErrInvalidInput)
	}
	start, end, err := s.Range(req)
	if err != nil {
		return nil, err
	}
	all, err := s.RangeQuery(ctx, start, end)
	if err != nil {
		return nil, err
	}
	records := FilterByGroup(all, req.Group)

	s.logger.Debug("report run",
		"mode", req.Mode,
		"group", req.Group,
		"start", attendance.DateKey(start),
		"end", attendance.DateKey(end),
		"records", len(records),
	)

	return &Report{
		Mode:    req.Mode,
		Group:   req.Group,
		Start:   start,
		End:     end,
		Records: records,
		Summary: Summarize(records),
	}, nil
}

// FilterByGroup keeps the records of one group in their original order.
func FilterByGroup(records []attendance.Record, group string) []attendance.Record {
	out := make([]attendance.Record, 0, len(records))
	for _, r := range records {
		if r.Group == group {
			out = append(out, r)
		}
	}
	return out
}

// Summarize totals the marks in records and tallies absences per student.
// Tallies are ordered by total absences, then by name.
func Summarize(records []attendance.Record) Summary {
	sum := Summary{Records: len(records)}
	tallies := map[string]*StudentTally{}
	tally := func(name string) *StudentTally {
		t, ok := tallies[name]
		if !ok {
			t = &StudentTally{Student: name}
			tallies[name] = t
		}
		return t
	}
	for _, r := range records {
		sum.Present += len(r.Present)
		sum.Unexcused += len(r.AbsentUnexcused)
		sum.Excused += len(r.AbsentExcused)
		for _, st := range r.AbsentUnexcused {
			tally(st).Unexcused++
		}
		for _, st := range r.AbsentExcused {
			tally(st).Excused++
		}
	}
	for _, t := range tallies {
		sum.Absences = append(sum.Absences, *t)
	}
	sort.Slice(sum.Absences, func(i, j int) bool {
		a, b := sum.Absences[i], sum.Absences[j]
		if a.Unexcused+a.Excused != b.Unexcused+b.Excused {
			return a.Unexcused+a.Excused > b.Unexcused+b.Excused
		}
		return a.Student < b.Student
	})
	return sum
}
