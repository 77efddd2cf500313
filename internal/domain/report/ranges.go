package report

import "time"

// excludedMonths are never offered by the monthly selector. Records dated in
// them still show up in any range that spans them.
var excludedMonths = map[time.Month]bool{
	time.June:   true,
	time.July:   true,
	time.August: true,
}

// SelectableMonths returns the months the monthly selector offers.
func SelectableMonths() []time.Month {
	months := make([]time.Month, 0, 12-len(excludedMonths))
	for m := time.January; m <= time.December; m++ {
		if !excludedMonths[m] {
			months = append(months, m)
		}
	}
	return months
}

// MonthSelectable reports whether m is offered by the monthly selector.
func MonthSelectable(m time.Month) bool {
	return m >= time.January && m <= time.December && !excludedMonths[m]
}

// DailyRange spans today.
func DailyRange(now time.Time) (time.Time, time.Time) {
	day := startOfDay(now)
	return day, day
}

// WeeklyRange spans the trailing seven days ending today.
func WeeklyRange(now time.Time) (time.Time, time.Time) {
	end := startOfDay(now)
	return end.AddDate(0, 0, -6), end
}

// MonthRange spans the full calendar month.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, -1)
}

// YearlyRange spans January 1 to December 31 of now's year.
func YearlyRange(now time.Time) (time.Time, time.Time) {
	y := now.Year()
	return time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location()),
		time.Date(y, time.December, 31, 0, 0, 0, 0, now.Location())
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
