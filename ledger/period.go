package ledger

import "time"

// =============================================================================
// PERIOD - Aggregation granularity
// =============================================================================

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod reads a period token. An empty token means month.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodMonth, nil
	case PeriodWeek, PeriodMonth, PeriodYear:
		return Period(s), nil
	}
	return "", validationf("period must be week, month or year")
}

// PeriodFor maps a budget period onto its aggregation window granularity.
func PeriodFor(bp BudgetPeriod) Period {
	if bp == BudgetWeekly {
		return PeriodWeek
	}
	return PeriodMonth
}

// Window is an inclusive [Start, End] range. End is the last instant
// before the next window starts.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t is within [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Days returns local midnight for every calendar day in the window.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// WindowAt returns the window of granularity p containing t, in t's
// location. Weeks run Sunday 00:00 through Saturday end of day.
func (p Period) WindowAt(t time.Time) Window {
	loc := t.Location()
	var start, next time.Time
	switch p {
	case PeriodWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		start = day.AddDate(0, 0, -int(day.Weekday()))
		next = start.AddDate(0, 0, 7)
	case PeriodYear:
		start = time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc)
		next = start.AddDate(1, 0, 0)
	default:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
		next = start.AddDate(0, 1, 0)
	}
	return Window{Start: start, End: next.Add(-time.Nanosecond)}
}

// Previous returns the window of the same granularity immediately before w.
func (p Period) Previous(w Window) Window {
	return p.WindowAt(w.Start.Add(-time.Nanosecond))
}
