package core

import "time"

// Period is an inclusive time range. Both bounds are matched, so a
// transaction dated exactly at End belongs to the period.
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthPeriod returns [first day 00:00:00.000, last day 23:59:59.999] of the
// given month in loc. month must be 1-12.
func MonthPeriod(year, month int, loc *time.Location) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, ErrInvalidMonth
	}
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return Period{Start: start, End: end}, nil
}

// CurrentMonth returns the year and month of now in loc.
func CurrentMonth(now time.Time, loc *time.Location) (int, int) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return local.Year(), int(local.Month())
}

// Contains reports whether t falls inside the period, bounds included.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}
