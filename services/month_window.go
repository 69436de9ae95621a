package services

import "time"

// MonthWindow returns the first and last instant (millisecond precision) of t's UTC calendar month.
func MonthWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}

// MonthKey is the YYYY-MM label used by the bonus ledger.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
