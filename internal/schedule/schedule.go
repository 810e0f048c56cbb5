// Package schedule derives service due dates.
package schedule

import (
	"fmt"
	"time"

	"github.com/ukydev/vehicle-maintenance/internal/errs"
)

// DateLayout is the wire and storage format of service dates.
const DateLayout = "2006-01-02"

// DefaultIntervalMonths is the service interval applied to every record.
const DefaultIntervalMonths = 6

// ParseDate parses a YYYY-MM-DD service date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", errs.ErrInvalidArgument, s)
	}
	return t, nil
}

// AddMonths moves t forward by n calendar months, clamping the day to the last
// day of the target month (Aug 31 + 6 months is Feb 28, not Mar 3).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}

// NextServiceDate returns lastServiceDate plus intervalMonths, both as YYYY-MM-DD.
func NextServiceDate(lastServiceDate string, intervalMonths int) (string, error) {
	last, err := ParseDate(lastServiceDate)
	if err != nil {
		return "", err
	}
	return AddMonths(last, intervalMonths).Format(DateLayout), nil
}

// DueWithin reports whether nextServiceDate falls in [today, today+within].
// Dates that fail to parse are never due.
func DueWithin(nextServiceDate string, today time.Time, within time.Duration) bool {
	next, err := ParseDate(nextServiceDate)
	if err != nil {
		return false
	}
	start := truncateDay(today)
	end := truncateDay(today.Add(within))
	return !next.Before(start) && !next.After(end)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
