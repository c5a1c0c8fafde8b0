/*
dates.go - Working-day and calendar-day arithmetic

PURPOSE:
  Pure date functions shared by routing and the lifecycle. The engine
  works at day granularity: every stored date is normalized to UTC
  midnight, and ranges are inclusive of both endpoints.

TWO DAY COUNTS:
  The engine deliberately uses two different counts for one range:
  - CalendarDays: inclusive calendar span, used for the submission-time
    balance availability check.
  - CountWorkingDays: Monday-Friday days only, used for the escalation
    threshold and for the amount actually debited/credited.

  Holidays are not considered; a working day is any weekday.
*/
package engine

import "time"

// Day truncates t to UTC midnight. All engine dates pass through this.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate builds a day-granular UTC date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// CountWorkingDays counts the Monday-Friday days in [start, end],
// inclusive of both endpoints. It fails when start is after end;
// callers validate range order before any other use of the range.
// Deterministic and side-effect free.
func CountWorkingDays(start, end time.Time) (int, error) {
	start, end = Day(start), Day(end)
	if start.After(end) {
		return 0, &ValidationError{Field: "dates", Message: "start date cannot be after end date"}
	}

	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !IsWeekend(d) {
			count++
		}
	}
	return count, nil
}

// CalendarDays counts all days in [start, end] inclusive. Returns 0
// for an inverted range.
func CalendarDays(start, end time.Time) int {
	start, end = Day(start), Day(end)
	if start.After(end) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// RangesOverlap reports closed-interval overlap: boundary-inclusive,
// so a shared single day counts as overlap.
func RangesOverlap(start1, end1, start2, end2 time.Time) bool {
	return !start1.After(end2) && !end1.Before(start2)
}
