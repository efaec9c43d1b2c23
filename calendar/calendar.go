/*
Package calendar computes working days over civil calendar dates.

PURPOSE:
  Everything in this system is expressed in whole calendar days: a request
  for "Nov 19" means the same wall-clock day no matter where the server or
  the client runs. This package therefore operates on (year, month, day)
  triples, never on instants, and has no notion of time zones.

KEY CONCEPTS:
  - Date:       A civil calendar date (year, month, day)
  - WorkWeek:   Which weekdays count as working days for an organization
  - HolidaySet: Dates excluded from the working-day count
  - WorkingDays: The single counting function the rest of the system uses

DESIGN PRINCIPLES:
  1. Purity: no clocks, no I/O; WorkingDays is a deterministic function
  2. No duplication: there is exactly ONE working-day implementation;
     callers must never recompute this client-side or inline
  3. Civil dates only: time.Time appears solely as a conversion detail

USAGE:
  week := calendar.DefaultWorkWeek()
  holidays := calendar.NewHolidaySet(calendar.NewDate(2025, time.December, 25))
  n, err := calendar.WorkingDays(start, end, week, holidays)

SEE ALSO:
  - leave/validate.go: consumes WorkingDays for every request rule
  - store/sqlite: persists Date values as YYYY-MM-DD strings
*/
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrInvalidRange is returned when a range's end date precedes its start date.
var ErrInvalidRange = errors.New("invalid range: end before start")

// =============================================================================
// DATE - Civil calendar date
// =============================================================================

// Date is a civil calendar date. The zero value is not a valid date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate constructs a Date. Out-of-range components are normalized the way
// time.Date normalizes them (Feb 30 becomes Mar 1/2).
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateOf truncates a time.Time to its civil date in UTC.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{Year: u.Year(), Month: u.Month(), Day: u.Day()}
}

// Today returns the current civil date in UTC.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

// Time converts the date to a UTC midnight instant.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string { return d.Time().Format("2006-01-02") }

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

// Comparison
func (d Date) Before(other Date) bool { return d.Time().Before(other.Time()) }
func (d Date) After(other Date) bool  { return d.Time().After(other.Time()) }
func (d Date) Equal(other Date) bool  { return d == other }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// AddDays returns the date n calendar days later (or earlier for negative n).
func (d Date) AddDays(n int) Date { return DateOf(d.Time().AddDate(0, 0, n)) }

// DaysUntil returns the number of calendar days from d to other.
// Negative when other precedes d.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

// =============================================================================
// WORK WEEK - Which weekdays are working days
// =============================================================================

// WorkWeek is the set of weekdays an organization works. Indexed by
// time.Weekday (Sunday = 0).
type WorkWeek [7]bool

// DefaultWorkWeek returns Monday through Friday.
func DefaultWorkWeek() WorkWeek {
	return NewWorkWeek(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
}

// NewWorkWeek builds a WorkWeek from explicit weekdays.
func NewWorkWeek(days ...time.Weekday) WorkWeek {
	var w WorkWeek
	for _, d := range days {
		w[d] = true
	}
	return w
}

// Contains reports whether the weekday is a working day.
func (w WorkWeek) Contains(d time.Weekday) bool { return w[d] }

// IsEmpty reports whether no weekday is a working day.
func (w WorkWeek) IsEmpty() bool {
	for _, b := range w {
		if b {
			return false
		}
	}
	return true
}

// Weekdays returns the working weekdays in Sunday-first order.
func (w WorkWeek) Weekdays() []time.Weekday {
	var days []time.Weekday
	for i, b := range w {
		if b {
			days = append(days, time.Weekday(i))
		}
	}
	return days
}

// =============================================================================
// HOLIDAY SET - Dates excluded from the count
// =============================================================================

// HolidaySet is a set of dates that do not count as working days.
// Callers build it already filtered to the organization's holiday policy.
type HolidaySet map[Date]struct{}

// NewHolidaySet builds a set from explicit dates.
func NewHolidaySet(dates ...Date) HolidaySet {
	s := make(HolidaySet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

// Add inserts a date into the set.
func (s HolidaySet) Add(d Date) { s[d] = struct{}{} }

// Contains reports whether the date is a holiday.
func (s HolidaySet) Contains(d Date) bool {
	_, ok := s[d]
	return ok
}

// =============================================================================
// WORKING DAYS - The one counting function
// =============================================================================

// WorkingDays counts the dates in [start, end] (inclusive on both ends) that
// fall on a working weekday and are not holidays. Returns ErrInvalidRange
// when end precedes start.
func WorkingDays(start, end Date, week WorkWeek, holidays HolidaySet) (int, error) {
	if end.Before(start) {
		return 0, ErrInvalidRange
	}

	count := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if !week.Contains(d.Weekday()) {
			continue
		}
		if holidays.Contains(d) {
			continue
		}
		count++
	}
	return count, nil
}

// Overlaps reports whether [aStart, aEnd] and [bStart, bEnd] intersect.
// Both ranges are inclusive.
func Overlaps(aStart, aEnd, bStart, bEnd Date) bool {
	return aStart.BeforeOrEqual(bEnd) && bStart.BeforeOrEqual(aEnd)
}
