package schedule

import (
	"time"

	"github.com/samber/mo"
)

// Periodicity is the recurrence family governing how a course repeats.
type Periodicity string

// Supported periodicities.
const (
	PeriodicityOnce     Periodicity = "ONCE"
	PeriodicityDaily    Periodicity = "DAILY"
	PeriodicityWeekly   Periodicity = "WEEKLY"
	PeriodicityBiweekly Periodicity = "BIWEEKLY"
	PeriodicityMonthly  Periodicity = "MONTHLY"
	PeriodicityCustom   Periodicity = "CUSTOM"
)

// WeekOfMonthLast selects the last matching weekday of each month.
const WeekOfMonthLast = -1

// Date is a calendar date with no time-of-day or zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates an instant to its calendar date in the instant's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// At combines the date with a time-of-day in the given location.
func (d Date) At(tod TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, tod.Hour, tod.Minute, 0, 0, loc)
}

// Midnight returns the date at 00:00 in the given location.
func (d Date) Midnight(loc *time.Location) time.Time {
	return d.At(TimeOfDay{}, loc)
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// Weekday reports the day of week the date falls on.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// String renders the date as ISO 8601 (YYYY-MM-DD).
func (d Date) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String renders the time as HH:MM.
func (t TimeOfDay) String() string {
	return time.Date(0, 1, 1, t.Hour, t.Minute, 0, 0, time.UTC).Format("15:04")
}

// Rule is an immutable recurrence description for a course. Unset dates and
// times are modelled as absent options; upstream sentinel encodings are
// normalised away before a Rule is built.
type Rule struct {
	StartDate   mo.Option[Date]
	EndDate     mo.Option[Date]
	StartTime   mo.Option[TimeOfDay]
	EndTime     mo.Option[TimeOfDay]
	Periodicity Periodicity
	Weekdays    []time.Weekday
	WeekOfMonth int
	Interval    int
	Exclusions  []Date
	Location    *time.Location
}

// Scheduled reports whether the fields needed to place the course in time
// are present. A Once rule ends on its start date, so its end date may stay
// unset.
func (r Rule) Scheduled() bool {
	if !r.StartDate.IsPresent() || !r.StartTime.IsPresent() || !r.EndTime.IsPresent() {
		return false
	}
	return r.EndDate.IsPresent() || r.Periodicity == PeriodicityOnce
}

// effectiveEndDate is the end date, falling back to the start date for Once
// rules.
func (r Rule) effectiveEndDate() mo.Option[Date] {
	if r.EndDate.IsPresent() || r.Periodicity != PeriodicityOnce {
		return r.EndDate
	}
	return r.StartDate
}

// StartInstant combines start date and time in the rule's location.
func (r Rule) StartInstant() mo.Option[time.Time] {
	date, ok := r.StartDate.Get()
	if !ok {
		return mo.None[time.Time]()
	}
	tod, ok := r.StartTime.Get()
	if !ok {
		return mo.None[time.Time]()
	}
	return mo.Some(date.At(tod, r.loc()))
}

// EndInstant combines end date and time in the rule's location.
func (r Rule) EndInstant() mo.Option[time.Time] {
	date, ok := r.effectiveEndDate().Get()
	if !ok {
		return mo.None[time.Time]()
	}
	tod, ok := r.EndTime.Get()
	if !ok {
		return mo.None[time.Time]()
	}
	return mo.Some(date.At(tod, r.loc()))
}

// Excluded reports whether the given calendar date is skipped. Matching is by
// date only; time-of-day never participates.
func (r Rule) Excluded(d Date) bool {
	for _, ex := range r.Exclusions {
		if ex == d {
			return true
		}
	}
	return false
}

func (r Rule) loc() *time.Location {
	if r.Location != nil {
		return r.Location
	}
	return time.UTC
}

// mondayIndex maps a weekday to its position in Monday-first order.
func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// normalizedWeekdays returns the rule's weekday set deduplicated and sorted
// Monday-first. Monthly resolution and formatting both rely on this order.
func (r Rule) normalizedWeekdays() []time.Weekday {
	seen := [7]bool{}
	for _, wd := range r.Weekdays {
		seen[mondayIndex(wd)] = true
	}
	out := make([]time.Weekday, 0, len(r.Weekdays))
	for i := 0; i < 7; i++ {
		if seen[i] {
			out = append(out, time.Weekday((i+1)%7))
		}
	}
	return out
}

// effectiveInterval resolves the recurrence step. Once is always 1 and
// Biweekly is the weekly rule with a fixed step of 2.
func (r Rule) effectiveInterval() int {
	if r.Interval < 0 {
		panic("schedule: negative interval")
	}
	switch r.Periodicity {
	case PeriodicityOnce:
		return 1
	case PeriodicityBiweekly:
		return 2
	}
	if r.Interval == 0 {
		return 1
	}
	return r.Interval
}

// requiresWeekdays reports whether the periodicity is meaningless without a
// weekday set.
func (r Rule) requiresWeekdays() bool {
	switch r.Periodicity {
	case PeriodicityWeekly, PeriodicityBiweekly, PeriodicityCustom:
		return true
	}
	return false
}
