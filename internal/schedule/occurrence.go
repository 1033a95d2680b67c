package schedule

import (
	"time"

	"github.com/samber/mo"
)

// maxScanIterations bounds expansion when a rule has no end date, so every
// iterator terminates. 366 steps covers a full year of daily scanning.
const maxScanIterations = 366

// Window optionally bounds occurrence expansion by instant range and count.
// The zero value means "everything the rule produces" (still capped when the
// rule is open-ended).
type Window struct {
	From  mo.Option[time.Time]
	Until mo.Option[time.Time]
	Limit int
}

type iterMode int

const (
	modeDone iterMode = iota
	modeOnce
	modeDayScan
	modeMonthly
)

// Iterator lazily walks a rule's occurrence instants. It never mutates the
// rule; a fresh iterator restarts the expansion.
type Iterator struct {
	rule     Rule
	window   Window
	loc      *time.Location
	tod      TimeOfDay
	interval int
	inSet    [7]bool
	anySet   bool

	mode       iterMode
	cursor     Date
	end        Date
	hasEnd     bool
	anchorWeek Date

	monthCursor  Date
	monthWeekday time.Weekday
	monthDay     int

	scans   int
	emitted int
}

// Iter builds an iterator over the rule's occurrences within the window.
// Degenerate rules (unset start, empty weekday set, inverted date range)
// produce an exhausted iterator rather than an error.
func (r Rule) Iter(w Window) *Iterator {
	it := &Iterator{rule: r, window: w, loc: r.loc(), interval: r.effectiveInterval()}
	if tod, ok := r.StartTime.Get(); ok {
		it.tod = tod
	}

	start, ok := r.StartDate.Get()
	if !ok {
		return it
	}
	if end, ok := r.EndDate.Get(); ok {
		if end.Before(start) {
			return it
		}
		it.end = end
		it.hasEnd = true
	}

	weekdays := r.normalizedWeekdays()
	for _, wd := range weekdays {
		it.inSet[wd] = true
		it.anySet = true
	}
	if r.requiresWeekdays() && !it.anySet {
		return it
	}

	switch r.Periodicity {
	case PeriodicityOnce:
		it.mode = modeOnce
		it.cursor = start
	case PeriodicityDaily:
		it.mode = modeDayScan
		it.cursor = start
	case PeriodicityWeekly, PeriodicityBiweekly, PeriodicityCustom:
		it.mode = modeDayScan
		it.cursor = start
		anchor, ok := firstMatching(start, it.inSet)
		if !ok {
			return it
		}
		it.anchorWeek = anchor.AddDays(-mondayIndex(anchor.Weekday()))
	case PeriodicityMonthly:
		it.mode = modeMonthly
		it.cursor = start
		it.monthCursor = NewDate(start.Year, start.Month, 1)
		if len(weekdays) > 0 {
			it.monthWeekday = weekdays[0]
		} else {
			it.monthWeekday = start.Weekday()
		}
		it.monthDay = start.Day
	default:
		return it
	}
	return it
}

// Next yields the next occurrence instant, or false when the expansion is
// exhausted.
func (it *Iterator) Next() (time.Time, bool) {
	if it.mode == modeDone {
		return time.Time{}, false
	}
	if it.window.Limit > 0 && it.emitted >= it.window.Limit {
		it.mode = modeDone
		return time.Time{}, false
	}

	switch it.mode {
	case modeOnce:
		it.mode = modeDone
		if it.rule.Excluded(it.cursor) {
			return time.Time{}, false
		}
		occ := it.cursor.At(it.tod, it.loc)
		if !it.inWindow(occ) {
			return time.Time{}, false
		}
		it.emitted++
		return occ, true
	case modeDayScan:
		return it.nextDayScan()
	case modeMonthly:
		return it.nextMonthly()
	}
	return time.Time{}, false
}

func (it *Iterator) nextDayScan() (time.Time, bool) {
	for {
		if it.hasEnd {
			if it.cursor.After(it.end) {
				it.mode = modeDone
				return time.Time{}, false
			}
		} else if it.scans >= maxScanIterations {
			it.mode = modeDone
			return time.Time{}, false
		}

		candidate := it.cursor
		it.cursor = it.cursor.AddDays(1)
		it.scans++

		if !it.matchesDay(candidate) || it.rule.Excluded(candidate) {
			continue
		}
		occ := candidate.At(it.tod, it.loc)
		if until, ok := it.window.Until.Get(); ok && occ.After(until) {
			it.mode = modeDone
			return time.Time{}, false
		}
		if from, ok := it.window.From.Get(); ok && occ.Before(from) {
			continue
		}
		it.emitted++
		return occ, true
	}
}

func (it *Iterator) nextMonthly() (time.Time, bool) {
	for {
		if !it.hasEnd && it.scans >= maxScanIterations {
			it.mode = modeDone
			return time.Time{}, false
		}

		month := it.monthCursor
		it.monthCursor = addMonths(it.monthCursor, it.interval)
		it.scans++

		candidate, ok := it.resolveInMonth(month)
		if !ok || candidate.Before(it.cursor) {
			continue
		}
		if it.hasEnd && candidate.After(it.end) {
			it.mode = modeDone
			return time.Time{}, false
		}
		if it.rule.Excluded(candidate) {
			continue
		}
		occ := candidate.At(it.tod, it.loc)
		if until, ok := it.window.Until.Get(); ok && occ.After(until) {
			it.mode = modeDone
			return time.Time{}, false
		}
		if from, ok := it.window.From.Get(); ok && occ.Before(from) {
			continue
		}
		it.emitted++
		return occ, true
	}
}

// resolveInMonth picks the single candidate date for a month: the ordinal
// weekday when WeekOfMonth is set, otherwise the start date's day-of-month.
// Months lacking the candidate (short months, missing fifth weekday) resolve
// to nothing.
func (it *Iterator) resolveInMonth(firstOfMonth Date) (Date, bool) {
	if it.rule.WeekOfMonth != 0 {
		return nthWeekdayOfMonth(firstOfMonth, it.monthWeekday, it.rule.WeekOfMonth)
	}
	if it.monthDay > daysInMonth(firstOfMonth) {
		return Date{}, false
	}
	return NewDate(firstOfMonth.Year, firstOfMonth.Month, it.monthDay), true
}

// matchesDay applies the per-periodicity day filter during a linear scan.
func (it *Iterator) matchesDay(d Date) bool {
	switch it.rule.Periodicity {
	case PeriodicityDaily:
		return true
	case PeriodicityWeekly, PeriodicityBiweekly, PeriodicityCustom:
		if !it.inSet[d.Weekday()] {
			return false
		}
		weekStart := d.AddDays(-mondayIndex(d.Weekday()))
		weeks := daysBetween(it.anchorWeek, weekStart) / 7
		return weeks >= 0 && weeks%it.interval == 0
	}
	return false
}

func (it *Iterator) inWindow(occ time.Time) bool {
	if from, ok := it.window.From.Get(); ok && occ.Before(from) {
		return false
	}
	if until, ok := it.window.Until.Get(); ok && occ.After(until) {
		return false
	}
	return true
}

// Occurrences expands up to limit instants. A non-positive limit returns
// everything the rule produces under the iterator's own caps.
func (r Rule) Occurrences(limit int) []time.Time {
	return collect(r.Iter(Window{Limit: limit}))
}

// Between expands the occurrences falling inside [from, until].
func (r Rule) Between(from, until time.Time) []time.Time {
	return collect(r.Iter(Window{From: mo.Some(from), Until: mo.Some(until)}))
}

func collect(it *Iterator) []time.Time {
	var out []time.Time
	for {
		occ, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, occ)
	}
}

// firstMatching finds the first date on or after start whose weekday is in
// the set, looking at most one week ahead.
func firstMatching(start Date, inSet [7]bool) (Date, bool) {
	for i := 0; i < 7; i++ {
		d := start.AddDays(i)
		if inSet[d.Weekday()] {
			return d, true
		}
	}
	return Date{}, false
}

func daysBetween(from, to Date) int {
	a := time.Date(from.Year, from.Month, from.Day, 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year, to.Month, to.Day, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}

func daysInMonth(d Date) int {
	return time.Date(d.Year, d.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func addMonths(firstOfMonth Date, n int) Date {
	t := time.Date(firstOfMonth.Year, firstOfMonth.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return DateOf(t)
}

// nthWeekdayOfMonth resolves "the n-th wd of the month" (n 1..5) or the last
// one (n == WeekOfMonthLast). Reports false when the month has no such day.
func nthWeekdayOfMonth(firstOfMonth Date, wd time.Weekday, n int) (Date, bool) {
	last := daysInMonth(firstOfMonth)
	if n == WeekOfMonthLast {
		lastDate := NewDate(firstOfMonth.Year, firstOfMonth.Month, last)
		back := (int(lastDate.Weekday()) - int(wd) + 7) % 7
		return NewDate(firstOfMonth.Year, firstOfMonth.Month, last-back), true
	}
	if n < 1 {
		return Date{}, false
	}
	offset := (int(wd) - int(firstOfMonth.Weekday()) + 7) % 7
	day := 1 + offset + 7*(n-1)
	if day > last {
		return Date{}, false
	}
	return NewDate(firstOfMonth.Year, firstOfMonth.Month, day), true
}
