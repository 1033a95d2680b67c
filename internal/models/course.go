package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/samber/mo"

	"github.com/ordinaly-software/catalog-api/internal/schedule"
)

// unsetDateSentinel is how the legacy course feed encodes "not yet
// scheduled". It is a wire-format detail only; it never leaks past Rule().
const unsetDateSentinel = "0000-00-00"

// Course is the catalog row as persisted by the course-management
// collaborator. This service reads snapshots and never writes course or
// capacity columns.
type Course struct {
	ID                string         `db:"id" json:"id"`
	Title             string         `db:"title" json:"title"`
	Slug              string         `db:"slug" json:"slug"`
	Description       string         `db:"description" json:"description"`
	StartDate         string         `db:"start_date" json:"start_date"`
	EndDate           string         `db:"end_date" json:"end_date"`
	StartTime         *string        `db:"start_time" json:"start_time,omitempty"`
	EndTime           *string        `db:"end_time" json:"end_time,omitempty"`
	Periodicity       string         `db:"periodicity" json:"periodicity"`
	Weekdays          pq.StringArray `db:"weekdays" json:"weekdays"`
	WeekOfMonth       *int           `db:"week_of_month" json:"week_of_month,omitempty"`
	Interval          int            `db:"recurrence_interval" json:"interval"`
	ExcludeDates      pq.StringArray `db:"exclude_dates" json:"exclude_dates,omitempty"`
	Timezone          string         `db:"timezone" json:"timezone"`
	MaxAttendants     int            `db:"max_attendants" json:"max_attendants"`
	EnrolledCount     int            `db:"enrolled_count" json:"enrolled_count"`
	FormattedSchedule *string        `db:"formatted_schedule" json:"formatted_schedule,omitempty"`
	NextOccurrences   pq.StringArray `db:"next_occurrences" json:"next_occurrences,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// Rule normalises the wire columns into a schedule rule: sentinel and
// malformed dates become absent options, weekday names become a weekday set
// and an unknown timezone falls back to UTC.
func (c Course) Rule() schedule.Rule {
	interval := c.Interval
	if interval < 1 {
		interval = 1
	}
	weekOfMonth := 0
	if c.WeekOfMonth != nil {
		weekOfMonth = *c.WeekOfMonth
	}
	return schedule.Rule{
		StartDate:   parseWireDate(c.StartDate),
		EndDate:     parseWireDate(c.EndDate),
		StartTime:   parseWireTime(c.StartTime),
		EndTime:     parseWireTime(c.EndTime),
		Periodicity: parsePeriodicity(c.Periodicity),
		Weekdays:    parseWeekdays(c.Weekdays),
		WeekOfMonth: weekOfMonth,
		Interval:    interval,
		Exclusions:  parseWireDates(c.ExcludeDates),
		Location:    loadLocation(c.Timezone),
	}
}

// Snapshot converts the row into the engine's course view.
func (c Course) Snapshot() schedule.Course {
	return schedule.Course{
		ID:        c.ID,
		Title:     c.Title,
		Rule:      c.Rule(),
		Capacity:  c.Capacity(),
		CreatedAt: c.CreatedAt,
	}
}

// Capacity returns the read-only attendance counters.
func (c Course) Capacity() schedule.Capacity {
	return schedule.Capacity{MaxAttendants: c.MaxAttendants, EnrolledCount: c.EnrolledCount}
}

// CourseFilter describes query params for listing catalog courses.
type CourseFilter struct {
	Search      string
	Periodicity string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

func parseWireDate(s string) mo.Option[schedule.Date] {
	s = strings.TrimSpace(s)
	if s == "" || s == unsetDateSentinel {
		return mo.None[schedule.Date]()
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return mo.None[schedule.Date]()
	}
	return mo.Some(schedule.DateOf(t))
}

func parseWireDates(values []string) []schedule.Date {
	var out []schedule.Date
	for _, v := range values {
		if d, ok := parseWireDate(v).Get(); ok {
			out = append(out, d)
		}
	}
	return out
}

func parseWireTime(s *string) mo.Option[schedule.TimeOfDay] {
	if s == nil {
		return mo.None[schedule.TimeOfDay]()
	}
	value := strings.TrimSpace(*s)
	if value == "" {
		return mo.None[schedule.TimeOfDay]()
	}
	t, err := time.Parse("15:04", value)
	if err != nil {
		if t, err = time.Parse("15:04:05", value); err != nil {
			return mo.None[schedule.TimeOfDay]()
		}
	}
	return mo.Some(schedule.TimeOfDay{Hour: t.Hour(), Minute: t.Minute()})
}

func parsePeriodicity(s string) schedule.Periodicity {
	switch schedule.Periodicity(strings.ToUpper(strings.TrimSpace(s))) {
	case schedule.PeriodicityDaily:
		return schedule.PeriodicityDaily
	case schedule.PeriodicityWeekly:
		return schedule.PeriodicityWeekly
	case schedule.PeriodicityBiweekly:
		return schedule.PeriodicityBiweekly
	case schedule.PeriodicityMonthly:
		return schedule.PeriodicityMonthly
	case schedule.PeriodicityCustom:
		return schedule.PeriodicityCustom
	default:
		return schedule.PeriodicityOnce
	}
}

var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

func parseWeekdays(values []string) []time.Weekday {
	var out []time.Weekday
	for _, v := range values {
		if wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(v))]; ok {
			out = append(out, wd)
		}
	}
	return out
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
