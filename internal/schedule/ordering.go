package schedule

import (
	"sort"
	"strings"
	"time"
)

// Course is the catalog snapshot the engine classifies, decides on and
// orders. It is derived from the collaborator's persisted row at the
// boundary.
type Course struct {
	ID        string
	Title     string
	Rule      Rule
	Capacity  Capacity
	CreatedAt time.Time
}

// SortKey selects the column course lists are ordered by.
type SortKey string

// Supported sort keys.
const (
	SortByTitle         SortKey = "title"
	SortByStartDate     SortKey = "start_date"
	SortByEndDate       SortKey = "end_date"
	SortByEnrolledCount SortKey = "enrolled_count"
	SortByMaxAttendants SortKey = "max_attendants"
	SortByCreatedAt     SortKey = "created_at"
)

// SortDirection orders ascending or descending.
type SortDirection string

// Supported sort directions.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Order sorts courses for display: finished courses always sink to the
// bottom regardless of the chosen key and direction. Both partitions are
// sorted independently and the input slice is left untouched.
func Order(courses []Course, key SortKey, dir SortDirection, now time.Time) []Course {
	active := make([]Course, 0, len(courses))
	finished := make([]Course, 0)
	for _, c := range courses {
		if Classify(c.Rule, now) == StateFinished {
			finished = append(finished, c)
		} else {
			active = append(active, c)
		}
	}
	sortPartition(active, key, dir)
	sortPartition(finished, key, dir)
	return append(active, finished...)
}

func sortPartition(courses []Course, key SortKey, dir SortDirection) {
	less := lessFunc(key)
	sort.SliceStable(courses, func(i, j int) bool {
		if dir == SortDesc {
			return less(courses[j], courses[i])
		}
		return less(courses[i], courses[j])
	})
}

func lessFunc(key SortKey) func(a, b Course) bool {
	switch key {
	case SortByTitle:
		return func(a, b Course) bool {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	case SortByStartDate:
		return func(a, b Course) bool {
			return a.Rule.StartDate.OrElse(maxDate).Before(b.Rule.StartDate.OrElse(maxDate))
		}
	case SortByEndDate:
		return func(a, b Course) bool {
			return a.Rule.EndDate.OrElse(maxDate).Before(b.Rule.EndDate.OrElse(maxDate))
		}
	case SortByEnrolledCount:
		return func(a, b Course) bool {
			return a.Capacity.EnrolledCount < b.Capacity.EnrolledCount
		}
	case SortByMaxAttendants:
		return func(a, b Course) bool {
			return a.Capacity.MaxAttendants < b.Capacity.MaxAttendants
		}
	default:
		return func(a, b Course) bool {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
}

// maxDate pushes unscheduled courses past every dated one within their
// partition.
var maxDate = NewDate(9999, time.December, 31)
