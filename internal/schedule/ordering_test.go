package schedule

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func courseAt(id, title string, start, end Date, created time.Time) Course {
	return Course{
		ID:    id,
		Title: title,
		Rule: Rule{
			StartDate:   mo.Some(start),
			EndDate:     mo.Some(end),
			StartTime:   mo.Some(TimeOfDay{Hour: 10}),
			EndTime:     mo.Some(TimeOfDay{Hour: 12}),
			Periodicity: PeriodicityDaily,
		},
		Capacity:  Capacity{MaxAttendants: 20, EnrolledCount: 5},
		CreatedAt: created,
	}
}

func TestOrderFinishedSinksDespiteTitleSort(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	finished := courseAt("c1", "Algebra", NewDate(2025, time.January, 1), NewDate(2025, time.January, 31), now)
	upcoming := courseAt("c2", "Zoology", NewDate(2025, time.July, 1), NewDate(2025, time.July, 31), now)

	ordered := Order([]Course{finished, upcoming}, SortByTitle, SortAsc, now)

	require.Len(t, ordered, 2)
	assert.Equal(t, "c2", ordered[0].ID)
	assert.Equal(t, "c1", ordered[1].ID)
}

func TestOrderFinishedSinksForEveryKeyAndDirection(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	courses := []Course{
		courseAt("f1", "Aaa", NewDate(2025, time.January, 1), NewDate(2025, time.January, 31), now.Add(-time.Hour)),
		courseAt("a1", "Zzz", NewDate(2025, time.July, 1), NewDate(2025, time.July, 31), now.Add(-2*time.Hour)),
		courseAt("f2", "Bbb", NewDate(2025, time.February, 1), NewDate(2025, time.February, 28), now.Add(-3*time.Hour)),
		courseAt("a2", "Yyy", NewDate(2025, time.August, 1), NewDate(2025, time.August, 31), now.Add(-4*time.Hour)),
	}

	keys := []SortKey{SortByTitle, SortByStartDate, SortByEndDate, SortByEnrolledCount, SortByMaxAttendants, SortByCreatedAt}
	for _, key := range keys {
		for _, dir := range []SortDirection{SortAsc, SortDesc} {
			ordered := Order(courses, key, dir, now)

			require.Len(t, ordered, 4)
			sawFinished := false
			for _, c := range ordered {
				if Classify(c.Rule, now) == StateFinished {
					sawFinished = true
					continue
				}
				assert.False(t, sawFinished, "active course after finished one with key=%s dir=%s", key, dir)
			}
		}
	}
}

func TestOrderSortsWithinPartitions(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	courses := []Course{
		courseAt("a2", "Biology", NewDate(2025, time.August, 1), NewDate(2025, time.August, 31), now),
		courseAt("a1", "Anatomy", NewDate(2025, time.July, 1), NewDate(2025, time.July, 31), now),
		courseAt("f2", "History", NewDate(2025, time.February, 1), NewDate(2025, time.February, 28), now),
		courseAt("f1", "Geology", NewDate(2025, time.January, 1), NewDate(2025, time.January, 31), now),
	}

	ordered := Order(courses, SortByTitle, SortAsc, now)

	ids := make([]string, len(ordered))
	for i, c := range ordered {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"a1", "a2", "f1", "f2"}, ids)
}

func TestOrderDescending(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	courses := []Course{
		courseAt("a1", "Anatomy", NewDate(2025, time.July, 1), NewDate(2025, time.July, 31), now),
		courseAt("a2", "Biology", NewDate(2025, time.August, 1), NewDate(2025, time.August, 31), now),
	}

	ordered := Order(courses, SortByStartDate, SortDesc, now)

	assert.Equal(t, "a2", ordered[0].ID)
	assert.Equal(t, "a1", ordered[1].ID)
}

func TestOrderNoScheduleStaysActive(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	unscheduled := Course{ID: "u1", Title: "Draft course", Rule: Rule{Periodicity: PeriodicityWeekly}, CreatedAt: now}
	finished := courseAt("f1", "Old course", NewDate(2025, time.January, 1), NewDate(2025, time.January, 31), now)

	ordered := Order([]Course{finished, unscheduled}, SortByStartDate, SortAsc, now)

	assert.Equal(t, "u1", ordered[0].ID)
	assert.Equal(t, "f1", ordered[1].ID)
}

func TestOrderDoesNotMutateInput(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	courses := []Course{
		courseAt("f1", "Aaa", NewDate(2025, time.January, 1), NewDate(2025, time.January, 31), now),
		courseAt("a1", "Bbb", NewDate(2025, time.July, 1), NewDate(2025, time.July, 31), now),
	}

	_ = Order(courses, SortByTitle, SortAsc, now)

	assert.Equal(t, "f1", courses[0].ID)
	assert.Equal(t, "a1", courses[1].ID)
}
