package schedule

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
)

func onceRule() Rule {
	return Rule{
		StartDate:   mo.Some(NewDate(2025, time.July, 8)),
		StartTime:   mo.Some(TimeOfDay{Hour: 9, Minute: 30}),
		EndTime:     mo.Some(TimeOfDay{Hour: 11, Minute: 30}),
		Periodicity: PeriodicityOnce,
	}
}

func TestClassifyInProgress(t *testing.T) {
	now := time.Date(2025, time.July, 8, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, StateInProgress, Classify(onceRule(), now))
}

func TestClassifyUpcoming(t *testing.T) {
	now := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, StateUpcoming, Classify(onceRule(), now))
}

func TestClassifyFinished(t *testing.T) {
	now := time.Date(2025, time.July, 8, 11, 30, 0, 0, time.UTC)

	// End instant itself is already finished.
	assert.Equal(t, StateFinished, Classify(onceRule(), now))
}

func TestClassifyNoSchedulePrecedence(t *testing.T) {
	base := weeklyRule()
	variants := map[string]func(Rule) Rule{
		"start date unset": func(r Rule) Rule { r.StartDate = mo.None[Date](); return r },
		"end date unset":   func(r Rule) Rule { r.EndDate = mo.None[Date](); return r },
		"start time unset": func(r Rule) Rule { r.StartTime = mo.None[TimeOfDay](); return r },
		"end time unset":   func(r Rule) Rule { r.EndTime = mo.None[TimeOfDay](); return r },
	}
	instants := []time.Time{
		time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.September, 15, 12, 0, 0, 0, time.UTC),
		time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	for name, mutate := range variants {
		rule := mutate(base)
		for _, now := range instants {
			assert.Equal(t, StateNoSchedule, Classify(rule, now), name)
		}
	}
}

func TestClassifyOnceWithoutEndDateUsesStartDate(t *testing.T) {
	now := time.Date(2025, time.July, 8, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, StateFinished, Classify(onceRule(), now))
}

func TestClassifyHonorsTimezone(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Madrid")
	rule := onceRule()
	rule.Location = loc

	// 08:30 UTC is 10:30 in Madrid during July.
	now := time.Date(2025, time.July, 8, 8, 30, 0, 0, time.UTC)

	assert.Equal(t, StateInProgress, Classify(rule, now))
}
