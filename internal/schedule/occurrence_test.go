package schedule

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weeklyRule() Rule {
	return Rule{
		StartDate:   mo.Some(NewDate(2025, time.September, 1)),
		EndDate:     mo.Some(NewDate(2025, time.September, 30)),
		StartTime:   mo.Some(TimeOfDay{Hour: 11}),
		EndTime:     mo.Some(TimeOfDay{Hour: 13}),
		Periodicity: PeriodicityWeekly,
		Weekdays:    []time.Weekday{time.Thursday},
		Interval:    4,
	}
}

func TestOccurrencesEveryFourWeeksOnThursday(t *testing.T) {
	occs := weeklyRule().Occurrences(0)

	require.Len(t, occs, 1)
	assert.Equal(t, time.Date(2025, time.September, 4, 11, 0, 0, 0, time.UTC), occs[0])
}

func TestOccurrencesWeeklyMultipleWeekdays(t *testing.T) {
	rule := weeklyRule()
	rule.Interval = 1
	rule.Weekdays = []time.Weekday{time.Thursday, time.Monday}

	occs := rule.Occurrences(0)

	// Mondays and Thursdays between Sep 1 and Sep 30, 2025.
	require.Len(t, occs, 9)
	assert.Equal(t, time.Date(2025, time.September, 1, 11, 0, 0, 0, time.UTC), occs[0])
	assert.Equal(t, time.Date(2025, time.September, 4, 11, 0, 0, 0, time.UTC), occs[1])
	assert.Equal(t, time.Date(2025, time.September, 29, 11, 0, 0, 0, time.UTC), occs[8])
}

func TestOccurrencesBiweeklyFixedStep(t *testing.T) {
	rule := weeklyRule()
	rule.Periodicity = PeriodicityBiweekly
	rule.Interval = 1

	occs := rule.Occurrences(0)

	require.Len(t, occs, 2)
	assert.Equal(t, time.Date(2025, time.September, 4, 11, 0, 0, 0, time.UTC), occs[0])
	assert.Equal(t, time.Date(2025, time.September, 18, 11, 0, 0, 0, time.UTC), occs[1])
}

func TestOccurrencesOnce(t *testing.T) {
	rule := Rule{
		StartDate:   mo.Some(NewDate(2025, time.July, 8)),
		StartTime:   mo.Some(TimeOfDay{Hour: 9, Minute: 30}),
		EndTime:     mo.Some(TimeOfDay{Hour: 11, Minute: 30}),
		Periodicity: PeriodicityOnce,
	}

	occs := rule.Occurrences(0)

	require.Len(t, occs, 1)
	assert.Equal(t, time.Date(2025, time.July, 8, 9, 30, 0, 0, time.UTC), occs[0])
}

func TestOccurrencesOnceExcluded(t *testing.T) {
	rule := Rule{
		StartDate:   mo.Some(NewDate(2025, time.July, 8)),
		StartTime:   mo.Some(TimeOfDay{Hour: 9, Minute: 30}),
		Periodicity: PeriodicityOnce,
		Exclusions:  []Date{NewDate(2025, time.July, 8)},
	}

	assert.Empty(t, rule.Occurrences(0))
}

func TestOccurrencesDailySkipsExclusions(t *testing.T) {
	rule := Rule{
		StartDate:   mo.Some(NewDate(2025, time.March, 3)),
		EndDate:     mo.Some(NewDate(2025, time.March, 7)),
		StartTime:   mo.Some(TimeOfDay{Hour: 18}),
		Periodicity: PeriodicityDaily,
		Exclusions:  []Date{NewDate(2025, time.March, 5)},
	}

	occs := rule.Occurrences(0)

	require.Len(t, occs, 4)
	for _, occ := range occs {
		assert.NotEqual(t, 5, occ.Day())
	}
}

func TestOccurrencesExclusionNeverEmitted(t *testing.T) {
	// Property: no excluded date ever appears, for any periodicity.
	excluded := NewDate(2025, time.September, 4)
	rules := []Rule{
		weeklyRule(),
		{
			StartDate:   mo.Some(NewDate(2025, time.September, 1)),
			EndDate:     mo.Some(NewDate(2025, time.September, 30)),
			StartTime:   mo.Some(TimeOfDay{Hour: 10}),
			Periodicity: PeriodicityDaily,
		},
		{
			StartDate:   mo.Some(NewDate(2025, time.September, 4)),
			StartTime:   mo.Some(TimeOfDay{Hour: 10}),
			Periodicity: PeriodicityOnce,
		},
	}
	for _, rule := range rules {
		rule.Exclusions = []Date{excluded}
		for _, occ := range rule.Occurrences(0) {
			assert.NotEqual(t, excluded, DateOf(occ), "periodicity %s", rule.Periodicity)
		}
	}
}

func TestOccurrencesEmptyWeekdaySetYieldsNothing(t *testing.T) {
	rule := weeklyRule()
	rule.Weekdays = nil

	assert.Empty(t, rule.Occurrences(0))
}

func TestOccurrencesInvertedRangeYieldsNothing(t *testing.T) {
	rule := weeklyRule()
	rule.StartDate = mo.Some(NewDate(2025, time.October, 1))

	assert.Empty(t, rule.Occurrences(0))
}

func TestOccurrencesUnsetStartYieldsNothing(t *testing.T) {
	rule := weeklyRule()
	rule.StartDate = mo.None[Date]()

	assert.Empty(t, rule.Occurrences(0))
}

func TestOccurrencesOpenEndedCapped(t *testing.T) {
	rule := Rule{
		StartDate:   mo.Some(NewDate(2025, time.January, 1)),
		StartTime:   mo.Some(TimeOfDay{Hour: 8}),
		Periodicity: PeriodicityDaily,
	}

	occs := rule.Occurrences(0)

	assert.Len(t, occs, maxScanIterations)
}

func TestOccurrencesLimit(t *testing.T) {
	rule := Rule{
		StartDate:   mo.Some(NewDate(2025, time.January, 1)),
		EndDate:     mo.Some(NewDate(2025, time.December, 31)),
		StartTime:   mo.Some(TimeOfDay{Hour: 8}),
		Periodicity: PeriodicityDaily,
	}

	assert.Len(t, rule.Occurrences(5), 5)
}

func TestOccurrencesMonthlyThirdWednesday(t *testing.T) {
	rule := Rule{
		StartDate:   mo.Some(NewDate(2025, time.January, 1)),
		EndDate:     mo.Some(NewDate(2025, time.April, 30)),
		StartTime:   mo.Some(TimeOfDay{Hour: 17}),
		Periodicity: PeriodicityMonthly,
		Weekdays:    []time.Weekday{time.Wednesday},
		WeekOfMonth: 3,
	}

	occs := rule.Occurrences(0)

	require.Len(t, occs, 4)
	assert.Equal(t, time.Date(2025, time.January, 15, 17, 0, 0, 0, time.UTC), occs[0])
	assert.Equal(t, time.Date(2025, time.February, 19, 17, 0, 0, 0, time.UTC), occs[1])
	assert.Equal(t, time.Date(2025, time.March, 19, 17, 0, 0, 0, time.UTC), occs[2])
	assert.Equal(t, time.Date(2025, time.April, 16, 17, 0, 0, 0, time.UTC), occs[3])
}

func TestOccurrencesMonthlyLastFridayEveryTwoMonths(t *testing.T) {
	rule := Rule{
		StartDate:   mo.Some(NewDate(2025, time.January, 1)),
		EndDate:     mo.Some(NewDate(2025, time.May, 31)),
		StartTime:   mo.Some(TimeOfDay{Hour: 17}),
		Periodicity: PeriodicityMonthly,
		Weekdays:    []time.Weekday{time.Friday},
		WeekOfMonth: WeekOfMonthLast,
		Interval:    2,
	}

	occs := rule.Occurrences(0)

	require.Len(t, occs, 3)
	assert.Equal(t, time.Date(2025, time.January, 31, 17, 0, 0, 0, time.UTC), occs[0])
	assert.Equal(t, time.Date(2025, time.March, 28, 17, 0, 0, 0, time.UTC), occs[1])
	assert.Equal(t, time.Date(2025, time.May, 30, 17, 0, 0, 0, time.UTC), occs[2])
}

func TestOccurrencesMonthlyDayOfMonthSkipsShortMonths(t *testing.T) {
	rule := Rule{
		StartDate:   mo.Some(NewDate(2025, time.January, 31)),
		EndDate:     mo.Some(NewDate(2025, time.April, 30)),
		StartTime:   mo.Some(TimeOfDay{Hour: 17}),
		Periodicity: PeriodicityMonthly,
	}

	occs := rule.Occurrences(0)

	// February and April have no day 31.
	require.Len(t, occs, 2)
	assert.Equal(t, time.Date(2025, time.January, 31, 17, 0, 0, 0, time.UTC), occs[0])
	assert.Equal(t, time.Date(2025, time.March, 31, 17, 0, 0, 0, time.UTC), occs[1])
}

func TestOccurrencesTimezoneApplied(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	rule := weeklyRule()
	rule.Location = loc

	occs := rule.Occurrences(0)

	require.Len(t, occs, 1)
	assert.Equal(t, time.Date(2025, time.September, 4, 11, 0, 0, 0, loc), occs[0])
}

func TestOccurrencesBetweenWindow(t *testing.T) {
	rule := Rule{
		StartDate:   mo.Some(NewDate(2025, time.March, 1)),
		EndDate:     mo.Some(NewDate(2025, time.March, 31)),
		StartTime:   mo.Some(TimeOfDay{Hour: 10}),
		Periodicity: PeriodicityDaily,
	}

	occs := rule.Between(
		time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 12, 23, 59, 0, 0, time.UTC),
	)

	require.Len(t, occs, 3)
	assert.Equal(t, 10, occs[0].Day())
	assert.Equal(t, 12, occs[2].Day())
}

func TestOccurrencesRestartable(t *testing.T) {
	rule := weeklyRule()
	first := rule.Occurrences(0)
	second := rule.Occurrences(0)

	assert.Equal(t, first, second)
}

func TestIterPanicsOnNegativeInterval(t *testing.T) {
	rule := weeklyRule()
	rule.Interval = -1

	assert.Panics(t, func() { rule.Iter(Window{}) })
}
