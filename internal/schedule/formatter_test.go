package schedule

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
)

func TestFormatOnce(t *testing.T) {
	rule := Rule{
		StartDate:   mo.Some(NewDate(2025, time.July, 8)),
		StartTime:   mo.Some(TimeOfDay{Hour: 9, Minute: 30}),
		EndTime:     mo.Some(TimeOfDay{Hour: 11, Minute: 30}),
		Periodicity: PeriodicityOnce,
	}

	assert.Equal(t, "July 08, 2025 from 09:30 to 11:30", Format(rule, LocaleEnglish))
	assert.Equal(t, "08 de julio de 2025 de 09:30 a 11:30", Format(rule, LocaleSpanish))
}

func TestFormatIntervalWeeks(t *testing.T) {
	rule := weeklyRule()

	got := Format(rule, LocaleEnglish)

	assert.Equal(t, "Every 4 weeks on Thursday from September 01, 2025 to September 30, 2025, 11:00–13:00", got)
}

func TestFormatWeeklySingleWeekday(t *testing.T) {
	rule := weeklyRule()
	rule.Interval = 1

	got := Format(rule, LocaleEnglish)

	assert.Equal(t, "Every Thursday from 11:00 to 13:00, September 01, 2025–September 30, 2025", got)
}

func TestFormatWeeklyMultipleWeekdays(t *testing.T) {
	rule := weeklyRule()
	rule.Interval = 1
	rule.Weekdays = []time.Weekday{time.Friday, time.Monday, time.Wednesday}

	got := Format(rule, LocaleEnglish)

	assert.Equal(t, "Every Monday, Wednesday and Friday from 11:00 to 13:00, September 01, 2025–September 30, 2025", got)
}

func TestFormatBiweekly(t *testing.T) {
	rule := weeklyRule()
	rule.Periodicity = PeriodicityBiweekly
	rule.Interval = 1

	got := Format(rule, LocaleEnglish)

	assert.Equal(t, "Every other Thursday from 11:00 to 13:00, September 01, 2025–September 30, 2025", got)
}

func TestFormatDaily(t *testing.T) {
	rule := weeklyRule()
	rule.Periodicity = PeriodicityDaily

	got := Format(rule, LocaleEnglish)

	assert.Equal(t, "Every day from 11:00 to 13:00, September 01, 2025–September 30, 2025", got)
}

func TestFormatMonthlyOrdinal(t *testing.T) {
	rule := weeklyRule()
	rule.Periodicity = PeriodicityMonthly
	rule.WeekOfMonth = 2
	rule.Interval = 1

	got := Format(rule, LocaleEnglish)

	assert.Equal(t, "Every month on the second Thursday from 11:00 to 13:00, September 01, 2025–September 30, 2025", got)
}

func TestFormatMonthlyLastWeekdaySpanish(t *testing.T) {
	rule := weeklyRule()
	rule.Periodicity = PeriodicityMonthly
	rule.WeekOfMonth = WeekOfMonthLast
	rule.Interval = 1

	got := Format(rule, LocaleSpanish)

	assert.Equal(t, "Cada mes el último jueves de 11:00 a 13:00, 01 de septiembre de 2025–30 de septiembre de 2025", got)
}

func TestFormatUnsetDatesToBeAnnounced(t *testing.T) {
	rule := Rule{Periodicity: PeriodicityWeekly, Weekdays: []time.Weekday{time.Monday}}

	assert.Equal(t, "Schedule to be announced", Format(rule, LocaleEnglish))
	assert.Equal(t, "Horario por anunciar", Format(rule, LocaleSpanish))
}

func TestFormatFallbackLiteral(t *testing.T) {
	// Weekly rule with dates but no weekday set has no canonical shape.
	rule := weeklyRule()
	rule.Weekdays = nil

	got := Format(rule, LocaleEnglish)

	assert.Equal(t, "weekly September 01, 2025–September 30, 2025 11:00–13:00", got)
}

func TestFormatUnknownLocaleFallsBackToEnglish(t *testing.T) {
	rule := Rule{Periodicity: PeriodicityOnce}

	assert.Equal(t, "Schedule to be announced", Format(rule, Locale("fr")))
}
