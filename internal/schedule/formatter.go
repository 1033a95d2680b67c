package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Locale selects the language schedule sentences are rendered in.
type Locale string

// Supported locales. Unknown locales fall back to English.
const (
	LocaleEnglish Locale = "en"
	LocaleSpanish Locale = "es"
)

// localePack holds the sentence templates and name tables for one language.
// Formatting is a closed shape-dispatch over these templates, never free
// text and never a re-parse of upstream-rendered strings.
type localePack struct {
	tba            string
	once           string // date, t1, t2
	daily          string // t1, t2, d1, d2
	weeklySingle   string // weekday(s), t1, t2, d1, d2
	biweekly       string // weekday, t1, t2, d1, d2
	intervalWeeks  string // n, weekday list, d1, d2, t1, t2
	monthlyOrdinal string // ordinal, weekday, t1, t2, d1, d2
	monthlyEveryN  string // n, ordinal, weekday, t1, t2, d1, d2
	monthlyDay     string // day, t1, t2, d1, d2
	monthlyDayN    string // n, day, t1, t2, d1, d2

	listSep  string
	listLast string

	weekdays map[time.Weekday]string
	months   map[time.Month]string
	ordinals map[int]string
	dayFirst bool
}

var englishPack = localePack{
	tba:            "Schedule to be announced",
	once:           "%s from %s to %s",
	daily:          "Every day from %s to %s, %s–%s",
	weeklySingle:   "Every %s from %s to %s, %s–%s",
	biweekly:       "Every other %s from %s to %s, %s–%s",
	intervalWeeks:  "Every %d weeks on %s from %s to %s, %s–%s",
	monthlyOrdinal: "Every month on the %s %s from %s to %s, %s–%s",
	monthlyEveryN:  "Every %d months on the %s %s from %s to %s, %s–%s",
	monthlyDay:     "Every month on day %d from %s to %s, %s–%s",
	monthlyDayN:    "Every %d months on day %d from %s to %s, %s–%s",
	listSep:        ", ",
	listLast:       " and ",
	weekdays: map[time.Weekday]string{
		time.Monday: "Monday", time.Tuesday: "Tuesday", time.Wednesday: "Wednesday",
		time.Thursday: "Thursday", time.Friday: "Friday", time.Saturday: "Saturday",
		time.Sunday: "Sunday",
	},
	months: map[time.Month]string{
		time.January: "January", time.February: "February", time.March: "March",
		time.April: "April", time.May: "May", time.June: "June", time.July: "July",
		time.August: "August", time.September: "September", time.October: "October",
		time.November: "November", time.December: "December",
	},
	ordinals: map[int]string{1: "first", 2: "second", 3: "third", 4: "fourth", 5: "fifth", WeekOfMonthLast: "last"},
}

var spanishPack = localePack{
	tba:            "Horario por anunciar",
	once:           "%s de %s a %s",
	daily:          "Todos los días de %s a %s, %s–%s",
	weeklySingle:   "Cada %s de %s a %s, %s–%s",
	biweekly:       "Cada dos semanas el %s de %s a %s, %s–%s",
	intervalWeeks:  "Cada %d semanas los %s del %s al %s, %s–%s",
	monthlyOrdinal: "Cada mes el %s %s de %s a %s, %s–%s",
	monthlyEveryN:  "Cada %d meses el %s %s de %s a %s, %s–%s",
	monthlyDay:     "Cada mes el día %d de %s a %s, %s–%s",
	monthlyDayN:    "Cada %d meses el día %d de %s a %s, %s–%s",
	listSep:        ", ",
	listLast:       " y ",
	weekdays: map[time.Weekday]string{
		time.Monday: "lunes", time.Tuesday: "martes", time.Wednesday: "miércoles",
		time.Thursday: "jueves", time.Friday: "viernes", time.Saturday: "sábado",
		time.Sunday: "domingo",
	},
	months: map[time.Month]string{
		time.January: "enero", time.February: "febrero", time.March: "marzo",
		time.April: "abril", time.May: "mayo", time.June: "junio", time.July: "julio",
		time.August: "agosto", time.September: "septiembre", time.October: "octubre",
		time.November: "noviembre", time.December: "diciembre",
	},
	ordinals: map[int]string{1: "primer", 2: "segundo", 3: "tercer", 4: "cuarto", 5: "quinto", WeekOfMonthLast: "último"},
	dayFirst: true,
}

func packFor(locale Locale) localePack {
	if locale == LocaleSpanish {
		return spanishPack
	}
	return englishPack
}

// Format renders a rule into a human-readable sentence for the locale. It
// never fails: rules with missing fields render the "to be announced"
// sentence and unrecognised shapes fall back to a literal rendering.
func Format(r Rule, locale Locale) string {
	pack := packFor(locale)
	if !r.Scheduled() {
		return pack.tba
	}

	start, _ := r.StartDate.Get()
	t1 := r.StartTime.OrElse(TimeOfDay{}).String()
	t2 := r.EndTime.OrElse(TimeOfDay{}).String()
	d1 := pack.date(start)
	d2 := pack.date(r.effectiveEndDate().OrElse(start))

	switch r.Periodicity {
	case PeriodicityOnce:
		return fmt.Sprintf(pack.once, d1, t1, t2)
	case PeriodicityDaily:
		return fmt.Sprintf(pack.daily, t1, t2, d1, d2)
	case PeriodicityWeekly, PeriodicityBiweekly, PeriodicityCustom:
		weekdays := r.normalizedWeekdays()
		if len(weekdays) == 0 {
			return literal(r, pack)
		}
		list := pack.weekdayList(weekdays)
		interval := r.effectiveInterval()
		switch {
		case r.Periodicity == PeriodicityBiweekly && len(weekdays) == 1:
			return fmt.Sprintf(pack.biweekly, list, t1, t2, d1, d2)
		case interval == 1:
			return fmt.Sprintf(pack.weeklySingle, list, t1, t2, d1, d2)
		default:
			return fmt.Sprintf(pack.intervalWeeks, interval, list, d1, d2, t1, t2)
		}
	case PeriodicityMonthly:
		return formatMonthly(r, pack, t1, t2, d1, d2)
	}
	return literal(r, pack)
}

func formatMonthly(r Rule, pack localePack, t1, t2, d1, d2 string) string {
	interval := r.effectiveInterval()
	if r.WeekOfMonth == 0 {
		start, _ := r.StartDate.Get()
		if interval == 1 {
			return fmt.Sprintf(pack.monthlyDay, start.Day, t1, t2, d1, d2)
		}
		return fmt.Sprintf(pack.monthlyDayN, interval, start.Day, t1, t2, d1, d2)
	}
	ordinal, ok := pack.ordinals[r.WeekOfMonth]
	if !ok {
		return literal(r, pack)
	}
	weekday := r.monthlyWeekday()
	if interval == 1 {
		return fmt.Sprintf(pack.monthlyOrdinal, ordinal, pack.weekdays[weekday], t1, t2, d1, d2)
	}
	return fmt.Sprintf(pack.monthlyEveryN, interval, ordinal, pack.weekdays[weekday], t1, t2, d1, d2)
}

// monthlyWeekday is the weekday a Monthly rule resolves to: the first of the
// set in Monday-first order, else the start date's weekday.
func (r Rule) monthlyWeekday() time.Weekday {
	if weekdays := r.normalizedWeekdays(); len(weekdays) > 0 {
		return weekdays[0]
	}
	if start, ok := r.StartDate.Get(); ok {
		return start.Weekday()
	}
	return time.Monday
}

// literal is the defensive last-resort rendering for shapes outside the
// canonical table. Display-only, so it degrades instead of failing.
func literal(r Rule, pack localePack) string {
	parts := make([]string, 0, 3)
	if r.Periodicity != "" {
		parts = append(parts, strings.ToLower(string(r.Periodicity)))
	}
	if start, ok := r.StartDate.Get(); ok {
		if end, ok := r.effectiveEndDate().Get(); ok {
			parts = append(parts, pack.date(start)+"–"+pack.date(end))
		} else {
			parts = append(parts, pack.date(start))
		}
	}
	if t1, ok := r.StartTime.Get(); ok {
		if t2, ok := r.EndTime.Get(); ok {
			parts = append(parts, t1.String()+"–"+t2.String())
		} else {
			parts = append(parts, t1.String())
		}
	}
	if len(parts) == 0 {
		return pack.tba
	}
	return strings.Join(parts, " ")
}

func (p localePack) date(d Date) string {
	if p.dayFirst {
		return fmt.Sprintf("%02d de %s de %d", d.Day, p.months[d.Month], d.Year)
	}
	return fmt.Sprintf("%s %02d, %d", p.months[d.Month], d.Day, d.Year)
}

func (p localePack) weekdayList(weekdays []time.Weekday) string {
	names := make([]string, len(weekdays))
	for i, wd := range weekdays {
		names[i] = p.weekdays[wd]
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], p.listSep) + p.listLast + names[len(names)-1]
	}
}
