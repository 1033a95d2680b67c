package export

import (
	"bytes"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

// CalendarEvent is one VEVENT to render. RecurrenceRule carries recurrence
// options to emit as an RRULE; ExtraDates and Exclusions become RDATE/EXDATE
// entries.
type CalendarEvent struct {
	UID            string
	Summary        string
	Description    string
	Location       string
	Start          time.Time
	End            time.Time
	RecurrenceRule *rrule.ROption
	ExtraDates     []time.Time
	Exclusions     []time.Time
}

// ICalExporter renders events as an iCalendar document.
type ICalExporter struct {
	productID string
}

// NewICalExporter constructs an iCalendar exporter.
func NewICalExporter(productID string) *ICalExporter {
	if productID == "" {
		productID = "-//catalog-api//Course Catalog//EN"
	}
	return &ICalExporter{productID: productID}
}

// Render encodes the events into a VCALENDAR payload.
func (e *ICalExporter) Render(name string, events []CalendarEvent) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, e.productID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	if name != "" {
		cal.Props.SetText(ical.PropName, name)
	}

	now := time.Now().UTC()
	for _, event := range events {
		comp := ical.NewComponent(ical.CompEvent)
		comp.Props.SetText(ical.PropUID, event.UID)
		comp.Props.SetDateTime(ical.PropDateTimeStamp, now)
		comp.Props.SetText(ical.PropSummary, event.Summary)
		if event.Description != "" {
			comp.Props.SetText(ical.PropDescription, event.Description)
		}
		if event.Location != "" {
			comp.Props.SetText(ical.PropLocation, event.Location)
		}
		comp.Props.SetDateTime(ical.PropDateTimeStart, event.Start)
		if event.End.After(event.Start) {
			comp.Props.SetDateTime(ical.PropDateTimeEnd, event.End)
		}
		if event.RecurrenceRule != nil {
			comp.Props.SetRecurrenceRule(event.RecurrenceRule)
		}
		for _, extra := range event.ExtraDates {
			prop := ical.NewProp(ical.PropRecurrenceDates)
			prop.SetDateTime(extra)
			comp.Props.Add(prop)
		}
		for _, excluded := range event.Exclusions {
			prop := ical.NewProp(ical.PropExceptionDates)
			prop.SetDateTime(excluded)
			comp.Props.Add(prop)
		}
		cal.Children = append(cal.Children, comp)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
