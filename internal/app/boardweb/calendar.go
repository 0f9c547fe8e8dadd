package boardweb

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/eventboard/project/internal/board"
)

const calendarProductID = "-//eventboard//Event Board//EN"

// buildCalendar exports events with a parsable date, in the given order.
func buildCalendar(events []board.Event, loc *time.Location, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(calendarProductID)

	for _, e := range events {
		start, ok := eventStart(e, loc)
		if !ok {
			continue
		}
		ve := cal.AddEvent(e.ID + "@eventboard")
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(start)
		ve.SetSummary(e.Title)
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Category != "" {
			ve.SetProperty(ical.ComponentPropertyCategories, string(e.Category))
		}
		if e.UpdatedAt != nil {
			ve.SetModifiedAt(*e.UpdatedAt)
		}
	}
	return cal
}

// eventStart combines date and time in loc; a bad time means midnight.
func eventStart(e board.Event, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	day, ok := board.ParseDate(e.Date, loc)
	if !ok {
		return time.Time{}, false
	}
	clock := strings.TrimSpace(e.Time)
	if !board.ValidTime(clock) {
		return day, true
	}
	t, err := time.ParseInLocation(board.DateLayout+" 15:04", strings.TrimSpace(e.Date)+" "+clock, loc)
	if err != nil {
		return day, true
	}
	return t, true
}
