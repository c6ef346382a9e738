// Package calendar exports appointment slots as an iCalendar feed.
package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/buergeramt-termine/termine/internal/appointment"
)

const productID = "-//buergeramt-termine//termine//DE"

// Encode writes one VEVENT per appointment. Start times are stored as local
// wall-clock values and are re-anchored in tz so clients see the right hour.
// Without appointments it writes a calendar with no events.
func Encode(w io.Writer, apps []appointment.Appointment, names appointment.LocationNames, tz *time.Location, stamp time.Time) error {
	if tz == nil {
		tz = time.UTC
	}
	if len(apps) == 0 {
		return encodeEmpty(w)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, a := range apps {
		cal.Children = append(cal.Children, toEvent(a, names[a.LocationID], tz, stamp))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

// go-ical refuses to encode a VCALENDAR without components.
func encodeEmpty(w io.Writer) error {
	_, err := fmt.Fprintf(w, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:%s\r\nEND:VCALENDAR\r\n", productID)
	if err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func toEvent(a appointment.Appointment, name string, tz *time.Location, stamp time.Time) *ical.Component {
	w := a.When
	start := time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), 0, 0, tz)

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, UID(a))
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, start)
	if name != "" {
		ve.Props.SetText(ical.PropSummary, "Freier Termin: "+name)
		ve.Props.SetText(ical.PropLocation, name)
	} else {
		ve.Props.SetText(ical.PropSummary, "Freier Termin")
	}
	return ve
}

// UID is stable for the same slot so calendar clients update instead of
// duplicating events between refreshes.
func UID(a appointment.Appointment) string {
	return fmt.Sprintf("%s-%d@buergeramt-termine", a.When.Format("20060102T1504"), a.LocationID)
}
