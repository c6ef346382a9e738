package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"github.com/buergeramt-termine/termine/internal/appointment"
)

func TestEncodeRoundTrip(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	apps := []appointment.Appointment{
		appointment.New(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), 1),
		appointment.New(time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC), 2),
	}
	names := appointment.LocationNames{1: "Bürgeramt Mitte", 2: "Bürgeramt Linden"}

	var buf bytes.Buffer
	stamp := time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC)
	if err := Encode(&buf, apps, names, berlin, stamp); err != nil {
		t.Fatalf("encode: %v", err)
	}

	cal, err := ical.NewDecoder(strings.NewReader(buf.String())).Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	uid, err := events[0].Props.Text(ical.PropUID)
	if err != nil {
		t.Fatalf("uid: %v", err)
	}
	if uid != UID(apps[0]) {
		t.Fatalf("unexpected uid %q", uid)
	}

	start, err := events[0].DateTimeStart(berlin)
	if err != nil {
		t.Fatalf("dtstart: %v", err)
	}
	if start.Hour() != 9 || start.Location().String() != "Europe/Berlin" {
		t.Fatalf("expected 09:00 Europe/Berlin, got %s", start)
	}

	loc, err := events[1].Props.Text(ical.PropLocation)
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc != "Bürgeramt Linden" {
		t.Fatalf("unexpected location %q", loc)
	}
}

func TestUIDStable(t *testing.T) {
	a := appointment.New(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), 3)
	b := appointment.New(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), 3)
	if UID(a) != UID(b) {
		t.Fatal("expected equal uids for equal appointments")
	}
	if UID(a) != "20240501T0900-3@buergeramt-termine" {
		t.Fatalf("unexpected uid %q", UID(a))
	}
}

func TestEncodeEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, nil, nil, time.UTC, time.Now()); err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + productID + "\r\nEND:VCALENDAR\r\n"
	if buf.String() != want {
		t.Fatalf("unexpected calendar:\n%q", buf.String())
	}
}
