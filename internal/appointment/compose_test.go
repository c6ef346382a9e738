package appointment

import (
	"strings"
	"testing"
)

func TestComposeBeforeDeadline(t *testing.T) {
	names := LocationNames{1: "Mitte"}
	snapshot := []Appointment{at(2024, 5, 1, 9, 0, 1), at(2024, 5, 3, 10, 0, 1)}

	got := ComposeBeforeDeadline(snapshot, day(2024, 5, 2), names)
	want := "<b><u>Ein Termin vor deiner Deadline:</u></b>\n" +
		"🏢 <b>Mitte:</b>\n" +
		"• 01.05.2024: <i>09:00</i>\n"
	if got != want {
		t.Fatalf("unexpected text:\n%s\nwant:\n%s", got, want)
	}

	got = ComposeBeforeDeadline(snapshot, day(2024, 5, 4), names)
	if !strings.HasPrefix(got, "<b><u>2 Termine vor deiner Deadline:</u></b>\n") {
		t.Fatalf("expected plural header, got:\n%s", got)
	}
}

func TestComposeBeforeDeadlineSentinel(t *testing.T) {
	snapshot := []Appointment{at(2024, 5, 3, 10, 0, 1)}
	// the deadline day itself is excluded
	got := ComposeBeforeDeadline(snapshot, day(2024, 5, 3), nil)
	if got != NoAppointmentsBeforeDeadline {
		t.Fatalf("expected sentinel, got %q", got)
	}
}

func TestRenderDateTruncation(t *testing.T) {
	five := []Appointment{
		at(2024, 5, 1, 9, 0, 1),
		at(2024, 5, 1, 9, 15, 1),
		at(2024, 5, 1, 9, 30, 1),
		at(2024, 5, 1, 9, 45, 1),
		at(2024, 5, 1, 10, 0, 1),
	}
	got := renderDate(day(2024, 5, 1), five)
	if got != "• 01.05.2024: <i>09:00, 09:15, 09:30, 09:45, 10:00</i>\n" {
		t.Fatalf("five times should be listed in full, got %q", got)
	}

	six := append(five, at(2024, 5, 1, 10, 15, 1))
	got = renderDate(day(2024, 5, 1), six)
	if got != "• 01.05.2024: <i>09:00, 09:15, 09:30, ... (+3)</i>\n" {
		t.Fatalf("six times should be shortened, got %q", got)
	}
}

func TestRenderLocationRemainingDates(t *testing.T) {
	var apps []Appointment
	for d := 1; d <= 5; d++ {
		apps = append(apps, at(2024, 5, d, 9, 0, 1))
	}

	got := renderLocation("Mitte", apps)
	if strings.Contains(got, "weitere") {
		t.Fatalf("five dates should not have a remainder line:\n%s", got)
	}

	one := append(apps, at(2024, 5, 6, 9, 0, 1))
	got = renderLocation("Mitte", one)
	if !strings.HasSuffix(got, "• <i>Ein weiterer Termin</i>\n") {
		t.Fatalf("expected singular remainder, got:\n%s", got)
	}
	if strings.Contains(got, "06.05.2024") {
		t.Fatalf("sixth date must not be listed:\n%s", got)
	}

	two := append(one, at(2024, 5, 6, 11, 0, 1))
	got = renderLocation("Mitte", two)
	if !strings.HasSuffix(got, "• <i>2 weitere Termine</i>\n") {
		t.Fatalf("expected plural remainder, got:\n%s", got)
	}
}

func TestRenderGroupedOrdersByLocationID(t *testing.T) {
	names := LocationNames{1: "Zentrum", 2: "Altstadt"}
	apps := []Appointment{at(2024, 5, 1, 9, 0, 2), at(2024, 5, 2, 9, 0, 1), at(2024, 5, 1, 9, 0, 3)}

	got := renderGrouped(apps, names)
	zentrum := strings.Index(got, "🏢 <b>Zentrum:</b>")
	altstadt := strings.Index(got, "🏢 <b>Altstadt:</b>")
	unnamed := strings.Index(got, "🏢 <b>Standort 3:</b>")
	if zentrum < 0 || altstadt < 0 || unnamed < 0 {
		t.Fatalf("missing location block:\n%s", got)
	}
	if !(zentrum < altstadt && altstadt < unnamed) {
		t.Fatalf("locations out of id order:\n%s", got)
	}
}

func TestComposeDiff(t *testing.T) {
	names := LocationNames{1: "Mitte", 2: "Linden"}
	added := []Appointment{at(2024, 5, 1, 9, 0, 1), at(2024, 5, 20, 9, 0, 1)}
	removed := []Appointment{at(2024, 5, 3, 14, 0, 2), at(2024, 5, 10, 8, 0, 2)}

	got := ComposeDiff(added, removed, day(2024, 5, 10), names)

	newAt := strings.Index(got, headerNew)
	goneAt := strings.Index(got, headerGone)
	if newAt != 0 || goneAt <= newAt {
		t.Fatalf("expected new block before gone block:\n%s", got)
	}
	if !strings.Contains(got, "01.05.2024") || !strings.Contains(got, "03.05.2024") {
		t.Fatalf("expected early appointments listed:\n%s", got)
	}
	if strings.Contains(got, "20.05.2024") || strings.Contains(got, "10.05.2024") {
		t.Fatalf("appointments on or after the deadline must be omitted:\n%s", got)
	}
}

func TestComposeDiffOnlyRemoved(t *testing.T) {
	got := ComposeDiff(nil, []Appointment{at(2024, 5, 1, 9, 0, 1)}, day(2024, 5, 2), LocationNames{1: "Mitte"})
	want := headerGone + "🏢 <b>Mitte:</b>\n• 01.05.2024: <i>09:00</i>\n"
	if got != want {
		t.Fatalf("unexpected text:\n%s\nwant:\n%s", got, want)
	}
}

func TestComposeDiffNothingRelevant(t *testing.T) {
	// a new appointment on the deadline day itself is not before the deadline
	added := []Appointment{at(2024, 5, 2, 10, 0, 1)}
	if got := ComposeDiff(added, nil, day(2024, 5, 2), nil); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestComposeEarliest(t *testing.T) {
	names := LocationNames{1: "Mitte", 2: "Linden"}
	snapshot := []Appointment{
		at(2024, 5, 3, 9, 0, 1),
		at(2024, 5, 1, 9, 0, 2),
		at(2024, 5, 2, 9, 0, 1),
	}

	got := ComposeEarliest(snapshot, names, 2)
	want := "<b><u>Die 2 frühesten Termine:</u></b>\n" +
		"🏢 <b>Mitte:</b>\n" +
		"• 02.05.2024: <i>09:00</i>\n" +
		"🏢 <b>Linden:</b>\n" +
		"• 01.05.2024: <i>09:00</i>\n"
	if got != want {
		t.Fatalf("unexpected text:\n%s\nwant:\n%s", got, want)
	}

	got = ComposeEarliest(snapshot, names, 1)
	if !strings.HasPrefix(got, "<b><u>Der früheste Termin:</u></b>\n") {
		t.Fatalf("expected singular header, got:\n%s", got)
	}

	if got := ComposeEarliest(nil, names, 10); got != NoAppointmentsAvailable {
		t.Fatalf("expected sentinel, got %q", got)
	}
}
