package appointment

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	// datesPerLocation is how many dates of a location are listed in full.
	datesPerLocation = 5
	// timesPerDate is how many times of a date are listed in full. Longer
	// dates show timesPerDate-2 times and a remainder count so the line stays
	// about as long as a full one.
	timesPerDate = 5

	dateLayout = "02.01.2006"
	timeLayout = "15:04"
)

const (
	NoAppointmentsBeforeDeadline = "Momentan gibt es leider keine Termine vor deiner Deadline."
	NoAppointmentsAvailable      = "Momentan sind leider keine Termine verfügbar."

	headerNew  = "<b><u>Neue Termine:</u></b>\n"
	headerGone = "<b><u>Diese Termine sind weg:</u></b>\n"
)

// ComposeBeforeDeadline lists every appointment of snapshot dated before
// deadline. When there is none the NoAppointmentsBeforeDeadline sentinel is
// returned, never an empty string.
func ComposeBeforeDeadline(snapshot []Appointment, deadline time.Time, names LocationNames) string {
	early := BeforeDeadline(Dedupe(snapshot), deadline)
	if len(early) == 0 {
		return NoAppointmentsBeforeDeadline
	}

	var b strings.Builder
	if len(early) == 1 {
		b.WriteString("<b><u>Ein Termin vor deiner Deadline:</u></b>\n")
	} else {
		fmt.Fprintf(&b, "<b><u>%d Termine vor deiner Deadline:</u></b>\n", len(early))
	}
	b.WriteString(renderGrouped(early, names))
	return b.String()
}

// ComposeDiff describes the changes before deadline. An empty string means
// nothing relevant changed and no message should be sent.
func ComposeDiff(added, removed []Appointment, deadline time.Time, names LocationNames) string {
	newEarly := BeforeDeadline(added, deadline)
	goneEarly := BeforeDeadline(removed, deadline)
	if len(newEarly) == 0 && len(goneEarly) == 0 {
		return ""
	}

	var b strings.Builder
	if len(newEarly) > 0 {
		b.WriteString(headerNew)
		b.WriteString(renderGrouped(newEarly, names))
	}
	if len(goneEarly) > 0 {
		b.WriteString(headerGone)
		b.WriteString(renderGrouped(goneEarly, names))
	}
	return b.String()
}

// ComposeEarliest lists the limit earliest appointments of snapshot.
func ComposeEarliest(snapshot []Appointment, names LocationNames, limit int) string {
	earliest := Earliest(snapshot, names, limit)
	if len(earliest) == 0 {
		return NoAppointmentsAvailable
	}
	header := fmt.Sprintf("<b><u>Die %d frühesten Termine:</u></b>\n", len(earliest))
	if len(earliest) == 1 {
		header = "<b><u>Der früheste Termin:</u></b>\n"
	}
	return header + renderGrouped(earliest, names)
}

// Earliest returns the limit first appointments in snapshot order.
func Earliest(snapshot []Appointment, names LocationNames, limit int) []Appointment {
	sorted := Dedupe(snapshot)
	slices.SortFunc(sorted, names.Compare)
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// BeforeDeadline keeps the appointments dated strictly before deadline.
func BeforeDeadline(apps []Appointment, deadline time.Time) []Appointment {
	d := DateOf(deadline)
	var out []Appointment
	for _, a := range apps {
		if a.Date().Before(d) {
			out = append(out, a)
		}
	}
	return out
}

// renderGrouped renders one block per location in ascending id order.
func renderGrouped(apps []Appointment, names LocationNames) string {
	byLocation := make(map[int64][]Appointment)
	for _, a := range apps {
		byLocation[a.LocationID] = append(byLocation[a.LocationID], a)
	}

	ids := make([]int64, 0, len(byLocation))
	for id := range byLocation {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var b strings.Builder
	for _, id := range ids {
		locApps := byLocation[id]
		if len(locApps) == 0 {
			continue
		}
		slices.SortFunc(locApps, names.Compare)
		b.WriteString(renderLocation(displayName(names, id), locApps))
	}
	return b.String()
}

// renderLocation expects apps sorted by time.
func renderLocation(name string, apps []Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏢 <b>%s:</b>\n", name)

	var dates []time.Time
	byDate := make(map[time.Time][]Appointment)
	for _, a := range apps {
		d := a.Date()
		if _, ok := byDate[d]; !ok {
			dates = append(dates, d)
		}
		byDate[d] = append(byDate[d], a)
	}

	for i, d := range dates {
		if i == datesPerLocation {
			break
		}
		b.WriteString(renderDate(d, byDate[d]))
	}

	rest := 0
	for _, d := range dates[min(len(dates), datesPerLocation):] {
		rest += len(byDate[d])
	}
	switch {
	case rest == 1:
		b.WriteString("• <i>Ein weiterer Termin</i>\n")
	case rest > 1:
		fmt.Fprintf(&b, "• <i>%d weitere Termine</i>\n", rest)
	}
	return b.String()
}

func renderDate(date time.Time, apps []Appointment) string {
	times := make([]string, 0, len(apps))
	for _, a := range apps {
		t := a.When.Format(timeLayout)
		if len(times) > 0 && times[len(times)-1] == t {
			continue
		}
		times = append(times, t)
	}

	line := "• " + date.Format(dateLayout) + ": "
	if len(times) <= timesPerDate {
		return line + "<i>" + strings.Join(times, ", ") + "</i>\n"
	}
	shown := timesPerDate - 2
	return fmt.Sprintf("%s<i>%s, ... (+%d)</i>\n", line, strings.Join(times[:shown], ", "), len(times)-shown)
}

func displayName(names LocationNames, id int64) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return "Standort " + strconv.FormatInt(id, 10)
}
