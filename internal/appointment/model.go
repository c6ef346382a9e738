package appointment

import (
	"errors"
	"time"
)

var ErrDeadlineInPast = errors.New("deadline must not be in the past")

// Location is a service point that offers appointments.
type Location struct {
	ID   int64
	Name string
}

// Appointment is one bookable slot. Two appointments are equal when they
// start at the same minute at the same location.
type Appointment struct {
	When       time.Time
	LocationID int64
}

// New truncates when to the minute.
func New(when time.Time, locationID int64) Appointment {
	return Appointment{When: when.Truncate(time.Minute), LocationID: locationID}
}

// Equal ignores the time zone of When.
func (a Appointment) Equal(b Appointment) bool {
	return a.LocationID == b.LocationID && a.When.Equal(b.When)
}

// Date returns the calendar date of the appointment at midnight in the same
// location as When.
func (a Appointment) Date() time.Time {
	return DateOf(a.When)
}

func (a Appointment) key() slotKey {
	return slotKey{when: a.When.Unix(), locationID: a.LocationID}
}

type slotKey struct {
	when       int64
	locationID int64
}

// LocationNames resolves a location id to its display name.
type LocationNames map[int64]string

// NamesOf indexes locations by id.
func NamesOf(locs []Location) LocationNames {
	names := make(LocationNames, len(locs))
	for _, l := range locs {
		names[l.ID] = l.Name
	}
	return names
}

// Less orders by start time, then by location display name.
func (n LocationNames) Less(a, b Appointment) bool {
	if !a.When.Equal(b.When) {
		return a.When.Before(b.When)
	}
	return n[a.LocationID] < n[b.LocationID]
}

// Compare is Less in the three-way form expected by slices.SortFunc.
func (n LocationNames) Compare(a, b Appointment) int {
	switch {
	case n.Less(a, b):
		return -1
	case n.Less(b, a):
		return 1
	default:
		return 0
	}
}

// Subscriber receives change notifications for appointments before Deadline.
type Subscriber struct {
	Address  string
	Deadline time.Time
}

// NewSubscriber validates the deadline against today.
func NewSubscriber(address string, deadline, today time.Time) (Subscriber, error) {
	return Subscriber{Address: address}.WithDeadline(deadline, today)
}

// WithDeadline returns a copy of s with the new deadline. A deadline before
// today is rejected and s stays as it was.
func (s Subscriber) WithDeadline(deadline, today time.Time) (Subscriber, error) {
	d := DateOf(deadline)
	if d.Before(DateOf(today)) {
		return s, ErrDeadlineInPast
	}
	s.Deadline = d
	return s, nil
}

// DateOf strips the clock from t. The year, month and day are taken from t's
// own location and the result is expressed in UTC so dates compare by value.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(later, earlier time.Time) int {
	return int(DateOf(later).Sub(DateOf(earlier)).Hours() / 24)
}
