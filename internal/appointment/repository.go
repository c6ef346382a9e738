package appointment

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrLocationNotFound   = errors.New("location not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// Snapshot
	ListAppointments(ctx context.Context) ([]Appointment, error)
	ApplyDiff(ctx context.Context, added, removed []Appointment) error

	// Locations
	ListLocations(ctx context.Context) ([]Location, error)
	EnsureLocation(ctx context.Context, name string) (Location, error)

	// Subscribers
	ListSubscribers(ctx context.Context) ([]Subscriber, error)
	GetSubscriber(ctx context.Context, address string) (*Subscriber, error)
	UpsertSubscriber(ctx context.Context, s Subscriber) error
	DeleteSubscriber(ctx context.Context, address string) error

	// Expiry
	SubscribersDueBy(ctx context.Context, date time.Time) ([]Subscriber, error)
}
