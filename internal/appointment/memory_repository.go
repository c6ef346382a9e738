package appointment

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryRepository keeps everything in process memory. It backs tests, the
// simulator and single-process runs without Postgres.
type MemoryRepository struct {
	mu           sync.RWMutex
	appointments map[slotKey]Appointment
	locations    []Location
	subscribers  map[string]Subscriber
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		appointments: make(map[slotKey]Appointment),
		subscribers:  make(map[string]Subscriber),
	}
}

func (r *MemoryRepository) ListAppointments(ctx context.Context) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Appointment, 0, len(r.appointments))
	for _, a := range r.appointments {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b Appointment) int {
		if c := a.When.Compare(b.When); c != 0 {
			return c
		}
		return cmp.Compare(a.LocationID, b.LocationID)
	})
	return out, nil
}

func (r *MemoryRepository) ApplyDiff(ctx context.Context, added, removed []Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range removed {
		delete(r.appointments, a.key())
	}
	for _, a := range added {
		r.appointments[a.key()] = a
	}
	return nil
}

func (r *MemoryRepository) ListLocations(ctx context.Context) ([]Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.locations), nil
}

func (r *MemoryRepository) EnsureLocation(ctx context.Context, name string) (Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.locations {
		if l.Name == name {
			return l, nil
		}
	}
	l := Location{ID: int64(len(r.locations) + 1), Name: name}
	r.locations = append(r.locations, l)
	return l, nil
}

func (r *MemoryRepository) ListSubscribers(ctx context.Context) ([]Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Subscriber, 0, len(r.subscribers))
	for _, s := range r.subscribers {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Subscriber) int { return strings.Compare(a.Address, b.Address) })
	return out, nil
}

func (r *MemoryRepository) GetSubscriber(ctx context.Context, address string) (*Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.subscribers[address]
	if !ok {
		return nil, ErrSubscriberNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) UpsertSubscriber(ctx context.Context, s Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.Deadline = DateOf(s.Deadline)
	r.subscribers[s.Address] = s
	return nil
}

func (r *MemoryRepository) DeleteSubscriber(ctx context.Context, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscribers[address]; !ok {
		return ErrSubscriberNotFound
	}
	delete(r.subscribers, address)
	return nil
}

func (r *MemoryRepository) SubscribersDueBy(ctx context.Context, date time.Time) ([]Subscriber, error) {
	all, _ := r.ListSubscribers(ctx)
	d := DateOf(date)

	var out []Subscriber
	for _, s := range all {
		if !s.Deadline.After(d) {
			out = append(out, s)
		}
	}
	return out, nil
}
