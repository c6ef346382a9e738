package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanLocation(row pgx.Row) (*Location, error) {
	var l Location
	if err := row.Scan(&l.ID, &l.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}
	return &l, nil
}

func scanSubscriber(row pgx.Row) (*Subscriber, error) {
	var s Subscriber
	if err := row.Scan(&s.Address, &s.Deadline); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriberNotFound
		}
		return nil, err
	}
	s.Deadline = DateOf(s.Deadline)
	return &s, nil
}

func collectSubscribers(rows pgx.Rows) ([]Subscriber, error) {
	defer rows.Close()

	var result []Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) ListAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT starts_at, location_id
		FROM appointments
		ORDER BY starts_at, location_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.When, &a.LocationID); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyDiff commits added and removed appointments in one transaction.
func (r *PgRepository) ApplyDiff(ctx context.Context, added, removed []Appointment) error {
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, a := range removed {
		if _, err := tx.Exec(ctx, `
			DELETE FROM appointments
			WHERE starts_at = $1 AND location_id = $2
		`, a.When, a.LocationID); err != nil {
			return fmt.Errorf("delete appointment: %w", err)
		}
	}

	for _, a := range added {
		if _, err := tx.Exec(ctx, `
			INSERT INTO appointments (starts_at, location_id, created_at)
			VALUES ($1, $2, now())
			ON CONFLICT (starts_at, location_id) DO NOTHING
		`, a.When, a.LocationID); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name
		FROM locations
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) EnsureLocation(ctx context.Context, name string) (Location, error) {
	// the no-op update makes RETURNING yield the existing row
	row := r.pool.QueryRow(ctx, `
		INSERT INTO locations (name, created_at)
		VALUES ($1, now())
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name
	`, name)

	l, err := scanLocation(row)
	if err != nil {
		return Location{}, fmt.Errorf("ensure location %q: %w", name, err)
	}
	return *l, nil
}

func (r *PgRepository) ListSubscribers(ctx context.Context) ([]Subscriber, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT address, deadline
		FROM subscribers
		ORDER BY address
	`)
	if err != nil {
		return nil, err
	}
	return collectSubscribers(rows)
}

func (r *PgRepository) GetSubscriber(ctx context.Context, address string) (*Subscriber, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT address, deadline
		FROM subscribers
		WHERE address = $1
	`, address)
	return scanSubscriber(row)
}

func (r *PgRepository) UpsertSubscriber(ctx context.Context, s Subscriber) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subscribers (address, deadline, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (address) DO UPDATE
		SET deadline = EXCLUDED.deadline,
		    updated_at = now()
	`, s.Address, DateOf(s.Deadline))
	if err != nil {
		return fmt.Errorf("upsert subscriber: %w", err)
	}
	return nil
}

func (r *PgRepository) DeleteSubscriber(ctx context.Context, address string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM subscribers
		WHERE address = $1
	`, address)
	if err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}

func (r *PgRepository) SubscribersDueBy(ctx context.Context, date time.Time) ([]Subscriber, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT address, deadline
		FROM subscribers
		WHERE deadline <= $1
		ORDER BY address
	`, DateOf(date))
	if err != nil {
		return nil, err
	}
	return collectSubscribers(rows)
}
