package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventsite/internal/domain/event"
	"eventsite/internal/observability"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes pattern metacharacters so a search term matches
// titles literally inside ILIKE.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *EventsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *EventsRepo) Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
	e := event.NewFromCreateRequest(req)

	err := r.observe("events.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO events (id, title, description, date, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, e.Title, e.Description, e.Date, e.CreatedAt, e.UpdatedAt)
		return err
	})

	if err != nil {
		return event.Event{}, err
	}

	return e, nil
}

// List returns the events in the filter's scope with per-event registration
// counts. Past events come most recent first, upcoming events soonest first.
// A non-empty search restricts to case-insensitive title substring matches.
func (r *EventsRepo) List(ctx context.Context, filter event.ListFilter) ([]event.WithCount, error) {
	query := `SELECT e.id,
		e.title,
		e.description,
		e.date,
		e.created_at,
		e.updated_at,
		COUNT(r.id) AS registration_count
	FROM events e
	LEFT JOIN registrations r ON r.event_id = e.id
	`

	args := []interface{}{filter.Now}

	if filter.Scope == event.ScopePast {
		query += "WHERE e.date < $1\n"
	} else {
		query += "WHERE e.date >= $1\n"
	}

	if filter.Search != "" {
		query += `AND e.title ILIKE '%' || $2 || '%' ESCAPE '\'` + "\n"
		args = append(args, escapeLike(filter.Search))
	}

	query += "GROUP BY e.id\n"

	if filter.Scope == event.ScopePast {
		query += "ORDER BY e.date DESC, e.id"
	} else {
		query += "ORDER BY e.date ASC, e.id"
	}

	var rows pgx.Rows
	err := r.observe("events.list", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, query, args...)
		return qerr
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	output := make([]event.WithCount, 0)

	for rows.Next() {
		var e event.WithCount

		err = rows.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.CreatedAt, &e.UpdatedAt, &e.RegistrationCount)

		if err != nil {
			return nil, err
		}

		output = append(output, e)
	}

	err = rows.Err()

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	var e event.Event

	err := r.observe("events.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, title, description, date, created_at, updated_at FROM events WHERE id = $1`, id,
		).Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.CreatedAt, &e.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) Update(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error) {
	var e event.Event

	err := r.observe("events.update", func() error {
		return r.pool.QueryRow(
			ctx,
			`UPDATE events
				SET title = $2,
						description = $3,
						date = $4,
						updated_at = NOW()
			WHERE id = $1
			RETURNING id, title, description, date, created_at, updated_at`,
			id,
			req.Title,
			req.Description,
			req.Date,
		).Scan(
			&e.ID,
			&e.Title,
			&e.Description,
			&e.Date,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

// Delete removes the event; the registrations go with it via the cascading
// foreign key.
func (r *EventsRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.observe("events.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}

	if affected == 0 {
		return event.ErrNotFound
	}

	return nil
}
