package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventsite/internal/domain/event"
	"eventsite/internal/domain/registration"
	"eventsite/internal/observability"
)

type RegistrationsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRegistrationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *RegistrationsRepo {
	return &RegistrationsRepo{
		pool: pool,
		prom: prom,
	}
}

func (repo *RegistrationsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

// ExistsForEvent is the advisory duplicate check used by form validation.
func (repo *RegistrationsRepo) ExistsForEvent(ctx context.Context, eventID, email string) (bool, error) {
	var exists bool

	err := repo.observe("registrations.exists_for_event", func() error {
		return repo.pool.QueryRow(ctx, `SELECT EXISTS(
			SELECT 1 FROM registrations
			WHERE event_id = $1 AND email = $2
		)`, eventID, email).Scan(&exists)
	})

	return exists, err
}

// Create inserts the registration. The unique constraint on
// (event_id, email) is the authority when two submissions race past the
// advisory check; its violation surfaces as ErrDuplicateEmail.
func (repo *RegistrationsRepo) Create(ctx context.Context, req registration.CreateRequest) (registration.Registration, error) {
	reg := registration.New(req)

	err := repo.observe("registrations.create", func() error {
		_, err := repo.pool.Exec(ctx, `
		INSERT INTO registrations (id, event_id, name, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, reg.ID, reg.EventID, reg.Name, reg.Email, reg.CreatedAt)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch {
			case pgErr.Code == "23505" && pgErr.ConstraintName == "registrations_event_email_uniq":
				return registration.Registration{}, registration.ErrDuplicateEmail
			case pgErr.Code == "23503":
				// event deleted between fetch and insert
				return registration.Registration{}, event.ErrNotFound
			}
		}
		return registration.Registration{}, err
	}

	return reg, nil
}

func (repo *RegistrationsRepo) ListByEvent(ctx context.Context, eventID string) (regs []registration.Registration, err error) {
	var rows pgx.Rows

	err = repo.observe("registrations.list_by_event", func() error {
		rows, err = repo.pool.Query(ctx,
			`
	SELECT id, event_id, name, email, created_at
	FROM registrations
	WHERE event_id = $1
	ORDER BY created_at ASC, id ASC
	`,
			eventID,
		)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	regs = make([]registration.Registration, 0)

	for rows.Next() {
		var r registration.Registration

		e := rows.Scan(&r.ID, &r.EventID, &r.Name, &r.Email, &r.CreatedAt)

		if e != nil {
			err = e
			return
		}
		regs = append(regs, r)
	}

	e := rows.Err()

	if e != nil {
		err = e
		return
	}

	// a 404 is wanted when the event itself does not exist

	if len(regs) == 0 {
		var dummy string

		err = repo.observe("registrations.list_by_event.check_event_exists", func() error {
			return repo.pool.QueryRow(ctx, `SELECT id FROM events WHERE id = $1`, eventID).Scan(&dummy)
		})

		if errors.Is(err, pgx.ErrNoRows) {
			err = event.ErrNotFound

			return
		}

		if err != nil {
			return
		}
	}

	return
}

func (repo *RegistrationsRepo) CountForEvent(ctx context.Context, eventID string) (int, error) {
	op := "registrations.count_for_event"
	var total int
	err := repo.observe(op, func() error {
		return repo.pool.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&total)
	})
	return total, err
}
