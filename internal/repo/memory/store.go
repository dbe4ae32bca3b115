package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"eventsite/internal/domain/event"
	"eventsite/internal/domain/registration"
)

// Store keeps events and registrations in process memory behind one lock.
// It backs the same handler interfaces as the postgres repos, which makes it
// the substitute store for tests and DB-less runs. Registration inserts are
// serialized by the lock, so the per-event email uniqueness holds under
// concurrent submissions just as the database constraint does.
type Store struct {
	mu            sync.RWMutex
	events        map[string]event.Event
	registrations map[string][]registration.Registration // keyed by event id
}

func NewStore() *Store {
	return &Store{
		events:        make(map[string]event.Event),
		registrations: make(map[string][]registration.Registration),
	}
}

func (s *Store) Events() *EventsRepo {
	return &EventsRepo{store: s}
}

func (s *Store) Registrations() *RegistrationsRepo {
	return &RegistrationsRepo{store: s}
}

type EventsRepo struct {
	store *Store
}

func (r *EventsRepo) Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
	e := event.NewFromCreateRequest(req)

	r.store.mu.Lock()
	r.store.events[e.ID] = e
	r.store.mu.Unlock()

	return e, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	r.store.mu.RLock()
	e, ok := r.store.events[id]
	r.store.mu.RUnlock()

	if !ok {
		return event.Event{}, event.ErrNotFound
	}

	return e, nil
}

func (r *EventsRepo) List(ctx context.Context, filter event.ListFilter) ([]event.WithCount, error) {
	search := strings.ToLower(filter.Search)

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]event.WithCount, 0)

	for _, e := range r.store.events {
		if filter.Scope == event.ScopePast {
			if !e.Date.Before(filter.Now) {
				continue
			}
		} else {
			if e.Date.Before(filter.Now) {
				continue
			}
		}

		if search != "" && !strings.Contains(strings.ToLower(e.Title), search) {
			continue
		}

		out = append(out, event.WithCount{
			Event:             e,
			RegistrationCount: len(r.store.registrations[e.ID]),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		if filter.Scope == event.ScopePast {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Date.Before(out[j].Date)
	})

	return out, nil
}

func (r *EventsRepo) Update(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	e, ok := r.store.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}

	e.Title = req.Title
	e.Description = req.Description
	e.Date = req.Date
	e.UpdatedAt = time.Now()
	r.store.events[id] = e

	return e, nil
}

// Delete removes the event and, as the database cascade would, its
// registrations.
func (r *EventsRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.events[id]; !ok {
		return event.ErrNotFound
	}

	delete(r.store.events, id)
	delete(r.store.registrations, id)

	return nil
}

type RegistrationsRepo struct {
	store *Store
}

func (r *RegistrationsRepo) ExistsForEvent(ctx context.Context, eventID, email string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, reg := range r.store.registrations[eventID] {
		if reg.Email == email {
			return true, nil
		}
	}

	return false, nil
}

// Create checks and inserts under one lock, mirroring the atomicity the
// storage constraint gives the postgres repo.
func (r *RegistrationsRepo) Create(ctx context.Context, req registration.CreateRequest) (registration.Registration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.events[req.EventID]; !ok {
		return registration.Registration{}, event.ErrNotFound
	}

	for _, reg := range r.store.registrations[req.EventID] {
		if reg.Email == req.Email {
			return registration.Registration{}, registration.ErrDuplicateEmail
		}
	}

	reg := registration.New(req)
	r.store.registrations[req.EventID] = append(r.store.registrations[req.EventID], reg)

	return reg, nil
}

func (r *RegistrationsRepo) ListByEvent(ctx context.Context, eventID string) ([]registration.Registration, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if _, ok := r.store.events[eventID]; !ok {
		return nil, event.ErrNotFound
	}

	regs := make([]registration.Registration, len(r.store.registrations[eventID]))
	copy(regs, r.store.registrations[eventID])

	return regs, nil
}

func (r *RegistrationsRepo) CountForEvent(ctx context.Context, eventID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return len(r.store.registrations[eventID]), nil
}
