package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsite/internal/domain/event"
	"eventsite/internal/domain/registration"
	"eventsite/internal/repo/memory"
)

func mustCreate(t *testing.T, repo *memory.EventsRepo, title string, date time.Time) event.Event {
	t.Helper()

	e, err := repo.Create(context.Background(), event.CreateEventRequest{
		Title: title,
		Date:  date,
	})
	require.NoError(t, err)

	return e
}

func TestListScopes(t *testing.T) {
	store := memory.NewStore()
	events := store.Events()
	now := time.Now()

	past := mustCreate(t, events, "Retro Night", now.Add(-48*time.Hour))
	soon := mustCreate(t, events, "Go Meetup", now.Add(24*time.Hour))
	later := mustCreate(t, events, "Conference", now.Add(72*time.Hour))

	upcoming, err := events.List(context.Background(), event.ListFilter{
		Scope: event.ScopeUpcoming,
		Now:   now,
	})
	require.NoError(t, err)
	require.Len(t, upcoming, 2)

	// soonest first
	assert.Equal(t, soon.ID, upcoming[0].ID)
	assert.Equal(t, later.ID, upcoming[1].ID)

	pastList, err := events.List(context.Background(), event.ListFilter{
		Scope: event.ScopePast,
		Now:   now,
	})
	require.NoError(t, err)
	require.Len(t, pastList, 1)
	assert.Equal(t, past.ID, pastList[0].ID)
}

func TestListSearchCaseInsensitive(t *testing.T) {
	store := memory.NewStore()
	events := store.Events()
	now := time.Now()

	match := mustCreate(t, events, "Go Meetup Toronto", now.Add(24*time.Hour))
	mustCreate(t, events, "Rust Evening", now.Add(24*time.Hour))

	got, err := events.List(context.Background(), event.ListFilter{
		Scope:  event.ScopeUpcoming,
		Search: "gO mEeT",
		Now:    now,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, match.ID, got[0].ID)
}

func TestListSearchMatchesMetacharactersLiterally(t *testing.T) {
	store := memory.NewStore()
	events := store.Events()
	now := time.Now()

	match := mustCreate(t, events, "go_meetup", now.Add(24*time.Hour))
	mustCreate(t, events, "conference", now.Add(24*time.Hour))

	got, err := events.List(context.Background(), event.ListFilter{
		Scope:  event.ScopeUpcoming,
		Search: "_",
		Now:    now,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, match.ID, got[0].ID)
}

func TestListSearchScopedToFilter(t *testing.T) {
	store := memory.NewStore()
	events := store.Events()
	now := time.Now()

	mustCreate(t, events, "Go Meetup", now.Add(-24*time.Hour))

	got, err := events.List(context.Background(), event.ListFilter{
		Scope:  event.ScopeUpcoming,
		Search: "go",
		Now:    now,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListRegistrationCounts(t *testing.T) {
	store := memory.NewStore()
	events := store.Events()
	regs := store.Registrations()
	now := time.Now()

	e := mustCreate(t, events, "Go Meetup", now.Add(24*time.Hour))

	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := regs.Create(context.Background(), registration.CreateRequest{
			EventID: e.ID,
			Name:    "Visitor",
			Email:   email,
		})
		require.NoError(t, err)
	}

	got, err := events.List(context.Background(), event.ListFilter{
		Scope: event.ScopeUpcoming,
		Now:   now,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].RegistrationCount)
}

func TestCreateRegistrationDuplicateEmail(t *testing.T) {
	store := memory.NewStore()
	e := mustCreate(t, store.Events(), "Go Meetup", time.Now().Add(24*time.Hour))
	regs := store.Registrations()

	_, err := regs.Create(context.Background(), registration.CreateRequest{
		EventID: e.ID,
		Name:    "Jane",
		Email:   "jane@example.com",
	})
	require.NoError(t, err)

	_, err = regs.Create(context.Background(), registration.CreateRequest{
		EventID: e.ID,
		Name:    "Also Jane",
		Email:   "jane@example.com",
	})
	require.ErrorIs(t, err, registration.ErrDuplicateEmail)

	list, err := regs.ListByEvent(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateRegistrationSameEmailOtherEvent(t *testing.T) {
	store := memory.NewStore()
	now := time.Now()
	first := mustCreate(t, store.Events(), "Go Meetup", now.Add(24*time.Hour))
	second := mustCreate(t, store.Events(), "Conference", now.Add(48*time.Hour))
	regs := store.Registrations()

	for _, e := range []event.Event{first, second} {
		_, err := regs.Create(context.Background(), registration.CreateRequest{
			EventID: e.ID,
			Name:    "Jane",
			Email:   "jane@example.com",
		})
		require.NoError(t, err)
	}
}

func TestCreateRegistrationUnknownEvent(t *testing.T) {
	store := memory.NewStore()

	_, err := store.Registrations().Create(context.Background(), registration.CreateRequest{
		EventID: "nope",
		Name:    "Jane",
		Email:   "jane@example.com",
	})
	require.ErrorIs(t, err, event.ErrNotFound)
}

// Concurrent submissions of the same email must yield exactly one
// registration, same guarantee the database unique constraint gives.
func TestCreateRegistrationConcurrentDuplicates(t *testing.T) {
	store := memory.NewStore()
	e := mustCreate(t, store.Events(), "Go Meetup", time.Now().Add(24*time.Hour))
	regs := store.Registrations()

	const workers = 100

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		duplicates int
	)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()

			_, err := regs.Create(context.Background(), registration.CreateRequest{
				EventID: e.ID,
				Name:    "Jane",
				Email:   "jane@example.com",
			})

			mu.Lock()
			defer mu.Unlock()

			switch err {
			case nil:
				created++
			case registration.ErrDuplicateEmail:
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, duplicates)

	count, err := regs.CountForEvent(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeleteCascadesRegistrations(t *testing.T) {
	store := memory.NewStore()
	e := mustCreate(t, store.Events(), "Go Meetup", time.Now().Add(24*time.Hour))
	regs := store.Registrations()

	_, err := regs.Create(context.Background(), registration.CreateRequest{
		EventID: e.ID,
		Name:    "Jane",
		Email:   "jane@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, store.Events().Delete(context.Background(), e.ID))

	_, err = regs.ListByEvent(context.Background(), e.ID)
	require.ErrorIs(t, err, event.ErrNotFound)
}
