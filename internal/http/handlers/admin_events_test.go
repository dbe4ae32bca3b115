package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventsite/internal/cache"
	"eventsite/internal/domain/event"
	"eventsite/internal/domain/registration"
	"eventsite/internal/http/handlers"
)

// Fake implementations of the admin-facing interfaces

type fakeEventsAdmin struct {
	createFn func(ctx context.Context, req event.CreateEventRequest) (event.Event, error)
	updateFn func(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakeEventsAdmin) Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return event.Event{}, nil
}

func (f *fakeEventsAdmin) Update(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return event.Event{}, nil
}

func (f *fakeEventsAdmin) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

type fakeRegistrationsLister struct {
	listFn func(ctx context.Context, eventID string) ([]registration.Registration, error)
}

func (f *fakeRegistrationsLister) ListByEvent(ctx context.Context, eventID string) ([]registration.Registration, error) {
	if f.listFn != nil {
		return f.listFn(ctx, eventID)
	}
	return nil, nil
}

func TestCreateEventHandler(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name           string
		body           string
		adminSetUp     func(*fakeEventsAdmin)
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{
				"title": "Go Meetup",
				"description": "Monthly meetup",
				"date": "` + now.Add(24*time.Hour).Format(time.RFC3339) + `"
			}`,
			adminSetUp: func(f *fakeEventsAdmin) {
				f.createFn = func(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
					return event.Event{
						ID:          newUUID(),
						Title:       req.Title,
						Description: req.Description,
						Date:        req.Date,
						CreatedAt:   now,
						UpdatedAt:   now,
					}, nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "validation_error",
			body: `{"title": ""}`,
			adminSetUp: func(f *fakeEventsAdmin) {
				// invalid payload never reaches the store
				f.createFn = func(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
					t.Fatal("store must not be called")
					return event.Event{}, nil
				}
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "store_error",
			body: `{
				"title": "Go Meetup",
				"date": "` + now.Add(24*time.Hour).Format(time.RFC3339) + `"
			}`,
			adminSetUp: func(f *fakeEventsAdmin) {
				f.createFn = func(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
					return event.Event{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			admin := &fakeEventsAdmin{}

			if tt.adminSetUp != nil {
				tt.adminSetUp(admin)
			}

			h := handlers.NewAdminEventsHandler(admin, &fakeRegistrationsLister{})
			r := setupRouter(http.MethodPost, "/admin/events", h.CreateEvent)

			req := httptest.NewRequest(http.MethodPost, "/admin/events", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestUpdateEventHandler(t *testing.T) {
	now := time.Now().UTC()

	validBody := `{
		"title": "Go Meetup (moved)",
		"date": "` + now.Add(48*time.Hour).Format(time.RFC3339) + `"
	}`

	tests := []struct {
		name           string
		body           string
		adminSetUp     func(*fakeEventsAdmin)
		wantStatusCode int
	}{
		{
			name: "success",
			body: validBody,
			adminSetUp: func(f *fakeEventsAdmin) {
				f.updateFn = func(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error) {
					return event.Event{ID: id, Title: req.Title, Date: req.Date}, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "not_found",
			body: validBody,
			adminSetUp: func(f *fakeEventsAdmin) {
				f.updateFn = func(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error) {
					return event.Event{}, event.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "validation_error",
			body:           `{"title": ""}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			admin := &fakeEventsAdmin{}

			if tt.adminSetUp != nil {
				tt.adminSetUp(admin)
			}

			h := handlers.NewAdminEventsHandler(admin, &fakeRegistrationsLister{})
			r := setupRouter(http.MethodPut, "/admin/events/:id", h.UpdateEvent)

			req := httptest.NewRequest(http.MethodPut, "/admin/events/"+newUUID(), bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestDeleteEventHandler(t *testing.T) {
	tests := []struct {
		name           string
		adminSetUp     func(*fakeEventsAdmin)
		wantStatusCode int
	}{
		{
			name:           "success",
			wantStatusCode: http.StatusNoContent,
		},
		{
			name: "not_found",
			adminSetUp: func(f *fakeEventsAdmin) {
				f.deleteFn = func(ctx context.Context, id string) error {
					return event.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			admin := &fakeEventsAdmin{}

			if tt.adminSetUp != nil {
				tt.adminSetUp(admin)
			}

			h := handlers.NewAdminEventsHandler(admin, &fakeRegistrationsLister{})
			r := setupRouter(http.MethodDelete, "/admin/events/:id", h.DeleteEvent)

			req := httptest.NewRequest(http.MethodDelete, "/admin/events/"+newUUID(), nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatusCode)
			}
		})
	}
}

// Every successful admin mutation must drop the cached list payloads so
// the script-driven list stops serving retired data.
func TestAdminMutationsInvalidateListCache(t *testing.T) {
	now := time.Now().UTC()

	validBody := `{
		"title": "Go Meetup",
		"date": "` + now.Add(24*time.Hour).Format(time.RFC3339) + `"
	}`

	admin := &fakeEventsAdmin{
		createFn: func(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
			return event.Event{ID: newUUID(), Title: req.Title, Date: req.Date}, nil
		},
		updateFn: func(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error) {
			return event.Event{ID: id, Title: req.Title, Date: req.Date}, nil
		},
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "create", method: http.MethodPost, path: "/admin/events", body: validBody},
		{name: "update", method: http.MethodPut, path: "/admin/events/" + newUUID(), body: validBody},
		{name: "delete", method: http.MethodDelete, path: "/admin/events/" + newUUID()},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			c := cache.NewMemory(time.Minute)
			c.Set(context.Background(), "events:upcoming:", []byte(`{"events":[]}`))

			h := handlers.NewAdminEventsHandlerWithCache(admin, &fakeRegistrationsLister{}, c)

			r := setupRouter(http.MethodPost, "/admin/events", h.CreateEvent)
			r.Handle(http.MethodPut, "/admin/events/:id", h.UpdateEvent)
			r.Handle(http.MethodDelete, "/admin/events/:id", h.DeleteEvent)

			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code >= http.StatusBadRequest {
				t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
			}

			if _, ok := c.Get(context.Background(), "events:upcoming:"); ok {
				t.Fatal("list cache still holds payloads after the mutation")
			}
		})
	}
}

// A rejected payload changes nothing, so the cache must survive it.
func TestAdminInvalidPayloadKeepsListCache(t *testing.T) {
	c := cache.NewMemory(time.Minute)
	c.Set(context.Background(), "events:upcoming:", []byte(`{"events":[]}`))

	h := handlers.NewAdminEventsHandlerWithCache(&fakeEventsAdmin{}, &fakeRegistrationsLister{}, c)
	r := setupRouter(http.MethodPost, "/admin/events", h.CreateEvent)

	req := httptest.NewRequest(http.MethodPost, "/admin/events", bytes.NewBufferString(`{"title": ""}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}

	if _, ok := c.Get(context.Background(), "events:upcoming:"); !ok {
		t.Fatal("list cache dropped by a rejected payload")
	}
}

func TestListRegistrationsHandler(t *testing.T) {
	eventID := newUUID()

	lister := &fakeRegistrationsLister{
		listFn: func(ctx context.Context, id string) ([]registration.Registration, error) {
			if id != eventID {
				return nil, event.ErrNotFound
			}
			return []registration.Registration{
				{ID: newUUID(), EventID: id, Name: "Jane", Email: "jane@example.com"},
				{ID: newUUID(), EventID: id, Name: "John", Email: "john@example.com"},
			}, nil
		},
	}

	h := handlers.NewAdminEventsHandler(&fakeEventsAdmin{}, lister)
	r := setupRouter(http.MethodGet, "/admin/events/:id/registrations", h.ListRegistrations)

	req := httptest.NewRequest(http.MethodGet, "/admin/events/"+eventID+"/registrations", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var payload struct {
		EventID       string `json:"eventId"`
		Count         int    `json:"count"`
		Registrations []struct {
			Email string `json:"email"`
		} `json:"registrations"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if payload.EventID != eventID || payload.Count != 2 || len(payload.Registrations) != 2 {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	// unknown event

	reqMissing := httptest.NewRequest(http.MethodGet, "/admin/events/"+newUUID()+"/registrations", nil)
	wMissing := httptest.NewRecorder()
	r.ServeHTTP(wMissing, reqMissing)

	if wMissing.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d", wMissing.Code, http.StatusNotFound)
	}
}
