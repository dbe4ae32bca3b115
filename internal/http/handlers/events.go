package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"eventsite/internal/cache"
	"eventsite/internal/config"
	"eventsite/internal/domain/event"
	"eventsite/internal/forms"
)

type EventsReader interface {
	List(ctx context.Context, filter event.ListFilter) ([]event.WithCount, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
}

type EventsHandler struct {
	repo  EventsReader
	cache cache.Store
}

func NewEventsHandler(repo EventsReader) *EventsHandler {
	return &EventsHandler{repo: repo}
}

func NewEventsHandlerWithCache(repo EventsReader, c cache.Store) *EventsHandler {
	return &EventsHandler{repo: repo, cache: c}
}

// the script-driven list payload: id, title, date, registration_count
type eventListItem struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Date              time.Time `json:"date"`
	RegistrationCount int       `json:"registration_count"`
}

// List serves the event list. Default scope is upcoming events soonest
// first; filter=past flips to past events most recent first. A search term
// narrows by title within the chosen scope. Script-driven requests get the
// JSON payload, browsers get the page.
func (h *EventsHandler) List(ctx *gin.Context) {
	filter := event.ListFilter{
		Scope:  event.ScopeFromFilter(ctx.Query("filter")),
		Search: strings.TrimSpace(ctx.Query("search")),
		Now:    time.Now(),
	}

	if IsScriptRequest(ctx) {
		h.listJSON(ctx, filter)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	events, err := h.repo.List(cctx, filter)

	if err != nil {
		slog.ErrorContext(ctx.Request.Context(), "list events failed", "err", err)
		RenderServerError(ctx)
		return
	}

	renderHTML(ctx, http.StatusOK, "events.html", gin.H{
		"Events": events,
		"Search": filter.Search,
		"Past":   filter.Scope == event.ScopePast,
	})
}

func (h *EventsHandler) listJSON(ctx *gin.Context, filter event.ListFilter) {
	key := "events:" + string(filter.Scope) + ":" + strings.ToLower(filter.Search)
	rctx := ctx.Request.Context()

	if h.cache != nil {
		if body, ok := h.cache.Get(rctx, key); ok {
			ServeJSONWithETag(ctx, http.StatusOK, body)
			return
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	events, err := h.repo.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	items := make([]eventListItem, 0, len(events))

	for _, e := range events {
		items = append(items, eventListItem{
			ID:                e.ID,
			Title:             e.Title,
			Date:              e.Date,
			RegistrationCount: e.RegistrationCount,
		})
	}

	body, err := json.Marshal(gin.H{"events": items})

	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	if h.cache != nil {
		h.cache.Set(rctx, key, body)
	}

	ServeJSONWithETag(ctx, http.StatusOK, body)
}

// Detail renders one event. Upcoming events carry a fresh registration
// form; past events carry none, so the page omits the registration UI.
func (h *EventsHandler) Detail(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			slog.InfoContext(ctx.Request.Context(), "no event found", "event_id", id)
			RenderNotFound(ctx)
			return
		}
		slog.ErrorContext(ctx.Request.Context(), "fetch event failed", "event_id", id, "err", err)
		RenderServerError(ctx)
		return
	}

	isPast := e.IsPast(time.Now())

	var form *forms.RegistrationForm
	if !isPast {
		form = forms.NewRegistrationForm(e, nil)
	}

	renderHTML(ctx, http.StatusOK, "event_detail.html", gin.H{
		"Event":  e,
		"Form":   form,
		"IsPast": isPast,
	})
}

// Confirmation is the static success page after a registration.
func (h *EventsHandler) Confirmation(ctx *gin.Context) {
	renderHTML(ctx, http.StatusOK, "confirmation.html", nil)
}
