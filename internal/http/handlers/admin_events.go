package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eventsite/internal/cache"
	"eventsite/internal/config"
	"eventsite/internal/domain/event"
	"eventsite/internal/domain/registration"
)

type EventsAdmin interface {
	Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error)
	Update(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error)
	Delete(ctx context.Context, id string) error
}

type RegistrationsLister interface {
	ListByEvent(ctx context.Context, eventID string) ([]registration.Registration, error)
}

// AdminEventsHandler is the JSON surface for the administrative actor that
// publishes and retires events.
type AdminEventsHandler struct {
	events EventsAdmin
	regs   RegistrationsLister
	cache  cache.Store
}

func NewAdminEventsHandler(events EventsAdmin, regs RegistrationsLister) *AdminEventsHandler {
	return &AdminEventsHandler{events: events, regs: regs}
}

func NewAdminEventsHandlerWithCache(events EventsAdmin, regs RegistrationsLister, c cache.Store) *AdminEventsHandler {
	return &AdminEventsHandler{events: events, regs: regs, cache: c}
}

// invalidateListCache drops cached list payloads after a mutation so the
// script-driven list stops serving retired data.
func (h *AdminEventsHandler) invalidateListCache(ctx *gin.Context) {
	if h.cache != nil {
		h.cache.Clear(ctx.Request.Context())
	}
}

func (h *AdminEventsHandler) CreateEvent(ctx *gin.Context) {
	var req event.CreateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.events.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create event")
		return
	}

	h.invalidateListCache(ctx)
	ctx.JSON(http.StatusCreated, e)
}

func (h *AdminEventsHandler) UpdateEvent(ctx *gin.Context) {
	id := ctx.Param("id")

	var req event.UpdateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.events.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not update event")
		return
	}

	h.invalidateListCache(ctx)
	ctx.JSON(http.StatusOK, e)
}

// DeleteEvent removes an event and, through the storage cascade, all of its
// registrations.
func (h *AdminEventsHandler) DeleteEvent(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.events.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not delete event")
		return
	}

	h.invalidateListCache(ctx)
	ctx.Status(http.StatusNoContent)
}

func (h *AdminEventsHandler) ListRegistrations(ctx *gin.Context) {
	eventID := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	regs, err := h.regs.ListByEvent(cctx, eventID)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not list registrations")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"eventId":       eventID,
		"count":         len(regs),
		"registrations": regs,
	})
}
