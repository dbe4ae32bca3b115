package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eventsite/internal/cache"
	"eventsite/internal/config"
	"eventsite/internal/domain/event"
	"eventsite/internal/domain/registration"
	"eventsite/internal/forms"
	"eventsite/internal/notifications"
	"eventsite/internal/observability"
)

type RegistrationsStore interface {
	Create(ctx context.Context, req registration.CreateRequest) (registration.Registration, error)
	ExistsForEvent(ctx context.Context, eventID, email string) (bool, error)
}

type RegisterHandler struct {
	events   EventsReader
	regs     RegistrationsStore
	notifier notifications.Notifier
	prom     *observability.Prom
	cache    cache.Store
}

func NewRegisterHandler(events EventsReader, regs RegistrationsStore, notifier notifications.Notifier, prom *observability.Prom) *RegisterHandler {
	return &RegisterHandler{
		events:   events,
		regs:     regs,
		notifier: notifier,
		prom:     prom,
	}
}

func NewRegisterHandlerWithCache(events EventsReader, regs RegistrationsStore, notifier notifications.Notifier, prom *observability.Prom, c cache.Store) *RegisterHandler {
	h := NewRegisterHandler(events, regs, notifier, prom)
	h.cache = c

	return h
}

// Register handles the registration page and its submission. A GET renders
// the detail page with a bound-to-nothing form attached; a POST validates
// the submission, persists on success, fires the best-effort confirmation
// and redirects to the confirmation page. Invalid submissions re-render
// the page with field errors and a 200.
func (h *RegisterHandler) Register(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.events.GetByID(cctx, id)

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

	form := forms.NewRegistrationForm(e, h.regs)

	if ctx.Request.Method != http.MethodPost {
		// initial render keeps the form attached regardless of event date
		h.renderPage(ctx, e, form)
		return
	}

	form.Bind(ctx.PostForm("name"), ctx.PostForm("email"))

	if err := form.Validate(cctx); err != nil {
		slog.ErrorContext(ctx.Request.Context(), "registration validation failed", "event_id", e.ID, "err", err)
		RenderServerError(ctx)
		return
	}

	if form.Valid() {
		reg, err := h.regs.Create(cctx, registration.CreateRequest{
			EventID: e.ID,
			Name:    form.Name,
			Email:   form.Email,
		})

		switch {
		case err == nil:
			// the list's registration_count just changed
			if h.cache != nil {
				h.cache.Clear(ctx.Request.Context())
			}
			h.notify(reg, e)
			ctx.Redirect(http.StatusFound, "/confirmation/")
			return
		case errors.Is(err, registration.ErrDuplicateEmail):
			// the advisory check lost a race; same verdict, same message
			form.AddError("email", forms.DuplicateEmailMessage)
		case errors.Is(err, event.ErrNotFound):
			RenderNotFound(ctx)
			return
		default:
			slog.ErrorContext(ctx.Request.Context(), "create registration failed", "event_id", e.ID, "err", err)
			RenderServerError(ctx)
			return
		}
	}

	h.renderPage(ctx, e, form)
}

func (h *RegisterHandler) renderPage(ctx *gin.Context, e event.Event, form *forms.RegistrationForm) {
	renderHTML(ctx, http.StatusOK, "event_detail.html", gin.H{
		"Event":  e,
		"Form":   form,
		"IsPast": e.IsPast(time.Now()),
	})
}

// notify sends the confirmation and only logs the outcome. The response to
// the visitor is decided before this runs and never changes because of it.
func (h *RegisterHandler) notify(reg registration.Registration, e event.Event) {
	if h.notifier == nil {
		return
	}

	nctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	err := h.notifier.SendRegistrationConfirmation(nctx, notifications.SendRegistrationConfirmationInput{
		Email:          reg.Email,
		Name:           reg.Name,
		EventID:        e.ID,
		EventTitle:     e.Title,
		RegistrationID: reg.ID,
	})

	if err != nil {
		if h.prom != nil {
			h.prom.NotificationsTotal.WithLabelValues("failed").Inc()
		}
		slog.Warn("confirmation email failed", "email", reg.Email, "err", err)
		return
	}

	if h.prom != nil {
		h.prom.NotificationsTotal.WithLabelValues("sent").Inc()
	}
	slog.Info("confirmation email sent", "email", reg.Email)
}
