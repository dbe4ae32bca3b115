package event

import (
	"errors"
	"time"
)

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// WithCount is an Event plus its registration count computed at query time.
type WithCount struct {
	Event
	RegistrationCount int `json:"registration_count"`
}

// IsPast reports whether the event date is strictly before now.
func (e Event) IsPast(now time.Time) bool {
	return e.Date.Before(now)
}

type Scope string

const (
	ScopeUpcoming Scope = "upcoming"
	ScopePast     Scope = "past"
)

// ScopeFromFilter maps the list view's filter parameter onto a scope.
// Anything other than "past" means the default upcoming view.
func ScopeFromFilter(filter string) Scope {
	if filter == "past" {
		return ScopePast
	}
	return ScopeUpcoming
}

// ListFilter carries the list query inputs. Now is the request-time clock
// so past/upcoming classification is stable across the whole query.
type ListFilter struct {
	Scope  Scope
	Search string
	Now    time.Time
}

var ErrNotFound = errors.New("event not found")

type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required,min=1,max=200"`
	Description string    `json:"description" binding:"omitempty,max=5000"`
	Date        time.Time `json:"date" binding:"required"`
}

// a full update payload, same shape as create.
type UpdateEventRequest struct {
	Title       string    `json:"title" binding:"required,min=1,max=200"`
	Description string    `json:"description" binding:"omitempty,max=5000"`
	Date        time.Time `json:"date" binding:"required"`
}
