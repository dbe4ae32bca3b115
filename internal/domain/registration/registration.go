package registration

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Registration struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// the same email signed up twice for one event
var ErrDuplicateEmail = errors.New("email already registered for this event")

type CreateRequest struct {
	EventID string
	Name    string
	Email   string
}

// New builds a Registration from validated form input.
func New(req CreateRequest) Registration {
	return Registration{
		ID:        uuid.NewString(),
		EventID:   req.EventID,
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: time.Now(),
	}
}
