package event

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateEventRequest) Event {
	now := time.Now()

	return Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
