package notifications

import (
	"context"
	"fmt"
)

type SendRegistrationConfirmationInput struct {
	Email          string
	Name           string
	EventID        string
	EventTitle     string
	RegistrationID string
}

func (in SendRegistrationConfirmationInput) Subject() string {
	return "Event Registration Confirmation"
}

func (in SendRegistrationConfirmationInput) Body() string {
	return fmt.Sprintf("Thank you %s for registering for %s.", in.Name, in.EventTitle)
}

// Notifier sends the best-effort confirmation notice. Callers log failures
// and move on; the registration outcome never depends on the send.
type Notifier interface {
	SendRegistrationConfirmation(ctx context.Context, input SendRegistrationConfirmationInput) error
}
