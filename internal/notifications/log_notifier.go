package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// LogNotifier is the default provider: it only writes the would-be email to
// the log. Useful locally and in tests.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) SendRegistrationConfirmation(ctx context.Context, in SendRegistrationConfirmationInput) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	slog.InfoContext(ctx, "notification.registration_confirmation",
		"email", in.Email,
		"subject", in.Subject(),
		"event", in.EventID,
		"registration", in.RegistrationID,
	)
	return nil
}
