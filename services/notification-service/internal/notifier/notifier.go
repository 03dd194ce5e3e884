package notifier

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier delivers a user-facing message through some channel
// (email, SMS, push). Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, userID, subject, message string) error
}

// ConsoleNotifier writes notifications to the log. It stands in for a
// real delivery channel in development.
type ConsoleNotifier struct {
	log zerolog.Logger
}

func NewConsole(log zerolog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{log: log.With().Str("component", "console-notifier").Logger()}
}

func (c *ConsoleNotifier) Notify(ctx context.Context, userID, subject, message string) error {
	c.log.Info().
		Str("userId", userID).
		Str("subject", subject).
		Str("message", message).
		Msg("notification delivered")
	return nil
}
