// Package notifier
package notifier

import "fmt"

// Notifier interface for sending notifications (e.g., Telegram, email).
type Notifier interface {
	Send(msg string) error
	SendWithRetry(msg string) error
}

// SendError reports a non-2xx response from the notification backend.
type SendError struct {
	Status string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("notification send failed: %s", e.Status)
}

// Noop discards every notification. Used when no notifier is configured.
type Noop struct{}

func (Noop) Send(string) error          { return nil }
func (Noop) SendWithRetry(string) error { return nil }
