// Package notifier delivers best-effort operator notifications.
package notifier

import "context"

// Notifier sends a text message. Callers treat failures as non-fatal.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Nop discards every message.
type Nop struct{}

func (Nop) Send(context.Context, string) error { return nil }
