// Package notify defines the notification capability and message formatting.
package notify

import "context"

// Notifier delivers operator notifications. Delivery is best-effort: callers
// log failures and never propagate them.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Nop is a Notifier that discards all messages. Used when no topic is configured.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(_ context.Context, _, _ string) error { return nil }
