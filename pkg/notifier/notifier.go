package notifier

import "context"

// Notifier delivers a one-time code to a destination (email address or mobile
// number). Delivery is best-effort: callers log failures and carry on, since
// blocking registration or login on a provider outage is explicitly avoided.
type Notifier interface {
	SendCode(ctx context.Context, destination, code string) error
	SendWelcome(ctx context.Context, destination, name string) error
}

// Noop discards every notification. Used in development, where the fixed OTP
// code makes delivery unnecessary.
type Noop struct{}

func (Noop) SendCode(ctx context.Context, destination, code string) error    { return nil }
func (Noop) SendWelcome(ctx context.Context, destination, name string) error { return nil }
