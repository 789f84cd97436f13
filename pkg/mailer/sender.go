package mailer

import "context"

// Sender is implemented by email providers.
type Sender interface {
	// Send delivers a fully prepared email and returns the provider's
	// message id. An empty id with a nil error is treated by callers as
	// an unconfirmed delivery.
	Send(ctx context.Context, email *Email) (string, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, email *Email) (string, error)

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, email *Email) (string, error) {
	return f(ctx, email)
}
