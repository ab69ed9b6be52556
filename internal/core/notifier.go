package core

import "context"

// SendResult is the outcome of one outbound text.
type SendResult struct {
	Success bool
	// ID is the provider message id when one is returned.
	ID    string
	Error string
}

// Notifier delivers a text message to a recipient (phone number or chat id).
// Implementations must not panic on provider failures; they report them in
// SendResult and the returned error.
type Notifier interface {
	SendText(ctx context.Context, recipient, body string) (SendResult, error)
}
