// Package notify delivers composed digests to the operator's messaging
// channel.
package notify

import (
	"context"
	"errors"
)

// ErrDelivery marks a notification that could not be delivered after retries.
// Delivery is best-effort: the pipeline logs the failure and keeps the record.
var ErrDelivery = errors.New("notification delivery failed")

// Message is the composed notification content. Text is the plain body; when
// a content template is configured, Subject and Summary fill its variables
// instead.
type Message struct {
	Subject string
	Summary string
	Text    string
}

// Notifier sends one message and returns the provider's message id.
type Notifier interface {
	Send(ctx context.Context, msg Message) (string, error)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
