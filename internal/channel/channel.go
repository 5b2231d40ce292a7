// Package channel defines the two delivery channels the dispatcher emits to.
// Both carry the same event identity for one logical event; the external
// platform deduplicates on it.
package channel

import (
	"context"

	"example.com/adtrack/internal/domain"
)

// Delivery is one channel-bound emission of one logical event. Event.EventID
// is already assigned; APIToken is only meaningful for the server channel.
type Delivery struct {
	TenantID  string
	AccountID string
	APIToken  string
	Event     domain.Event
}

// Client is the browser-executed pixel script surface. The script
// initializes asynchronously; the readiness gate polls Initialized and
// ChannelID before any Send goes through.
type Client interface {
	Initialized() bool
	ChannelID() string
	Send(d Delivery) error
}

// Server forwards the event backend-to-backend: one HTTP request per event,
// best-effort, no retry.
type Server interface {
	Send(ctx context.Context, d Delivery) error
}
