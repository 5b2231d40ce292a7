package domain

import "time"

// EventType names a storefront action reported to the ad platform.
type EventType string

const (
	EventPageView         EventType = "PageView"
	EventViewContent      EventType = "ViewContent"
	EventAddToCart        EventType = "AddToCart"
	EventInitiateCheckout EventType = "InitiateCheckout"
	EventPurchase         EventType = "Purchase"
	EventSearch           EventType = "Search"
	EventAddToWishlist    EventType = "AddToWishlist"
)

// AllEventTypes lists every event type the pipeline knows how to report.
var AllEventTypes = []EventType{
	EventPageView,
	EventViewContent,
	EventAddToCart,
	EventInitiateCheckout,
	EventPurchase,
	EventSearch,
	EventAddToWishlist,
}

// Known reports whether t is one of the supported event types.
func (t EventType) Known() bool {
	for _, k := range AllEventTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Event is the canonical payload handed to the dispatcher.
// occurred_at is epoch seconds (UTC); event_id is assigned by the dispatcher
// exactly once per logical occurrence and shared by both delivery channels.
type Event struct {
	Name       EventType `json:"event_name"`
	ContentIDs []string  `json:"content_ids,omitempty"`
	Value      string    `json:"value,omitempty"`
	Currency   string    `json:"currency,omitempty"`
	OccurredAt int64     `json:"occurred_at,omitempty"`
	EventID    string    `json:"event_id,omitempty"`
}

// Validation constraints (keep in sync with the storefront clients)
const (
	MaxContentIDLen  = 64
	MaxContentIDs    = 50
	MaxValueLen      = 32
	MinAccountIDLen  = 5
	MaxAccountIDLen  = 20
	DefaultClockSkew = 5 * time.Minute
)
