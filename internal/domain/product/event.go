package product

import "time"

// EventType names a product change.
type EventType string

// Product change events.
const (
	EventCreated EventType = "product_created"
	EventUpdated EventType = "product_updated"
)

// Event is a product change published after a successful write.
type Event struct {
	Type       EventType `json:"type"`
	Product    Product   `json:"product"`
	OccurredAt time.Time `json:"occurredAt"`
}
