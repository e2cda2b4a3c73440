package domain

import "time"

type EventType string

const (
	EventItemAdded      EventType = "inventory.item_added"
	EventItemRemoved    EventType = "inventory.item_removed"
	EventAccountDeleted EventType = "account.deleted"
)

type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id"`
	Item       string    `json:"item,omitempty"`
	Quantity   int       `json:"quantity"`
	OccurredAt time.Time `json:"occurred_at"`
}
