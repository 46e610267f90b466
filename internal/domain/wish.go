package domain

import (
	"context"
	"time"
)

// Wish is a guest-submitted message for an event. Immutable once created
// except for owner deletion.
// swagger:model Wish
type Wish struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	GuestName string    `json:"guest_name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewWish returns a new Wish. ID is set by the repository on create.
func NewWish(eventID, guestName, message string, createdAt time.Time) *Wish {
	return &Wish{
		EventID:   eventID,
		GuestName: guestName,
		Message:   message,
		CreatedAt: createdAt,
	}
}

// WishRepository defines storage operations for wishes. Create and Delete
// adjust the event's stats counters atomically in the same transaction and
// return the event's new feed sequence number.
type WishRepository interface {
	Create(ctx context.Context, wish *Wish) (seq int64, err error)
	GetByID(ctx context.Context, id string) (*Wish, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Wish, error)
	Delete(ctx context.Context, id string) (seq int64, err error)
}
