package domain

import "context"

// EventStats are derived counters for one event. They are maintained with
// atomic increments in the same transaction as each contribution write and
// must always equal a recount of the underlying record sets.
// swagger:model EventStats
type EventStats struct {
	EventID         string `json:"event_id"`
	TotalWishes     int64  `json:"total_wishes"`
	TotalPhotos     int64  `json:"total_photos"`
	TotalResponses  int64  `json:"total_responses"`
	TotalGuestCount int64  `json:"total_guest_count"`
	Attending       int64  `json:"attending"`
	NotAttending    int64  `json:"not_attending"`
	Maybe           int64  `json:"maybe"`
}

// StatsRepository defines access to the per-event counters row.
type StatsRepository interface {
	// Create inserts the zeroed counters row for a new event.
	Create(ctx context.Context, eventID string) error
	GetByEventID(ctx context.Context, eventID string) (*EventStats, error)
	// NextSeq advances the event's feed sequence without touching counters.
	// Used for settings/event changes that carry no counter delta.
	NextSeq(ctx context.Context, eventID string) (int64, error)
	// Recompute recounts the counters from the contribution tables and
	// rewrites the row. Used for drift checks and repair tooling.
	Recompute(ctx context.Context, eventID string) (*EventStats, error)
}
