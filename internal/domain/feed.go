package domain

import "context"

// Kinds of change carried by an event's feed.
const (
	ChangeKindWish     = "wish"
	ChangeKindPhoto    = "photo"
	ChangeKindRSVP     = "rsvp"
	ChangeKindStats    = "stats"
	ChangeKindSettings = "settings"
	ChangeKindEvent    = "event"
)

// Actions carried by an event's feed.
const (
	ChangeActionCreated = "created"
	ChangeActionUpdated = "updated"
	ChangeActionDeleted = "deleted"
)

// ChangeEvent is one committed change on an event's feed. Seq is the
// event-scoped commit sequence; deliveries for one event are strictly
// ordered by it. Payload is always a fully-committed record.
type ChangeEvent struct {
	Seq     int64  `json:"seq"`
	EventID string `json:"event_id"`
	Kind    string `json:"kind"`
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

// Snapshot is the full current state of an event handed to a new subscriber
// before any incremental delivery.
type Snapshot struct {
	Event     *Event          `json:"event"`
	Wishes    []*Wish         `json:"wishes"`
	Photos    []*Photo        `json:"photos"`
	Responses []*RSVPResponse `json:"responses"`
	Settings  *RSVPSettings   `json:"settings"`
	Stats     *EventStats     `json:"stats"`
}

// SnapshotLoader assembles the initial snapshot for a subscriber.
type SnapshotLoader interface {
	Snapshot(ctx context.Context, eventID string) (*Snapshot, error)
}

// FeedBroker is the event-scoped subscription registry. Writers push every
// committed change through Commit; viewers attach with Subscribe.
type FeedBroker interface {
	// Subscribe registers fn for eventID and returns the initial snapshot
	// plus an idempotent unsubscribe. The snapshot and subsequent deliveries
	// are gap-free and duplicate-free with respect to commits: attaching is
	// serialized against Commit for the same event. After unsubscribe
	// returns, fn is never invoked again.
	Subscribe(ctx context.Context, eventID string, fn func(ChangeEvent)) (*Snapshot, func(), error)
	// Commit runs the durable write and then delivers the returned changes
	// to every subscriber of the event, in order, before the next Commit for
	// the same event may proceed.
	Commit(eventID string, write func() ([]ChangeEvent, error)) error
	// DropEvent detaches all subscribers of a deleted event after delivering
	// the final changes.
	DropEvent(eventID string)
}

// ChangeBus is an optional cross-process tap on the post-commit path, e.g.
// an AMQP topic exchange. Implementations must not block commits on
// downstream consumers.
type ChangeBus interface {
	Publish(change ChangeEvent) error
}
