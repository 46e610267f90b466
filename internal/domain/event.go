package domain

import (
	"context"
	"time"
)

// TimelineEntry is one item of an event's day-of schedule.
type TimelineEntry struct {
	Time        string `json:"time"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// ThemeConfig holds the visual theme chosen by the owner.
type ThemeConfig struct {
	Preset         string `json:"preset"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	FontFamily     string `json:"font_family"`
}

// Event represents one wedding owned by a registered user.
// QRCodeURL is issued once at creation and never changes.
// swagger:model Event
type Event struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	CoupleNames    string          `json:"couple_names"`
	WeddingDate    time.Time       `json:"wedding_date"`
	Venue          string          `json:"venue"`
	IsActive       bool            `json:"is_active"`
	WelcomeMessage string          `json:"welcome_message"`
	QRCodeURL      string          `json:"qr_code_url"`
	Timeline       []TimelineEntry `json:"timeline"`
	Theme          ThemeConfig     `json:"theme"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewEvent returns a new active Event. ID is set by the repository on create.
func NewEvent(ownerID, coupleNames, venue string, weddingDate time.Time, createdAt time.Time) *Event {
	return &Event{
		OwnerID:     ownerID,
		CoupleNames: coupleNames,
		Venue:       venue,
		WeddingDate: weddingDate,
		IsActive:    true,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// EventPatch is a typed partial update for an Event. Nil fields are left
// unchanged. QRCodeURL and OwnerID are deliberately not patchable.
type EventPatch struct {
	CoupleNames    *string          `json:"couple_names,omitempty"`
	WeddingDate    *time.Time       `json:"wedding_date,omitempty"`
	Venue          *string          `json:"venue,omitempty"`
	IsActive       *bool            `json:"is_active,omitempty"`
	WelcomeMessage *string          `json:"welcome_message,omitempty"`
	Timeline       *[]TimelineEntry `json:"timeline,omitempty"`
	Theme          *ThemeConfig     `json:"theme,omitempty"`
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	ListByOwnerID(ctx context.Context, ownerID string) ([]*Event, error)
	Update(ctx context.Context, id string, patch *EventPatch) (*Event, error)
	// SetQRCodeURL records the issued QR URL. It only succeeds while the
	// event has none; the URL is immutable once issued.
	SetQRCodeURL(ctx context.Context, id, url string) error
	Delete(ctx context.Context, id string) error
}

// EventService defines owner-facing event lifecycle operations.
type EventService interface {
	Create(ctx context.Context, ownerID, coupleNames, venue string, weddingDate time.Time) (*Event, error)
	Get(ctx context.Context, id string) (*Event, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Event, error)
	// Patch applies a typed partial update. Only the owner may patch.
	Patch(ctx context.Context, eventID, userID string, patch *EventPatch) (*Event, error)
	// Delete cascades to all contributions and stored media. A partial
	// cascade failure is reported via PartialDeleteError, never swallowed.
	Delete(ctx context.Context, eventID, userID string) error
}
