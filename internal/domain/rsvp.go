package domain

import (
	"context"
	"time"
)

// RSVP response statuses.
const (
	RSVPStatusAttending    = "attending"
	RSVPStatusNotAttending = "not_attending"
	RSVPStatusMaybe        = "maybe"
)

// ValidRSVPStatus reports whether s is one of the known statuses.
func ValidRSVPStatus(s string) bool {
	return s == RSVPStatusAttending || s == RSVPStatusNotAttending || s == RSVPStatusMaybe
}

// RSVPSettings is the per-event singleton governing RSVP admission.
// TotalCapacity is advisory: it feeds the dashboard capacity bar and never
// gates submissions. NotifyEmail, when set, receives a mail per response.
// swagger:model RSVPSettings
type RSVPSettings struct {
	EventID          string     `json:"event_id"`
	IsEnabled        bool       `json:"is_enabled"`
	MaxGuestsPerRSVP int        `json:"max_guests_per_rsvp"`
	RequirePhone     bool       `json:"require_phone"`
	ShowGuestCount   bool       `json:"show_guest_count"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	TotalCapacity    *int       `json:"total_capacity,omitempty"`
	CustomMessage    *string    `json:"custom_message,omitempty"`
	NotifyEmail      *string    `json:"notify_email,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DefaultRSVPSettings returns the settings row created alongside an event.
func DefaultRSVPSettings(eventID string, now time.Time) *RSVPSettings {
	return &RSVPSettings{
		EventID:          eventID,
		IsEnabled:        true,
		MaxGuestsPerRSVP: 5,
		ShowGuestCount:   true,
		UpdatedAt:        now,
	}
}

// RSVPSettingsPatch is a typed partial update for RSVPSettings. Nil fields
// are left unchanged; Deadline, TotalCapacity, CustomMessage and NotifyEmail
// use a double pointer so they can be explicitly cleared.
type RSVPSettingsPatch struct {
	IsEnabled        *bool       `json:"is_enabled,omitempty"`
	MaxGuestsPerRSVP *int        `json:"max_guests_per_rsvp,omitempty"`
	RequirePhone     *bool       `json:"require_phone,omitempty"`
	ShowGuestCount   *bool       `json:"show_guest_count,omitempty"`
	Deadline         **time.Time `json:"deadline,omitempty"`
	TotalCapacity    **int       `json:"total_capacity,omitempty"`
	CustomMessage    **string    `json:"custom_message,omitempty"`
	NotifyEmail      **string    `json:"notify_email,omitempty"`
}

// RSVPResponse is a guest's answer. GuestCount is validated against the
// settings in force at submission time and never re-validated afterwards.
// swagger:model RSVPResponse
type RSVPResponse struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	GuestName   string    `json:"guest_name"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	Status      string    `json:"status"`
	GuestCount  int       `json:"guest_count"`
	Message     *string   `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RSVPSettingsRepository defines storage for the per-event settings singleton.
type RSVPSettingsRepository interface {
	Create(ctx context.Context, settings *RSVPSettings) error
	GetByEventID(ctx context.Context, eventID string) (*RSVPSettings, error)
	Update(ctx context.Context, eventID string, patch *RSVPSettingsPatch) (*RSVPSettings, error)
}

// RSVPResponseRepository defines storage for responses. Create and Delete
// adjust the event's stats counters atomically in the same transaction and
// return the event's new feed sequence number.
type RSVPResponseRepository interface {
	Create(ctx context.Context, resp *RSVPResponse) (seq int64, err error)
	GetByID(ctx context.Context, id string) (*RSVPResponse, error)
	ListByEventID(ctx context.Context, eventID string) ([]*RSVPResponse, error)
	Delete(ctx context.Context, id string) (seq int64, err error)
}
