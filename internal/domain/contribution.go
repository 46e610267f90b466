package domain

import "context"

// WishSubmission is a guest's wish attempt after transport decoding.
type WishSubmission struct {
	EventID     string
	Fingerprint string
	GuestName   string
	Message     string
}

// RSVPSubmission is a guest's RSVP attempt after transport decoding.
type RSVPSubmission struct {
	EventID     string
	Fingerprint string
	GuestName   string
	PhoneNumber *string
	Status      string
	GuestCount  int
	Message     *string
}

// ContributionService covers guest wishes and RSVP responses plus the
// owner-side deletes and the derived stats read.
type ContributionService interface {
	SubmitWish(ctx context.Context, sub *WishSubmission) (*Wish, error)
	ListWishes(ctx context.Context, eventID string) ([]*Wish, error)
	DeleteWish(ctx context.Context, wishID, userID string) error

	SubmitRSVP(ctx context.Context, sub *RSVPSubmission) (*RSVPResponse, error)
	ListResponses(ctx context.Context, eventID string) ([]*RSVPResponse, error)
	DeleteResponse(ctx context.Context, responseID, userID string) error

	GetSettings(ctx context.Context, eventID string) (*RSVPSettings, error)
	// UpdateSettings applies a typed patch. Owner only.
	UpdateSettings(ctx context.Context, eventID, userID string, patch *RSVPSettingsPatch) (*RSVPSettings, error)

	Stats(ctx context.Context, eventID string) (*EventStats, error)
}
