package domain

import "context"

// Submission kinds checked by admission control.
const (
	SubmissionWish  = "wish"
	SubmissionPhoto = "photo"
	SubmissionRSVP  = "rsvp"
)

// Admitter is the pre-write check applied to every contribution attempt.
// A nil return admits the submission; rejections are the expected business
// errors ErrEventInactive, ErrRSVPClosed, ErrDeadlinePassed, ErrRateLimited.
type Admitter interface {
	Admit(ctx context.Context, eventID, fingerprint, kind string) error
}

// TokenVerifier verifies a bearer token from the external identity provider
// and returns the authenticated user ID. The core performs no authentication
// of its own.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// TokenIssuer issues tokens for an authenticated user. Kept for tooling and
// tests; production tokens come from the identity provider.
type TokenIssuer interface {
	Issue(userID string, roles []string) (string, error)
}

// Mailer sends owner notifications. Implementations may use SES or be no-ops.
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders a named notification template with data and
// returns subject, html, and text bodies.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}
