package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"weddingmemories/internal/domain"
)

type rsvpSettingsRepository struct {
	DB *sql.DB
}

func NewRSVPSettingsRepository(db *sql.DB) domain.RSVPSettingsRepository {
	return &rsvpSettingsRepository{
		DB: db,
	}
}

func (r *rsvpSettingsRepository) Create(ctx context.Context, s *domain.RSVPSettings) error {
	query := `
		INSERT INTO rsvp_settings (event_id, is_enabled, max_guests_per_rsvp, require_phone, show_guest_count, deadline, total_capacity, custom_message, notify_email, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.DB.ExecContext(ctx, query,
		s.EventID, s.IsEnabled, s.MaxGuestsPerRSVP, s.RequirePhone, s.ShowGuestCount,
		s.Deadline, s.TotalCapacity, s.CustomMessage, s.NotifyEmail, s.UpdatedAt,
	)
	return err
}

func scanRSVPSettings(row interface{ Scan(...any) error }) (*domain.RSVPSettings, error) {
	s := &domain.RSVPSettings{}
	var deadline sql.NullTime
	var capacity sql.NullInt64
	var message, email sql.NullString
	err := row.Scan(
		&s.EventID, &s.IsEnabled, &s.MaxGuestsPerRSVP, &s.RequirePhone, &s.ShowGuestCount,
		&deadline, &capacity, &message, &email, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if deadline.Valid {
		s.Deadline = &deadline.Time
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		s.TotalCapacity = &c
	}
	if message.Valid {
		s.CustomMessage = &message.String
	}
	if email.Valid {
		s.NotifyEmail = &email.String
	}
	return s, nil
}

const rsvpSettingsColumns = `event_id, is_enabled, max_guests_per_rsvp, require_phone, show_guest_count, deadline, total_capacity, custom_message, notify_email, updated_at`

func (r *rsvpSettingsRepository) GetByEventID(ctx context.Context, eventID string) (*domain.RSVPSettings, error) {
	query := `
		SELECT ` + rsvpSettingsColumns + `
		FROM rsvp_settings
		WHERE event_id = $1
	`
	s, err := scanRSVPSettings(r.DB.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *rsvpSettingsRepository) Update(ctx context.Context, eventID string, patch *domain.RSVPSettingsPatch) (*domain.RSVPSettings, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []interface{}{}
	n := 1
	if patch.IsEnabled != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_enabled = $%d", n))
		args = append(args, *patch.IsEnabled)
		n++
	}
	if patch.MaxGuestsPerRSVP != nil {
		setClauses = append(setClauses, fmt.Sprintf("max_guests_per_rsvp = $%d", n))
		args = append(args, *patch.MaxGuestsPerRSVP)
		n++
	}
	if patch.RequirePhone != nil {
		setClauses = append(setClauses, fmt.Sprintf("require_phone = $%d", n))
		args = append(args, *patch.RequirePhone)
		n++
	}
	if patch.ShowGuestCount != nil {
		setClauses = append(setClauses, fmt.Sprintf("show_guest_count = $%d", n))
		args = append(args, *patch.ShowGuestCount)
		n++
	}
	if patch.Deadline != nil {
		setClauses = append(setClauses, fmt.Sprintf("deadline = $%d", n))
		args = append(args, deref(*patch.Deadline))
		n++
	}
	if patch.TotalCapacity != nil {
		setClauses = append(setClauses, fmt.Sprintf("total_capacity = $%d", n))
		args = append(args, deref(*patch.TotalCapacity))
		n++
	}
	if patch.CustomMessage != nil {
		setClauses = append(setClauses, fmt.Sprintf("custom_message = $%d", n))
		args = append(args, deref(*patch.CustomMessage))
		n++
	}
	if patch.NotifyEmail != nil {
		setClauses = append(setClauses, fmt.Sprintf("notify_email = $%d", n))
		args = append(args, deref(*patch.NotifyEmail))
		n++
	}
	if n == 1 {
		return r.GetByEventID(ctx, eventID)
	}
	args = append(args, eventID)
	query := fmt.Sprintf(`
		UPDATE rsvp_settings SET %s
		WHERE event_id = $%d
		RETURNING `+rsvpSettingsColumns+`
	`, strings.Join(setClauses, ", "), n)
	s, err := scanRSVPSettings(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// deref turns a possibly-nil pointer into a driver value, so a patch field
// set to an explicit nil clears the column.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

type rsvpResponseRepository struct {
	DB *sql.DB
}

func NewRSVPResponseRepository(db *sql.DB) domain.RSVPResponseRepository {
	return &rsvpResponseRepository{
		DB: db,
	}
}

// Create inserts the response and bumps the event's counters in one
// transaction. See wishRepository.Create for the locking rationale.
func (r *rsvpResponseRepository) Create(ctx context.Context, resp *domain.RSVPResponse) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	bump := `
		UPDATE event_stats
		SET total_responses = total_responses + 1,
		    total_guest_count = total_guest_count + $2,
		    attending_count = attending_count + CASE WHEN $3 = 'attending' THEN 1 ELSE 0 END,
		    not_attending_count = not_attending_count + CASE WHEN $3 = 'not_attending' THEN 1 ELSE 0 END,
		    maybe_count = maybe_count + CASE WHEN $3 = 'maybe' THEN 1 ELSE 0 END,
		    seq = seq + 1
		WHERE event_id = $1
		RETURNING seq
	`
	if err := tx.QueryRowContext(ctx, bump, resp.EventID, resp.GuestCount, resp.Status).Scan(&seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("bump stats: %w", err)
	}

	insert := `
		INSERT INTO rsvp_responses (event_id, guest_name, phone_number, status, guest_count, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, insert,
		resp.EventID, resp.GuestName, resp.PhoneNumber, resp.Status, resp.GuestCount, resp.Message, resp.CreatedAt,
	).Scan(&resp.ID)
	if err != nil {
		return 0, fmt.Errorf("insert rsvp response: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return seq, nil
}

func scanRSVPResponse(row interface{ Scan(...any) error }) (*domain.RSVPResponse, error) {
	resp := &domain.RSVPResponse{}
	var phone, message sql.NullString
	err := row.Scan(
		&resp.ID, &resp.EventID, &resp.GuestName, &phone, &resp.Status,
		&resp.GuestCount, &message, &resp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		resp.PhoneNumber = &phone.String
	}
	if message.Valid {
		resp.Message = &message.String
	}
	return resp, nil
}

func (r *rsvpResponseRepository) GetByID(ctx context.Context, id string) (*domain.RSVPResponse, error) {
	query := `
		SELECT id, event_id, guest_name, phone_number, status, guest_count, message, created_at
		FROM rsvp_responses
		WHERE id = $1
	`
	resp, err := scanRSVPResponse(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return resp, nil
}

func (r *rsvpResponseRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.RSVPResponse, error) {
	query := `
		SELECT id, event_id, guest_name, phone_number, status, guest_count, message, created_at
		FROM rsvp_responses
		WHERE event_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	responses := make([]*domain.RSVPResponse, 0)
	for rows.Next() {
		resp, err := scanRSVPResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

func (r *rsvpResponseRepository) Delete(ctx context.Context, id string) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var eventID, status string
	var guestCount int
	del := `DELETE FROM rsvp_responses WHERE id = $1 RETURNING event_id, status, guest_count`
	if err := tx.QueryRowContext(ctx, del, id).Scan(&eventID, &status, &guestCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("delete rsvp response: %w", err)
	}

	var seq int64
	bump := `
		UPDATE event_stats
		SET total_responses = total_responses - 1,
		    total_guest_count = total_guest_count - $2,
		    attending_count = attending_count - CASE WHEN $3 = 'attending' THEN 1 ELSE 0 END,
		    not_attending_count = not_attending_count - CASE WHEN $3 = 'not_attending' THEN 1 ELSE 0 END,
		    maybe_count = maybe_count - CASE WHEN $3 = 'maybe' THEN 1 ELSE 0 END,
		    seq = seq + 1
		WHERE event_id = $1
		RETURNING seq
	`
	if err := tx.QueryRowContext(ctx, bump, eventID, guestCount, status).Scan(&seq); err != nil {
		return 0, fmt.Errorf("bump stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return seq, nil
}
