package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"weddingmemories/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, owner_id, couple_names, wedding_date, venue, is_active, welcome_message, qr_code_url, timeline, theme, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*domain.Event, error) {
	e := &domain.Event{}
	var welcomeNull, qrNull sql.NullString
	var timelineJSON, themeJSON []byte
	err := row.Scan(
		&e.ID, &e.OwnerID, &e.CoupleNames, &e.WeddingDate, &e.Venue, &e.IsActive,
		&welcomeNull, &qrNull, &timelineJSON, &themeJSON, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if welcomeNull.Valid {
		e.WelcomeMessage = welcomeNull.String
	}
	if qrNull.Valid {
		e.QRCodeURL = qrNull.String
	}
	if len(timelineJSON) > 0 {
		if err := json.Unmarshal(timelineJSON, &e.Timeline); err != nil {
			return nil, fmt.Errorf("decode timeline: %w", err)
		}
	}
	if len(themeJSON) > 0 {
		if err := json.Unmarshal(themeJSON, &e.Theme); err != nil {
			return nil, fmt.Errorf("decode theme: %w", err)
		}
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	timelineJSON, err := json.Marshal(e.Timeline)
	if err != nil {
		return fmt.Errorf("encode timeline: %w", err)
	}
	themeJSON, err := json.Marshal(e.Theme)
	if err != nil {
		return fmt.Errorf("encode theme: %w", err)
	}
	query := `
		INSERT INTO events (owner_id, couple_names, wedding_date, venue, is_active, welcome_message, timeline, theme, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.OwnerID, e.CoupleNames, e.WeddingDate, e.Venue, e.IsActive,
		e.WelcomeMessage, timelineJSON, themeJSON, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1
	`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) Update(ctx context.Context, id string, patch *domain.EventPatch) (*domain.Event, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []interface{}{}
	n := 1
	if patch.CoupleNames != nil {
		setClauses = append(setClauses, fmt.Sprintf("couple_names = $%d", n))
		args = append(args, *patch.CoupleNames)
		n++
	}
	if patch.WeddingDate != nil {
		setClauses = append(setClauses, fmt.Sprintf("wedding_date = $%d", n))
		args = append(args, *patch.WeddingDate)
		n++
	}
	if patch.Venue != nil {
		setClauses = append(setClauses, fmt.Sprintf("venue = $%d", n))
		args = append(args, *patch.Venue)
		n++
	}
	if patch.IsActive != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_active = $%d", n))
		args = append(args, *patch.IsActive)
		n++
	}
	if patch.WelcomeMessage != nil {
		setClauses = append(setClauses, fmt.Sprintf("welcome_message = $%d", n))
		args = append(args, *patch.WelcomeMessage)
		n++
	}
	if patch.Timeline != nil {
		timelineJSON, err := json.Marshal(*patch.Timeline)
		if err != nil {
			return nil, fmt.Errorf("encode timeline: %w", err)
		}
		setClauses = append(setClauses, fmt.Sprintf("timeline = $%d", n))
		args = append(args, timelineJSON)
		n++
	}
	if patch.Theme != nil {
		themeJSON, err := json.Marshal(*patch.Theme)
		if err != nil {
			return nil, fmt.Errorf("encode theme: %w", err)
		}
		setClauses = append(setClauses, fmt.Sprintf("theme = $%d", n))
		args = append(args, themeJSON)
		n++
	}
	if n == 1 {
		// No fields to update; just fetch current row
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d
		RETURNING `+eventColumns+`
	`, strings.Join(setClauses, ", "), n)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) SetQRCodeURL(ctx context.Context, id, url string) error {
	query := `
		UPDATE events SET qr_code_url = $2, updated_at = NOW()
		WHERE id = $1 AND (qr_code_url IS NULL OR qr_code_url = '')
	`
	result, err := r.DB.ExecContext(ctx, query, id, url)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrInvalidInput
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
