package postgres

import (
	"context"
	"database/sql"
	"errors"

	"weddingmemories/internal/domain"
)

type statsRepository struct {
	DB *sql.DB
}

func NewStatsRepository(db *sql.DB) domain.StatsRepository {
	return &statsRepository{
		DB: db,
	}
}

func (r *statsRepository) Create(ctx context.Context, eventID string) error {
	query := `
		INSERT INTO event_stats (event_id, total_wishes, total_photos, total_responses, total_guest_count, attending_count, not_attending_count, maybe_count, seq)
		VALUES ($1, 0, 0, 0, 0, 0, 0, 0, 0)
	`
	_, err := r.DB.ExecContext(ctx, query, eventID)
	return err
}

func (r *statsRepository) GetByEventID(ctx context.Context, eventID string) (*domain.EventStats, error) {
	query := `
		SELECT event_id, total_wishes, total_photos, total_responses, total_guest_count, attending_count, not_attending_count, maybe_count
		FROM event_stats
		WHERE event_id = $1
	`
	s := &domain.EventStats{}
	err := r.DB.QueryRowContext(ctx, query, eventID).Scan(
		&s.EventID, &s.TotalWishes, &s.TotalPhotos, &s.TotalResponses,
		&s.TotalGuestCount, &s.Attending, &s.NotAttending, &s.Maybe,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *statsRepository) NextSeq(ctx context.Context, eventID string) (int64, error) {
	query := `
		UPDATE event_stats SET seq = seq + 1
		WHERE event_id = $1
		RETURNING seq
	`
	var seq int64
	err := r.DB.QueryRowContext(ctx, query, eventID).Scan(&seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return seq, nil
}

// Recompute recounts from the contribution tables and rewrites the row. The
// seq column is bumped so subscribers see the repaired counters as a change.
func (r *statsRepository) Recompute(ctx context.Context, eventID string) (*domain.EventStats, error) {
	query := `
		UPDATE event_stats SET
			total_wishes = (SELECT COUNT(*) FROM wishes WHERE event_id = $1),
			total_photos = (SELECT COUNT(*) FROM photos WHERE event_id = $1),
			total_responses = (SELECT COUNT(*) FROM rsvp_responses WHERE event_id = $1),
			total_guest_count = (SELECT COALESCE(SUM(guest_count), 0) FROM rsvp_responses WHERE event_id = $1),
			attending_count = (SELECT COUNT(*) FROM rsvp_responses WHERE event_id = $1 AND status = 'attending'),
			not_attending_count = (SELECT COUNT(*) FROM rsvp_responses WHERE event_id = $1 AND status = 'not_attending'),
			maybe_count = (SELECT COUNT(*) FROM rsvp_responses WHERE event_id = $1 AND status = 'maybe'),
			seq = seq + 1
		WHERE event_id = $1
		RETURNING event_id, total_wishes, total_photos, total_responses, total_guest_count, attending_count, not_attending_count, maybe_count
	`
	s := &domain.EventStats{}
	err := r.DB.QueryRowContext(ctx, query, eventID).Scan(
		&s.EventID, &s.TotalWishes, &s.TotalPhotos, &s.TotalResponses,
		&s.TotalGuestCount, &s.Attending, &s.NotAttending, &s.Maybe,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}
