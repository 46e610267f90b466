package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"weddingmemories/internal/domain"
)

type wishRepository struct {
	DB *sql.DB
}

func NewWishRepository(db *sql.DB) domain.WishRepository {
	return &wishRepository{
		DB: db,
	}
}

// Create inserts the wish and bumps the event's counters in one transaction.
// The stats row is updated first: that takes the per-event row lock, so
// concurrent contributions to the same event are assigned strictly
// increasing sequence numbers, and the increment executes on the server
// rather than as a client read-modify-write.
func (r *wishRepository) Create(ctx context.Context, wish *domain.Wish) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	bump := `
		UPDATE event_stats
		SET total_wishes = total_wishes + 1, seq = seq + 1
		WHERE event_id = $1
		RETURNING seq
	`
	if err := tx.QueryRowContext(ctx, bump, wish.EventID).Scan(&seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("bump stats: %w", err)
	}

	insert := `
		INSERT INTO wishes (event_id, guest_name, message, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := tx.QueryRowContext(ctx, insert, wish.EventID, wish.GuestName, wish.Message, wish.CreatedAt).Scan(&wish.ID); err != nil {
		return 0, fmt.Errorf("insert wish: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return seq, nil
}

func (r *wishRepository) GetByID(ctx context.Context, id string) (*domain.Wish, error) {
	query := `
		SELECT id, event_id, guest_name, message, created_at
		FROM wishes
		WHERE id = $1
	`
	w := &domain.Wish{}
	err := r.DB.QueryRowContext(ctx, query, id).
		Scan(&w.ID, &w.EventID, &w.GuestName, &w.Message, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

func (r *wishRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Wish, error) {
	query := `
		SELECT id, event_id, guest_name, message, created_at
		FROM wishes
		WHERE event_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	wishes := make([]*domain.Wish, 0)
	for rows.Next() {
		w := &domain.Wish{}
		if err := rows.Scan(&w.ID, &w.EventID, &w.GuestName, &w.Message, &w.CreatedAt); err != nil {
			return nil, err
		}
		wishes = append(wishes, w)
	}
	return wishes, rows.Err()
}

func (r *wishRepository) Delete(ctx context.Context, id string) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var eventID string
	del := `DELETE FROM wishes WHERE id = $1 RETURNING event_id`
	if err := tx.QueryRowContext(ctx, del, id).Scan(&eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("delete wish: %w", err)
	}

	var seq int64
	bump := `
		UPDATE event_stats
		SET total_wishes = total_wishes - 1, seq = seq + 1
		WHERE event_id = $1
		RETURNING seq
	`
	if err := tx.QueryRowContext(ctx, bump, eventID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("bump stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return seq, nil
}
