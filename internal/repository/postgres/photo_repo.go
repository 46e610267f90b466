package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"weddingmemories/internal/domain"
)

type photoRepository struct {
	DB *sql.DB
}

func NewPhotoRepository(db *sql.DB) domain.PhotoRepository {
	return &photoRepository{
		DB: db,
	}
}

// Create inserts the photo record and bumps the event's counters in one
// transaction. See wishRepository.Create for the locking rationale.
func (r *photoRepository) Create(ctx context.Context, photo *domain.Photo) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	bump := `
		UPDATE event_stats
		SET total_photos = total_photos + 1, seq = seq + 1
		WHERE event_id = $1
		RETURNING seq
	`
	if err := tx.QueryRowContext(ctx, bump, photo.EventID).Scan(&seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("bump stats: %w", err)
	}

	insert := `
		INSERT INTO photos (event_id, guest_name, url, storage_path, file_name, file_size, mime_type, caption, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, insert,
		photo.EventID, photo.GuestName, photo.URL, photo.StoragePath,
		photo.FileName, photo.FileSize, photo.MimeType, photo.Caption, photo.CreatedAt,
	).Scan(&photo.ID)
	if err != nil {
		return 0, fmt.Errorf("insert photo: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return seq, nil
}

func (r *photoRepository) GetByID(ctx context.Context, id string) (*domain.Photo, error) {
	query := `
		SELECT id, event_id, guest_name, url, storage_path, file_name, file_size, mime_type, caption, created_at
		FROM photos
		WHERE id = $1
	`
	p := &domain.Photo{}
	var captionNull sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.EventID, &p.GuestName, &p.URL, &p.StoragePath,
		&p.FileName, &p.FileSize, &p.MimeType, &captionNull, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if captionNull.Valid {
		p.Caption = &captionNull.String
	}
	return p, nil
}

func (r *photoRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Photo, error) {
	query := `
		SELECT id, event_id, guest_name, url, storage_path, file_name, file_size, mime_type, caption, created_at
		FROM photos
		WHERE event_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	photos := make([]*domain.Photo, 0)
	for rows.Next() {
		p := &domain.Photo{}
		var captionNull sql.NullString
		if err := rows.Scan(
			&p.ID, &p.EventID, &p.GuestName, &p.URL, &p.StoragePath,
			&p.FileName, &p.FileSize, &p.MimeType, &captionNull, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		if captionNull.Valid {
			p.Caption = &captionNull.String
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func (r *photoRepository) Delete(ctx context.Context, id string) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var eventID string
	del := `DELETE FROM photos WHERE id = $1 RETURNING event_id`
	if err := tx.QueryRowContext(ctx, del, id).Scan(&eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("delete photo: %w", err)
	}

	var seq int64
	bump := `
		UPDATE event_stats
		SET total_photos = total_photos - 1, seq = seq + 1
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
