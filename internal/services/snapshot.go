package services

import (
	"context"
	"errors"
	"fmt"

	"weddingmemories/internal/domain"
)

type snapshotLoader struct {
	eventRepo    domain.EventRepository
	wishRepo     domain.WishRepository
	photoRepo    domain.PhotoRepository
	responseRepo domain.RSVPResponseRepository
	settingsRepo domain.RSVPSettingsRepository
	statsRepo    domain.StatsRepository
}

// NewSnapshotLoader assembles the initial subscriber snapshot from the
// contribution store.
func NewSnapshotLoader(
	eventRepo domain.EventRepository,
	wishRepo domain.WishRepository,
	photoRepo domain.PhotoRepository,
	responseRepo domain.RSVPResponseRepository,
	settingsRepo domain.RSVPSettingsRepository,
	statsRepo domain.StatsRepository,
) domain.SnapshotLoader {
	return &snapshotLoader{
		eventRepo:    eventRepo,
		wishRepo:     wishRepo,
		photoRepo:    photoRepo,
		responseRepo: responseRepo,
		settingsRepo: settingsRepo,
		statsRepo:    statsRepo,
	}
}

func (l *snapshotLoader) Snapshot(ctx context.Context, eventID string) (*domain.Snapshot, error) {
	event, err := l.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	wishes, err := l.wishRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list wishes: %w", err)
	}
	photos, err := l.photoRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	responses, err := l.responseRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list rsvp responses: %w", err)
	}
	settings, err := l.settingsRepo.GetByEventID(ctx, eventID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get rsvp settings: %w", err)
	}
	stats, err := l.statsRepo.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &domain.Snapshot{
		Event:     event,
		Wishes:    wishes,
		Photos:    photos,
		Responses: responses,
		Settings:  settings,
		Stats:     stats,
	}, nil
}
