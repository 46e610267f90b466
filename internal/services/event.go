package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"weddingmemories/internal/adapters/qr"
	"weddingmemories/internal/domain"
)

type eventService struct {
	eventRepo    domain.EventRepository
	statsRepo    domain.StatsRepository
	settingsRepo domain.RSVPSettingsRepository
	photoRepo    domain.PhotoRepository
	storage      domain.ObjectStorage
	broker       domain.FeedBroker
	baseURL      string
	logger       *slog.Logger
}

// NewEventService creates the owner-facing event lifecycle service.
func NewEventService(
	eventRepo domain.EventRepository,
	statsRepo domain.StatsRepository,
	settingsRepo domain.RSVPSettingsRepository,
	photoRepo domain.PhotoRepository,
	storage domain.ObjectStorage,
	broker domain.FeedBroker,
	baseURL string,
	logger *slog.Logger,
) domain.EventService {
	return &eventService{
		eventRepo:    eventRepo,
		statsRepo:    statsRepo,
		settingsRepo: settingsRepo,
		photoRepo:    photoRepo,
		storage:      storage,
		broker:       broker,
		baseURL:      baseURL,
		logger:       logger,
	}
}

// Create persists the event with its zeroed stats row and default RSVP
// settings, then issues the QR code: render PNG, store it, and record the
// URL. The QR URL is written at most once and never changes afterwards.
func (s *eventService) Create(ctx context.Context, ownerID, coupleNames, venue string, weddingDate time.Time) (*domain.Event, error) {
	if ownerID == "" || coupleNames == "" {
		return nil, fmt.Errorf("%w: owner and couple names are required", domain.ErrInvalidInput)
	}
	now := time.Now()
	event := domain.NewEvent(ownerID, coupleNames, venue, weddingDate, now)
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	// A half-provisioned event would accept lookups but fail every counter
	// bump with ErrNotFound, so any later step failing rolls the row back.
	// Child rows cascade with it; the rollback runs detached from ctx.
	rollback := func(cause error) error {
		if err := s.eventRepo.Delete(context.WithoutCancel(ctx), event.ID); err != nil {
			s.logger.Error("rollback of half-provisioned event failed",
				"event_id", event.ID, "err", err)
		}
		return cause
	}

	if err := s.statsRepo.Create(ctx, event.ID); err != nil {
		return nil, rollback(fmt.Errorf("create stats row: %w", err))
	}
	if err := s.settingsRepo.Create(ctx, domain.DefaultRSVPSettings(event.ID, now)); err != nil {
		return nil, rollback(fmt.Errorf("create rsvp settings: %w", err))
	}

	publicURL := qr.PublicURL(s.baseURL, event.ID)
	png, err := qr.RenderPNG(publicURL)
	if err != nil {
		return nil, rollback(fmt.Errorf("render qr code: %w", err))
	}
	path := fmt.Sprintf("events/%s/qr.png", event.ID)
	url, err := s.storage.Put(ctx, path, png, "image/png")
	if err != nil {
		return nil, rollback(fmt.Errorf("store qr code: %w", err))
	}
	if err := s.eventRepo.SetQRCodeURL(ctx, event.ID, url); err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), path); delErr != nil {
			s.logger.Warn("qr blob cleanup failed", "event_id", event.ID, "path", path, "err", delErr)
		}
		return nil, rollback(fmt.Errorf("set qr code url: %w", err))
	}
	event.QRCodeURL = url
	return event, nil
}

func (s *eventService) Get(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	events, err := s.eventRepo.ListByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *eventService) Patch(ctx context.Context, eventID, userID string, patch *domain.EventPatch) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OwnerID != userID {
		return nil, domain.ErrForbidden
	}

	var updated *domain.Event
	err = s.broker.Commit(eventID, func() ([]domain.ChangeEvent, error) {
		updated, err = s.eventRepo.Update(ctx, eventID, patch)
		if err != nil {
			return nil, fmt.Errorf("update event: %w", err)
		}
		seq, err := s.statsRepo.NextSeq(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("advance seq: %w", err)
		}
		return []domain.ChangeEvent{{
			Seq:     seq,
			EventID: eventID,
			Kind:    domain.ChangeKindEvent,
			Action:  domain.ChangeActionUpdated,
			Payload: updated,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete tears the event down: notify subscribers, drop them, delete the
// rows (children cascade in the store), then release every stored blob
// under the event's prefix. Blob failures are collected and reported, so
// the owner is never shown a false fully-deleted state.
func (s *eventService) Delete(ctx context.Context, eventID, userID string) error {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if event.OwnerID != userID {
		return domain.ErrForbidden
	}

	prefix := fmt.Sprintf("events/%s/", eventID)
	paths, err := s.storage.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list stored objects: %w", err)
	}

	err = s.broker.Commit(eventID, func() ([]domain.ChangeEvent, error) {
		if err := s.eventRepo.Delete(ctx, eventID); err != nil {
			return nil, fmt.Errorf("delete event: %w", err)
		}
		return []domain.ChangeEvent{{
			EventID: eventID,
			Kind:    domain.ChangeKindEvent,
			Action:  domain.ChangeActionDeleted,
			Payload: event,
		}}, nil
	})
	if err != nil {
		return err
	}
	s.broker.DropEvent(eventID)

	var blobErrs []error
	for _, path := range paths {
		if err := s.storage.Delete(ctx, path); err != nil {
			s.logger.Warn("cascade blob delete failed", "event_id", eventID, "path", path, "err", err)
			blobErrs = append(blobErrs, err)
		}
	}
	if len(blobErrs) > 0 {
		return &domain.PartialDeleteError{Errs: blobErrs}
	}
	return nil
}
