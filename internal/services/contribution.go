package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"weddingmemories/internal/domain"
)

const maxGuestNameLen = 100
const maxMessageLen = 2000

type contributionService struct {
	eventRepo    domain.EventRepository
	wishRepo     domain.WishRepository
	responseRepo domain.RSVPResponseRepository
	settingsRepo domain.RSVPSettingsRepository
	statsRepo    domain.StatsRepository
	admitter     domain.Admitter
	broker       domain.FeedBroker
	mailer       domain.Mailer
	renderer     domain.EmailTemplateRenderer
	logger       *slog.Logger
}

// NewContributionService creates the service for guest wishes and RSVP
// responses plus the owner-side deletes.
func NewContributionService(
	eventRepo domain.EventRepository,
	wishRepo domain.WishRepository,
	responseRepo domain.RSVPResponseRepository,
	settingsRepo domain.RSVPSettingsRepository,
	statsRepo domain.StatsRepository,
	admitter domain.Admitter,
	broker domain.FeedBroker,
	mailer domain.Mailer,
	renderer domain.EmailTemplateRenderer,
	logger *slog.Logger,
) domain.ContributionService {
	return &contributionService{
		eventRepo:    eventRepo,
		wishRepo:     wishRepo,
		responseRepo: responseRepo,
		settingsRepo: settingsRepo,
		statsRepo:    statsRepo,
		admitter:     admitter,
		broker:       broker,
		mailer:       mailer,
		renderer:     renderer,
		logger:       logger,
	}
}

func (s *contributionService) SubmitWish(ctx context.Context, sub *domain.WishSubmission) (*domain.Wish, error) {
	guestName := strings.TrimSpace(sub.GuestName)
	message := strings.TrimSpace(sub.Message)
	if guestName == "" || message == "" {
		return nil, fmt.Errorf("%w: guest name and message are required", domain.ErrInvalidInput)
	}
	if len(guestName) > maxGuestNameLen || len(message) > maxMessageLen {
		return nil, fmt.Errorf("%w: guest name or message too long", domain.ErrInvalidInput)
	}
	if err := s.admitter.Admit(ctx, sub.EventID, sub.Fingerprint, domain.SubmissionWish); err != nil {
		return nil, err
	}

	wish := domain.NewWish(sub.EventID, guestName, message, time.Now())
	err := s.broker.Commit(sub.EventID, func() ([]domain.ChangeEvent, error) {
		seq, err := s.wishRepo.Create(ctx, wish)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("create wish: %w", err)
		}
		return s.withStats(ctx, sub.EventID, seq, domain.ChangeEvent{
			Seq:     seq,
			EventID: sub.EventID,
			Kind:    domain.ChangeKindWish,
			Action:  domain.ChangeActionCreated,
			Payload: wish,
		})
	})
	if err != nil {
		return nil, err
	}
	return wish, nil
}

func (s *contributionService) ListWishes(ctx context.Context, eventID string) ([]*domain.Wish, error) {
	wishes, err := s.wishRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list wishes: %w", err)
	}
	return wishes, nil
}

func (s *contributionService) DeleteWish(ctx context.Context, wishID, userID string) error {
	wish, err := s.wishRepo.GetByID(ctx, wishID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get wish: %w", err)
	}
	if err := s.requireOwner(ctx, wish.EventID, userID); err != nil {
		return err
	}
	return s.broker.Commit(wish.EventID, func() ([]domain.ChangeEvent, error) {
		seq, err := s.wishRepo.Delete(ctx, wishID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("delete wish: %w", err)
		}
		return s.withStats(ctx, wish.EventID, seq, domain.ChangeEvent{
			Seq:     seq,
			EventID: wish.EventID,
			Kind:    domain.ChangeKindWish,
			Action:  domain.ChangeActionDeleted,
			Payload: wish,
		})
	})
}

func (s *contributionService) SubmitRSVP(ctx context.Context, sub *domain.RSVPSubmission) (*domain.RSVPResponse, error) {
	guestName := strings.TrimSpace(sub.GuestName)
	if guestName == "" || len(guestName) > maxGuestNameLen {
		return nil, fmt.Errorf("%w: guest name is required", domain.ErrInvalidInput)
	}
	if !domain.ValidRSVPStatus(sub.Status) {
		return nil, fmt.Errorf("%w: unknown rsvp status %q", domain.ErrInvalidInput, sub.Status)
	}

	if err := s.admitter.Admit(ctx, sub.EventID, sub.Fingerprint, domain.SubmissionRSVP); err != nil {
		return nil, err
	}

	// Validate against the settings in force right now; they are not
	// re-checked retroactively if the owner changes them later.
	settings, err := s.settingsRepo.GetByEventID(ctx, sub.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get rsvp settings: %w", err)
	}
	if sub.GuestCount < 1 || sub.GuestCount > settings.MaxGuestsPerRSVP {
		return nil, fmt.Errorf("%w: guest count must be between 1 and %d", domain.ErrInvalidInput, settings.MaxGuestsPerRSVP)
	}
	if settings.RequirePhone && (sub.PhoneNumber == nil || strings.TrimSpace(*sub.PhoneNumber) == "") {
		return nil, fmt.Errorf("%w: phone number is required", domain.ErrInvalidInput)
	}

	resp := &domain.RSVPResponse{
		EventID:     sub.EventID,
		GuestName:   guestName,
		PhoneNumber: sub.PhoneNumber,
		Status:      sub.Status,
		GuestCount:  sub.GuestCount,
		Message:     sub.Message,
		CreatedAt:   time.Now(),
	}
	var stats *domain.EventStats
	err = s.broker.Commit(sub.EventID, func() ([]domain.ChangeEvent, error) {
		seq, err := s.responseRepo.Create(ctx, resp)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("create rsvp response: %w", err)
		}
		changes, err := s.withStats(ctx, sub.EventID, seq, domain.ChangeEvent{
			Seq:     seq,
			EventID: sub.EventID,
			Kind:    domain.ChangeKindRSVP,
			Action:  domain.ChangeActionCreated,
			Payload: resp,
		})
		if err == nil {
			for _, c := range changes {
				if c.Kind == domain.ChangeKindStats {
					stats, _ = c.Payload.(*domain.EventStats)
				}
			}
		}
		return changes, err
	})
	if err != nil {
		return nil, err
	}

	if settings.NotifyEmail != nil {
		go s.notifyOwner(*settings.NotifyEmail, resp, stats)
	}
	return resp, nil
}

func (s *contributionService) notifyOwner(to string, resp *domain.RSVPResponse, stats *domain.EventStats) {
	event, err := s.eventRepo.GetByID(context.Background(), resp.EventID)
	if err != nil {
		s.logger.Warn("rsvp notification skipped", "event_id", resp.EventID, "err", err)
		return
	}
	data := map[string]any{
		"CoupleNames": event.CoupleNames,
		"GuestName":   resp.GuestName,
		"Status":      resp.Status,
		"GuestCount":  resp.GuestCount,
	}
	if resp.PhoneNumber != nil {
		data["PhoneNumber"] = *resp.PhoneNumber
	}
	if resp.Message != nil {
		data["Message"] = *resp.Message
	}
	if stats != nil {
		data["TotalGuestCount"] = stats.TotalGuestCount
	}
	subject, html, text, err := s.renderer.Render("rsvp_received", data)
	if err != nil {
		s.logger.Warn("rsvp notification render failed", "event_id", resp.EventID, "err", err)
		return
	}
	if err := s.mailer.Send(to, subject, html, text); err != nil {
		s.logger.Warn("rsvp notification send failed", "event_id", resp.EventID, "err", err)
	}
}

func (s *contributionService) ListResponses(ctx context.Context, eventID string) ([]*domain.RSVPResponse, error) {
	responses, err := s.responseRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list rsvp responses: %w", err)
	}
	return responses, nil
}

func (s *contributionService) DeleteResponse(ctx context.Context, responseID, userID string) error {
	resp, err := s.responseRepo.GetByID(ctx, responseID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get rsvp response: %w", err)
	}
	if err := s.requireOwner(ctx, resp.EventID, userID); err != nil {
		return err
	}
	return s.broker.Commit(resp.EventID, func() ([]domain.ChangeEvent, error) {
		seq, err := s.responseRepo.Delete(ctx, responseID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("delete rsvp response: %w", err)
		}
		return s.withStats(ctx, resp.EventID, seq, domain.ChangeEvent{
			Seq:     seq,
			EventID: resp.EventID,
			Kind:    domain.ChangeKindRSVP,
			Action:  domain.ChangeActionDeleted,
			Payload: resp,
		})
	})
}

func (s *contributionService) GetSettings(ctx context.Context, eventID string) (*domain.RSVPSettings, error) {
	settings, err := s.settingsRepo.GetByEventID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get rsvp settings: %w", err)
	}
	return settings, nil
}

func (s *contributionService) UpdateSettings(ctx context.Context, eventID, userID string, patch *domain.RSVPSettingsPatch) (*domain.RSVPSettings, error) {
	if patch.MaxGuestsPerRSVP != nil && *patch.MaxGuestsPerRSVP < 1 {
		return nil, fmt.Errorf("%w: max guests per rsvp must be at least 1", domain.ErrInvalidInput)
	}
	if patch.TotalCapacity != nil && *patch.TotalCapacity != nil && **patch.TotalCapacity < 1 {
		return nil, fmt.Errorf("%w: total capacity must be at least 1", domain.ErrInvalidInput)
	}
	if err := s.requireOwner(ctx, eventID, userID); err != nil {
		return nil, err
	}

	var updated *domain.RSVPSettings
	err := s.broker.Commit(eventID, func() ([]domain.ChangeEvent, error) {
		var err error
		updated, err = s.settingsRepo.Update(ctx, eventID, patch)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("update rsvp settings: %w", err)
		}
		seq, err := s.statsRepo.NextSeq(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("advance seq: %w", err)
		}
		return []domain.ChangeEvent{{
			Seq:     seq,
			EventID: eventID,
			Kind:    domain.ChangeKindSettings,
			Action:  domain.ChangeActionUpdated,
			Payload: updated,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *contributionService) Stats(ctx context.Context, eventID string) (*domain.EventStats, error) {
	stats, err := s.statsRepo.GetByEventID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

func (s *contributionService) requireOwner(ctx context.Context, eventID, userID string) error {
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
	return nil
}

// withStats appends the refreshed counters to a contribution change so
// subscribers always receive the record and its stats as one ordered unit.
func (s *contributionService) withStats(ctx context.Context, eventID string, seq int64, change domain.ChangeEvent) ([]domain.ChangeEvent, error) {
	stats, err := s.statsRepo.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return []domain.ChangeEvent{change, {
		Seq:     seq,
		EventID: eventID,
		Kind:    domain.ChangeKindStats,
		Action:  domain.ChangeActionUpdated,
		Payload: stats,
	}}, nil
}
