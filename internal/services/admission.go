package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"weddingmemories/config"
	"weddingmemories/internal/domain"
)

// maxLimiterEntries caps the per-fingerprint limiter map; stale entries are
// pruned when the cap is exceeded.
const maxLimiterEntries = 4096

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type admissionService struct {
	eventRepo    domain.EventRepository
	settingsRepo domain.RSVPSettingsRepository
	cfg          config.AdmissionConfig
	now          func() time.Time

	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

// NewAdmissionService creates the pre-write admission check: event active,
// RSVP window open, and per-guest rate limits from config.
func NewAdmissionService(
	eventRepo domain.EventRepository,
	settingsRepo domain.RSVPSettingsRepository,
	cfg config.AdmissionConfig,
) domain.Admitter {
	return &admissionService{
		eventRepo:    eventRepo,
		settingsRepo: settingsRepo,
		cfg:          cfg,
		now:          time.Now,
		limiters:     make(map[string]*limiterEntry),
	}
}

func (s *admissionService) Admit(ctx context.Context, eventID, fingerprint, kind string) error {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if err == domain.ErrNotFound {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if !event.IsActive {
		return domain.ErrEventInactive
	}

	if kind == domain.SubmissionRSVP {
		settings, err := s.settingsRepo.GetByEventID(ctx, eventID)
		if err != nil {
			if err == domain.ErrNotFound {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get rsvp settings: %w", err)
		}
		if !settings.IsEnabled {
			return domain.ErrRSVPClosed
		}
		if settings.Deadline != nil && s.now().After(*settings.Deadline) {
			return domain.ErrDeadlinePassed
		}
		// TotalCapacity is advisory: it feeds the dashboard, never a gate.
	}

	if !s.allow(eventID, fingerprint, kind) {
		return domain.ErrRateLimited
	}
	return nil
}

func (s *admissionService) perWindow(kind string) int {
	switch kind {
	case domain.SubmissionWish:
		return s.cfg.WishesPerWindow
	case domain.SubmissionPhoto:
		return s.cfg.PhotosPerWindow
	case domain.SubmissionRSVP:
		return s.cfg.RSVPsPerWindow
	default:
		return 0
	}
}

func (s *admissionService) allow(eventID, fingerprint, kind string) bool {
	count := s.perWindow(kind)
	if count <= 0 {
		return false
	}
	key := eventID + ":" + fingerprint + ":" + kind
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.limiters[key]
	if !ok {
		if len(s.limiters) >= maxLimiterEntries {
			s.prune(now)
		}
		entry = &limiterEntry{
			lim: rate.NewLimiter(rate.Every(s.cfg.Window/time.Duration(count)), count),
		}
		s.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.lim.AllowN(now, 1)
}

// prune drops entries idle for more than two windows. Called with mu held.
func (s *admissionService) prune(now time.Time) {
	cutoff := now.Add(-2 * s.cfg.Window)
	for key, entry := range s.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(s.limiters, key)
		}
	}
}
