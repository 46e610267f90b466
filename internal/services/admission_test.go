package services

import (
	"context"
	"testing"
	"time"

	"weddingmemories/config"
	"weddingmemories/internal/domain"

	"github.com/stretchr/testify/require"
)

func newAdmissionFixture(t *testing.T, cfg config.AdmissionConfig) (*admissionService, *fakeEventRepo, *fakeSettingsRepo) {
	t.Helper()
	events := newFakeEventRepo()
	settings := newFakeSettingsRepo()
	svc := NewAdmissionService(events, settings, cfg).(*admissionService)
	return svc, events, settings
}

func seedAdmissionEvent(t *testing.T, events *fakeEventRepo, settings *fakeSettingsRepo, active bool) *domain.Event {
	t.Helper()
	ctx := context.Background()
	event := domain.NewEvent("owner-1", "Mira & Noah", "Rose Garden", time.Now().AddDate(0, 6, 0), time.Now())
	require.NoError(t, events.Create(ctx, event))
	event.IsActive = active
	require.NoError(t, settings.Create(ctx, domain.DefaultRSVPSettings(event.ID, time.Now())))
	return event
}

func defaultAdmissionConfig() config.AdmissionConfig {
	return config.AdmissionConfig{
		WishesPerWindow: 5,
		PhotosPerWindow: 30,
		RSVPsPerWindow:  2,
		Window:          time.Minute,
	}
}

func TestAdmissionService_EventGate(t *testing.T) {
	ctx := context.Background()

	t.Run("active event admits", func(t *testing.T) {
		svc, events, settings := newAdmissionFixture(t, defaultAdmissionConfig())
		event := seedAdmissionEvent(t, events, settings, true)
		require.NoError(t, svc.Admit(ctx, event.ID, "fp-1", domain.SubmissionWish))
	})

	t.Run("inactive event rejects every kind", func(t *testing.T) {
		svc, events, settings := newAdmissionFixture(t, defaultAdmissionConfig())
		event := seedAdmissionEvent(t, events, settings, false)
		for _, kind := range []string{domain.SubmissionWish, domain.SubmissionPhoto, domain.SubmissionRSVP} {
			require.ErrorIs(t, svc.Admit(ctx, event.ID, "fp-1", kind), domain.ErrEventInactive)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		svc, _, _ := newAdmissionFixture(t, defaultAdmissionConfig())
		require.ErrorIs(t, svc.Admit(ctx, "ev-404", "fp-1", domain.SubmissionWish), domain.ErrNotFound)
	})
}

func TestAdmissionService_RSVPWindow(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled settings close rsvp only", func(t *testing.T) {
		svc, events, settings := newAdmissionFixture(t, defaultAdmissionConfig())
		event := seedAdmissionEvent(t, events, settings, true)
		settings.byEvent[event.ID].IsEnabled = false

		require.ErrorIs(t, svc.Admit(ctx, event.ID, "fp-1", domain.SubmissionRSVP), domain.ErrRSVPClosed)
		require.NoError(t, svc.Admit(ctx, event.ID, "fp-1", domain.SubmissionWish))
	})

	t.Run("deadline is exclusive", func(t *testing.T) {
		svc, events, settings := newAdmissionFixture(t, defaultAdmissionConfig())
		event := seedAdmissionEvent(t, events, settings, true)
		deadline := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
		settings.byEvent[event.ID].Deadline = &deadline

		svc.now = func() time.Time { return deadline }
		require.NoError(t, svc.Admit(ctx, event.ID, "fp-1", domain.SubmissionRSVP))

		svc.now = func() time.Time { return deadline.Add(time.Second) }
		require.ErrorIs(t, svc.Admit(ctx, event.ID, "fp-1", domain.SubmissionRSVP), domain.ErrDeadlinePassed)
	})
}

func TestAdmissionService_RateLimits(t *testing.T) {
	ctx := context.Background()

	t.Run("burst up to the configured count then limited", func(t *testing.T) {
		svc, events, settings := newAdmissionFixture(t, config.AdmissionConfig{
			WishesPerWindow: 3,
			PhotosPerWindow: 1,
			RSVPsPerWindow:  1,
			Window:          time.Minute,
		})
		event := seedAdmissionEvent(t, events, settings, true)
		base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return base }

		for i := 0; i < 3; i++ {
			require.NoError(t, svc.Admit(ctx, event.ID, "fp-1", domain.SubmissionWish))
		}
		require.ErrorIs(t, svc.Admit(ctx, event.ID, "fp-1", domain.SubmissionWish), domain.ErrRateLimited)
	})

	t.Run("limits are scoped per fingerprint and kind", func(t *testing.T) {
		svc, events, settings := newAdmissionFixture(t, config.AdmissionConfig{
			WishesPerWindow: 1,
			PhotosPerWindow: 1,
			RSVPsPerWindow:  1,
			Window:          time.Minute,
		})
		event := seedAdmissionEvent(t, events, settings, true)
		base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return base }

		require.NoError(t, svc.Admit(ctx, event.ID, "fp-1", domain.SubmissionWish))
		require.ErrorIs(t, svc.Admit(ctx, event.ID, "fp-1", domain.SubmissionWish), domain.ErrRateLimited)

		// A different guest and a different kind are unaffected.
		require.NoError(t, svc.Admit(ctx, event.ID, "fp-2", domain.SubmissionWish))
		require.NoError(t, svc.Admit(ctx, event.ID, "fp-1", domain.SubmissionPhoto))
	})

	t.Run("window refills over time", func(t *testing.T) {
		svc, events, settings := newAdmissionFixture(t, config.AdmissionConfig{
			WishesPerWindow: 1,
			PhotosPerWindow: 1,
			RSVPsPerWindow:  1,
			Window:          time.Minute,
		})
		event := seedAdmissionEvent(t, events, settings, true)
		base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return base }

		require.NoError(t, svc.Admit(ctx, event.ID, "fp-1", domain.SubmissionWish))
		require.ErrorIs(t, svc.Admit(ctx, event.ID, "fp-1", domain.SubmissionWish), domain.ErrRateLimited)

		svc.now = func() time.Time { return base.Add(time.Minute) }
		require.NoError(t, svc.Admit(ctx, event.ID, "fp-1", domain.SubmissionWish))
	})

	t.Run("zero budget rejects", func(t *testing.T) {
		svc, events, settings := newAdmissionFixture(t, config.AdmissionConfig{
			WishesPerWindow: 0,
			PhotosPerWindow: 1,
			RSVPsPerWindow:  1,
			Window:          time.Minute,
		})
		event := seedAdmissionEvent(t, events, settings, true)
		require.ErrorIs(t, svc.Admit(ctx, event.ID, "fp-1", domain.SubmissionWish), domain.ErrRateLimited)
	})
}
