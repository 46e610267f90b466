package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"weddingmemories/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEventRepo is an in-memory EventRepository for tests.
type fakeEventRepo struct {
	byID   map[string]*domain.Event
	nextID int
	err    error // if set, Create returns this error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		byID:   make(map[string]*domain.Event),
		nextID: 1,
	}
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if f.err != nil {
		return f.err
	}
	e.ID = fmt.Sprintf("ev-%d", f.nextID)
	f.nextID++
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range f.byID {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, id string, patch *domain.EventPatch) (*domain.Event, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.CoupleNames != nil {
		e.CoupleNames = *patch.CoupleNames
	}
	if patch.WeddingDate != nil {
		e.WeddingDate = *patch.WeddingDate
	}
	if patch.Venue != nil {
		e.Venue = *patch.Venue
	}
	if patch.IsActive != nil {
		e.IsActive = *patch.IsActive
	}
	if patch.WelcomeMessage != nil {
		e.WelcomeMessage = *patch.WelcomeMessage
	}
	if patch.Timeline != nil {
		e.Timeline = *patch.Timeline
	}
	if patch.Theme != nil {
		e.Theme = *patch.Theme
	}
	return e, nil
}

func (f *fakeEventRepo) SetQRCodeURL(ctx context.Context, id, url string) error {
	e, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if e.QRCodeURL != "" {
		return domain.ErrInvalidInput
	}
	e.QRCodeURL = url
	return nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// fakeStatsRepo tracks a seq counter and a counters struct per event.
type fakeStatsRepo struct {
	byEvent map[string]*domain.EventStats
	seqs    map[string]int64
	err     error
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{
		byEvent: make(map[string]*domain.EventStats),
		seqs:    make(map[string]int64),
	}
}

func (f *fakeStatsRepo) Create(ctx context.Context, eventID string) error {
	if f.err != nil {
		return f.err
	}
	f.byEvent[eventID] = &domain.EventStats{EventID: eventID}
	return nil
}

func (f *fakeStatsRepo) GetByEventID(ctx context.Context, eventID string) (*domain.EventStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.byEvent[eventID]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStatsRepo) NextSeq(ctx context.Context, eventID string) (int64, error) {
	if _, ok := f.byEvent[eventID]; !ok {
		return 0, domain.ErrNotFound
	}
	f.seqs[eventID]++
	return f.seqs[eventID], nil
}

func (f *fakeStatsRepo) Recompute(ctx context.Context, eventID string) (*domain.EventStats, error) {
	return f.GetByEventID(ctx, eventID)
}

// fakeWishRepo is an in-memory WishRepository wired to a fakeStatsRepo so
// counters and seq move together, as the Postgres transaction does.
type fakeWishRepo struct {
	stats  *fakeStatsRepo
	byID   map[string]*domain.Wish
	nextID int
	err    error
}

func newFakeWishRepo(stats *fakeStatsRepo) *fakeWishRepo {
	return &fakeWishRepo{stats: stats, byID: make(map[string]*domain.Wish), nextID: 1}
}

func (f *fakeWishRepo) Create(ctx context.Context, w *domain.Wish) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	s, ok := f.stats.byEvent[w.EventID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	w.ID = fmt.Sprintf("wish-%d", f.nextID)
	f.nextID++
	f.byID[w.ID] = w
	s.TotalWishes++
	f.stats.seqs[w.EventID]++
	return f.stats.seqs[w.EventID], nil
}

func (f *fakeWishRepo) GetByID(ctx context.Context, id string) (*domain.Wish, error) {
	if w, ok := f.byID[id]; ok {
		return w, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeWishRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.Wish, error) {
	var out []*domain.Wish
	for _, w := range f.byID {
		if w.EventID == eventID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWishRepo) Delete(ctx context.Context, id string) (int64, error) {
	w, ok := f.byID[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	delete(f.byID, id)
	f.stats.byEvent[w.EventID].TotalWishes--
	f.stats.seqs[w.EventID]++
	return f.stats.seqs[w.EventID], nil
}

// fakePhotoRepo mirrors fakeWishRepo for photos.
type fakePhotoRepo struct {
	stats  *fakeStatsRepo
	byID   map[string]*domain.Photo
	nextID int
	err    error
}

func newFakePhotoRepo(stats *fakeStatsRepo) *fakePhotoRepo {
	return &fakePhotoRepo{stats: stats, byID: make(map[string]*domain.Photo), nextID: 1}
}

func (f *fakePhotoRepo) Create(ctx context.Context, p *domain.Photo) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	s, ok := f.stats.byEvent[p.EventID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	p.ID = fmt.Sprintf("photo-%d", f.nextID)
	f.nextID++
	f.byID[p.ID] = p
	s.TotalPhotos++
	f.stats.seqs[p.EventID]++
	return f.stats.seqs[p.EventID], nil
}

func (f *fakePhotoRepo) GetByID(ctx context.Context, id string) (*domain.Photo, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakePhotoRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.Photo, error) {
	var out []*domain.Photo
	for _, p := range f.byID {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePhotoRepo) Delete(ctx context.Context, id string) (int64, error) {
	p, ok := f.byID[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	delete(f.byID, id)
	f.stats.byEvent[p.EventID].TotalPhotos--
	f.stats.seqs[p.EventID]++
	return f.stats.seqs[p.EventID], nil
}

// fakeResponseRepo mirrors the Postgres counter adjustments for RSVPs.
type fakeResponseRepo struct {
	stats  *fakeStatsRepo
	byID   map[string]*domain.RSVPResponse
	nextID int
	err    error
}

func newFakeResponseRepo(stats *fakeStatsRepo) *fakeResponseRepo {
	return &fakeResponseRepo{stats: stats, byID: make(map[string]*domain.RSVPResponse), nextID: 1}
}

func (f *fakeResponseRepo) applyDelta(s *domain.EventStats, resp *domain.RSVPResponse, sign int64) {
	s.TotalResponses += sign
	s.TotalGuestCount += sign * int64(resp.GuestCount)
	switch resp.Status {
	case domain.RSVPStatusAttending:
		s.Attending += sign
	case domain.RSVPStatusNotAttending:
		s.NotAttending += sign
	case domain.RSVPStatusMaybe:
		s.Maybe += sign
	}
}

func (f *fakeResponseRepo) Create(ctx context.Context, resp *domain.RSVPResponse) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	s, ok := f.stats.byEvent[resp.EventID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	resp.ID = fmt.Sprintf("resp-%d", f.nextID)
	f.nextID++
	f.byID[resp.ID] = resp
	f.applyDelta(s, resp, 1)
	f.stats.seqs[resp.EventID]++
	return f.stats.seqs[resp.EventID], nil
}

func (f *fakeResponseRepo) GetByID(ctx context.Context, id string) (*domain.RSVPResponse, error) {
	if r, ok := f.byID[id]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeResponseRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.RSVPResponse, error) {
	var out []*domain.RSVPResponse
	for _, r := range f.byID {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResponseRepo) Delete(ctx context.Context, id string) (int64, error) {
	r, ok := f.byID[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	delete(f.byID, id)
	f.applyDelta(f.stats.byEvent[r.EventID], r, -1)
	f.stats.seqs[r.EventID]++
	return f.stats.seqs[r.EventID], nil
}

// fakeSettingsRepo is an in-memory RSVPSettingsRepository.
type fakeSettingsRepo struct {
	byEvent map[string]*domain.RSVPSettings
	err     error
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{byEvent: make(map[string]*domain.RSVPSettings)}
}

func (f *fakeSettingsRepo) Create(ctx context.Context, s *domain.RSVPSettings) error {
	if f.err != nil {
		return f.err
	}
	f.byEvent[s.EventID] = s
	return nil
}

func (f *fakeSettingsRepo) GetByEventID(ctx context.Context, eventID string) (*domain.RSVPSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.byEvent[eventID]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSettingsRepo) Update(ctx context.Context, eventID string, patch *domain.RSVPSettingsPatch) (*domain.RSVPSettings, error) {
	s, ok := f.byEvent[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.IsEnabled != nil {
		s.IsEnabled = *patch.IsEnabled
	}
	if patch.MaxGuestsPerRSVP != nil {
		s.MaxGuestsPerRSVP = *patch.MaxGuestsPerRSVP
	}
	if patch.RequirePhone != nil {
		s.RequirePhone = *patch.RequirePhone
	}
	if patch.ShowGuestCount != nil {
		s.ShowGuestCount = *patch.ShowGuestCount
	}
	if patch.Deadline != nil {
		s.Deadline = *patch.Deadline
	}
	if patch.TotalCapacity != nil {
		s.TotalCapacity = *patch.TotalCapacity
	}
	if patch.CustomMessage != nil {
		s.CustomMessage = *patch.CustomMessage
	}
	if patch.NotifyEmail != nil {
		s.NotifyEmail = *patch.NotifyEmail
	}
	return s, nil
}

// passthroughBroker runs every committed write immediately and records the
// changes it would have fanned out.
type passthroughBroker struct {
	mu      sync.Mutex
	changes []domain.ChangeEvent
	dropped []string
}

func (b *passthroughBroker) Subscribe(ctx context.Context, eventID string, fn func(domain.ChangeEvent)) (*domain.Snapshot, func(), error) {
	return &domain.Snapshot{}, func() {}, nil
}

func (b *passthroughBroker) Commit(eventID string, write func() ([]domain.ChangeEvent, error)) error {
	changes, err := write()
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.changes = append(b.changes, changes...)
	b.mu.Unlock()
	return nil
}

func (b *passthroughBroker) DropEvent(eventID string) {
	b.mu.Lock()
	b.dropped = append(b.dropped, eventID)
	b.mu.Unlock()
}

// cancelOnCommitBroker cancels the caller's context at commit time and
// fails the commit, modeling a request torn down mid-write.
type cancelOnCommitBroker struct {
	cancel context.CancelFunc
}

func (b *cancelOnCommitBroker) Subscribe(ctx context.Context, eventID string, fn func(domain.ChangeEvent)) (*domain.Snapshot, func(), error) {
	return &domain.Snapshot{}, func() {}, nil
}

func (b *cancelOnCommitBroker) Commit(eventID string, write func() ([]domain.ChangeEvent, error)) error {
	b.cancel()
	return context.Canceled
}

func (b *cancelOnCommitBroker) DropEvent(eventID string) {}

func (b *passthroughBroker) recorded() []domain.ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.ChangeEvent, len(b.changes))
	copy(out, b.changes)
	return out
}

// allowAll admits everything; denyWith rejects with a fixed error.
type allowAll struct{}

func (allowAll) Admit(ctx context.Context, eventID, fingerprint, kind string) error { return nil }

type denyWith struct{ err error }

func (d denyWith) Admit(ctx context.Context, eventID, fingerprint, kind string) error { return d.err }

// fakeStorage is an in-memory ObjectStorage with injectable failures.
type fakeStorage struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	putErr  error
	delErr  error
	listErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{blobs: make(map[string][]byte)}
}

func (f *fakeStorage) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.putErr != nil {
		return "", f.putErr
	}
	f.mu.Lock()
	f.blobs[path] = data
	f.mu.Unlock()
	return "https://cdn.test/" + path, nil
}

func (f *fakeStorage) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.delErr != nil {
		return f.delErr
	}
	f.mu.Lock()
	delete(f.blobs, path)
	f.mu.Unlock()
	return nil
}

func (f *fakeStorage) List(ctx context.Context, prefix string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for path := range f.blobs {
		if len(path) >= len(prefix) && path[:len(prefix)] == prefix {
			out = append(out, path)
		}
	}
	return out, nil
}

// recordingMailer captures sent mail for assertions.
type recordingMailer struct {
	mu   sync.Mutex
	sent []string // recipient addresses in send order
	done chan struct{}
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{done: make(chan struct{}, 8)}
}

func (m *recordingMailer) Send(to, subject, html, text string) error {
	m.mu.Lock()
	m.sent = append(m.sent, to)
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

type stubRenderer struct{}

func (stubRenderer) Render(templateName string, data any) (string, string, string, error) {
	return "subject", "<p>html</p>", "text", nil
}
