package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"weddingmemories/config"
	"weddingmemories/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mediaFixture struct {
	events  *fakeEventRepo
	photos  *fakePhotoRepo
	stats   *fakeStatsRepo
	storage *fakeStorage
	broker  *passthroughBroker
	svc     domain.MediaService
}

func newMediaFixture(t *testing.T, admitter domain.Admitter) *mediaFixture {
	t.Helper()
	f := &mediaFixture{
		events:  newFakeEventRepo(),
		stats:   newFakeStatsRepo(),
		storage: newFakeStorage(),
		broker:  &passthroughBroker{},
	}
	f.photos = newFakePhotoRepo(f.stats)
	f.svc = NewMediaService(
		f.events, f.photos, f.stats, f.storage, admitter, f.broker,
		config.MediaConfig{MaxFileBytes: 1 << 20, MaxDimensionPx: 1920, TargetFileBytes: 500 << 10},
		testLogger(),
	)
	return f
}

func (f *mediaFixture) seedEvent(t *testing.T) *domain.Event {
	t.Helper()
	ctx := context.Background()
	event := domain.NewEvent("owner-1", "Mira & Noah", "Rose Garden", time.Now().AddDate(0, 6, 0), time.Now())
	require.NoError(t, f.events.Create(ctx, event))
	require.NoError(t, f.stats.Create(ctx, event.ID))
	return event
}

// pngBytes renders a small valid PNG so validation and compression both see
// a real image.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestMediaService_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("one bad file never fails the batch", func(t *testing.T) {
		f := newMediaFixture(t, allowAll{})
		event := f.seedEvent(t)

		files := []domain.IncomingFile{
			{FileName: "good.png", ContentType: "image/png", Data: pngBytes(t, 8, 8)},
			{FileName: "notes.txt", ContentType: "text/plain", Data: []byte("not an image")},
			{FileName: "huge.png", ContentType: "image/png", Data: make([]byte, 2<<20)},
		}
		result, err := f.svc.Ingest(ctx, event.ID, "fp-1", "Mira", files, nil)
		require.NoError(t, err)
		require.Len(t, result.Photos, 1)
		require.Len(t, result.Failures, 2)

		byName := map[string]*domain.FileError{}
		for _, fe := range result.Failures {
			byName[fe.FileName] = fe
		}
		require.ErrorIs(t, byName["notes.txt"].Err, domain.ErrUnsupportedFileType)
		require.ErrorIs(t, byName["huge.png"].Err, domain.ErrFileTooLarge)

		stats, err := f.stats.GetByEventID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.TotalPhotos)
	})

	t.Run("storage path never derives from the file name", func(t *testing.T) {
		f := newMediaFixture(t, allowAll{})
		event := f.seedEvent(t)

		result, err := f.svc.Ingest(ctx, event.ID, "fp-1", "Mira", []domain.IncomingFile{
			{FileName: "../../etc/passwd.png", ContentType: "image/png", Data: pngBytes(t, 8, 8)},
		}, nil)
		require.NoError(t, err)
		require.Len(t, result.Photos, 1)
		photo := result.Photos[0]
		assert.NotContains(t, photo.StoragePath, "passwd")
		assert.NotContains(t, photo.StoragePath, "..")
		assert.Contains(t, photo.StoragePath, "events/"+event.ID+"/photos/")
		assert.Equal(t, "../../etc/passwd.png", photo.FileName)
	})

	t.Run("upload failure isolates the file", func(t *testing.T) {
		f := newMediaFixture(t, allowAll{})
		event := f.seedEvent(t)
		f.storage.putErr = errors.New("bucket unavailable")

		result, err := f.svc.Ingest(ctx, event.ID, "fp-1", "Mira", []domain.IncomingFile{
			{FileName: "a.png", ContentType: "image/png", Data: pngBytes(t, 8, 8)},
		}, nil)
		require.NoError(t, err)
		require.Empty(t, result.Photos)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, "upload", result.Failures[0].Stage)
	})

	t.Run("record failure releases the uploaded blob", func(t *testing.T) {
		f := newMediaFixture(t, allowAll{})
		event := f.seedEvent(t)
		f.photos.err = errors.New("insert failed")

		result, err := f.svc.Ingest(ctx, event.ID, "fp-1", "Mira", []domain.IncomingFile{
			{FileName: "a.png", ContentType: "image/png", Data: pngBytes(t, 8, 8)},
		}, nil)
		require.NoError(t, err)
		require.Empty(t, result.Photos)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, "record", result.Failures[0].Stage)

		f.storage.mu.Lock()
		defer f.storage.mu.Unlock()
		assert.Empty(t, f.storage.blobs, "orphaned blob left behind")
	})

	t.Run("cancellation stops remaining transfers", func(t *testing.T) {
		f := newMediaFixture(t, allowAll{})
		event := f.seedEvent(t)

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		result, err := f.svc.Ingest(canceled, event.ID, "fp-1", "Mira", []domain.IncomingFile{
			{FileName: "a.png", ContentType: "image/png", Data: pngBytes(t, 8, 8)},
			{FileName: "b.png", ContentType: "image/png", Data: pngBytes(t, 8, 8)},
		}, nil)
		require.NoError(t, err)
		require.Empty(t, result.Photos)
		require.Len(t, result.Failures, 2)
		for _, fe := range result.Failures {
			require.ErrorIs(t, fe.Err, context.Canceled)
		}
	})

	t.Run("progress reaches 100 and never goes backwards", func(t *testing.T) {
		f := newMediaFixture(t, allowAll{})
		event := f.seedEvent(t)

		var reported []int
		result, err := f.svc.Ingest(ctx, event.ID, "fp-1", "Mira", []domain.IncomingFile{
			{FileName: "a.png", ContentType: "image/png", Data: pngBytes(t, 8, 8)},
			{FileName: "b.png", ContentType: "image/png", Data: pngBytes(t, 8, 8)},
		}, func(pct int) { reported = append(reported, pct) })
		require.NoError(t, err)
		require.Len(t, result.Photos, 2)

		require.NotEmpty(t, reported)
		require.Equal(t, 100, reported[len(reported)-1])
		for i := 1; i < len(reported); i++ {
			require.GreaterOrEqual(t, reported[i], reported[i-1])
		}
	})

	t.Run("admission rejection aborts before any work", func(t *testing.T) {
		f := newMediaFixture(t, denyWith{err: domain.ErrRateLimited})
		event := f.seedEvent(t)

		_, err := f.svc.Ingest(ctx, event.ID, "fp-1", "Mira", []domain.IncomingFile{
			{FileName: "a.png", ContentType: "image/png", Data: pngBytes(t, 8, 8)},
		}, nil)
		require.ErrorIs(t, err, domain.ErrRateLimited)
		f.storage.mu.Lock()
		defer f.storage.mu.Unlock()
		assert.Empty(t, f.storage.blobs)
	})

	t.Run("guest name required", func(t *testing.T) {
		f := newMediaFixture(t, allowAll{})
		event := f.seedEvent(t)

		_, err := f.svc.Ingest(ctx, event.ID, "fp-1", "  ", []domain.IncomingFile{
			{FileName: "a.png", ContentType: "image/png", Data: pngBytes(t, 8, 8)},
		}, nil)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("cancellation during record never orphans a stored blob", func(t *testing.T) {
		// The store honors ctx the way the S3 client does, so the cleanup
		// delete must be detached from the canceled request context.
		f := newMediaFixture(t, allowAll{})
		event := f.seedEvent(t)

		canceled, cancel := context.WithCancel(ctx)
		broker := &cancelOnCommitBroker{cancel: cancel}
		svc := NewMediaService(
			f.events, f.photos, f.stats, f.storage, allowAll{}, broker,
			config.MediaConfig{MaxFileBytes: 1 << 20, MaxDimensionPx: 1920, TargetFileBytes: 500 << 10},
			testLogger(),
		)

		result, err := svc.Ingest(canceled, event.ID, "fp-1", "Mira", []domain.IncomingFile{
			{FileName: "a.png", ContentType: "image/png", Data: pngBytes(t, 8, 8)},
		}, nil)
		require.NoError(t, err)
		require.Empty(t, result.Photos)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, "record", result.Failures[0].Stage)
		require.ErrorIs(t, result.Failures[0].Err, context.Canceled)

		f.storage.mu.Lock()
		defer f.storage.mu.Unlock()
		assert.Empty(t, f.storage.blobs, "orphaned blob left behind after cancellation")
	})

	t.Run("junk payload with an allow-listed label is rejected", func(t *testing.T) {
		f := newMediaFixture(t, allowAll{})
		event := f.seedEvent(t)

		data := append([]byte("\xff\xd8\xff"), bytes.Repeat([]byte{0x00}, 512)...)
		result, err := f.svc.Ingest(ctx, event.ID, "fp-1", "Mira", []domain.IncomingFile{
			{FileName: "fake.jpg", ContentType: "image/jpeg", Data: data},
		}, nil)
		require.NoError(t, err)
		require.Empty(t, result.Photos)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, "validate", result.Failures[0].Stage)
		require.ErrorIs(t, result.Failures[0].Err, domain.ErrUnsupportedFileType)
	})

	t.Run("lying content type is sniffed", func(t *testing.T) {
		f := newMediaFixture(t, allowAll{})
		event := f.seedEvent(t)

		result, err := f.svc.Ingest(ctx, event.ID, "fp-1", "Mira", []domain.IncomingFile{
			{FileName: "photo.bin", ContentType: "application/octet-stream", Data: pngBytes(t, 8, 8)},
		}, nil)
		require.NoError(t, err)
		require.Len(t, result.Photos, 1)
	})
}

func TestMediaService_Delete(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*mediaFixture, *domain.Event, *domain.Photo) {
		f := newMediaFixture(t, allowAll{})
		event := f.seedEvent(t)
		result, err := f.svc.Ingest(ctx, event.ID, "fp-1", "Mira", []domain.IncomingFile{
			{FileName: "a.png", ContentType: "image/png", Data: pngBytes(t, 8, 8)},
		}, nil)
		require.NoError(t, err)
		require.Len(t, result.Photos, 1)
		return f, event, result.Photos[0]
	}

	t.Run("owner delete removes record and blob", func(t *testing.T) {
		f, event, photo := setup(t)

		require.NoError(t, f.svc.Delete(ctx, photo.ID, "owner-1"))

		_, err := f.photos.GetByID(ctx, photo.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
		stats, err := f.stats.GetByEventID(ctx, event.ID)
		require.NoError(t, err)
		assert.Zero(t, stats.TotalPhotos)
		f.storage.mu.Lock()
		defer f.storage.mu.Unlock()
		assert.NotContains(t, f.storage.blobs, photo.StoragePath)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		f, _, photo := setup(t)
		require.ErrorIs(t, f.svc.Delete(ctx, photo.ID, "intruder"), domain.ErrForbidden)
		_, err := f.photos.GetByID(ctx, photo.ID)
		require.NoError(t, err)
	})

	t.Run("blob release failure reports partial delete", func(t *testing.T) {
		f, _, photo := setup(t)
		f.storage.delErr = errors.New("object locked")

		err := f.svc.Delete(ctx, photo.ID, "owner-1")
		var partial *domain.PartialDeleteError
		require.ErrorAs(t, err, &partial)

		// The record is gone even though the blob outlived it.
		_, err = f.photos.GetByID(ctx, photo.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}
