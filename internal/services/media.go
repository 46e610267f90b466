package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"weddingmemories/config"
	"weddingmemories/internal/domain"
	"weddingmemories/internal/media"
)

// allowedMimeTypes is the ingestion allow-list. Everything is normalized to
// JPEG on the way through when compression succeeds.
var allowedMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type mediaService struct {
	eventRepo domain.EventRepository
	photoRepo domain.PhotoRepository
	storage   domain.ObjectStorage
	admitter  domain.Admitter
	broker    domain.FeedBroker
	statsRepo domain.StatsRepository
	cfg       config.MediaConfig
	logger    *slog.Logger
}

// NewMediaService creates the ingestion pipeline: validate, compress,
// upload, record.
func NewMediaService(
	eventRepo domain.EventRepository,
	photoRepo domain.PhotoRepository,
	statsRepo domain.StatsRepository,
	storage domain.ObjectStorage,
	admitter domain.Admitter,
	broker domain.FeedBroker,
	cfg config.MediaConfig,
	logger *slog.Logger,
) domain.MediaService {
	return &mediaService{
		eventRepo: eventRepo,
		photoRepo: photoRepo,
		statsRepo: statsRepo,
		storage:   storage,
		admitter:  admitter,
		broker:    broker,
		cfg:       cfg,
		logger:    logger,
	}
}

// Per-file progress milestones. Total progress is a pure fold over the
// per-file slots, so concurrent callbacks never race on a shared counter.
const (
	progressValidated  = 10
	progressCompressed = 30
	progressUploaded   = 90
	progressRecorded   = 100
)

type progressTracker struct {
	slots []int
	emit  domain.ProgressFunc
}

func newProgressTracker(n int, emit domain.ProgressFunc) *progressTracker {
	return &progressTracker{slots: make([]int, n), emit: emit}
}

func (t *progressTracker) set(i, pct int) {
	t.slots[i] = pct
	if t.emit == nil || len(t.slots) == 0 {
		return
	}
	sum := 0
	for _, s := range t.slots {
		sum += s
	}
	t.emit(sum / len(t.slots))
}

func (s *mediaService) Ingest(ctx context.Context, eventID, fingerprint, guestName string, files []domain.IncomingFile, onProgress domain.ProgressFunc) (*domain.IngestResult, error) {
	guestName = strings.TrimSpace(guestName)
	if guestName == "" {
		return nil, fmt.Errorf("%w: guest name is required", domain.ErrInvalidInput)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files submitted", domain.ErrInvalidInput)
	}
	if err := s.admitter.Admit(ctx, eventID, fingerprint, domain.SubmissionPhoto); err != nil {
		return nil, err
	}

	result := &domain.IngestResult{}

	// Validate up front so progress weighting covers only files that can
	// still make it. A bad file is rejected individually and never aborts
	// the batch.
	type validFile struct {
		file        domain.IncomingFile
		contentType string
		ext         string
	}
	var valid []validFile
	for _, f := range files {
		contentType, ext, err := s.validate(f)
		if err != nil {
			result.Failures = append(result.Failures, &domain.FileError{
				FileName: f.FileName, Stage: "validate", Err: err,
			})
			continue
		}
		valid = append(valid, validFile{file: f, contentType: contentType, ext: ext})
	}

	tracker := newProgressTracker(len(valid), onProgress)
	for i, vf := range valid {
		// Cancellation stops further transfer; files already recorded are
		// unaffected and the canceled file leaves no record.
		if err := ctx.Err(); err != nil {
			result.Failures = append(result.Failures, &domain.FileError{
				FileName: vf.file.FileName, Stage: "upload", Err: err,
			})
			continue
		}
		tracker.set(i, progressValidated)

		data, contentType, ext := vf.file.Data, vf.contentType, vf.ext
		if out, outType, err := media.Normalize(vf.file.Data, vf.contentType, media.Options{
			MaxDimension: s.cfg.MaxDimensionPx,
			TargetBytes:  s.cfg.TargetFileBytes,
		}); err != nil {
			// Compression is an optimization, not a correctness requirement.
			s.logger.Warn("photo compression failed, using original",
				"event_id", eventID, "file", vf.file.FileName, "err", err)
		} else if int64(len(out)) < int64(len(vf.file.Data)) {
			data, contentType, ext = out, outType, ".jpg"
		}
		tracker.set(i, progressCompressed)

		// Paths are namespaced by event and a fresh id, never derived from
		// guest-supplied names.
		path := fmt.Sprintf("events/%s/photos/%s%s", eventID, uuid.New().String(), ext)
		url, err := s.storage.Put(ctx, path, data, contentType)
		if err != nil {
			result.Failures = append(result.Failures, &domain.FileError{
				FileName: vf.file.FileName, Stage: "upload", Err: err,
			})
			continue
		}
		tracker.set(i, progressUploaded)

		photo := &domain.Photo{
			EventID:     eventID,
			GuestName:   guestName,
			URL:         url,
			StoragePath: path,
			FileName:    vf.file.FileName,
			FileSize:    int64(len(data)),
			MimeType:    contentType,
			Caption:     vf.file.Caption,
			CreatedAt:   time.Now(),
		}
		err = s.broker.Commit(eventID, func() ([]domain.ChangeEvent, error) {
			seq, err := s.photoRepo.Create(ctx, photo)
			if err != nil {
				return nil, err
			}
			stats, err := s.statsRepo.GetByEventID(ctx, eventID)
			if err != nil {
				return nil, fmt.Errorf("get stats: %w", err)
			}
			return []domain.ChangeEvent{
				{Seq: seq, EventID: eventID, Kind: domain.ChangeKindPhoto, Action: domain.ChangeActionCreated, Payload: photo},
				{Seq: seq, EventID: eventID, Kind: domain.ChangeKindStats, Action: domain.ChangeActionUpdated, Payload: stats},
			}, nil
		})
		if err != nil {
			result.Failures = append(result.Failures, &domain.FileError{
				FileName: vf.file.FileName, Stage: "record", Err: err,
			})
			// The blob is stored but unreferenced; release it so nothing
			// orphans. The cleanup must outlive the request's cancellation,
			// which is often the reason the record failed in the first place.
			if delErr := s.storage.Delete(context.WithoutCancel(ctx), path); delErr != nil {
				s.logger.Warn("orphan blob cleanup failed", "path", path, "err", delErr)
			}
			continue
		}
		tracker.set(i, progressRecorded)
		result.Photos = append(result.Photos, photo)
	}

	return result, nil
}

func (s *mediaService) validate(f domain.IncomingFile) (contentType, ext string, err error) {
	if int64(len(f.Data)) > s.cfg.MaxFileBytes {
		return "", "", domain.ErrFileTooLarge
	}
	if len(f.Data) == 0 {
		return "", "", fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}
	contentType = f.ContentType
	if _, ok := allowedMimeTypes[contentType]; !ok {
		// Headers lie; sniff before rejecting.
		contentType = http.DetectContentType(f.Data)
	}
	ext, ok := allowedMimeTypes[contentType]
	if !ok {
		return "", "", domain.ErrUnsupportedFileType
	}
	// An allow-listed label is not proof of a decodable image; a junk
	// payload tagged image/jpeg would otherwise survive validation and be
	// stored as-is when compression falls back to the original bytes.
	if _, _, err := media.Sniff(f.Data, contentType); err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrUnsupportedFileType, err)
	}
	return contentType, ext, nil
}

func (s *mediaService) ListByEventID(ctx context.Context, eventID string) ([]*domain.Photo, error) {
	photos, err := s.photoRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return photos, nil
}

// Delete removes the record and its stored object together. If the blob
// release fails after the record is gone, the caller gets a
// PartialDeleteError rather than a silent success.
func (s *mediaService) Delete(ctx context.Context, photoID, userID string) error {
	photo, err := s.photoRepo.GetByID(ctx, photoID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get photo: %w", err)
	}
	event, err := s.eventRepo.GetByID(ctx, photo.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if event.OwnerID != userID {
		return domain.ErrForbidden
	}

	err = s.broker.Commit(photo.EventID, func() ([]domain.ChangeEvent, error) {
		seq, err := s.photoRepo.Delete(ctx, photoID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("delete photo: %w", err)
		}
		stats, err := s.statsRepo.GetByEventID(ctx, photo.EventID)
		if err != nil {
			return nil, fmt.Errorf("get stats: %w", err)
		}
		return []domain.ChangeEvent{
			{Seq: seq, EventID: photo.EventID, Kind: domain.ChangeKindPhoto, Action: domain.ChangeActionDeleted, Payload: photo},
			{Seq: seq, EventID: photo.EventID, Kind: domain.ChangeKindStats, Action: domain.ChangeActionUpdated, Payload: stats},
		}, nil
	})
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, photo.StoragePath); err != nil {
		s.logger.Warn("photo blob release failed", "photo_id", photoID, "path", photo.StoragePath, "err", err)
		return &domain.PartialDeleteError{Errs: []error{err}}
	}
	return nil
}
