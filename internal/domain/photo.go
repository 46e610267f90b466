package domain

import (
	"context"
	"time"
)

// Photo is a guest-uploaded image. StoragePath is the ownership handle to
// the stored object; URL always resolves to that object's current content.
// The record is only created after the object is confirmed stored.
// swagger:model Photo
type Photo struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	GuestName   string    `json:"guest_name"`
	URL         string    `json:"url"`
	StoragePath string    `json:"storage_path"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	MimeType    string    `json:"mime_type"`
	Caption     *string   `json:"caption,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PhotoRepository defines storage operations for photo records. Create and
// Delete adjust the event's stats counters atomically in the same
// transaction and return the event's new feed sequence number.
type PhotoRepository interface {
	Create(ctx context.Context, photo *Photo) (seq int64, err error)
	GetByID(ctx context.Context, id string) (*Photo, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Photo, error)
	Delete(ctx context.Context, id string) (seq int64, err error)
}

// ObjectStorage abstracts the blob store backing photo uploads and QR codes.
type ObjectStorage interface {
	// Put stores data at path and returns a resolvable public URL.
	Put(ctx context.Context, path string, data []byte, contentType string) (url string, err error)
	Delete(ctx context.Context, path string) error
	// List returns all stored paths under prefix. Used for cascade deletes.
	List(ctx context.Context, prefix string) ([]string, error)
}

// IncomingFile is one file of a guest's photo batch.
type IncomingFile struct {
	FileName    string
	ContentType string
	Data        []byte
	Caption     *string
}

// ProgressFunc reports aggregate batch upload progress in percent (0-100).
type ProgressFunc func(percent int)

// IngestResult reports per-file granularity for a photo batch: created
// records for the files that made it, one FileError per file that did not.
type IngestResult struct {
	Photos   []*Photo     `json:"photos"`
	Failures []*FileError `json:"failures"`
}

// MediaService is the ingestion pipeline: validate, compress, upload,
// record. One bad file never aborts the batch; a canceled context stops
// further transfer without leaving an orphaned blob.
type MediaService interface {
	Ingest(ctx context.Context, eventID, fingerprint, guestName string, files []IncomingFile, onProgress ProgressFunc) (*IngestResult, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Photo, error)
	// Delete removes the record and releases the stored object. Blob release
	// failure after record deletion is reported as PartialDeleteError.
	Delete(ctx context.Context, photoID, userID string) error
}
