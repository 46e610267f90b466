package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services and repositories.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

// Expected business rejections from admission control. These are shown to
// guests as friendly messages and are not logged as system errors.
var (
	ErrEventInactive  = errors.New("event is not active")
	ErrRSVPClosed     = errors.New("rsvp is not enabled for this event")
	ErrDeadlinePassed = errors.New("rsvp deadline has passed")
	ErrRateLimited    = errors.New("too many submissions, try again later")
)

// Per-file validation failures inside a photo batch.
var (
	ErrFileTooLarge        = errors.New("file exceeds the maximum allowed size")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// FileError reports a failure for a single file in an ingestion batch.
// Stage is one of "validate", "compress", "upload", "record".
type FileError struct {
	FileName string
	Stage    string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.FileName, e.Stage, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// StorageError wraps an object storage failure with the operation and path.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PartialDeleteError reports a delete that removed the record but failed to
// release one or more backing resources. Callers must not treat the delete
// as fully successful when they receive one.
type PartialDeleteError struct {
	Errs []error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("delete partially failed: %v", errors.Join(e.Errs...))
}

func (e *PartialDeleteError) Unwrap() []error { return e.Errs }
