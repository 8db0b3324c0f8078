package capture

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrValidation indicates a missing or malformed required field
	ErrValidation = errors.New("validation failed")

	// ErrAssetDecode indicates the raw upload is not a readable image
	ErrAssetDecode = errors.New("asset decode failed")

	// ErrUploadTransport indicates a storage transfer failed or timed out
	ErrUploadTransport = errors.New("upload transport failed")

	// ErrCaptureNotFound indicates a capture was not found
	ErrCaptureNotFound = errors.New("capture not found")

	// ErrEventNotFound indicates an event was not found
	ErrEventNotFound = errors.New("event not found")

	// ErrRemovalRequestNotFound indicates a removal request was not found
	ErrRemovalRequestNotFound = errors.New("removal request not found")

	// ErrNotAuthorized indicates the caller lacks the required capability
	ErrNotAuthorized = errors.New("not authorized")

	// ErrConflict indicates a concurrent mutation race detected at the
	// persistence layer
	ErrConflict = errors.New("conflicting concurrent update")

	// ErrPersistenceTimeout indicates a persistence call exceeded its bound
	ErrPersistenceTimeout = errors.New("persistence timed out")

	// ErrCaptureNotApproved indicates a visibility flip was attempted on a
	// capture outside the approved state
	ErrCaptureNotApproved = errors.New("capture not approved")

	// ErrInvalidStateTransition indicates a decision on a capture that has
	// already been decided
	ErrInvalidStateTransition = errors.New("invalid capture state transition")
)

// CaptureError represents an error related to capture operations
type CaptureError struct {
	CaptureID uuid.UUID
	Op        string
	Err       error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture operation %s failed for capture %s: %v", e.Op, e.CaptureID, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// IngestError represents an error during asset ingestion. No capture row
// exists when one of these is returned.
type IngestError struct {
	FileName string
	Op       string
	Err      error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest operation %s failed for %s: %v", e.Op, e.FileName, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
