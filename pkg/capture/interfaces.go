package capture

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for storage backends. Uploads are one-shot
// transfers that yield a durable object; the pipeline never overwrites an
// existing key.
type BlobStore interface {
	// Upload uploads content under the given key
	Upload(ctx context.Context, objectKey string, reader io.Reader, mimeType string) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for a stored object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)

	// GetDownloadURL returns a URL for downloading content
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}

// Repository defines the interface for pipeline persistence.
//
// Toggle operations (visibility, likes) must be implemented as atomic
// conditional mutations, never as separate read-then-write steps: two admins
// or two viewers race on the same row.
type Repository interface {
	// Capture operations
	CreateCapture(ctx context.Context, c *Capture) error
	GetCapture(ctx context.Context, id uuid.UUID) (*Capture, error)
	ListCaptures(ctx context.Context, filter CaptureFilter) ([]*Capture, error)
	// SetCaptureState performs the conditional transition from -> to,
	// returning ErrInvalidStateTransition when the row is not in `from`.
	SetCaptureState(ctx context.Context, id uuid.UUID, from, to CaptureState) (*Capture, error)
	// ToggleCaptureVisibility flips active<->inactive exactly once, only
	// while the capture is approved.
	ToggleCaptureVisibility(ctx context.Context, id uuid.UUID) (*Capture, error)

	// Event operations
	CreateEvent(ctx context.Context, e *Event) error
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	GetEventByName(ctx context.Context, name string) (*Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error)
	ToggleEventVisibility(ctx context.Context, id uuid.UUID) (*Event, error)

	// Like operations. ToggleLike is a conditional insert-or-delete keyed on
	// the unique (capture_id, identity) pair.
	ToggleLike(ctx context.Context, captureID uuid.UUID, identity string) (liked bool, err error)
	HasLiked(ctx context.Context, captureID uuid.UUID, identity string) (bool, error)
	CountLikes(ctx context.Context, captureID uuid.UUID) (int, error)

	// Removal request operations. UpsertRemovalRequest treats an identical
	// (asset_path, email, description) submission as a resubmission and
	// returns the existing pending row.
	UpsertRemovalRequest(ctx context.Context, r *RemovalRequest) (*RemovalRequest, error)
	GetRemovalRequest(ctx context.Context, id uuid.UUID) (*RemovalRequest, error)
	ListRemovalRequests(ctx context.Context, status RemovalStatus) ([]*RemovalRequest, error)
	CountPendingRemovalRequests(ctx context.Context) (int, error)
	// ResolveRemovalRequest performs pending -> resolved and nothing else.
	ResolveRemovalRequest(ctx context.Context, id uuid.UUID) (*RemovalRequest, error)

	// Download log operations
	LogDownload(ctx context.Context, l *DownloadLog) error
}

// EventSink defines the interface for pipeline event handling. Sink failures
// are logged, never propagated to the caller.
type EventSink interface {
	// CaptureCreated is fired when a capture row is persisted
	CaptureCreated(ctx context.Context, c *Capture) error

	// CaptureModerated is fired on a state decision or visibility flip
	CaptureModerated(ctx context.Context, c *Capture) error

	// LikeToggled is fired after a successful like toggle
	LikeToggled(ctx context.Context, captureID uuid.UUID, identity string, liked bool) error

	// RemovalRequested is fired when a removal request is created or
	// resubmitted
	RemovalRequested(ctx context.Context, r *RemovalRequest) error

	// DownloadLogged is fired after a download is recorded
	DownloadLogged(ctx context.Context, l *DownloadLog) error
}
