package capture

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface of the capture pipeline.
type Service interface {
	// Capture registry operations
	CreateCapture(ctx context.Context, req CreateCaptureRequest) (*Capture, error)
	GetCapture(ctx context.Context, caller Identity, id uuid.UUID) (*Capture, error)
	ListCaptures(ctx context.Context, req ListCapturesRequest) ([]*Capture, error)

	// Moderation operations (capability-gated)
	ApproveCapture(ctx context.Context, caller Identity, id uuid.UUID) (*Capture, error)
	RejectCapture(ctx context.Context, caller Identity, id uuid.UUID) (*Capture, error)
	ToggleCaptureVisibility(ctx context.Context, caller Identity, id uuid.UUID) (*Capture, error)

	// Event registry operations
	CreateEvent(ctx context.Context, caller Identity, req CreateEventRequest) (*Event, error)
	GetEventByName(ctx context.Context, name string) (*Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error)
	ToggleEventVisibility(ctx context.Context, caller Identity, id uuid.UUID) (*Event, error)

	// Engagement ledger operations
	ToggleLike(ctx context.Context, captureID uuid.UUID, caller Identity) (*LikeResult, error)
	HasLiked(ctx context.Context, captureID uuid.UUID, caller Identity) (bool, error)
	GetTotalLikes(ctx context.Context, captureID uuid.UUID) (int, error)

	// Removal request workflow
	SubmitRemovalRequest(ctx context.Context, req SubmitRemovalRequest) (*RemovalRequest, error)
	GetPendingRemovalCount(ctx context.Context, caller Identity) (int, error)
	ListRemovalRequests(ctx context.Context, caller Identity, status RemovalStatus) ([]*RemovalRequest, error)
	ResolveRemovalRequest(ctx context.Context, caller Identity, id uuid.UUID) (*RemovalRequest, error)

	// Download logging
	LogDownload(ctx context.Context, req LogDownloadRequest) error

	// Asset URL resolution
	GetAssetURL(ctx context.Context, objectKey, downloadFilename string) (string, error)
}
