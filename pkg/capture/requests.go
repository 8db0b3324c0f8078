package capture

import "github.com/google/uuid"

// Request/Response DTOs

// CreateCaptureRequest contains parameters for registering a freshly
// ingested capture. Both asset paths must already exist in storage; the
// registry never creates half-ingested rows.
type CreateCaptureRequest struct {
	EventName      string
	EventCategory  string
	OriginalPath   string
	CompressedPath string
	ThumbnailPath  string
	UploadType     UploadType
	AuthorID       uuid.UUID
}

// ListCapturesRequest contains parameters for listing captures.
type ListCapturesRequest struct {
	Filter CaptureFilter
	Caller Identity
}

// CreateEventRequest contains parameters for creating an event.
type CreateEventRequest struct {
	Name        string
	Description string
	Type        EventType
	Day         EventDay
	ImagePath   string
}

// SubmitRemovalRequest contains the fields of a takedown inquiry. All
// fields are required; IDCardPath is the uploaded proof-of-identity asset.
type SubmitRemovalRequest struct {
	Name        string `validate:"required"`
	Email       string `validate:"required,email"`
	Description string `validate:"required"`
	IDCardPath  string `validate:"required"`
	AssetPath   string `validate:"required"`
}

// LogDownloadRequest records one asset download by one identity.
type LogDownloadRequest struct {
	AssetPath string
	Caller    Identity
}
