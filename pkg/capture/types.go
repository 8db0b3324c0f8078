package capture

import (
	"time"

	"github.com/google/uuid"
)

// CaptureState is the domain type for the moderation lifecycle of a capture.
type CaptureState string

// Capture state constants (typed).
const (
	CaptureStatePending  CaptureState = "pending"
	CaptureStateApproved CaptureState = "approved"
	CaptureStateRejected CaptureState = "rejected"
)

// IsValid reports whether s is a known capture state.
func (s CaptureState) IsValid() bool {
	switch s {
	case CaptureStatePending, CaptureStateApproved, CaptureStateRejected:
		return true
	}
	return false
}

// Visibility is the public-exposure flag, independent of the moderation
// state. Active is reachable only from the approved state.
type Visibility string

// Visibility constants (typed).
const (
	VisibilityActive   Visibility = "active"
	VisibilityInactive Visibility = "inactive"
)

// Toggled returns the opposite visibility.
func (v Visibility) Toggled() Visibility {
	if v == VisibilityActive {
		return VisibilityInactive
	}
	return VisibilityActive
}

// UploadType records how a capture entered the system (e.g. "direct",
// "smc", "story").
type UploadType string

const (
	UploadTypeDirect UploadType = "direct"
	UploadTypeSMC    UploadType = "smc"
	UploadTypeStory  UploadType = "story"
)

// EventType categorizes a gallery event.
type EventType string

const (
	EventTypeCore         EventType = "core"
	EventTypeTechnical    EventType = "technical"
	EventTypeNonTechnical EventType = "nontechnical"
	EventTypeSpecial      EventType = "special"
)

// IsValid reports whether t is a known event type.
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeCore, EventTypeTechnical, EventTypeNonTechnical, EventTypeSpecial:
		return true
	}
	return false
}

// EventDay is the festival day an event runs on.
type EventDay string

const (
	EventDay1 EventDay = "day1"
	EventDay2 EventDay = "day2"
	EventDay3 EventDay = "day3"
)

// IsValid reports whether d is a known event day.
func (d EventDay) IsValid() bool {
	switch d {
	case EventDay1, EventDay2, EventDay3:
		return true
	}
	return false
}

// RemovalStatus is the lifecycle of a removal request.
type RemovalStatus string

const (
	RemovalStatusPending  RemovalStatus = "pending"
	RemovalStatusResolved RemovalStatus = "resolved"
)

// AssetRef is a durable reference to one stored object: the backend object
// key, a resolvable URL, and the stored byte size. The pair of refs produced
// by ingestion is the identity the rest of the pipeline operates on.
type AssetRef struct {
	ObjectKey string `json:"object_key"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
}

// Capture is a moderated photo record with a linked original/compressed
// asset pair. It is created only once both asset references exist, mutated
// only through moderation operations, and never deleted by this pipeline.
type Capture struct {
	ID             uuid.UUID    `json:"id"`
	EventName      string       `json:"event_name"`
	EventCategory  string       `json:"event_category"`
	OriginalPath   string       `json:"original_path"`
	CompressedPath string       `json:"compressed_path"`
	ThumbnailPath  string       `json:"thumbnail_path,omitempty"`
	UploadType     UploadType   `json:"upload_type"`
	State          CaptureState `json:"state"`
	Visibility     Visibility   `json:"visibility"`
	AuthorID       uuid.UUID    `json:"author_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Event represents gallery event metadata. Its visibility gates whether the
// event's capture page is reachable; it uses the same toggle semantics as
// capture visibility.
type Event struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        EventType  `json:"type"`
	Day         EventDay   `json:"day"`
	Visibility  Visibility `json:"visibility"`
	ImagePath   string     `json:"image_path"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Like is one (capture, identity) membership pair. Existence of the pair
// means "liked"; there is no counter column anywhere.
type Like struct {
	CaptureID uuid.UUID `json:"capture_id"`
	Identity  string    `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Liked bool `json:"liked"`
	Total int  `json:"total"`
}

// RemovalRequest is a takedown inquiry against an asset path. It carries a
// free-form pointer to the asset, not a capture id: a human moderator
// resolves it, and resolution never touches the capture's stored assets.
type RemovalRequest struct {
	ID          uuid.UUID     `json:"id"`
	AssetPath   string        `json:"asset_path"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Description string        `json:"description"`
	IDCardPath  string        `json:"idcard_path"`
	Status      RemovalStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// DownloadLog is one append-only record of an asset download.
type DownloadLog struct {
	ID        uuid.UUID `json:"id"`
	AssetPath string    `json:"asset_path"`
	Identity  string    `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
}

// CaptureFilter selects captures for listing. Public scope returns only
// active captures; admin scope returns everything regardless of state.
// EventName is matched case-insensitively as a substring after hyphen->space
// normalization; EventCategory and Day are exact matches.
type CaptureFilter struct {
	EventName     string
	EventCategory string
	Day           string
	AdminScope    bool
}

// EventFilter selects events for admin listing.
type EventFilter struct {
	Name string
	Type EventType
	Day  EventDay
}
