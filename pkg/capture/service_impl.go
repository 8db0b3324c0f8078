package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	repository     Repository
	blobStores     map[string]BlobStore
	defaultBackend string
	eventSink      EventSink
	validate       *validator.Validate
	persistTimeout time.Duration
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend. The first backend registered
// becomes the default for asset URL resolution.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		if len(s.blobStores) == 0 {
			s.defaultBackend = name
		}
		s.blobStores[name] = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithPersistenceTimeout bounds every repository call made by the service.
func WithPersistenceTimeout(d time.Duration) Option {
	return func(s *service) {
		s.persistTimeout = d
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores:     make(map[string]BlobStore),
		validate:       validator.New(),
		persistTimeout: 5 * time.Second,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

// boundCtx derives a deadline-bounded context for one persistence call.
func (s *service) boundCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.persistTimeout)
}

// mapTimeout converts a deadline expiry into the pipeline's timeout error.
func mapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrPersistenceTimeout, err)
	}
	return err
}

// Capture registry operations

func (s *service) CreateCapture(ctx context.Context, req CreateCaptureRequest) (*Capture, error) {
	if req.OriginalPath == "" || req.CompressedPath == "" {
		return nil, fmt.Errorf("%w: both asset references are required before a capture can be registered", ErrValidation)
	}
	if req.EventName == "" {
		return nil, fmt.Errorf("%w: event name is required", ErrValidation)
	}

	now := time.Now().UTC()
	c := &Capture{
		ID:             uuid.New(),
		EventName:      req.EventName,
		EventCategory:  req.EventCategory,
		OriginalPath:   req.OriginalPath,
		CompressedPath: req.CompressedPath,
		ThumbnailPath:  req.ThumbnailPath,
		UploadType:     req.UploadType,
		State:          CaptureStatePending,
		Visibility:     VisibilityInactive,
		AuthorID:       req.AuthorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if c.UploadType == "" {
		c.UploadType = UploadTypeDirect
	}

	bctx, cancel := s.boundCtx(ctx)
	defer cancel()
	if err := s.repository.CreateCapture(bctx, c); err != nil {
		return nil, &CaptureError{CaptureID: c.ID, Op: "create", Err: mapTimeout(err)}
	}

	if s.eventSink != nil {
		_ = s.eventSink.CaptureCreated(ctx, c)
	}

	return c, nil
}

// GetCapture returns a single capture. Callers without the captures
// capability only see active approved captures; anything still in moderation
// reads as not found, the same as the public listing.
func (s *service) GetCapture(ctx context.Context, caller Identity, id uuid.UUID) (*Capture, error) {
	c, err := s.repository.GetCapture(ctx, id)
	if err != nil {
		return nil, err
	}
	public := c.State == CaptureStateApproved && c.Visibility == VisibilityActive
	if !public && !caller.Can(CapCaptures) {
		return nil, fmt.Errorf("%w: %s", ErrCaptureNotFound, id)
	}
	return c, nil
}

func (s *service) ListCaptures(ctx context.Context, req ListCapturesRequest) ([]*Capture, error) {
	filter := req.Filter
	if filter.AdminScope && !req.Caller.Can(CapCaptures) {
		return nil, fmt.Errorf("%w: admin capture listing requires the captures capability", ErrNotAuthorized)
	}
	filter.EventName = NormalizeEventName(filter.EventName)

	bctx, cancel := s.boundCtx(ctx)
	defer cancel()
	captures, err := s.repository.ListCaptures(bctx, filter)
	if err != nil {
		return nil, mapTimeout(err)
	}
	return captures, nil
}

// Moderation operations

func (s *service) ApproveCapture(ctx context.Context, caller Identity, id uuid.UUID) (*Capture, error) {
	return s.decideCapture(ctx, caller, id, CaptureStateApproved)
}

func (s *service) RejectCapture(ctx context.Context, caller Identity, id uuid.UUID) (*Capture, error) {
	return s.decideCapture(ctx, caller, id, CaptureStateRejected)
}

func (s *service) decideCapture(ctx context.Context, caller Identity, id uuid.UUID, to CaptureState) (*Capture, error) {
	if !caller.Can(CapApproveCaptures) {
		return nil, fmt.Errorf("%w: deciding a capture requires the approve-captures capability", ErrNotAuthorized)
	}

	bctx, cancel := s.boundCtx(ctx)
	defer cancel()
	c, err := s.repository.SetCaptureState(bctx, id, CaptureStatePending, to)
	if err != nil {
		return nil, &CaptureError{CaptureID: id, Op: "decide", Err: mapTimeout(err)}
	}

	if s.eventSink != nil {
		_ = s.eventSink.CaptureModerated(ctx, c)
	}

	return c, nil
}

func (s *service) ToggleCaptureVisibility(ctx context.Context, caller Identity, id uuid.UUID) (*Capture, error) {
	if !caller.Can(CapCaptures) {
		return nil, fmt.Errorf("%w: toggling capture visibility requires the captures capability", ErrNotAuthorized)
	}

	bctx, cancel := s.boundCtx(ctx)
	defer cancel()
	c, err := s.repository.ToggleCaptureVisibility(bctx, id)
	if err != nil {
		return nil, &CaptureError{CaptureID: id, Op: "toggle_visibility", Err: mapTimeout(err)}
	}

	if s.eventSink != nil {
		_ = s.eventSink.CaptureModerated(ctx, c)
	}

	return c, nil
}

// Event registry operations

func (s *service) CreateEvent(ctx context.Context, caller Identity, req CreateEventRequest) (*Event, error) {
	if !caller.Can(CapEvents) {
		return nil, fmt.Errorf("%w: creating an event requires the events capability", ErrNotAuthorized)
	}
	if req.Name == "" || req.Description == "" {
		return nil, fmt.Errorf("%w: event name and description are required", ErrValidation)
	}
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrValidation, req.Type)
	}
	if !req.Day.IsValid() {
		return nil, fmt.Errorf("%w: unknown event day %q", ErrValidation, req.Day)
	}

	now := time.Now().UTC()
	e := &Event{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Day:         req.Day,
		Visibility:  VisibilityInactive,
		ImagePath:   req.ImagePath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	bctx, cancel := s.boundCtx(ctx)
	defer cancel()
	if err := s.repository.CreateEvent(bctx, e); err != nil {
		return nil, mapTimeout(err)
	}

	return e, nil
}

func (s *service) GetEventByName(ctx context.Context, name string) (*Event, error) {
	return s.repository.GetEventByName(ctx, NormalizeEventName(name))
}

func (s *service) ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error) {
	return s.repository.ListEvents(ctx, filter)
}

func (s *service) ToggleEventVisibility(ctx context.Context, caller Identity, id uuid.UUID) (*Event, error) {
	if !caller.Can(CapEvents) {
		return nil, fmt.Errorf("%w: toggling event visibility requires the events capability", ErrNotAuthorized)
	}

	bctx, cancel := s.boundCtx(ctx)
	defer cancel()
	e, err := s.repository.ToggleEventVisibility(bctx, id)
	if err != nil {
		return nil, mapTimeout(err)
	}
	return e, nil
}

// Engagement ledger operations

func (s *service) ToggleLike(ctx context.Context, captureID uuid.UUID, caller Identity) (*LikeResult, error) {
	key := caller.Key()
	if key == "anon:" {
		return nil, fmt.Errorf("%w: an identity token is required to like a capture", ErrValidation)
	}

	bctx, cancel := s.boundCtx(ctx)
	defer cancel()
	liked, err := s.repository.ToggleLike(bctx, captureID, key)
	if err != nil {
		return nil, &CaptureError{CaptureID: captureID, Op: "toggle_like", Err: mapTimeout(err)}
	}

	total, err := s.repository.CountLikes(bctx, captureID)
	if err != nil {
		return nil, &CaptureError{CaptureID: captureID, Op: "count_likes", Err: mapTimeout(err)}
	}

	if s.eventSink != nil {
		_ = s.eventSink.LikeToggled(ctx, captureID, key, liked)
	}

	return &LikeResult{Liked: liked, Total: total}, nil
}

func (s *service) HasLiked(ctx context.Context, captureID uuid.UUID, caller Identity) (bool, error) {
	return s.repository.HasLiked(ctx, captureID, caller.Key())
}

func (s *service) GetTotalLikes(ctx context.Context, captureID uuid.UUID) (int, error) {
	return s.repository.CountLikes(ctx, captureID)
}

// Removal request workflow

func (s *service) SubmitRemovalRequest(ctx context.Context, req SubmitRemovalRequest) (*RemovalRequest, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := time.Now().UTC()
	r := &RemovalRequest{
		ID:          uuid.New(),
		AssetPath:   req.AssetPath,
		Name:        req.Name,
		Email:       req.Email,
		Description: req.Description,
		IDCardPath:  req.IDCardPath,
		Status:      RemovalStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	bctx, cancel := s.boundCtx(ctx)
	defer cancel()
	stored, err := s.repository.UpsertRemovalRequest(bctx, r)
	if err != nil {
		return nil, mapTimeout(err)
	}

	if s.eventSink != nil {
		_ = s.eventSink.RemovalRequested(ctx, stored)
	}

	return stored, nil
}

func (s *service) GetPendingRemovalCount(ctx context.Context, caller Identity) (int, error) {
	if !caller.Can(CapRemovalRequests) {
		return 0, fmt.Errorf("%w: the pending badge requires the removal-requests capability", ErrNotAuthorized)
	}
	return s.repository.CountPendingRemovalRequests(ctx)
}

func (s *service) ListRemovalRequests(ctx context.Context, caller Identity, status RemovalStatus) ([]*RemovalRequest, error) {
	if !caller.Can(CapRemovalRequests) {
		return nil, fmt.Errorf("%w: listing removal requests requires the removal-requests capability", ErrNotAuthorized)
	}
	return s.repository.ListRemovalRequests(ctx, status)
}

func (s *service) ResolveRemovalRequest(ctx context.Context, caller Identity, id uuid.UUID) (*RemovalRequest, error) {
	if !caller.Can(CapRemovalRequests) {
		return nil, fmt.Errorf("%w: resolving a removal request requires the removal-requests capability", ErrNotAuthorized)
	}

	// Resolution closes the request and nothing else: the referenced
	// capture's assets and visibility are untouched.
	bctx, cancel := s.boundCtx(ctx)
	defer cancel()
	r, err := s.repository.ResolveRemovalRequest(bctx, id)
	if err != nil {
		return nil, mapTimeout(err)
	}
	return r, nil
}

// Download logging

func (s *service) LogDownload(ctx context.Context, req LogDownloadRequest) error {
	if req.AssetPath == "" {
		return fmt.Errorf("%w: asset path is required", ErrValidation)
	}

	l := &DownloadLog{
		ID:        uuid.New(),
		AssetPath: req.AssetPath,
		Identity:  req.Caller.Key(),
		CreatedAt: time.Now().UTC(),
	}

	bctx, cancel := s.boundCtx(ctx)
	defer cancel()
	if err := s.repository.LogDownload(bctx, l); err != nil {
		return mapTimeout(err)
	}

	if s.eventSink != nil {
		_ = s.eventSink.DownloadLogged(ctx, l)
	}

	return nil
}

// Asset URL resolution

func (s *service) GetAssetURL(ctx context.Context, objectKey, downloadFilename string) (string, error) {
	store, ok := s.blobStores[s.defaultBackend]
	if !ok {
		return "", fmt.Errorf("no storage backend registered")
	}
	url, err := store.GetDownloadURL(ctx, objectKey, downloadFilename)
	if err != nil {
		return "", &StorageError{Backend: s.defaultBackend, Key: objectKey, Op: "get_download_url", Err: err}
	}
	return url, nil
}
