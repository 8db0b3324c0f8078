// Package memory provides an in-memory implementation of capture.Repository
// for tests and local development. All maps are guarded by a single mutex so
// conditional mutations stay atomic under concurrent callers.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/incridea/capture-pipeline/pkg/capture"
)

type likeKey struct {
	captureID uuid.UUID
	identity  string
}

// Repository implements capture.Repository backed by process memory.
type Repository struct {
	mu              sync.Mutex
	captures        map[uuid.UUID]*capture.Capture
	events          map[uuid.UUID]*capture.Event
	likes           map[likeKey]time.Time
	removalRequests map[uuid.UUID]*capture.RemovalRequest
	downloads       []*capture.DownloadLog
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		captures:        make(map[uuid.UUID]*capture.Capture),
		events:          make(map[uuid.UUID]*capture.Event),
		likes:           make(map[likeKey]time.Time),
		removalRequests: make(map[uuid.UUID]*capture.RemovalRequest),
	}
}

// Capture operations

func (r *Repository) CreateCapture(ctx context.Context, c *capture.Capture) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.captures[c.ID]; exists {
		return fmt.Errorf("%w: capture %s already exists", capture.ErrConflict, c.ID)
	}
	cp := *c
	r.captures[c.ID] = &cp
	return nil
}

func (r *Repository) GetCapture(ctx context.Context, id uuid.UUID) (*capture.Capture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.captures[id]
	if !exists {
		return nil, capture.ErrCaptureNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *Repository) ListCaptures(ctx context.Context, filter capture.CaptureFilter) ([]*capture.Capture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*capture.Capture
	for _, c := range r.captures {
		if !r.matchesFilter(c, filter) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}

	// Newest first, matching gallery ordering
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) matchesFilter(c *capture.Capture, filter capture.CaptureFilter) bool {
	if !filter.AdminScope {
		if c.State != capture.CaptureStateApproved || c.Visibility != capture.VisibilityActive {
			return false
		}
	}
	if filter.EventName != "" && !capture.MatchesEventName(c.EventName, filter.EventName) {
		return false
	}
	if filter.EventCategory != "" && c.EventCategory != filter.EventCategory {
		return false
	}
	if filter.Day != "" {
		e := r.eventByNameLocked(c.EventName)
		if e == nil || string(e.Day) != filter.Day {
			return false
		}
	}
	return true
}

func (r *Repository) SetCaptureState(ctx context.Context, id uuid.UUID, from, to capture.CaptureState) (*capture.Capture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.captures[id]
	if !exists {
		return nil, capture.ErrCaptureNotFound
	}
	if c.State != from {
		return nil, fmt.Errorf("%w: capture %s is %s, expected %s",
			capture.ErrInvalidStateTransition, id, c.State, from)
	}

	c.State = to
	// Visibility is a separate axis. A rejected capture can never be shown,
	// so its visibility flag is forced off on the way out of pending.
	if to == capture.CaptureStateRejected {
		c.Visibility = capture.VisibilityInactive
	}
	c.UpdatedAt = time.Now().UTC()

	cp := *c
	return &cp, nil
}

func (r *Repository) ToggleCaptureVisibility(ctx context.Context, id uuid.UUID) (*capture.Capture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.captures[id]
	if !exists {
		return nil, capture.ErrCaptureNotFound
	}
	if c.State != capture.CaptureStateApproved {
		return nil, fmt.Errorf("%w: capture %s is %s", capture.ErrCaptureNotApproved, id, c.State)
	}

	c.Visibility = c.Visibility.Toggled()
	c.UpdatedAt = time.Now().UTC()

	cp := *c
	return &cp, nil
}

// Event operations

func (r *Repository) CreateEvent(ctx context.Context, e *capture.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.eventByNameLocked(e.Name); existing != nil {
		return fmt.Errorf("%w: event %q already exists", capture.ErrConflict, e.Name)
	}
	cp := *e
	r.events[e.ID] = &cp
	return nil
}

func (r *Repository) GetEvent(ctx context.Context, id uuid.UUID) (*capture.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.events[id]
	if !exists {
		return nil, capture.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *Repository) GetEventByName(ctx context.Context, name string) (*capture.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.eventByNameLocked(name)
	if e == nil {
		return nil, capture.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *Repository) eventByNameLocked(name string) *capture.Event {
	for _, e := range r.events {
		if strings.EqualFold(e.Name, name) {
			return e
		}
	}
	return nil
}

func (r *Repository) ListEvents(ctx context.Context, filter capture.EventFilter) ([]*capture.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*capture.Event
	for _, e := range r.events {
		if filter.Name != "" && !capture.MatchesEventName(e.Name, filter.Name) {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Day != "" && e.Day != filter.Day {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *Repository) ToggleEventVisibility(ctx context.Context, id uuid.UUID) (*capture.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.events[id]
	if !exists {
		return nil, capture.ErrEventNotFound
	}

	e.Visibility = e.Visibility.Toggled()
	e.UpdatedAt = time.Now().UTC()

	cp := *e
	return &cp, nil
}

// Like operations

func (r *Repository) ToggleLike(ctx context.Context, captureID uuid.UUID, identity string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.captures[captureID]; !exists {
		return false, capture.ErrCaptureNotFound
	}

	key := likeKey{captureID: captureID, identity: identity}
	if _, liked := r.likes[key]; liked {
		delete(r.likes, key)
		return false, nil
	}
	r.likes[key] = time.Now().UTC()
	return true, nil
}

func (r *Repository) HasLiked(ctx context.Context, captureID uuid.UUID, identity string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, liked := r.likes[likeKey{captureID: captureID, identity: identity}]
	return liked, nil
}

func (r *Repository) CountLikes(ctx context.Context, captureID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for key := range r.likes {
		if key.captureID == captureID {
			count++
		}
	}
	return count, nil
}

// Removal request operations

func (r *Repository) UpsertRemovalRequest(ctx context.Context, req *capture.RemovalRequest) (*capture.RemovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Identical resubmissions return the existing pending row untouched.
	for _, existing := range r.removalRequests {
		if existing.Status == capture.RemovalStatusPending &&
			existing.AssetPath == req.AssetPath &&
			strings.EqualFold(existing.Email, req.Email) &&
			existing.Description == req.Description {
			cp := *existing
			return &cp, nil
		}
	}

	cp := *req
	r.removalRequests[req.ID] = &cp
	out := cp
	return &out, nil
}

func (r *Repository) GetRemovalRequest(ctx context.Context, id uuid.UUID) (*capture.RemovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, exists := r.removalRequests[id]
	if !exists {
		return nil, capture.ErrRemovalRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *Repository) ListRemovalRequests(ctx context.Context, status capture.RemovalStatus) ([]*capture.RemovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*capture.RemovalRequest
	for _, req := range r.removalRequests {
		if status != "" && req.Status != status {
			continue
		}
		cp := *req
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) CountPendingRemovalRequests(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, req := range r.removalRequests {
		if req.Status == capture.RemovalStatusPending {
			count++
		}
	}
	return count, nil
}

func (r *Repository) ResolveRemovalRequest(ctx context.Context, id uuid.UUID) (*capture.RemovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, exists := r.removalRequests[id]
	if !exists {
		return nil, capture.ErrRemovalRequestNotFound
	}
	if req.Status != capture.RemovalStatusPending {
		return nil, fmt.Errorf("%w: removal request %s is already %s",
			capture.ErrInvalidStateTransition, id, req.Status)
	}

	req.Status = capture.RemovalStatusResolved
	req.UpdatedAt = time.Now().UTC()

	cp := *req
	return &cp, nil
}

// Download log operations

func (r *Repository) LogDownload(ctx context.Context, l *capture.DownloadLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *l
	r.downloads = append(r.downloads, &cp)
	return nil
}
