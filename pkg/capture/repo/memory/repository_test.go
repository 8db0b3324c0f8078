package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incridea/capture-pipeline/pkg/capture"
	"github.com/incridea/capture-pipeline/pkg/capture/repo/memory"
)

func newCapture(state capture.CaptureState) *capture.Capture {
	now := time.Now().UTC()
	return &capture.Capture{
		ID:             uuid.New(),
		EventName:      "robo wars",
		EventCategory:  "pronight",
		OriginalPath:   "uploads/a.jpeg",
		CompressedPath: "compressed/a.jpeg",
		UploadType:     capture.UploadTypeDirect,
		State:          state,
		Visibility:     capture.VisibilityInactive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestSetCaptureState(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	c := newCapture(capture.CaptureStatePending)
	require.NoError(t, repo.CreateCapture(ctx, c))

	t.Run("guarded transition applies once", func(t *testing.T) {
		got, err := repo.SetCaptureState(ctx, c.ID, capture.CaptureStatePending, capture.CaptureStateApproved)
		require.NoError(t, err)
		assert.Equal(t, capture.CaptureStateApproved, got.State)

		_, err = repo.SetCaptureState(ctx, c.ID, capture.CaptureStatePending, capture.CaptureStateApproved)
		assert.ErrorIs(t, err, capture.ErrInvalidStateTransition)
	})

	t.Run("rejection clears visibility", func(t *testing.T) {
		r := newCapture(capture.CaptureStatePending)
		r.Visibility = capture.VisibilityActive
		require.NoError(t, repo.CreateCapture(ctx, r))

		got, err := repo.SetCaptureState(ctx, r.ID, capture.CaptureStatePending, capture.CaptureStateRejected)
		require.NoError(t, err)
		assert.Equal(t, capture.VisibilityInactive, got.Visibility)
	})
}

func TestConcurrentVisibilityToggles(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	c := newCapture(capture.CaptureStateApproved)
	require.NoError(t, repo.CreateCapture(ctx, c))

	// An even number of toggles must land back where it started no matter
	// how the goroutines interleave.
	const toggles = 10
	var wg sync.WaitGroup
	wg.Add(toggles)
	for i := 0; i < toggles; i++ {
		go func() {
			defer wg.Done()
			_, err := repo.ToggleCaptureVisibility(ctx, c.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetCapture(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, capture.VisibilityInactive, got.Visibility)
}

func TestConcurrentLikeToggles(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	c := newCapture(capture.CaptureStateApproved)
	require.NoError(t, repo.CreateCapture(ctx, c))

	// Distinct identities toggling once each: every pair must exist exactly
	// once afterwards.
	const likers = 20
	var wg sync.WaitGroup
	wg.Add(likers)
	for i := 0; i < likers; i++ {
		identity := "anon:tok-" + uuid.New().String()
		go func() {
			defer wg.Done()
			liked, err := repo.ToggleLike(ctx, c.ID, identity)
			assert.NoError(t, err)
			assert.True(t, liked)
		}()
	}
	wg.Wait()

	count, err := repo.CountLikes(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, likers, count)
}

func TestListCapturesDayFilter(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.CreateEvent(ctx, &capture.Event{
		ID: uuid.New(), Name: "robo wars", Type: capture.EventTypeTechnical,
		Day: capture.EventDay2, Visibility: capture.VisibilityActive,
		CreatedAt: now, UpdatedAt: now,
	}))

	c := newCapture(capture.CaptureStatePending)
	require.NoError(t, repo.CreateCapture(ctx, c))

	day2, err := repo.ListCaptures(ctx, capture.CaptureFilter{AdminScope: true, Day: "day2"})
	require.NoError(t, err)
	assert.Len(t, day2, 1)

	day1, err := repo.ListCaptures(ctx, capture.CaptureFilter{AdminScope: true, Day: "day1"})
	require.NoError(t, err)
	assert.Empty(t, day1)
}

func TestUpsertRemovalRequest(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	base := func() *capture.RemovalRequest {
		now := time.Now().UTC()
		return &capture.RemovalRequest{
			ID:          uuid.New(),
			AssetPath:   "uploads/a.jpeg",
			Name:        "A Visitor",
			Email:       "Visitor@Example.com",
			Description: "please remove",
			IDCardPath:  "idcards/a.jpeg",
			Status:      capture.RemovalStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	first, err := repo.UpsertRemovalRequest(ctx, base())
	require.NoError(t, err)

	t.Run("email comparison is case-insensitive", func(t *testing.T) {
		dup := base()
		dup.Email = "visitor@example.com"
		got, err := repo.UpsertRemovalRequest(ctx, dup)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
	})

	t.Run("a resolved request does not block resubmission", func(t *testing.T) {
		_, err := repo.ResolveRemovalRequest(ctx, first.ID)
		require.NoError(t, err)

		again, err := repo.UpsertRemovalRequest(ctx, base())
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, again.ID)
		assert.Equal(t, capture.RemovalStatusPending, again.Status)
	})
}
