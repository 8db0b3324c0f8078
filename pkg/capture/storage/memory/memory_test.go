package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incridea/capture-pipeline/pkg/capture/storage/memory"
)

func TestMemoryBackend(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	t.Run("upload and download round trip", func(t *testing.T) {
		err := backend.Upload(ctx, "uploads/a.jpeg", strings.NewReader("image bytes"), "image/jpeg")
		require.NoError(t, err)

		rc, err := backend.Download(ctx, "uploads/a.jpeg")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "image bytes", string(data))
	})

	t.Run("metadata reflects stored bytes", func(t *testing.T) {
		meta, err := backend.GetObjectMeta(ctx, "uploads/a.jpeg")
		require.NoError(t, err)
		assert.Equal(t, int64(len("image bytes")), meta.Size)
		assert.Equal(t, "image/jpeg", meta.ContentType)
	})

	t.Run("empty mime type defaults to octet-stream", func(t *testing.T) {
		err := backend.Upload(ctx, "uploads/b.bin", strings.NewReader("x"), "")
		require.NoError(t, err)

		meta, err := backend.GetObjectMeta(ctx, "uploads/b.bin")
		require.NoError(t, err)
		assert.Equal(t, "application/octet-stream", meta.ContentType)
	})

	t.Run("download url identifies the object", func(t *testing.T) {
		url, err := backend.GetDownloadURL(ctx, "uploads/a.jpeg", "party.jpeg")
		require.NoError(t, err)
		assert.Equal(t, "memory://uploads/a.jpeg", url)
	})

	t.Run("missing objects error", func(t *testing.T) {
		_, err := backend.Download(ctx, "missing")
		assert.Error(t, err)

		_, err = backend.GetObjectMeta(ctx, "missing")
		assert.Error(t, err)

		err = backend.Delete(ctx, "missing")
		assert.Error(t, err)
	})

	t.Run("delete removes the object", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, "uploads/a.jpeg"))
		_, err := backend.Download(ctx, "uploads/a.jpeg")
		assert.Error(t, err)
	})
}
