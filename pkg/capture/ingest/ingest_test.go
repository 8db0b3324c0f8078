package ingest_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incridea/capture-pipeline/pkg/capture"
	"github.com/incridea/capture-pipeline/pkg/capture/ingest"
	memorystorage "github.com/incridea/capture-pipeline/pkg/capture/storage/memory"
)

func testImageJPEG(t *testing.T, width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: uint8((x + y) % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func testImagePNG(t *testing.T, width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIngest(t *testing.T) {
	store := memorystorage.New()
	ing, err := ingest.New(store)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("both variants are stored and the larger is the original", func(t *testing.T) {
		data := testImageJPEG(t, 200, 120)

		result, err := ing.Ingest(ctx, "party.jpeg", data)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, result.Original.SizeBytes, result.Compressed.SizeBytes)

		origMeta, err := store.GetObjectMeta(ctx, result.Original.ObjectKey)
		require.NoError(t, err)
		assert.Equal(t, result.Original.SizeBytes, origMeta.Size)

		compMeta, err := store.GetObjectMeta(ctx, result.Compressed.ObjectKey)
		require.NoError(t, err)
		assert.Equal(t, result.Compressed.SizeBytes, compMeta.Size)
	})

	t.Run("png uploads get a jpeg companion", func(t *testing.T) {
		data := testImagePNG(t, 64, 64)

		result, err := ing.Ingest(ctx, "shot.png", data)
		require.NoError(t, err)

		// The size tiebreak may promote the jpeg re-encode to original, so
		// locate each variant by its key rather than by role.
		jpegRef, pngRef := result.Compressed, result.Original
		if !strings.HasPrefix(jpegRef.ObjectKey, "compressed/") {
			jpegRef, pngRef = pngRef, jpegRef
		}

		meta, err := store.GetObjectMeta(ctx, jpegRef.ObjectKey)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", meta.ContentType)

		meta, err = store.GetObjectMeta(ctx, pngRef.ObjectKey)
		require.NoError(t, err)
		assert.Equal(t, "image/png", meta.ContentType)
	})

	t.Run("re-encoding that inflates a tiny image still yields the larger as original", func(t *testing.T) {
		// A flat single-color PNG compresses far below its JPEG re-encode.
		data := testImagePNG(t, 16, 16)

		result, err := ing.Ingest(ctx, "tiny.png", data)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Original.SizeBytes, result.Compressed.SizeBytes)
		assert.True(t, strings.HasPrefix(result.Original.ObjectKey, "compressed/"),
			"the inflated re-encode should take the original role")
	})

	t.Run("undecodable bytes fail with a decode error", func(t *testing.T) {
		_, err := ing.Ingest(ctx, "junk.jpeg", []byte("not an image at all"))
		assert.ErrorIs(t, err, capture.ErrAssetDecode)

		var ingErr *capture.IngestError
		assert.ErrorAs(t, err, &ingErr)
		assert.Equal(t, "junk.jpeg", ingErr.FileName)
	})

	t.Run("empty upload fails validation", func(t *testing.T) {
		_, err := ing.Ingest(ctx, "empty.jpeg", nil)
		assert.ErrorIs(t, err, capture.ErrValidation)
	})
}

func TestIngestThumbnails(t *testing.T) {
	store := memorystorage.New()
	ing, err := ingest.New(store, ingest.WithThumbnails(100))
	require.NoError(t, err)

	result, err := ing.Ingest(context.Background(), "full.jpeg", testImageJPEG(t, 400, 300))
	require.NoError(t, err)

	require.NotNil(t, result.Thumbnail)
	meta, err := store.GetObjectMeta(context.Background(), result.Thumbnail.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, result.Thumbnail.SizeBytes, meta.Size)

	// The thumbnail must fit the bounding box.
	rc, err := store.Download(context.Background(), result.Thumbnail.ObjectKey)
	require.NoError(t, err)
	defer rc.Close()
	img, _, err := image.Decode(rc)
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), 100)
	assert.LessOrEqual(t, img.Bounds().Dy(), 100)
}

func TestIngestRequiresStore(t *testing.T) {
	_, err := ingest.New(nil)
	assert.Error(t, err)
}
