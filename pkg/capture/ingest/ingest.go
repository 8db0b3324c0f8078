// Package ingest derives the compressed companion and optional thumbnail for
// an uploaded capture asset and writes all variants to blob storage.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"github.com/incridea/capture-pipeline/pkg/capture"
)

const (
	defaultQuality       = 85
	defaultThumbnailSize = 400
	defaultUploadTimeout = 30 * time.Second
)

// Result holds the stored asset references for one ingested capture.
// Original always points at the variant with the larger byte count.
type Result struct {
	Original   capture.AssetRef
	Compressed capture.AssetRef
	Thumbnail  *capture.AssetRef
}

// Ingestor decodes uploads, derives variants, and stores them.
type Ingestor struct {
	store         capture.BlobStore
	quality       int
	thumbnailSize int
	thumbnails    bool
	uploadTimeout time.Duration
	logger        *slog.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithQuality sets the JPEG quality used for the compressed companion.
func WithQuality(q int) Option {
	return func(i *Ingestor) { i.quality = q }
}

// WithThumbnails enables thumbnail derivation at the given bounding size.
func WithThumbnails(size int) Option {
	return func(i *Ingestor) {
		i.thumbnails = true
		if size > 0 {
			i.thumbnailSize = size
		}
	}
}

// WithUploadTimeout bounds the combined storage writes for one ingest.
func WithUploadTimeout(d time.Duration) Option {
	return func(i *Ingestor) { i.uploadTimeout = d }
}

// WithLogger sets the logger used for non-fatal derivation failures.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingestor) { i.logger = logger }
}

// New creates an Ingestor writing to the given blob store.
func New(store capture.BlobStore, options ...Option) (*Ingestor, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	i := &Ingestor{
		store:         store,
		quality:       defaultQuality,
		thumbnailSize: defaultThumbnailSize,
		uploadTimeout: defaultUploadTimeout,
		logger:        slog.Default(),
	}
	for _, option := range options {
		option(i)
	}
	return i, nil
}

// Ingest decodes the uploaded bytes, derives the compressed companion at the
// source dimensions, uploads both variants concurrently, and picks the larger
// byte count as the canonical original once both sizes are known.
func (i *Ingestor) Ingest(ctx context.Context, fileName string, data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, &capture.IngestError{FileName: fileName, Op: "decode",
			Err: fmt.Errorf("%w: empty upload", capture.ErrValidation)}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &capture.IngestError{FileName: fileName, Op: "decode",
			Err: fmt.Errorf("%w: %v", capture.ErrAssetDecode, err)}
	}

	var compressed bytes.Buffer
	if err := jpeg.Encode(&compressed, img, &jpeg.Options{Quality: i.quality}); err != nil {
		return nil, &capture.IngestError{FileName: fileName, Op: "encode",
			Err: fmt.Errorf("%w: %v", capture.ErrAssetDecode, err)}
	}

	id := uuid.New()
	uploadKey := fmt.Sprintf("uploads/%s%s", id, extensionFor(fileName, format))
	compressedKey := fmt.Sprintf("compressed/%s.jpeg", id)

	ctx, cancel := context.WithTimeout(ctx, i.uploadTimeout)
	defer cancel()

	uploadRef := capture.AssetRef{ObjectKey: uploadKey, SizeBytes: int64(len(data))}
	compressedRef := capture.AssetRef{ObjectKey: compressedKey, SizeBytes: int64(compressed.Len())}

	var wg sync.WaitGroup
	var uploadErr, compressErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		uploadErr = i.upload(ctx, uploadKey, data, mimeFor(format))
	}()
	go func() {
		defer wg.Done()
		compressErr = i.upload(ctx, compressedKey, compressed.Bytes(), "image/jpeg")
	}()
	wg.Wait()

	if uploadErr != nil {
		return nil, &capture.IngestError{FileName: fileName, Op: "upload", Err: uploadErr}
	}
	if compressErr != nil {
		return nil, &capture.IngestError{FileName: fileName, Op: "upload", Err: compressErr}
	}

	result := &Result{Original: uploadRef, Compressed: compressedRef}
	// Re-encoding can inflate small or already-optimized sources. The larger
	// variant is the canonical original regardless of which branch wrote it.
	if result.Original.SizeBytes < result.Compressed.SizeBytes {
		result.Original, result.Compressed = result.Compressed, result.Original
	}

	if i.thumbnails {
		if ref, err := i.deriveThumbnail(ctx, id, img); err != nil {
			i.logger.WarnContext(ctx, "thumbnail derivation failed",
				"file", fileName, "error", err)
		} else {
			result.Thumbnail = ref
		}
	}

	return result, nil
}

// deriveThumbnail is best effort; a failure never blocks ingestion.
func (i *Ingestor) deriveThumbnail(ctx context.Context, id uuid.UUID, img image.Image) (*capture.AssetRef, error) {
	thumb := resize.Thumbnail(uint(i.thumbnailSize), uint(i.thumbnailSize), img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("thumbnails/%s.jpeg", id)
	if err := i.upload(ctx, key, buf.Bytes(), "image/jpeg"); err != nil {
		return nil, err
	}
	return &capture.AssetRef{ObjectKey: key, SizeBytes: int64(buf.Len())}, nil
}

func (i *Ingestor) upload(ctx context.Context, key string, data []byte, mimeType string) error {
	if err := i.store.Upload(ctx, key, bytes.NewReader(data), mimeType); err != nil {
		return fmt.Errorf("%w: store %q: %v", capture.ErrUploadTransport, key, err)
	}
	return nil
}

func extensionFor(fileName, format string) string {
	if ext := strings.ToLower(path.Ext(fileName)); ext != "" {
		return ext
	}
	return "." + format
}

func mimeFor(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
