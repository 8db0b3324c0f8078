package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/incridea/capture-pipeline/pkg/capture"
)

// Backend is an in-memory implementation of the capture.BlobStore interface.
// Intended for tests and local development.
type Backend struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	mimeTypes map[string]string
	updatedAt map[string]time.Time
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects:   make(map[string][]byte),
		mimeTypes: make(map[string]string),
		updatedAt: make(map[string]time.Time),
	}
}

// Upload stores the object bytes under the given key
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader, mimeType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	b.mimeTypes[objectKey] = mimeType
	b.updatedAt[objectKey] = time.Now().UTC()
	return nil
}

// Download returns the stored object bytes
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, &capture.StorageError{Backend: "memory", Key: objectKey, Op: "download",
			Err: fmt.Errorf("object not found")}
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the object
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return &capture.StorageError{Backend: "memory", Key: objectKey, Op: "delete",
			Err: fmt.Errorf("object not found")}
	}

	delete(b.objects, objectKey)
	delete(b.mimeTypes, objectKey)
	delete(b.updatedAt, objectKey)
	return nil
}

// GetObjectMeta retrieves metadata for a stored object
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*capture.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, &capture.StorageError{Backend: "memory", Key: objectKey, Op: "meta",
			Err: fmt.Errorf("object not found")}
	}

	return &capture.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: b.mimeTypes[objectKey],
		UpdatedAt:   b.updatedAt[objectKey],
	}, nil
}

// GetDownloadURL returns a synthetic URL. The memory backend serves bytes
// directly, so the URL only identifies the object for callers that log it.
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, exists := b.objects[objectKey]; !exists {
		return "", &capture.StorageError{Backend: "memory", Key: objectKey, Op: "get_download_url",
			Err: fmt.Errorf("object not found")}
	}
	return "memory://" + objectKey, nil
}
