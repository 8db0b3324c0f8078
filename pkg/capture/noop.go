package capture

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
// Useful for production when you don't need event handling or for testing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// CaptureCreated does nothing and returns nil
func (n *NoopEventSink) CaptureCreated(ctx context.Context, c *Capture) error {
	return nil
}

// CaptureModerated does nothing and returns nil
func (n *NoopEventSink) CaptureModerated(ctx context.Context, c *Capture) error {
	return nil
}

// LikeToggled does nothing and returns nil
func (n *NoopEventSink) LikeToggled(ctx context.Context, captureID uuid.UUID, identity string, liked bool) error {
	return nil
}

// RemovalRequested does nothing and returns nil
func (n *NoopEventSink) RemovalRequested(ctx context.Context, r *RemovalRequest) error {
	return nil
}

// DownloadLogged does nothing and returns nil
func (n *NoopEventSink) DownloadLogged(ctx context.Context, l *DownloadLog) error {
	return nil
}

// LoggingEventSink is an event sink that logs events but takes no other action
// Useful for development and debugging
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

// CaptureCreated logs the capture registration event
func (l *LoggingEventSink) CaptureCreated(ctx context.Context, c *Capture) error {
	l.logger.InfoContext(ctx, "capture created",
		"capture_id", c.ID, "event", c.EventName, "upload_type", c.UploadType)
	return nil
}

// CaptureModerated logs the moderation decision or visibility change
func (l *LoggingEventSink) CaptureModerated(ctx context.Context, c *Capture) error {
	l.logger.InfoContext(ctx, "capture moderated",
		"capture_id", c.ID, "state", c.State, "visibility", c.Visibility)
	return nil
}

// LikeToggled logs the like toggle event
func (l *LoggingEventSink) LikeToggled(ctx context.Context, captureID uuid.UUID, identity string, liked bool) error {
	l.logger.InfoContext(ctx, "like toggled",
		"capture_id", captureID, "identity", identity, "liked", liked)
	return nil
}

// RemovalRequested logs the removal request submission
func (l *LoggingEventSink) RemovalRequested(ctx context.Context, r *RemovalRequest) error {
	l.logger.InfoContext(ctx, "removal requested",
		"request_id", r.ID, "asset_path", r.AssetPath)
	return nil
}

// DownloadLogged logs the download record
func (l *LoggingEventSink) DownloadLogged(ctx context.Context, dl *DownloadLog) error {
	l.logger.InfoContext(ctx, "download logged",
		"asset_path", dl.AssetPath, "identity", dl.Identity)
	return nil
}
