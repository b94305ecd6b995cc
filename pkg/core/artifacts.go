// Package core provides the execution model types for wizard-runner.
package core

import (
	"context"
	"fmt"
	"time"
)

// Attachment represents a debug artifact captured during a run
type Attachment struct {
	Name        string    `json:"name"`        // Descriptive name: screenshot
	ContentType string    `json:"contentType"` // MIME type: image/png
	Path        string    `json:"path"`        // File path relative to output directory
	CapturedAt  time.Time `json:"capturedAt"`
	Body        []byte    `json:"-"` // In-memory content (not serialized to JSON)
}

// Common attachment names
const (
	AttachmentScreenshot = "screenshot"
)

// Common content types
const (
	ContentTypePNG  = "image/png"
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// NewScreenshotAttachment creates a screenshot attachment
func NewScreenshotAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentScreenshot,
		ContentType: ContentTypePNG,
		Path:        path,
		CapturedAt:  time.Now(),
		Body:        data,
	}
}

// Extension returns the file extension for the attachment's content type
func (a Attachment) Extension() string {
	switch a.ContentType {
	case ContentTypePNG:
		return ".png"
	case ContentTypeJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// DiagnosticsCapture snapshots the page at the point of a hard failure.
// Implementations must not change page state and must return before the
// run completes.
type DiagnosticsCapture interface {
	Capture(ctx context.Context) (*Attachment, error)
}

// DiagnosticsFunc adapts a function to DiagnosticsCapture
type DiagnosticsFunc func(ctx context.Context) (*Attachment, error)

// Capture calls f(ctx)
func (f DiagnosticsFunc) Capture(ctx context.Context) (*Attachment, error) { return f(ctx) }

// ScreenshotCapture captures the driver's viewport as a PNG attachment
type ScreenshotCapture struct {
	Driver Driver
}

// Capture takes a screenshot
func (c ScreenshotCapture) Capture(ctx context.Context) (*Attachment, error) {
	data, err := c.Driver.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	a := NewScreenshotAttachment("", data)
	return &a, nil
}

// NullCapture is a no-op implementation for testing
type NullCapture struct{}

// Capture returns nil (no-op)
func (NullCapture) Capture(context.Context) (*Attachment, error) { return nil, nil }
