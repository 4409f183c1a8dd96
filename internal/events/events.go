// Package events fans ingested readings out to downstream consumers.
package events

import (
	"context"
	"time"
)

// ReadingEvent one persisted reading
type ReadingEvent struct {
	DeviceID       string    `json:"deviceId"`
	RecordingID    string    `json:"recordingId"`
	SPLValue       float64   `json:"splValue"`
	Classification string    `json:"classification,omitempty"`
	Source         string    `json:"source"` // "http" or "mqtt"
	CapturedAt     time.Time `json:"capturedAt"`
}

// Sink receives reading events. Emit failures are the caller's to log.
type Sink interface {
	Emit(ctx context.Context, ev ReadingEvent) error
	Close() error
}

// NopSink drops everything
type NopSink struct{}

func (NopSink) Emit(context.Context, ReadingEvent) error { return nil }

func (NopSink) Close() error { return nil }
