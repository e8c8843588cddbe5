// Package adapter defines the session-event boundary.
//
// Adapters publish session completion notifications to downstream
// render-farm tooling. The exporter owns adapter lifecycle; users provide
// configuration only.
package adapter

import (
	"context"
	"time"
)

// Session outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
)

// SessionCompletedEvent is the payload published when a session ends.
type SessionCompletedEvent struct {
	EventType  string `json:"event_type"` // always "session_completed"
	SessionID  string `json:"session_id"`
	Server     string `json:"server"`
	Outcome    string `json:"outcome"`
	Timestamp  string `json:"timestamp"` // ISO 8601
	Plugins    int64  `json:"plugins"`
	DurationMs int64  `json:"duration_ms"`
}

// NewSessionCompletedEvent builds the event for one finished session.
func NewSessionCompletedEvent(sessionID, server, outcome string, plugins int64, duration time.Duration) *SessionCompletedEvent {
	return &SessionCompletedEvent{
		EventType:  "session_completed",
		SessionID:  sessionID,
		Server:     server,
		Outcome:    outcome,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Plugins:    plugins,
		DurationMs: duration.Milliseconds(),
	}
}

// Adapter publishes session events to a downstream system.
// Implementations must be safe for single-use per session.
type Adapter interface {
	// Publish sends a session event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *SessionCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// publishTimeout bounds a session-close publish so a dead downstream
// cannot hang teardown.
const publishTimeout = 30 * time.Second

// PublishWithTimeout publishes with the standard teardown deadline.
func PublishWithTimeout(a Adapter, event *SessionCompletedEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return a.Publish(ctx, event)
}
