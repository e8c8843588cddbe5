// Package metrics provides per-session metrics collection.
//
// The Collector accumulates counters during a single exporter session. It
// is a leaf package with no internal dependencies. Counters are read
// programmatically via Snapshot, typically when a session ends.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all session metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Connection lifecycle
	ConnectSuccess int64
	ConnectFailure int64

	// Traffic
	MessagesSent     int64
	MessagesReceived int64
	DecodeErrors     int64

	// Images
	BucketsMerged   int64
	ImagesCompleted int64

	// Export
	PluginsExported int64
	ScenesExported  int64

	// Dimensions (informational, set at construction)
	SessionID string
	Server    string
}

// Collector accumulates metrics during a single session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	connectSuccess int64
	connectFailure int64

	messagesSent     int64
	messagesReceived int64
	decodeErrors     int64

	bucketsMerged   int64
	imagesCompleted int64

	pluginsExported int64
	scenesExported  int64

	sessionID string
	server    string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(sessionID, server string) *Collector {
	return &Collector{
		sessionID: sessionID,
		server:    server,
	}
}

// --- Connection lifecycle ---

// IncConnectSuccess records an established connection.
func (c *Collector) IncConnectSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.connectSuccess++
	c.mu.Unlock()
}

// IncConnectFailure records a failed connection attempt.
func (c *Collector) IncConnectFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.connectFailure++
	c.mu.Unlock()
}

// --- Traffic ---

// IncMessagesSent records one transmitted command frame.
func (c *Collector) IncMessagesSent() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.messagesSent++
	c.mu.Unlock()
}

// IncMessagesReceived records one decoded inbound frame.
func (c *Collector) IncMessagesReceived() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.messagesReceived++
	c.mu.Unlock()
}

// IncDecodeErrors records an inbound frame that failed to decode.
func (c *Collector) IncDecodeErrors() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.decodeErrors++
	c.mu.Unlock()
}

// --- Images ---

// IncBucketsMerged records one bucket merged into a channel buffer.
func (c *Collector) IncBucketsMerged() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.bucketsMerged++
	c.mu.Unlock()
}

// IncImagesCompleted records one completed (ready) image delivery.
func (c *Collector) IncImagesCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.imagesCompleted++
	c.mu.Unlock()
}

// --- Export ---

// IncPluginsExported records one exported plugin.
func (c *Collector) IncPluginsExported() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.pluginsExported++
	c.mu.Unlock()
}

// IncScenesExported records one scene export command.
func (c *Collector) IncScenesExported() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.scenesExported++
	c.mu.Unlock()
}

// Snapshot returns an immutable copy of all counters and dimensions.
// Nil-receiver safe: returns the zero Snapshot.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ConnectSuccess:   c.connectSuccess,
		ConnectFailure:   c.connectFailure,
		MessagesSent:     c.messagesSent,
		MessagesReceived: c.messagesReceived,
		DecodeErrors:     c.decodeErrors,
		BucketsMerged:    c.bucketsMerged,
		ImagesCompleted:  c.imagesCompleted,
		PluginsExported:  c.pluginsExported,
		ScenesExported:   c.scenesExported,
		SessionID:        c.sessionID,
		Server:           c.server,
	}
}
