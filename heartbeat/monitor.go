// Package heartbeat maintains a supervisory connection used to answer "is
// a compatible renderer server reachable" without touching the main data
// channel.
//
// The monitor is a shared service handle: construct one and pass it to
// whoever needs liveness checks, instead of reaching for process-global
// state. All mutation of the underlying connection is under one mutex;
// callers serialize their own Start/Stop intent.
package heartbeat

import (
	"sync"
	"time"

	"github.com/pithecene-io/renderlink/log"
	"github.com/pithecene-io/renderlink/transport"
	"github.com/pithecene-io/renderlink/wire"
)

// Monitor owns at most one heartbeat connection at a time.
type Monitor struct {
	logger *log.Logger

	mu     sync.Mutex
	client *transport.Client
}

// NewMonitor creates a monitor with no connection.
func NewMonitor(logger *log.Logger) *Monitor {
	return &Monitor{logger: logger}
}

// IsRunning reports whether a healthy heartbeat connection exists.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil && m.client.Good() && m.client.Connected()
}

// Start ensures a heartbeat connection to addr exists. Idempotent: when a
// healthy connection is already running it returns true without creating a
// second one. Returns false when the connect fails; no retry is attempted
// until Stop releases the handle.
func (m *Monitor) Start(addr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		m.logger.Info("starting heartbeat client", map[string]any{"address": addr})
		m.client = transport.NewClient(m.logger, nil, wire.ClientKindHeartbeat)
		m.client.Connect(addr)
		return m.client.Connected() && m.client.Good()
	}

	m.logger.Error("heartbeat client already running", nil)
	return m.client.Good() && m.client.Connected()
}

// Stop gracefully shuts the heartbeat connection down and releases the
// handle. Returns false when no monitor was running.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		m.logger.Error("no heartbeat client running", nil)
		return false
	}

	m.logger.Info("stopping heartbeat client", nil)
	if m.client.Good() && m.client.Connected() {
		m.client.StopServer()
		time.Sleep(transport.StopGraceDelay)
	}
	m.client.SyncStop()
	m.client = nil
	return true
}
