// Package exporter provides the client-facing facade over the renderer
// protocol: it translates high-level scene operations into wire commands,
// assembles inbound image data into per-channel buffers, and tracks
// renderer state for the host to poll.
//
// An Exporter drives exactly one session. A failed connection is terminal:
// the session is marked aborted and every subsequent send becomes a
// health-checked no-op. Start a new session with a new Exporter.
package exporter

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/renderlink/adapter"
	"github.com/pithecene-io/renderlink/config"
	"github.com/pithecene-io/renderlink/framebuf"
	"github.com/pithecene-io/renderlink/log"
	"github.com/pithecene-io/renderlink/metrics"
	"github.com/pithecene-io/renderlink/transport"
	"github.com/pithecene-io/renderlink/types"
	"github.com/pithecene-io/renderlink/wire"
)

// Sender abstracts the transport client for testing.
type Sender interface {
	Connect(address string)
	Connected() bool
	Good() bool
	Send(msg any)
	SetCallback(cb transport.Callback)
	WaitForMessages()
	StopServer()
	SyncStop()
}

// SenderFactory creates a Sender. Used for test injection.
type SenderFactory func() Sender

// cachedSettings holds the last-sent values of renderer-visible toggles,
// used purely to elide exact duplicates of the previous value.
type cachedSettings struct {
	showVFB      bool
	quality      int
	format       int
	renderMode   int
	activeCamera string
	renderWidth  int
	renderHeight int
}

// Exporter is the session facade. Construct with New, call Init first,
// tear down with Close.
type Exporter struct {
	settings  *config.Settings
	logger    *log.Logger
	collector *metrics.Collector
	sessionID string
	events    adapter.Adapter
	startTime time.Time

	newSender SenderFactory
	clientMu  sync.Mutex
	client    Sender

	// imgMu guards the channel buffers, the cached render resolution, and
	// every resize (a resize invalidates buffer dimensions).
	imgMu  sync.Mutex
	images map[types.RenderChannel]*framebuf.Image

	cached cachedSettings
	dirty  bool

	started  bool
	aborted  atomic.Bool
	exported atomic.Int64

	// Written by the receive goroutine, read by the host's polling thread.
	progressBits  atomic.Uint32
	lastFrameBits atomic.Uint32
	progressMu    sync.Mutex
	progressMsg   string

	currentFrame float32
	commitState  types.CommitAction

	// Host-facing hooks, each optional. Set before Init; invoked from the
	// receive goroutine.
	OnMessage        func(text string)
	OnBucketReady    func(bucket wire.ImagePayload)
	OnRTImageUpdated func()
	OnImageReady     func()
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithSenderFactory overrides transport client creation (for testing).
func WithSenderFactory(f SenderFactory) Option {
	return func(e *Exporter) { e.newSender = f }
}

// WithAdapter installs a session-event adapter, notified when the session
// closes.
func WithAdapter(a adapter.Adapter) Option {
	return func(e *Exporter) { e.events = a }
}

// WithLogger overrides the session logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// New creates an exporter for one session over the given settings.
func New(settings *config.Settings, opts ...Option) *Exporter {
	sessionID := uuid.New().String()
	endpoint := settings.Server.Endpoint()

	e := &Exporter{
		settings:  settings,
		sessionID: sessionID,
		collector: metrics.NewCollector(sessionID, endpoint),
		images:    make(map[types.RenderChannel]*framebuf.Image),
		dirty:     true,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.NewLogger(&types.SessionMeta{SessionID: sessionID, Server: endpoint})
	}
	if e.newSender == nil {
		e.newSender = func() Sender {
			return transport.NewClient(e.logger, e.collector, wire.ClientKindExporter)
		}
	}

	e.checkClient()
	return e
}

// checkClient ensures the transport client exists and is healthy. A client
// that lost its connection is never recreated ("we can't connect don't
// retry"): the session is marked aborted instead.
func (e *Exporter) checkClient() {
	e.clientMu.Lock()
	defer e.clientMu.Unlock()

	if e.client == nil {
		e.client = e.newSender()
		return
	}

	if !e.client.Connected() {
		e.aborted.Store(true)
		return
	}

	if !e.client.Good() {
		e.aborted.Store(true)
		e.logger.Error("renderer link failed protocol health check", nil)
	}
}

// Init negotiates the session with the renderer: connects if needed, then
// sends the renderer type, display settings, and initial image requests,
// and primes the settings cache. A connect failure leaves the session in a
// degraded unconnected state; the failure is logged, not propagated.
func (e *Exporter) Init() {
	e.logger.Info("initializing renderer session", nil)

	e.clientMu.Lock()
	client := e.client
	e.clientMu.Unlock()

	client.SetCallback(e.dispatch)

	if !client.Connected() {
		client.Connect(e.settings.Server.Endpoint())
	}
	if !client.Connected() {
		return
	}

	rendererType := types.RendererNone
	if e.settings.IsPreview {
		rendererType = types.RendererPreview
	} else if e.settings.IsViewport {
		rendererType = types.RendererRT
	} else if e.settings.UseAnimation {
		rendererType = types.RendererAnimation
	} else {
		rendererType = types.RendererSingleFrame
	}

	drFlags := types.DRNone
	if e.settings.DR.Use {
		drFlags = types.DREnable
		if e.settings.DR.RenderOnlyOnHosts {
			drFlags |= types.DRRenderOnlyOnHosts
		}
	}

	client.Send(wire.RendererInit(rendererType, drFlags))
	client.Send(wire.RendererActionInt(types.ActionSetRenderMode, int64(e.settings.RenderMode)))

	client.Send(wire.RendererActionInt(types.ActionGetImage, int64(types.ChannelNone)))
	if !e.settings.IsViewport && !e.settings.UseAnimation {
		client.Send(wire.RendererActionInt(types.ActionGetImage, int64(types.ChannelRealcolor)))
	}

	client.Send(wire.RendererActionBool(types.ActionSetVfbShow, e.settings.ShowVFB))
	client.Send(wire.RendererActionInt(types.ActionSetQuality, int64(e.settings.ViewportQuality)))
	client.Send(wire.RendererActionInt(types.ActionSetViewportImageFormat, int64(e.settings.ViewportFormat)))

	if e.settings.DR.Use {
		client.Send(wire.RendererActionString(types.ActionResetHosts, e.settings.DR.HostsString()))
	}

	e.cached.showVFB = e.settings.ShowVFB
	e.cached.quality = e.settings.ViewportQuality
	e.cached.format = e.settings.ViewportFormat
	e.cached.renderMode = e.settings.RenderMode

	// The receive goroutine is already live and may be reading the render
	// size while assembling an early image delivery.
	e.imgMu.Lock()
	e.cached.renderWidth = 0
	e.cached.renderHeight = 0
	e.imgMu.Unlock()
}

// Close sends Free, detaches the callback, and tears the connection down.
// If an adapter is installed, the session-completed event is published
// afterwards.
func (e *Exporter) Close() {
	e.Free()

	e.clientMu.Lock()
	e.client.SetCallback(nil)
	e.client.StopServer()
	time.Sleep(transport.StopGraceDelay)
	e.client.SyncStop()
	e.clientMu.Unlock()

	e.publishSessionCompleted()
}

// SessionID returns the session identifier.
func (e *Exporter) SessionID() string { return e.sessionID }

// Connected reports whether the renderer link is established.
func (e *Exporter) Connected() bool {
	e.clientMu.Lock()
	defer e.clientMu.Unlock()
	return e.client != nil && e.client.Connected()
}

// Aborted reports whether the session has been aborted, either by the
// renderer or by a lost connection. One-way: never cleared.
func (e *Exporter) Aborted() bool { return e.aborted.Load() }

// Progress returns the last reported render progress fraction.
func (e *Exporter) Progress() float32 {
	return math.Float32frombits(e.progressBits.Load())
}

// ProgressMessage returns the last reported progress message.
func (e *Exporter) ProgressMessage() string {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	return e.progressMsg
}

// LastRenderedFrame returns the last frame the renderer finished.
func (e *Exporter) LastRenderedFrame() float32 {
	return math.Float32frombits(e.lastFrameBits.Load())
}

// ExportedPluginsCount returns the number of plugins exported so far.
// Diagnostics only.
func (e *Exporter) ExportedPluginsCount() int64 { return e.exported.Load() }

// ResetExportedPluginsCount zeroes the export counter.
func (e *Exporter) ResetExportedPluginsCount() { e.exported.Store(0) }

// Metrics returns a snapshot of the session counters.
func (e *Exporter) Metrics() metrics.Snapshot { return e.collector.Snapshot() }

func (e *Exporter) publishSessionCompleted() {
	if e.events == nil {
		return
	}
	outcome := adapter.OutcomeCompleted
	if e.aborted.Load() {
		outcome = adapter.OutcomeAborted
	}
	event := adapter.NewSessionCompletedEvent(
		e.sessionID,
		e.settings.Server.Endpoint(),
		outcome,
		e.exported.Load(),
		time.Since(e.startTime),
	)
	if err := adapter.PublishWithTimeout(e.events, event); err != nil {
		e.logger.Error("failed to publish session event", map[string]any{
			"error": err.Error(),
		})
	}
}
