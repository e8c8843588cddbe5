// Package transport owns the single logical connection to a renderer
// process: connect/handshake, a serialized outbound writer, and a
// background receive loop that dispatches decoded messages to a
// registered callback.
package transport

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pithecene-io/renderlink/log"
	"github.com/pithecene-io/renderlink/metrics"
	"github.com/pithecene-io/renderlink/types"
	"github.com/pithecene-io/renderlink/wire"
)

// State describes the socket-level connection state.
type State int32

// Connection states. A faulted or disconnected client is never reconnected;
// a new session requires a new client.
const (
	Disconnected State = iota
	Connecting
	Connected
	Faulted
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

const (
	connectTimeout   = 3 * time.Second
	handshakeTimeout = 5 * time.Second

	// StopGraceDelay is how long callers should wait between StopServer
	// and SyncStop so the stop frame reaches the remote side.
	StopGraceDelay = 50 * time.Millisecond
)

// Callback receives every decoded inbound message, invoked from the
// client's receive goroutine. Invocations are serialized.
type Callback func(msg any)

// Client is a renderer protocol connection. Create with NewClient, then
// Connect; tear down with StopServer, a short grace delay, then SyncStop.
type Client struct {
	logger     *log.Logger
	collector  *metrics.Collector
	clientKind string

	mu   sync.Mutex // connection lifecycle
	conn net.Conn

	state   atomic.Int32
	good    atomic.Bool
	closing atomic.Bool

	cbMu     sync.Mutex
	callback Callback

	sendMu   sync.Mutex
	sendCond *sync.Cond
	sendQ    [][]byte
	inflight int
	stopping bool

	wg sync.WaitGroup
}

// NewClient creates an unconnected client. clientKind is announced in the
// handshake (wire.ClientKindExporter or wire.ClientKindHeartbeat). The
// collector may be nil.
func NewClient(logger *log.Logger, collector *metrics.Collector, clientKind string) *Client {
	c := &Client{
		logger:     logger,
		collector:  collector,
		clientKind: clientKind,
	}
	c.sendCond = sync.NewCond(&c.sendMu)
	return c
}

// Connect establishes the connection and performs the protocol handshake.
// Idempotent while connected. Failure is silent at the call site: the
// client transitions to Faulted and callers must check Connected().
func (c *Client) Connect(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == Connected {
		return
	}
	c.state.Store(int32(Connecting))

	hostport := strings.TrimPrefix(address, "tcp://")
	conn, err := net.DialTimeout("tcp", hostport, connectTimeout)
	if err != nil {
		c.logger.Error("failed to connect to renderer", map[string]any{
			"address": address,
			"error":   err.Error(),
		})
		c.collector.IncConnectFailure()
		c.state.Store(int32(Faulted))
		return
	}

	if err := c.handshake(conn); err != nil {
		var frameErr *wire.FrameError
		if errors.As(err, &frameErr) && frameErr.Kind == wire.FrameErrorDecode {
			// The socket works but the peer speaks a different protocol.
			// Keep the link for state inspection; mark it not good so
			// every send is dropped.
			c.logger.Error("renderer handshake rejected", map[string]any{
				"address": address,
				"error":   err.Error(),
			})
			c.conn = conn
			c.good.Store(false)
			c.state.Store(int32(Connected))
			c.collector.IncConnectSuccess()
			c.startLoops()
			return
		}

		c.logger.Error("renderer handshake failed", map[string]any{
			"address": address,
			"error":   err.Error(),
		})
		_ = conn.Close()
		c.collector.IncConnectFailure()
		c.state.Store(int32(Faulted))
		return
	}

	c.conn = conn
	c.good.Store(true)
	c.state.Store(int32(Connected))
	c.collector.IncConnectSuccess()
	c.logger.Info("connected to renderer", map[string]any{"address": address})
	c.startLoops()
}

// handshake exchanges version frames. A version mismatch is reported as a
// decode-kind frame error.
func (c *Client) handshake(conn net.Conn) error {
	deadline := time.Now().Add(handshakeTimeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}

	if err := wire.WriteFrame(conn, wire.NewHandshake(c.clientKind)); err != nil {
		return err
	}

	payload, err := wire.NewFrameDecoder(conn).ReadFrame()
	if err != nil {
		return err
	}
	msg, err := wire.Decode(payload)
	if err != nil {
		return err
	}
	reply, ok := msg.(*wire.Handshake)
	if !ok {
		return &wire.FrameError{
			Kind: wire.FrameErrorDecode,
			Msg:  "unexpected first frame from renderer",
		}
	}
	if reply.Version != types.ProtocolVersion {
		return &wire.FrameError{
			Kind: wire.FrameErrorDecode,
			Msg:  "protocol version mismatch: client " + types.ProtocolVersion + ", server " + reply.Version,
		}
	}

	return conn.SetDeadline(time.Time{})
}

func (c *Client) startLoops() {
	c.wg.Add(2)
	go c.writeLoop()
	go c.readLoop()
}

// State returns the socket-level connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Connected reports whether the socket-level link is established.
func (c *Client) Connected() bool {
	return c.State() == Connected
}

// Good reports whether the channel is structurally healthy: the handshake
// succeeded and no protocol violation has been observed since.
func (c *Client) Good() bool {
	return c.good.Load()
}

// SetCallback installs the inbound message callback, replacing any previous
// one. The swap is serialized with dispatch: once SetCallback returns, the
// old callback is never invoked again.
func (c *Client) SetCallback(cb Callback) {
	c.cbMu.Lock()
	c.callback = cb
	c.cbMu.Unlock()
}

// Send enqueues a message for transmission. It never blocks beyond local
// serialization. If the connection is not healthy the message is dropped;
// the fault is surfaced through Good()/Connected(), not here. Encoding
// failures are logged.
func (c *Client) Send(msg any) {
	if c.State() != Connected || !c.good.Load() {
		return
	}

	frame, err := wire.EncodeFrame(msg)
	if err != nil {
		c.logger.Error("failed to encode outbound message", map[string]any{
			"error": err.Error(),
		})
		return
	}

	c.sendMu.Lock()
	if c.stopping {
		c.sendMu.Unlock()
		return
	}
	c.sendQ = append(c.sendQ, frame)
	c.inflight++
	c.sendCond.Broadcast()
	c.sendMu.Unlock()
}

// WaitForMessages blocks until every enqueued message has been written to
// the socket. No timeout: a hung renderer hangs the caller, which is
// accepted because the renderer process is trusted.
func (c *Client) WaitForMessages() {
	c.sendMu.Lock()
	for c.inflight > 0 {
		c.sendCond.Wait()
	}
	c.sendMu.Unlock()
}

// StopServer asks the remote side to stop servicing this connection. Call
// before SyncStop, with StopGraceDelay in between, so the receive loop is
// not joined against a peer that would keep the socket open.
func (c *Client) StopServer() {
	c.Send(wire.ControlStopCommand())
}

// SyncStop closes the connection and joins the background loops. The
// client is unusable afterwards.
func (c *Client) SyncStop() {
	c.closing.Store(true)

	c.sendMu.Lock()
	c.stopping = true
	c.sendCond.Broadcast()
	c.sendMu.Unlock()

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.state.Store(int32(Disconnected))
}

// writeLoop drains the outbound queue onto the socket, one frame at a
// time, preserving enqueue order.
func (c *Client) writeLoop() {
	defer c.wg.Done()

	for {
		c.sendMu.Lock()
		for len(c.sendQ) == 0 && !c.stopping {
			c.sendCond.Wait()
		}
		if len(c.sendQ) == 0 {
			c.sendMu.Unlock()
			return
		}
		frame := c.sendQ[0]
		c.sendQ = c.sendQ[1:]
		c.sendMu.Unlock()

		_, err := c.conn.Write(frame)

		c.sendMu.Lock()
		c.inflight--
		if err != nil {
			// The link is gone; drop the rest so flush waiters wake up.
			c.sendQ = nil
			c.inflight = 0
			c.stopping = true
		}
		if c.inflight == 0 {
			c.sendCond.Broadcast()
		}
		c.sendMu.Unlock()

		if err != nil {
			if !c.closing.Load() {
				c.logger.Error("renderer connection write failed", map[string]any{
					"error": err.Error(),
				})
				c.state.Store(int32(Faulted))
			}
			return
		}
		c.collector.IncMessagesSent()
	}
}

// readLoop reads frames until the connection ends, decoding each and
// dispatching to the callback in wire order.
func (c *Client) readLoop() {
	defer c.wg.Done()

	decoder := wire.NewFrameDecoder(c.conn)
	for {
		payload, err := decoder.ReadFrame()
		if err != nil {
			if c.closing.Load() {
				return
			}
			if errors.Is(err, io.EOF) {
				c.logger.Info("renderer closed the connection", nil)
				c.state.Store(int32(Disconnected))
				return
			}
			if wire.IsFatalFrameError(err) {
				// The stream cannot be resynchronized after a partial or
				// oversized frame.
				c.good.Store(false)
			}
			c.logger.Error("renderer connection read failed", map[string]any{
				"error": err.Error(),
			})
			c.state.Store(int32(Faulted))
			return
		}
		c.collector.IncMessagesReceived()

		msg, err := wire.Decode(payload)
		if err != nil {
			// One undecodable frame drops that frame only; the session
			// continues.
			c.logger.Warn("dropping undecodable frame", map[string]any{
				"error": err.Error(),
			})
			c.collector.IncDecodeErrors()
			continue
		}

		c.dispatch(msg)
	}
}

// dispatch invokes the callback under cbMu so callback replacement can
// never race an in-flight invocation.
func (c *Client) dispatch(msg any) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	if c.callback == nil {
		return
	}

	// A panicking callback must not tear down the receive loop.
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("message callback panicked", map[string]any{
				"panic": r,
			})
		}
	}()
	c.callback(msg)
}
