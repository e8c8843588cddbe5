package transport

import (
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/renderlink/log"
	"github.com/pithecene-io/renderlink/metrics"
	"github.com/pithecene-io/renderlink/types"
	"github.com/pithecene-io/renderlink/wire"
)

// fakeRenderer is a loopback server that speaks the renderer side of the
// protocol: accepts one connection, answers the handshake, then decodes
// every outbound frame into a raw map pushed to received.
type fakeRenderer struct {
	t        *testing.T
	listener net.Listener

	mu   sync.Mutex
	conn net.Conn

	connReady chan struct{}
	received  chan map[string]any

	// handshakeVersion overrides the reply version when non-empty.
	handshakeVersion string
}

func startFakeRenderer(t *testing.T) *fakeRenderer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	r := &fakeRenderer{
		t:         t,
		listener:  listener,
		connReady: make(chan struct{}),
		received:  make(chan map[string]any, 64),
	}
	t.Cleanup(r.close)

	go r.serve()
	return r
}

func (r *fakeRenderer) addr() string {
	return "tcp://" + r.listener.Addr().String()
}

func (r *fakeRenderer) serve() {
	conn, err := r.listener.Accept()
	if err != nil {
		return
	}
	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	decoder := wire.NewFrameDecoder(conn)

	// Handshake exchange
	if _, err := decoder.ReadFrame(); err != nil {
		return
	}
	version := types.ProtocolVersion
	if r.handshakeVersion != "" {
		version = r.handshakeVersion
	}
	reply := &wire.Handshake{Type: wire.TypeHandshake, Version: version}
	if err := wire.WriteFrame(conn, reply); err != nil {
		return
	}
	close(r.connReady)

	for {
		payload, err := decoder.ReadFrame()
		if err != nil {
			return
		}
		var raw map[string]any
		if err := msgpack.Unmarshal(payload, &raw); err != nil {
			continue
		}
		r.received <- raw
	}
}

// send writes a frame to the connected client.
func (r *fakeRenderer) send(msg any) {
	r.t.Helper()
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		r.t.Fatal("no client connected")
	}
	if err := wire.WriteFrame(conn, msg); err != nil {
		r.t.Fatalf("send: %v", err)
	}
}

// sendRaw writes arbitrary bytes to the connected client.
func (r *fakeRenderer) sendRaw(raw []byte) {
	r.t.Helper()
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		r.t.Fatal("no client connected")
	}
	if _, err := conn.Write(raw); err != nil {
		r.t.Fatalf("sendRaw: %v", err)
	}
}

func (r *fakeRenderer) waitReceived() map[string]any {
	r.t.Helper()
	select {
	case raw := <-r.received:
		return raw
	case <-time.After(5 * time.Second):
		r.t.Fatal("timed out waiting for outbound frame")
		return nil
	}
}

func (r *fakeRenderer) close() {
	_ = r.listener.Close()
	r.mu.Lock()
	if r.conn != nil {
		_ = r.conn.Close()
	}
	r.mu.Unlock()
}

// asInt coerces any integer msgpack decodes into, fixint included.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func newTestClient() *Client {
	return NewClient(log.NewNop(), metrics.NewCollector("test-session", "test"), wire.ClientKindExporter)
}

func connectOrFail(t *testing.T, r *fakeRenderer) *Client {
	t.Helper()
	c := newTestClient()
	c.Connect(r.addr())
	if !c.Connected() {
		t.Fatal("client did not connect")
	}
	t.Cleanup(c.SyncStop)
	<-r.connReady
	return c
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestClient_ConnectAndHandshake(t *testing.T) {
	r := startFakeRenderer(t)
	c := connectOrFail(t, r)

	if !c.Good() {
		t.Error("client should be good after handshake")
	}
	if c.State() != Connected {
		t.Errorf("State = %v, want Connected", c.State())
	}
}

func TestClient_ConnectFailure(t *testing.T) {
	// Grab a port and close it so nothing listens there
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := "tcp://" + listener.Addr().String()
	_ = listener.Close()

	c := newTestClient()
	c.Connect(addr)

	if c.Connected() {
		t.Error("client should not be connected")
	}
	if c.Good() {
		t.Error("client should not be good")
	}
	if c.State() != Faulted {
		t.Errorf("State = %v, want Faulted", c.State())
	}
}

func TestClient_VersionMismatch(t *testing.T) {
	r := startFakeRenderer(t)
	r.handshakeVersion = "99.0"

	c := newTestClient()
	c.Connect(r.addr())
	t.Cleanup(c.SyncStop)

	// Link is up for inspection but not usable
	if !c.Connected() {
		t.Error("client should report connected on version mismatch")
	}
	if c.Good() {
		t.Error("client must not be good on version mismatch")
	}

	// Sends are dropped without error
	c.Send(wire.RendererAction(types.ActionStart))
	select {
	case raw := <-r.received:
		t.Fatalf("send should have been dropped, server got %v", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClient_SendDeliversFrames(t *testing.T) {
	r := startFakeRenderer(t)
	c := connectOrFail(t, r)

	c.Send(wire.RendererActionInt(types.ActionSetRenderMode, 2))
	raw := r.waitReceived()

	if raw["type"] != wire.TypeRendererAction {
		t.Errorf("type = %v, want %q", raw["type"], wire.TypeRendererAction)
	}
	if v, ok := asInt(raw["int_value"]); !ok || v != 2 {
		t.Errorf("int_value = %v (%T), want 2", raw["int_value"], raw["int_value"])
	}
}

func TestClient_SendPreservesOrder(t *testing.T) {
	r := startFakeRenderer(t)
	c := connectOrFail(t, r)

	const n = 50
	for i := 0; i < n; i++ {
		c.Send(wire.RendererActionInt(types.ActionSetCurrentFrame, int64(i)))
	}
	c.WaitForMessages()

	for i := 0; i < n; i++ {
		raw := r.waitReceived()
		v, ok := asInt(raw["int_value"])
		if !ok || v != int64(i) {
			t.Fatalf("frame %d: int_value = %v, want %d", i, raw["int_value"], i)
		}
	}
}

func TestClient_WaitForMessagesFlushes(t *testing.T) {
	r := startFakeRenderer(t)
	c := connectOrFail(t, r)

	for i := 0; i < 10; i++ {
		c.Send(wire.RendererAction(types.ActionStart))
	}
	c.WaitForMessages()

	// All frames are on the wire once the flush returns
	for i := 0; i < 10; i++ {
		r.waitReceived()
	}
}

func TestClient_DispatchInWireOrder(t *testing.T) {
	r := startFakeRenderer(t)
	c := connectOrFail(t, r)

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	c.SetCallback(func(msg any) {
		logMsg, ok := msg.(*wire.LogMessage)
		if !ok {
			return
		}
		mu.Lock()
		got = append(got, logMsg.Message)
		if len(got) == 3 {
			close(done)
		}
		mu.Unlock()
	})

	r.send(&wire.LogMessage{Type: wire.TypeLog, Message: "a", Severity: 25000})
	r.send(&wire.LogMessage{Type: wire.TypeLog, Message: "b", Severity: 25000})
	r.send(&wire.LogMessage{Type: wire.TypeLog, Message: "c", Severity: 25000})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"a", "b", "c"}
	for i, m := range want {
		if got[i] != m {
			t.Errorf("got[%d] = %q, want %q", i, got[i], m)
		}
	}
}

func TestClient_CallbackReplacement(t *testing.T) {
	r := startFakeRenderer(t)
	c := connectOrFail(t, r)

	first := make(chan any, 1)
	c.SetCallback(func(msg any) { first <- msg })

	r.send(&wire.LogMessage{Type: wire.TypeLog, Message: "one", Severity: 25000})
	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("first callback never invoked")
	}

	// After the swap the old callback must never fire again
	second := make(chan any, 1)
	c.SetCallback(func(msg any) { second <- msg })

	r.send(&wire.LogMessage{Type: wire.TypeLog, Message: "two", Severity: 25000})
	select {
	case <-second:
	case <-time.After(5 * time.Second):
		t.Fatal("second callback never invoked")
	}
	select {
	case msg := <-first:
		t.Fatalf("old callback invoked after replacement: %v", msg)
	default:
	}
}

func TestClient_CallbackPanicDoesNotKillReceiveLoop(t *testing.T) {
	r := startFakeRenderer(t)
	c := connectOrFail(t, r)

	calls := make(chan string, 2)
	c.SetCallback(func(msg any) {
		logMsg := msg.(*wire.LogMessage)
		calls <- logMsg.Message
		if logMsg.Message == "boom" {
			panic("callback failure")
		}
	})

	r.send(&wire.LogMessage{Type: wire.TypeLog, Message: "boom", Severity: 25000})
	r.send(&wire.LogMessage{Type: wire.TypeLog, Message: "after", Severity: 25000})

	for _, want := range []string{"boom", "after"} {
		select {
		case got := <-calls:
			if got != want {
				t.Fatalf("got %q, want %q", got, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestClient_UndecodableFrameIsDropped(t *testing.T) {
	r := startFakeRenderer(t)
	c := connectOrFail(t, r)

	got := make(chan string, 1)
	c.SetCallback(func(msg any) {
		if logMsg, ok := msg.(*wire.LogMessage); ok {
			got <- logMsg.Message
		}
	})

	// Valid frame with an unknown discriminator, then a good one
	unknown, err := wire.EncodeFrame(map[string]any{"type": "telemetry"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	r.sendRaw(unknown)
	r.send(&wire.LogMessage{Type: wire.TypeLog, Message: "still alive", Severity: 25000})

	select {
	case msg := <-got:
		if msg != "still alive" {
			t.Fatalf("got %q, want %q", msg, "still alive")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session did not survive the bad frame")
	}
	if !c.Good() {
		t.Error("decode error must not mark the channel bad")
	}
}

func TestClient_FatalFrameErrorFaults(t *testing.T) {
	r := startFakeRenderer(t)
	c := connectOrFail(t, r)

	// Announce a payload over the frame cap
	var prefix [wire.LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], wire.MaxPayloadSize+1)
	r.sendRaw(prefix[:])

	waitFor(t, "fault", func() bool { return c.State() == Faulted })
	if c.Good() {
		t.Error("fatal frame error must mark the channel bad")
	}

	// Sends after the fault are dropped silently
	c.Send(wire.RendererAction(types.ActionStart))
}

func TestClient_ServerCloseDisconnects(t *testing.T) {
	r := startFakeRenderer(t)
	c := connectOrFail(t, r)

	r.close()

	waitFor(t, "disconnect", func() bool { return c.State() != Connected })
	// EOF is a clean end, not a fault
	if c.State() == Connected {
		t.Errorf("State = %v after server close", c.State())
	}
}

func TestClient_StopServerSendsControlFrame(t *testing.T) {
	r := startFakeRenderer(t)
	c := connectOrFail(t, r)

	c.StopServer()
	raw := r.waitReceived()

	if raw["type"] != wire.TypeControl {
		t.Errorf("type = %v, want %q", raw["type"], wire.TypeControl)
	}
	if raw["command"] != wire.ControlStop {
		t.Errorf("command = %v, want %q", raw["command"], wire.ControlStop)
	}
}

func TestClient_SyncStopIdempotentTeardown(t *testing.T) {
	r := startFakeRenderer(t)
	c := newTestClient()
	c.Connect(r.addr())
	if !c.Connected() {
		t.Fatal("client did not connect")
	}
	<-r.connReady

	c.SyncStop()
	if c.State() != Disconnected {
		t.Errorf("State = %v, want Disconnected", c.State())
	}

	// Further sends are no-ops
	c.Send(wire.RendererAction(types.ActionStart))
}

func TestClient_ConnectIdempotentWhileConnected(t *testing.T) {
	r := startFakeRenderer(t)
	c := connectOrFail(t, r)

	c.Connect(r.addr())
	if c.State() != Connected {
		t.Errorf("State = %v, want Connected", c.State())
	}
}
