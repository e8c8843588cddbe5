package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/renderlink/types"
)

// Top-level message kind discriminators. Every frame payload is a msgpack
// map with a "type" field holding one of these.
const (
	// Client → renderer.
	TypeHandshake      = "handshake"
	TypeRendererAction = "renderer_action"
	TypePluginAction   = "plugin_action"
	TypeControl        = "control"

	// Renderer → client.
	TypeLog           = "log"
	TypeImageSet      = "image_set"
	TypeRendererState = "renderer_state"
)

// Client kinds announced in the handshake.
const (
	ClientKindExporter  = "exporter"
	ClientKindHeartbeat = "heartbeat"
)

// ControlStop asks the remote side to stop servicing this connection.
const ControlStop = "stop"

// Handshake is the first frame on every connection, in both directions.
type Handshake struct {
	Type       string `msgpack:"type"`
	Version    string `msgpack:"version"`
	ClientKind string `msgpack:"client_kind,omitempty"`
}

// NewHandshake builds the client-side handshake frame.
func NewHandshake(clientKind string) *Handshake {
	return &Handshake{
		Type:       TypeHandshake,
		Version:    types.ProtocolVersion,
		ClientKind: clientKind,
	}
}

// RendererCommand is an outbound renderer-level command: an action code
// plus at most one typed argument. Unused argument fields are omitted.
type RendererCommand struct {
	Type        string               `msgpack:"type"`
	Action      types.RendererAction `msgpack:"action"`
	IntValue    *int64               `msgpack:"int_value,omitempty"`
	FloatValue  *float64             `msgpack:"float_value,omitempty"`
	StringValue *string              `msgpack:"string_value,omitempty"`
	BoolValue   *bool                `msgpack:"bool_value,omitempty"`
	IntList     []int32              `msgpack:"int_list,omitempty"`
	DRFlags     *int32               `msgpack:"dr_flags,omitempty"`
}

// RendererAction builds an argument-less renderer command.
func RendererAction(action types.RendererAction) *RendererCommand {
	return &RendererCommand{Type: TypeRendererAction, Action: action}
}

// RendererActionInt builds a renderer command with an integer argument.
func RendererActionInt(action types.RendererAction, v int64) *RendererCommand {
	return &RendererCommand{Type: TypeRendererAction, Action: action, IntValue: &v}
}

// RendererActionFloat builds a renderer command with a float argument.
func RendererActionFloat(action types.RendererAction, v float64) *RendererCommand {
	return &RendererCommand{Type: TypeRendererAction, Action: action, FloatValue: &v}
}

// RendererActionString builds a renderer command with a string argument.
func RendererActionString(action types.RendererAction, s string) *RendererCommand {
	return &RendererCommand{Type: TypeRendererAction, Action: action, StringValue: &s}
}

// RendererActionBool builds a renderer command with a boolean argument.
func RendererActionBool(action types.RendererAction, b bool) *RendererCommand {
	return &RendererCommand{Type: TypeRendererAction, Action: action, BoolValue: &b}
}

// RendererInit builds the session init command carrying the renderer type
// and distributed-rendering flags.
func RendererInit(rt types.RendererType, flags types.DRFlags) *RendererCommand {
	f := int32(flags)
	v := int64(rt)
	return &RendererCommand{
		Type:     TypeRendererAction,
		Action:   types.ActionInit,
		IntValue: &v,
		DRFlags:  &f,
	}
}

// RendererResize builds the resize command.
func RendererResize(w, h int) *RendererCommand {
	return &RendererCommand{
		Type:    TypeRendererAction,
		Action:  types.ActionResize,
		IntList: []int32{int32(w), int32(h)},
	}
}

// RendererRegion builds a crop- or render-region command from x, y, w, h.
func RendererRegion(action types.RendererAction, x, y, w, h int) *RendererCommand {
	return &RendererCommand{
		Type:    TypeRendererAction,
		Action:  action,
		IntList: []int32{int32(x), int32(y), int32(w), int32(h)},
	}
}

// PluginCommand is an outbound plugin-level command.
type PluginCommand struct {
	Type   string             `msgpack:"type"`
	Action types.PluginAction `msgpack:"action"`
	Plugin string             `msgpack:"plugin"`
	// PluginID is the plugin type identifier, set for Create only.
	PluginID string `msgpack:"plugin_id,omitempty"`
	// Key is the attribute name, set for SetProperty only.
	Key string `msgpack:"key,omitempty"`
	// Value is the attribute value for SetProperty, or the replacement
	// plugin name for Replace.
	Value any `msgpack:"value,omitempty"`
}

// PluginCreate builds the create command for a named plugin of a type.
func PluginCreate(name, pluginID string) *PluginCommand {
	return &PluginCommand{Type: TypePluginAction, Action: types.PluginCreate, Plugin: name, PluginID: pluginID}
}

// PluginSetProperty builds a single attribute update.
func PluginSetProperty(name, attr string, value any) *PluginCommand {
	return &PluginCommand{Type: TypePluginAction, Action: types.PluginSetProperty, Plugin: name, Key: attr, Value: value}
}

// PluginRemove builds the remove command.
func PluginRemove(name string) *PluginCommand {
	return &PluginCommand{Type: TypePluginAction, Action: types.PluginRemove, Plugin: name}
}

// PluginReplace builds the replace command: oldName's consumers are
// repointed at newName.
func PluginReplace(oldName, newName string) *PluginCommand {
	return &PluginCommand{Type: TypePluginAction, Action: types.PluginReplace, Plugin: oldName, Value: newName}
}

// ControlCommand is a connection-level control frame.
type ControlCommand struct {
	Type    string `msgpack:"type"`
	Command string `msgpack:"command"`
}

// ControlStopCommand builds the stop control frame.
func ControlStopCommand() *ControlCommand {
	return &ControlCommand{Type: TypeControl, Command: ControlStop}
}

// LogMessage is an inbound renderer log line with a numeric severity.
type LogMessage struct {
	Type     string `msgpack:"type"`
	Message  string `msgpack:"message"`
	Severity int    `msgpack:"severity"`
}

// ImagePayload is one per-channel image delivery: raw float samples or
// encoded bytes, with a sub-region origin when it is a bucket.
type ImagePayload struct {
	Channel types.RenderChannel `msgpack:"channel"`
	Format  types.ImageFormat   `msgpack:"format"`
	Width   int                 `msgpack:"width"`
	Height  int                 `msgpack:"height"`
	// X, Y locate a bucket inside the full frame. Meaningful only when
	// Bucket is set.
	X      int    `msgpack:"x,omitempty"`
	Y      int    `msgpack:"y,omitempty"`
	Bucket bool   `msgpack:"bucket,omitempty"`
	Data   []byte `msgpack:"data"`
}

// ImageSetMessage is an inbound delivery of one or more channel images.
type ImageSetMessage struct {
	Type   string            `msgpack:"type"`
	Source types.ImageSource `msgpack:"source"`
	Images []ImagePayload    `msgpack:"images"`
}

// StateMessage is an inbound renderer-state-change notification.
type StateMessage struct {
	Type        string              `msgpack:"type"`
	State       types.RendererState `msgpack:"state"`
	FloatValue  float64             `msgpack:"float_value,omitempty"`
	StringValue string              `msgpack:"string_value,omitempty"`
}

// messageTypeProbe peeks at the type field without a full decode.
type messageTypeProbe struct {
	Type string `msgpack:"type"`
}

// Decode decodes an inbound payload into one of *Handshake, *LogMessage,
// *ImageSetMessage, or *StateMessage based on the type discriminator.
func Decode(payload []byte) (any, error) {
	var probe messageTypeProbe
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode message type",
			Err:  err,
		}
	}

	switch probe.Type {
	case TypeHandshake:
		return decodeInto[Handshake](payload, "handshake")
	case TypeLog:
		return decodeInto[LogMessage](payload, "log message")
	case TypeImageSet:
		return decodeInto[ImageSetMessage](payload, "image set")
	case TypeRendererState:
		return decodeInto[StateMessage](payload, "state message")
	default:
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("unknown message type %q", probe.Type),
		}
	}
}

func decodeInto[T any](payload []byte, what string) (*T, error) {
	var msg T
	if err := msgpack.Unmarshal(payload, &msg); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode " + what,
			Err:  err,
		}
	}
	return &msg, nil
}
