// Package types defines the shared enums and value types of the renderer
// wire protocol. Numeric values are part of the external contract and must
// match the renderer's protocol definition exactly.
package types

// RendererAction enumerates renderer-level commands.
type RendererAction int32

// Renderer action codes. Wire values are fixed by the renderer's protocol
// definition; do not reorder.
const (
	ActionInit RendererAction = iota
	ActionStart
	ActionStop
	ActionReset
	ActionFree
	ActionSetRenderMode
	ActionSetCurrentFrame
	ActionSetCropRegion
	ActionSetRenderRegion
	ActionResize
	ActionSetCurrentCamera
	ActionSetCommitAction
	ActionExportScene
	ActionGetImage
	ActionClearFrameValues
	ActionResetHosts
	ActionSetVfbShow
	ActionSetQuality
	ActionSetViewportImageFormat
)

// String returns the action name for logging.
func (a RendererAction) String() string {
	switch a {
	case ActionInit:
		return "init"
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionReset:
		return "reset"
	case ActionFree:
		return "free"
	case ActionSetRenderMode:
		return "set_render_mode"
	case ActionSetCurrentFrame:
		return "set_current_frame"
	case ActionSetCropRegion:
		return "set_crop_region"
	case ActionSetRenderRegion:
		return "set_render_region"
	case ActionResize:
		return "resize"
	case ActionSetCurrentCamera:
		return "set_current_camera"
	case ActionSetCommitAction:
		return "set_commit_action"
	case ActionExportScene:
		return "export_scene"
	case ActionGetImage:
		return "get_image"
	case ActionClearFrameValues:
		return "clear_frame_values"
	case ActionResetHosts:
		return "reset_hosts"
	case ActionSetVfbShow:
		return "set_vfb_show"
	case ActionSetQuality:
		return "set_quality"
	case ActionSetViewportImageFormat:
		return "set_viewport_image_format"
	default:
		return "unknown"
	}
}

// PluginAction enumerates plugin-level commands.
type PluginAction int32

// Plugin action codes.
const (
	PluginCreate PluginAction = iota
	PluginSetProperty
	PluginRemove
	PluginReplace
)

// String returns the plugin action name for logging.
func (a PluginAction) String() string {
	switch a {
	case PluginCreate:
		return "create"
	case PluginSetProperty:
		return "set_property"
	case PluginRemove:
		return "remove"
	case PluginReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// RendererState enumerates renderer-state-change notifications sent by the
// renderer to the client.
type RendererState int32

// Renderer state change codes.
const (
	StateAbort RendererState = iota
	StateProgress
	StateProgressMessage
	StateContinue
)

// RendererType selects the renderer session kind at init.
type RendererType int32

// Renderer session kinds.
const (
	RendererNone RendererType = iota
	RendererRT
	RendererAnimation
	RendererSingleFrame
	RendererPreview
)

// DRFlags is a bitmask of distributed-rendering options.
type DRFlags int32

// Distributed rendering flags.
const (
	DRNone              DRFlags = 0
	DREnable            DRFlags = 1
	DRRenderOnlyOnHosts DRFlags = 2
)

// CommitAction controls how plugin updates are committed on the renderer.
type CommitAction int32

// Commit actions.
const (
	CommitNow CommitAction = iota
	CommitAutoOn
	CommitAutoOff
)
