package exporter

import (
	"os"
	"path/filepath"

	"github.com/pithecene-io/renderlink/types"
	"github.com/pithecene-io/renderlink/wire"
)

// Sync diffs the current settings against the last-sent cache and sends
// only the commands for changed fields. Two Syncs in a row with unchanged
// settings send nothing the second time.
func (e *Exporter) Sync() {
	e.checkClient()

	if e.cached.showVFB != e.settings.ShowVFB {
		e.client.Send(wire.RendererActionBool(types.ActionSetVfbShow, e.settings.ShowVFB))
		e.cached.showVFB = e.settings.ShowVFB
	}
	if e.cached.quality != e.settings.ViewportQuality {
		e.client.Send(wire.RendererActionInt(types.ActionSetQuality, int64(e.settings.ViewportQuality)))
		e.cached.quality = e.settings.ViewportQuality
	}
	if e.cached.format != e.settings.ViewportFormat {
		e.client.Send(wire.RendererActionInt(types.ActionSetViewportImageFormat, int64(e.settings.ViewportFormat)))
		e.cached.format = e.settings.ViewportFormat
	}
	if e.cached.renderMode != e.settings.RenderMode {
		e.client.Send(wire.RendererActionInt(types.ActionSetRenderMode, int64(e.settings.RenderMode)))
		e.cached.renderMode = e.settings.RenderMode
	}
}

// SetRenderSize updates the render resolution. No-op unless the resolution
// changed. Serialized with image-buffer access: a resize invalidates the
// dimensions buckets are merged against.
func (e *Exporter) SetRenderSize(w, h int) {
	e.imgMu.Lock()
	defer e.imgMu.Unlock()
	if w == e.cached.renderWidth && h == e.cached.renderHeight {
		return
	}
	e.cached.renderWidth = w
	e.cached.renderHeight = h
	e.checkClient()
	e.client.Send(wire.RendererResize(w, h))
}

// SetCurrentFrame moves the renderer to a scene frame.
func (e *Exporter) SetCurrentFrame(frame float32) {
	if frame == e.currentFrame {
		return
	}
	e.currentFrame = frame
	e.checkClient()
	e.client.Send(wire.RendererActionFloat(types.ActionSetCurrentFrame, float64(frame)))
}

// SetRenderRegion restricts rendering to a sub-region; crop selects the
// crop-region semantics instead of the render-region ones.
func (e *Exporter) SetRenderRegion(x, y, w, h int, crop bool) {
	e.checkClient()
	action := types.ActionSetRenderRegion
	if crop {
		action = types.ActionSetCropRegion
	}
	e.client.Send(wire.RendererRegion(action, x, y, w, h))
}

// SetCameraPlugin makes the named camera plugin current. No-op when it
// already is.
func (e *Exporter) SetCameraPlugin(name string) {
	if e.cached.activeCamera == name {
		return
	}
	e.dirty = true
	e.checkClient()
	e.cached.activeCamera = name
	e.client.Send(wire.RendererActionString(types.ActionSetCurrentCamera, name))
}

// SetCommitState switches commit handling. Auto on/off transitions are
// sent on change; an explicit commit is sent only when updates are
// pending.
func (e *Exporter) SetCommitState(action types.CommitAction) {
	if action == types.CommitAutoOn || action == types.CommitAutoOff {
		if action != e.commitState {
			e.commitState = action
			e.checkClient()
			e.client.Send(wire.RendererActionInt(types.ActionSetCommitAction, int64(action)))
		}
		return
	}
	if e.dirty {
		e.checkClient()
		e.client.Send(wire.RendererActionInt(types.ActionSetCommitAction, int64(action)))
		e.dirty = false
	}
}

// Start begins rendering.
func (e *Exporter) Start() {
	e.checkClient()
	e.started = true
	e.client.Send(wire.RendererAction(types.ActionStart))
}

// Stop halts rendering.
func (e *Exporter) Stop() {
	e.client.Send(wire.RendererAction(types.ActionStop))
}

// Reset clears renderer-side scene state, re-sends the display settings,
// and empties the settings cache.
func (e *Exporter) Reset() {
	e.client.Send(wire.RendererAction(types.ActionReset))

	e.client.Send(wire.RendererActionBool(types.ActionSetVfbShow, e.settings.ShowVFB))
	e.client.Send(wire.RendererActionInt(types.ActionSetQuality, int64(e.settings.ViewportQuality)))
	e.client.Send(wire.RendererActionInt(types.ActionSetViewportImageFormat, int64(e.settings.ViewportFormat)))
	e.client.Send(wire.RendererActionInt(types.ActionSetRenderMode, int64(e.settings.RenderMode)))

	e.cached = cachedSettings{}
}

// Free releases the renderer-side session resources.
func (e *Exporter) Free() {
	e.checkClient()
	e.client.Send(wire.RendererAction(types.ActionFree))
}

// ClearFrameData drops renderer-side animation data up to the given frame.
func (e *Exporter) ClearFrameData(upTo float32) {
	e.checkClient()
	e.client.Send(wire.RendererActionFloat(types.ActionClearFrameValues, float64(upTo)))
}

// WaitForServer blocks until all queued commands have been transmitted.
func (e *Exporter) WaitForServer() {
	e.checkClient()
	e.client.WaitForMessages()
}

// ExportScene writes the full scene to a renderer-native file at path. The
// exporter creates missing parent directories; a filesystem failure is
// logged and the export skipped. Blocks until the command has been
// transmitted.
func (e *Exporter) ExportScene(path string) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		e.logger.Error("failed to create scene export directory", map[string]any{
			"dir":   dir,
			"error": err.Error(),
		})
		return
	}

	e.checkClient()
	e.client.Send(wire.RendererActionString(types.ActionExportScene, path))
	e.collector.IncScenesExported()
	e.client.WaitForMessages()
}
