package exporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pithecene-io/renderlink/config"
	"github.com/pithecene-io/renderlink/types"
	"github.com/pithecene-io/renderlink/wire"
)

func TestSync_SuppressesUnchangedSettings(t *testing.T) {
	settings := config.Default()
	e, fs := newTestExporter(t, settings)
	e.Init()
	fs.clearSent()

	// Nothing changed since Init primed the cache
	e.Sync()
	if n := len(fs.sentCommands()); n != 0 {
		t.Fatalf("unchanged Sync sent %d commands, want 0", n)
	}

	// One changed field sends exactly one command
	settings.ViewportQuality = 85
	e.Sync()
	sent := fs.sentCommands()
	if len(sent) != 1 {
		t.Fatalf("changed Sync sent %d commands, want 1", len(sent))
	}
	cmd := sent[0].(*wire.RendererCommand)
	if cmd.Action != types.ActionSetQuality || *cmd.IntValue != 85 {
		t.Errorf("sent %v with value %v, want SetQuality 85", cmd.Action, cmd.IntValue)
	}

	// The new value is now cached
	fs.clearSent()
	e.Sync()
	if n := len(fs.sentCommands()); n != 0 {
		t.Errorf("repeat Sync sent %d commands, want 0", n)
	}
}

func TestSync_SendsAllChangedFields(t *testing.T) {
	settings := config.Default()
	e, fs := newTestExporter(t, settings)
	e.Init()
	fs.clearSent()

	settings.ShowVFB = !settings.ShowVFB
	settings.ViewportQuality = 10
	settings.ViewportFormat = 2
	settings.RenderMode = 3
	e.Sync()

	actions := rendererActions(fs.sentCommands())
	want := []types.RendererAction{
		types.ActionSetVfbShow,
		types.ActionSetQuality,
		types.ActionSetViewportImageFormat,
		types.ActionSetRenderMode,
	}
	if len(actions) != len(want) {
		t.Fatalf("sent %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("command %d = %v, want %v", i, actions[i], want[i])
		}
	}
}

func TestSetRenderSize_Deduplicates(t *testing.T) {
	e, fs := newTestExporter(t, config.Default())
	e.Init()
	fs.clearSent()

	e.SetRenderSize(800, 600)
	e.SetRenderSize(800, 600)

	sent := fs.sentCommands()
	if len(sent) != 1 {
		t.Fatalf("sent %d resize commands, want 1", len(sent))
	}
	cmd := sent[0].(*wire.RendererCommand)
	if cmd.Action != types.ActionResize {
		t.Errorf("action = %v, want ActionResize", cmd.Action)
	}
	if cmd.IntList[0] != 800 || cmd.IntList[1] != 600 {
		t.Errorf("size = %v, want [800 600]", cmd.IntList)
	}

	// A genuinely new size goes through
	e.SetRenderSize(1024, 768)
	if len(fs.sentCommands()) != 2 {
		t.Error("changed size should send a second resize")
	}
}

func TestSetCurrentFrame_Deduplicates(t *testing.T) {
	e, fs := newTestExporter(t, config.Default())
	e.Init()
	fs.clearSent()

	e.SetCurrentFrame(5)
	e.SetCurrentFrame(5)
	e.SetCurrentFrame(6)

	sent := fs.sentCommands()
	if len(sent) != 2 {
		t.Fatalf("sent %d frame commands, want 2", len(sent))
	}
	first := sent[0].(*wire.RendererCommand)
	if first.Action != types.ActionSetCurrentFrame || *first.FloatValue != 5 {
		t.Errorf("first command = %v %v, want SetCurrentFrame 5", first.Action, first.FloatValue)
	}
}

func TestSetRenderRegion_CropSelectsAction(t *testing.T) {
	e, fs := newTestExporter(t, config.Default())
	e.Init()
	fs.clearSent()

	e.SetRenderRegion(0, 0, 100, 50, false)
	e.SetRenderRegion(10, 20, 100, 50, true)

	sent := fs.sentCommands()
	if len(sent) != 2 {
		t.Fatalf("sent %d commands, want 2", len(sent))
	}
	if a := sent[0].(*wire.RendererCommand).Action; a != types.ActionSetRenderRegion {
		t.Errorf("non-crop action = %v, want ActionSetRenderRegion", a)
	}
	crop := sent[1].(*wire.RendererCommand)
	if crop.Action != types.ActionSetCropRegion {
		t.Errorf("crop action = %v, want ActionSetCropRegion", crop.Action)
	}
	want := []int32{10, 20, 100, 50}
	for i, v := range want {
		if crop.IntList[i] != v {
			t.Errorf("IntList[%d] = %d, want %d", i, crop.IntList[i], v)
		}
	}
}

func TestSetCameraPlugin_Deduplicates(t *testing.T) {
	e, fs := newTestExporter(t, config.Default())
	e.Init()
	fs.clearSent()

	e.SetCameraPlugin("cameraA")
	e.SetCameraPlugin("cameraA")
	e.SetCameraPlugin("cameraB")

	sent := fs.sentCommands()
	if len(sent) != 2 {
		t.Fatalf("sent %d camera commands, want 2", len(sent))
	}
	cmd := sent[0].(*wire.RendererCommand)
	if cmd.Action != types.ActionSetCurrentCamera || *cmd.StringValue != "cameraA" {
		t.Errorf("command = %v %v, want SetCurrentCamera cameraA", cmd.Action, cmd.StringValue)
	}
}

func TestSetCommitState_AutoTransitionsOnChangeOnly(t *testing.T) {
	e, fs := newTestExporter(t, config.Default())
	e.Init()
	fs.clearSent()

	e.SetCommitState(types.CommitAutoOn)
	e.SetCommitState(types.CommitAutoOn)
	e.SetCommitState(types.CommitAutoOff)

	sent := fs.sentCommands()
	if len(sent) != 2 {
		t.Fatalf("sent %d commit commands, want 2", len(sent))
	}
	if *sent[0].(*wire.RendererCommand).IntValue != int64(types.CommitAutoOn) {
		t.Error("first command should switch auto-commit on")
	}
	if *sent[1].(*wire.RendererCommand).IntValue != int64(types.CommitAutoOff) {
		t.Error("second command should switch auto-commit off")
	}
}

func TestSetCommitState_ExplicitCommitRequiresPendingUpdates(t *testing.T) {
	e, fs := newTestExporter(t, config.Default())
	e.Init()

	// Flush the construction-time dirty flag
	e.SetCommitState(types.CommitNow)
	fs.clearSent()

	// No pending updates: commit elided
	e.SetCommitState(types.CommitNow)
	if n := len(fs.sentCommands()); n != 0 {
		t.Fatalf("commit without updates sent %d commands, want 0", n)
	}

	// A plugin export marks updates pending
	e.ExportPlugin(&types.PluginDesc{Name: "node", ID: "Node"})
	fs.clearSent()
	e.SetCommitState(types.CommitNow)

	sent := fs.sentCommands()
	if len(sent) != 1 {
		t.Fatalf("commit with updates sent %d commands, want 1", len(sent))
	}
	if *sent[0].(*wire.RendererCommand).IntValue != int64(types.CommitNow) {
		t.Error("expected explicit commit command")
	}

	// The flag is consumed
	fs.clearSent()
	e.SetCommitState(types.CommitNow)
	if n := len(fs.sentCommands()); n != 0 {
		t.Errorf("repeat commit sent %d commands, want 0", n)
	}
}

func TestReset_ResendsDisplaySettings(t *testing.T) {
	e, fs := newTestExporter(t, config.Default())
	e.Init()
	fs.clearSent()

	e.Reset()

	actions := rendererActions(fs.sentCommands())
	want := []types.RendererAction{
		types.ActionReset,
		types.ActionSetVfbShow,
		types.ActionSetQuality,
		types.ActionSetViewportImageFormat,
		types.ActionSetRenderMode,
	}
	if len(actions) != len(want) {
		t.Fatalf("sent %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("command %d = %v, want %v", i, actions[i], want[i])
		}
	}

	// Reset empties the cache, so the next Sync re-sends everything
	fs.clearSent()
	e.Sync()
	if n := len(fs.sentCommands()); n == 0 {
		t.Error("Sync after Reset should re-send display settings")
	}
}

func TestStartStop(t *testing.T) {
	e, fs := newTestExporter(t, config.Default())
	e.Init()
	fs.clearSent()

	e.Start()
	e.Stop()

	actions := rendererActions(fs.sentCommands())
	if len(actions) != 2 || actions[0] != types.ActionStart || actions[1] != types.ActionStop {
		t.Errorf("sent %v, want [start stop]", actions)
	}
}

func TestClearFrameData(t *testing.T) {
	e, fs := newTestExporter(t, config.Default())
	e.Init()
	fs.clearSent()

	e.ClearFrameData(42)

	sent := fs.sentCommands()
	if len(sent) != 1 {
		t.Fatalf("sent %d commands, want 1", len(sent))
	}
	cmd := sent[0].(*wire.RendererCommand)
	if cmd.Action != types.ActionClearFrameValues || *cmd.FloatValue != 42 {
		t.Errorf("command = %v %v, want ClearFrameValues 42", cmd.Action, cmd.FloatValue)
	}
}

func TestExportScene_SendsPathAndCountsScene(t *testing.T) {
	e, fs := newTestExporter(t, config.Default())
	e.Init()
	fs.clearSent()

	path := filepath.Join(t.TempDir(), "scenes", "shot010.vrscene")
	e.ExportScene(path)

	// Parent directory is created up front
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("export directory not created: %v", err)
	}

	sent := fs.sentCommands()
	if len(sent) != 1 {
		t.Fatalf("sent %d commands, want 1", len(sent))
	}
	cmd := sent[0].(*wire.RendererCommand)
	if cmd.Action != types.ActionExportScene || *cmd.StringValue != path {
		t.Errorf("command = %v %v, want ExportScene %q", cmd.Action, cmd.StringValue, path)
	}
	if e.Metrics().ScenesExported != 1 {
		t.Errorf("ScenesExported = %d, want 1", e.Metrics().ScenesExported)
	}
}

func TestExportScene_SkipsOnDirectoryFailure(t *testing.T) {
	e, fs := newTestExporter(t, config.Default())
	e.Init()
	fs.clearSent()

	// A regular file where a directory is needed makes MkdirAll fail
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	e.ExportScene(filepath.Join(blocker, "sub", "scene.vrscene"))

	if n := len(fs.sentCommands()); n != 0 {
		t.Errorf("failed export sent %d commands, want 0", n)
	}
	if e.Metrics().ScenesExported != 0 {
		t.Error("failed export must not count")
	}
}
