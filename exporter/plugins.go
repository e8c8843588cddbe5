package exporter

import (
	"github.com/google/uuid"

	"github.com/pithecene-io/renderlink/types"
	"github.com/pithecene-io/renderlink/wire"
)

// channelPlugins maps render-channel-producing plugin type identifiers to
// the channel whose image stream they feed.
var channelPlugins = map[string]types.RenderChannel{
	"RenderChannelBumpNormals": types.ChannelBumpNormal,
	"RenderChannelColor":       types.ChannelColor,
	"RenderChannelDenoiser":    types.ChannelDenoised,
	"RenderChannelDRBucket":    types.ChannelDRBucket,
	"RenderChannelNodeID":      types.ChannelNodeID,
	"RenderChannelNormals":     types.ChannelNormal,
	"RenderChannelRenderID":    types.ChannelRenderID,
	"RenderChannelVelocity":    types.ChannelVelocity,
	"RenderChannelZDepth":      types.ChannelZDepth,
}

// ExportPlugin creates a renderer-side plugin and sends one property-set
// command per non-empty attribute, in attribute order. An empty type
// identifier is a caller error: logged as a warning, zero wire traffic,
// empty reference returned. When the description has no instance name, one
// is assigned. Render-channel plugin types additionally request the mapped
// channel's image stream.
func (e *Exporter) ExportPlugin(desc *types.PluginDesc) types.PluginRef {
	e.dirty = true
	e.checkClient()

	if desc.ID == "" {
		e.logger.Warn("plugin type identifier is not set", map[string]any{
			"plugin": desc.Name,
		})
		return types.PluginRef{}
	}

	name := desc.Name
	if name == "" {
		name = "plugin_" + uuid.New().String()
	}
	e.exported.Add(1)
	e.collector.IncPluginsExported()

	if channel, ok := channelPlugins[desc.ID]; ok {
		e.client.Send(wire.RendererActionInt(types.ActionGetImage, int64(channel)))
	}

	e.client.Send(wire.PluginCreate(name, desc.ID))

	for _, attr := range desc.Attrs {
		if attr.Value == nil {
			continue
		}
		e.client.Send(wire.PluginSetProperty(name, attr.Name, attr.Value))
	}

	return types.PluginRef{Name: name}
}

// RemovePlugin deletes a renderer-side plugin.
func (e *Exporter) RemovePlugin(name string) {
	e.dirty = true
	e.checkClient()
	e.client.Send(wire.PluginRemove(name))
}

// ReplacePlugin repoints consumers of oldName at newName.
func (e *Exporter) ReplacePlugin(oldName, newName string) {
	e.dirty = true
	e.checkClient()
	e.client.Send(wire.PluginReplace(oldName, newName))
}
