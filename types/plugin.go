package types

// PluginAttr is one named attribute of a plugin description. A nil Value
// marks the attribute as unset; unset attributes are not transmitted.
type PluginAttr struct {
	Name  string
	Value any
}

// PluginDesc describes a renderer-side plugin to create: a unique instance
// name, a plugin type identifier, and its attributes in export order.
type PluginDesc struct {
	Name  string
	ID    string
	Attrs []PluginAttr
}

// PluginRef is a lightweight handle to an exported plugin, usable by later
// plugin operations. The zero value is the empty reference.
type PluginRef struct {
	Name string
}

// Valid reports whether the reference points at an exported plugin.
func (r PluginRef) Valid() bool { return r.Name != "" }

// SessionMeta carries session identity attached to every log entry.
type SessionMeta struct {
	// SessionID uniquely identifies one exporter session.
	SessionID string
	// Server is the renderer endpoint this session talks to.
	Server string
}
