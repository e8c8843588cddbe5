package types

// Version is the canonical project version.
// The wire protocol version (ProtocolVersion) advances independently;
// this one tracks releases of the library and CLI.
const Version = "0.3.0"

// ProtocolVersion is the renderer wire protocol version exchanged during
// the connection handshake. The renderer rejects clients whose major
// version differs from its own.
const ProtocolVersion = "1.0"
