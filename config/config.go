// Package config defines the exporter settings consumed by the rest of the
// library. Settings are read-only from the core's perspective: the host
// supplies them, the exporter only diffs and forwards them.
package config

import (
	"fmt"
	"strings"
	"time"
)

// DefaultAddress is the renderer host used when none is configured.
const DefaultAddress = "127.0.0.1"

// DefaultPort is the renderer port used when none is configured.
const DefaultPort = 4768

// Settings holds every renderer-visible option for one session.
type Settings struct {
	Server   ServerConfig  `yaml:"server"`
	DR       DRConfig      `yaml:"dr"`
	Adapter  AdapterConfig `yaml:"adapter"`

	// RenderMode selects the renderer's internal mode (production, RT CPU,
	// RT GPU...). Opaque to this library; forwarded as-is.
	RenderMode int `yaml:"render_mode"`

	// ViewportQuality is the JPEG quality for viewport image streaming.
	ViewportQuality int `yaml:"viewport_quality"`
	// ViewportFormat selects the viewport streaming image format.
	ViewportFormat int `yaml:"viewport_format"`
	// ShowVFB toggles the renderer's own frame-buffer window.
	ShowVFB bool `yaml:"show_vfb"`

	// Session kind flags. Viewport (realtime) wins over animation.
	IsPreview    bool `yaml:"preview"`
	IsViewport   bool `yaml:"viewport"`
	UseAnimation bool `yaml:"animation"`
}

// ServerConfig locates the renderer process.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Endpoint returns the tcp://host:port endpoint, applying defaults for
// empty fields.
func (s ServerConfig) Endpoint() string {
	addr := s.Address
	if addr == "" {
		addr = DefaultAddress
	}
	port := s.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("tcp://%s:%d", addr, port)
}

// DRConfig holds distributed-rendering options.
type DRConfig struct {
	Use               bool     `yaml:"use"`
	RenderOnlyOnHosts bool     `yaml:"render_only_on_hosts"`
	Hosts             []string `yaml:"hosts"`
}

// HostsString joins the host list with semicolons, the renderer's expected
// list encoding.
func (d DRConfig) HostsString() string {
	return strings.Join(d.Hosts, ";")
}

// AdapterConfig configures the optional session-event adapter.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns settings for a local single-frame session.
func Default() *Settings {
	return &Settings{
		Server:          ServerConfig{Address: DefaultAddress, Port: DefaultPort},
		ViewportQuality: 60,
	}
}

// Validate checks settings consistency.
func (s *Settings) Validate() error {
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", s.Server.Port)
	}
	if s.ViewportQuality < 0 || s.ViewportQuality > 100 {
		return fmt.Errorf("viewport quality %d out of range (0-100)", s.ViewportQuality)
	}
	if s.DR.Use && len(s.DR.Hosts) == 0 {
		return fmt.Errorf("distributed rendering enabled with no hosts")
	}
	return nil
}
