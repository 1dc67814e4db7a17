// Package config loads the listener's JSON configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/vmc-listener/internal/osc"
)

// Default values used by the Get* accessors.
const (
	DefaultPort          = 3333
	DefaultBindAddress   = "127.0.0.1"
	DefaultBufferSize    = 10000
	DefaultFraming       = "vmc"
	DefaultPollInterval  = 16 * time.Millisecond
	DefaultStatsInterval = 60 * time.Second
	DefaultDBPath        = "vmc_sessions.db"

	maxFileSize = 1 * 1024 * 1024
)

// ListenerConfig is the on-disk configuration. Every field is optional;
// omitted fields fall back to the defaults above.
type ListenerConfig struct {
	Port          *int    `json:"port,omitempty"`
	BindAddress   *string `json:"bind_address,omitempty"`
	BufferSize    *int    `json:"buffer_size,omitempty"`
	Framing       *string `json:"framing,omitempty"`        // "vmc" or "osc"
	PollInterval  *string `json:"poll_interval,omitempty"`  // duration string like "16ms"
	RcvBuf        *int    `json:"rcvbuf,omitempty"`         // bytes, 0 keeps the OS default
	StatsInterval *string `json:"stats_interval,omitempty"` // duration string like "60s"

	// BlendShapeTranslations is merged over the built-in table. An empty
	// value removes a built-in entry.
	BlendShapeTranslations map[string]string `json:"blend_shape_translations,omitempty"`

	ForwardAddress *string `json:"forward_address,omitempty"`
	ForwardPort    *int    `json:"forward_port,omitempty"`

	Record     *bool   `json:"record,omitempty"`
	DBPath     *string `json:"db_path,omitempty"`
	HTTPListen *string `json:"http_listen,omitempty"`
}

func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }
func ptrBool(v bool) *bool       { return &v }

// Load reads and validates a configuration file. The file must have a
// .json extension and be at most 1 MiB.
func Load(path string) (*ListenerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration JSON.
func Parse(data []byte) (*ListenerConfig, error) {
	cfg := &ListenerConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that are set.
func (c *ListenerConfig) Validate() error {
	if c.Port != nil && (*c.Port < 0 || *c.Port > 65535) {
		return fmt.Errorf("port must be between 0 and 65535, got %d", *c.Port)
	}
	if c.BindAddress != nil && net.ParseIP(*c.BindAddress) == nil && *c.BindAddress != "localhost" {
		return fmt.Errorf("bind_address %q is not an IP address", *c.BindAddress)
	}
	if c.BufferSize != nil && (*c.BufferSize < 16 || *c.BufferSize > 65536) {
		return fmt.Errorf("buffer_size must be between 16 and 65536, got %d", *c.BufferSize)
	}
	if c.Framing != nil {
		if _, err := osc.ParseFraming(*c.Framing); err != nil {
			return err
		}
	}
	for name, s := range map[string]*string{"poll_interval": c.PollInterval, "stats_interval": c.StatsInterval} {
		if s == nil || *s == "" {
			continue
		}
		d, err := time.ParseDuration(*s)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *s, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	if c.RcvBuf != nil && *c.RcvBuf < 0 {
		return fmt.Errorf("rcvbuf must not be negative, got %d", *c.RcvBuf)
	}
	for k := range c.BlendShapeTranslations {
		if k == "" {
			return fmt.Errorf("blend_shape_translations has an empty source name")
		}
	}
	if c.ForwardPort != nil && (*c.ForwardPort <= 0 || *c.ForwardPort > 65535) {
		return fmt.Errorf("forward_port must be between 1 and 65535, got %d", *c.ForwardPort)
	}
	if c.HTTPListen != nil && *c.HTTPListen != "" {
		if _, _, err := net.SplitHostPort(*c.HTTPListen); err != nil {
			return fmt.Errorf("invalid http_listen %q: %w", *c.HTTPListen, err)
		}
	}
	return nil
}

func (c *ListenerConfig) GetPort() int {
	if c.Port == nil {
		return DefaultPort
	}
	return *c.Port
}

func (c *ListenerConfig) GetBindAddress() string {
	if c.BindAddress == nil || *c.BindAddress == "" {
		return DefaultBindAddress
	}
	return *c.BindAddress
}

// GetListenAddress joins the bind address and port.
func (c *ListenerConfig) GetListenAddress() string {
	return net.JoinHostPort(c.GetBindAddress(), fmt.Sprint(c.GetPort()))
}

func (c *ListenerConfig) GetBufferSize() int {
	if c.BufferSize == nil {
		return DefaultBufferSize
	}
	return *c.BufferSize
}

// GetFraming returns the parsed framing. Validate has already rejected
// unknown values, so an error here falls back to the default.
func (c *ListenerConfig) GetFraming() osc.Framing {
	if c.Framing == nil {
		return osc.FramingVMC
	}
	f, err := osc.ParseFraming(*c.Framing)
	if err != nil {
		return osc.FramingVMC
	}
	return f
}

func (c *ListenerConfig) GetPollInterval() time.Duration {
	return durationOr(c.PollInterval, DefaultPollInterval)
}

func (c *ListenerConfig) GetStatsInterval() time.Duration {
	return durationOr(c.StatsInterval, DefaultStatsInterval)
}

func (c *ListenerConfig) GetRcvBuf() int {
	if c.RcvBuf == nil {
		return 0
	}
	return *c.RcvBuf
}

// GetForward returns the relay target, or ok=false when forwarding is off.
func (c *ListenerConfig) GetForward() (addr string, port int, ok bool) {
	if c.ForwardPort == nil || *c.ForwardPort == 0 {
		return "", 0, false
	}
	addr = DefaultBindAddress
	if c.ForwardAddress != nil && *c.ForwardAddress != "" {
		addr = *c.ForwardAddress
	}
	return addr, *c.ForwardPort, true
}

func (c *ListenerConfig) GetRecord() bool {
	return c.Record != nil && *c.Record
}

func (c *ListenerConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return DefaultDBPath
	}
	return *c.DBPath
}

// GetHTTPListen returns "" when the HTTP server is disabled.
func (c *ListenerConfig) GetHTTPListen() string {
	if c.HTTPListen == nil {
		return ""
	}
	return *c.HTTPListen
}

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
