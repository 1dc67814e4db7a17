package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/vmc-listener/internal/osc"
)

func TestDefaults(t *testing.T) {
	cfg := &ListenerConfig{}
	if got := cfg.GetPort(); got != 3333 {
		t.Errorf("GetPort() = %d, want 3333", got)
	}
	if got := cfg.GetListenAddress(); got != "127.0.0.1:3333" {
		t.Errorf("GetListenAddress() = %q", got)
	}
	if got := cfg.GetBufferSize(); got != 10000 {
		t.Errorf("GetBufferSize() = %d, want 10000", got)
	}
	if got := cfg.GetFraming(); got != osc.FramingVMC {
		t.Errorf("GetFraming() = %v, want vmc", got)
	}
	if got := cfg.GetPollInterval(); got != 16*time.Millisecond {
		t.Errorf("GetPollInterval() = %v", got)
	}
	if got := cfg.GetStatsInterval(); got != time.Minute {
		t.Errorf("GetStatsInterval() = %v", got)
	}
	if _, _, ok := cfg.GetForward(); ok {
		t.Error("forwarding should be off by default")
	}
	if cfg.GetRecord() {
		t.Error("recording should be off by default")
	}
	if cfg.GetHTTPListen() != "" {
		t.Error("HTTP should be off by default")
	}
	if cfg.GetDBPath() != DefaultDBPath {
		t.Errorf("GetDBPath() = %q", cfg.GetDBPath())
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`{
		"port": 39539,
		"bind_address": "0.0.0.0",
		"framing": "osc",
		"poll_interval": "5ms",
		"rcvbuf": 4194304,
		"blend_shape_translations": {"A": "mouthA", "Joy": ""},
		"forward_port": 39540,
		"record": true,
		"http_listen": "127.0.0.1:8080"
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.GetListenAddress() != "0.0.0.0:39539" {
		t.Errorf("GetListenAddress() = %q", cfg.GetListenAddress())
	}
	if cfg.GetFraming() != osc.FramingOSC {
		t.Errorf("GetFraming() = %v", cfg.GetFraming())
	}
	if cfg.GetPollInterval() != 5*time.Millisecond {
		t.Errorf("GetPollInterval() = %v", cfg.GetPollInterval())
	}
	if cfg.GetRcvBuf() != 4194304 {
		t.Errorf("GetRcvBuf() = %d", cfg.GetRcvBuf())
	}
	if cfg.BlendShapeTranslations["A"] != "mouthA" {
		t.Errorf("translations = %v", cfg.BlendShapeTranslations)
	}
	addr, port, ok := cfg.GetForward()
	if !ok || addr != "127.0.0.1" || port != 39540 {
		t.Errorf("GetForward() = %q, %d, %v", addr, port, ok)
	}
	if !cfg.GetRecord() {
		t.Error("GetRecord() = false")
	}
	if cfg.GetHTTPListen() != "127.0.0.1:8080" {
		t.Errorf("GetHTTPListen() = %q", cfg.GetHTTPListen())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ListenerConfig
		wantErr string
	}{
		{"valid empty", ListenerConfig{}, ""},
		{"port range", ListenerConfig{Port: ptrInt(70000)}, "port"},
		{"bad bind", ListenerConfig{BindAddress: ptrString("example.com")}, "bind_address"},
		{"localhost", ListenerConfig{BindAddress: ptrString("localhost")}, ""},
		{"tiny buffer", ListenerConfig{BufferSize: ptrInt(4)}, "buffer_size"},
		{"framing", ListenerConfig{Framing: ptrString("slip")}, "framing"},
		{"poll interval", ListenerConfig{PollInterval: ptrString("soon")}, "poll_interval"},
		{"negative stats interval", ListenerConfig{StatsInterval: ptrString("-1s")}, "stats_interval"},
		{"rcvbuf", ListenerConfig{RcvBuf: ptrInt(-1)}, "rcvbuf"},
		{"empty translation key", ListenerConfig{BlendShapeTranslations: map[string]string{"": "x"}}, "empty source"},
		{"forward port", ListenerConfig{ForwardPort: ptrInt(-5)}, "forward_port"},
		{"http listen", ListenerConfig{HTTPListen: ptrString("8080")}, "http_listen"},
		{"record flag", ListenerConfig{Record: ptrBool(true)}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "listener.json")
	if err := os.WriteFile(path, []byte(`{"port": 4444}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GetPort() != 4444 {
		t.Errorf("GetPort() = %d", cfg.GetPort())
	}

	if _, err := Load(filepath.Join(dir, "listener.yaml")); err == nil || !strings.Contains(err.Error(), ".json") {
		t.Errorf("expected extension error, got %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"port": "x"}`), 0o644)
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}

	big := filepath.Join(dir, "big.json")
	os.WriteFile(big, make([]byte, maxFileSize+1), 0o644)
	if _, err := Load(big); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}

	invalid := filepath.Join(dir, "invalid.json")
	os.WriteFile(invalid, []byte(`{"framing": "slip"}`), 0o644)
	if _, err := Load(invalid); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load("../../config/listener.example.json")
	if err != nil {
		t.Fatalf("example config: %v", err)
	}
	if cfg.GetPort() != DefaultPort {
		t.Errorf("example port = %d", cfg.GetPort())
	}
}
