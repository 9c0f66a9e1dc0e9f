package camera

import (
	"strings"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config invalid: %v", errs)
	}
	if cfg.Quality != 80 {
		t.Errorf("expected still quality 80, got %d", cfg.Quality)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad source", func(c *Config) { c.Source = "usb" }, "source"},
		{"opencv without device", func(c *Config) { c.Device = "" }, "device"},
		{"width too small", func(c *Config) { c.Width = 10 }, "width"},
		{"height too large", func(c *Config) { c.Height = 99999 }, "height"},
		{"framerate zero", func(c *Config) { c.Framerate = 0 }, "framerate"},
		{"quality zero", func(c *Config) { c.Quality = 0 }, "quality"},
		{"preview quality", func(c *Config) { c.PreviewQuality = 101 }, "preview_quality"},
		{"preview fps", func(c *Config) { c.PreviewFPS = -1 }, "preview_fps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(strings.Join(errs, ";"), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, errs)
			}
		})
	}
}

func TestRemoteSourceNeedsNoDevice(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source = SourceRemote
	cfg.Device = ""
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestPresets(t *testing.T) {
	base := DefaultConfig()
	base.Source = SourceRemote
	base.Device = "2"

	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			p := GetPreset(name, base)
			if p == nil {
				t.Fatal("preset not found")
			}
			if errs := p.Validate(); len(errs) != 0 {
				t.Errorf("preset invalid: %v", errs)
			}
			if p.Source != base.Source || p.Device != base.Device {
				t.Error("preset must keep source and device")
			}
		})
	}

	if GetPreset("8k", base) != nil {
		t.Error("unknown preset should return nil")
	}
}

func TestNewDevice(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source = SourceMock
	dev, err := NewDevice(NewManager(cfg), nil)
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	if _, ok := dev.(*MockDevice); !ok {
		t.Errorf("expected *MockDevice, got %T", dev)
	}

	cfg.Source = SourceRemote
	dev, err = NewDevice(NewManager(cfg), nil)
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	if _, ok := dev.(*RemoteDevice); !ok {
		t.Errorf("expected *RemoteDevice, got %T", dev)
	}

	cfg.Quality = 0
	if _, err := NewDevice(NewManager(cfg), nil); err == nil {
		t.Error("expected error for invalid config")
	}
}
