package camera

import (
	"testing"
)

func TestManagerUpdateConfig(t *testing.T) {
	m := NewManager(DefaultConfig())

	var applied []Config
	m.OnChange(func(cfg Config) { applied = append(applied, cfg) })

	err := m.UpdateConfig(map[string]interface{}{
		"width":   float64(640),
		"height":  float64(480),
		"quality": 70,
		"device":  float64(1),
	})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	cfg := m.GetConfig()
	if cfg.Width != 640 || cfg.Height != 480 || cfg.Quality != 70 || cfg.Device != "1" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if len(applied) != 1 || applied[0] != cfg {
		t.Errorf("listener calls = %v", applied)
	}
}

func TestManagerPreset(t *testing.T) {
	m := NewManager(DefaultConfig())

	if err := m.UpdateConfig(map[string]interface{}{"preset": Preset1080p, "quality": 95}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	cfg := m.GetConfig()
	if cfg.Width != 1920 || cfg.Height != 1080 {
		t.Errorf("preset not applied: %+v", cfg)
	}
	if cfg.Quality != 95 {
		t.Errorf("override after preset not applied: %d", cfg.Quality)
	}

	if err := m.UpdateConfig(map[string]interface{}{"preset": "nope"}); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestManagerRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{"out of range", map[string]interface{}{"quality": 0}},
		{"wrong type", map[string]interface{}{"width": "wide"}},
		{"bad source", map[string]interface{}{"source": "webrtc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(DefaultConfig())
			called := false
			m.OnChange(func(Config) { called = true })
			before := m.GetConfig()

			if err := m.UpdateConfig(tt.params); err == nil {
				t.Fatal("expected error")
			}
			if m.GetConfig() != before {
				t.Error("invalid update must not change config")
			}
			if called {
				t.Error("listener called for rejected update")
			}
		})
	}
}

func TestManagerUpdateDoesNotMutateParams(t *testing.T) {
	m := NewManager(DefaultConfig())
	params := map[string]interface{}{"preset": Preset480p, "device": float64(2)}

	if err := m.UpdateConfig(params); err != nil {
		t.Fatal(err)
	}
	if _, ok := params["preset"]; !ok {
		t.Error("preset key removed from caller's map")
	}
	if params["device"] != float64(2) {
		t.Error("device rewritten in caller's map")
	}
}

func TestManagerConfigJSON(t *testing.T) {
	m := NewManager(DefaultConfig())
	j := m.GetConfigJSON()
	if j["source"] != "opencv" {
		t.Errorf("unexpected source: %v", j["source"])
	}
	if j["quality"] != float64(80) {
		t.Errorf("unexpected quality: %v", j["quality"])
	}
}
