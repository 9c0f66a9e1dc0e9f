package camera

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// Manager holds the camera configuration. Device settings apply to the
// next acquisition; a running stream keeps the settings it was opened
// with. Quality is read at every still capture.
type Manager struct {
	mu        sync.RWMutex
	config    Config
	listeners []func(Config)
}

// NewManager creates a manager starting from cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{config: cfg}
}

// GetConfig returns the current configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// OnChange registers fn to be called after every accepted change.
func (m *Manager) OnChange(fn func(Config)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// SetConfig validates cfg and makes it current.
func (m *Manager) SetConfig(cfg Config) error {
	if problems := cfg.Validate(); len(problems) > 0 {
		errs := make([]error, len(problems))
		for i, p := range problems {
			errs[i] = errors.New(p)
		}
		return fmt.Errorf("invalid camera config: %w", errors.Join(errs...))
	}

	m.mu.Lock()
	m.config = cfg
	listeners := append(([]func(Config))(nil), m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}
	return nil
}

// UpdateConfig merges params, keyed by JSON field name, into the current
// configuration. A "preset" key is applied first, then the other fields
// override it. Nothing changes unless the result is valid.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	patch := make(map[string]interface{}, len(params))
	for k, v := range params {
		patch[k] = v
	}

	if name, ok := patch["preset"]; ok {
		delete(patch, "preset")
		s, _ := name.(string)
		preset := GetPreset(s, cfg)
		if preset == nil {
			return fmt.Errorf("unknown preset: %v", name)
		}
		cfg = *preset
	}

	// Device indexes arrive as JSON numbers.
	if n, ok := patch["device"].(float64); ok {
		patch["device"] = strconv.Itoa(int(n))
	}

	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	return m.SetConfig(cfg)
}

// GetConfigJSON returns the configuration as a generic JSON object.
func (m *Manager) GetConfigJSON() map[string]interface{} {
	data, _ := json.Marshal(m.GetConfig())
	var out map[string]interface{}
	_ = json.Unmarshal(data, &out)
	return out
}
