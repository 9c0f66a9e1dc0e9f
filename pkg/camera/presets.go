package camera

// Preset names for common configurations
const (
	PresetDefault  = "default"
	Preset480p     = "480p"
	Preset720p     = "720p"
	Preset1080p    = "1080p"
	PresetDocument = "document"
)

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetDefault, Preset480p, Preset720p, Preset1080p, PresetDocument}
}

// GetPreset returns a preset config derived from base, or nil if the name is
// unknown. Source and Device are kept from base so a preset never switches
// hardware.
func GetPreset(name string, base Config) *Config {
	cfg := base
	switch name {
	case PresetDefault:
		def := DefaultConfig()
		def.Source, def.Device = base.Source, base.Device
		cfg = def
	case Preset480p:
		cfg.Width, cfg.Height = 640, 480
	case Preset720p:
		cfg.Width, cfg.Height = 1280, 720
	case Preset1080p:
		cfg.Width, cfg.Height = 1920, 1080
	case PresetDocument:
		// Handwriting and printed problems need detail more than motion.
		cfg.Width, cfg.Height = 1920, 1080
		cfg.Framerate = 15
		cfg.Quality = 90
	default:
		return nil
	}
	return &cfg
}
