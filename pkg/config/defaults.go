package config

// Defaults contains system-wide default configurations used when a
// request doesn't specify its own values.
type Defaults struct {
	// Mode is the requested-mode default when a client omits it
	// (spec.md §6 "mode ... default baseline").
	Mode string `yaml:"mode,omitempty"`

	// AutoAnalyze is the auto_analyze default when a client omits it.
	AutoAnalyze bool `yaml:"auto_analyze"`
}

// DefaultDefaults returns the built-in request defaults.
func DefaultDefaults() *Defaults {
	return &Defaults{
		Mode:        "baseline",
		AutoAnalyze: true,
	}
}
