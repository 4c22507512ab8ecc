package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ManifestPath is a manifest file or a directory of manifests.
	ManifestPath string
	// WorkDir is where job commands run; empty means the current directory.
	WorkDir string
	// CacheDir is the artifact cache root; empty disables caching.
	CacheDir string

	// Listen is the webhook listen address. Empty selects one-shot mode,
	// where Event and Branch describe the triggering event directly.
	Listen string
	Event  string
	Branch string

	LogFormat   string
	LogLevel    string
	WorkerCount int
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
